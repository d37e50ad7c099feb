package datadome

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"

	"github.com/trusted-server/ts-edge/internal/integration"
	"github.com/trusted-server/ts-edge/internal/settings"
)

func TestFromSettingsDefaults(t *testing.T) {
	cfg := FromSettings(settings.Integration{})
	require.Equal(t, defaultSDKOrigin, cfg.SDKOrigin)
	require.Equal(t, defaultCacheTTLSecs, cfg.CacheTTLSecs)
	require.True(t, cfg.RewriteSDK)
	require.False(t, cfg.Enabled)
}

func TestFromSettingsOverrides(t *testing.T) {
	cfg := FromSettings(settings.Integration{
		"enabled":     "true",
		"js_key":      "abc123",
		"sdk_origin":  "https://custom.datadome.example",
		"rewrite_sdk": "false",
	})
	require.True(t, cfg.Enabled)
	require.Equal(t, "abc123", cfg.JSKey)
	require.Equal(t, "https://custom.datadome.example", cfg.SDKOrigin)
	require.False(t, cfg.RewriteSDK)
}

func TestRewriteScriptContentReplacesAllPatterns(t *testing.T) {
	body := `var a = "js.datadome.co/js/"; var b = "//js.datadome.co/js/"; ` +
		`var c = 'https://js.datadome.co/js/'; var d = "js.datadome.co";`
	got := RewriteScriptContent(body, "edge.example.com")

	require.Contains(t, got, `"edge.example.com/js/`)
	require.Contains(t, got, `"//edge.example.com/integrations/datadome/js/`)
	require.Contains(t, got, `'https://edge.example.com/integrations/datadome/js/`)
	require.Contains(t, got, `"edge.example.com/integrations/datadome"`)
	require.NotContains(t, got, "js.datadome.co")
}

func TestBuildTargetURL(t *testing.T) {
	require.Equal(t, "https://js.datadome.co/tags.js", buildTargetURL("https://js.datadome.co/", "/tags.js", ""))
	require.Equal(t, "https://js.datadome.co/js/abc?x=1", buildTargetURL("https://js.datadome.co", "/js/abc", "x=1"))
}

func TestAttributeRewriterRewritesMatchingSrc(t *testing.T) {
	ar := &attributeRewriter{cfg: Config{RewriteSDK: true}}
	require.True(t, ar.HandlesAttribute("src"))
	require.False(t, ar.HandlesAttribute("href"))

	ctx := integration.AttributeContext{RequestHost: "edge.example.com", RequestScheme: "https"}
	action := ar.Rewrite("src", "https://js.datadome.co/tags.js", ctx)
	require.True(t, action.Replace)
	require.Equal(t, "https://edge.example.com/integrations/datadome/tags.js", action.NewValue)

	action = ar.Rewrite("src", "/static/app.js", ctx)
	require.False(t, action.Replace)
}

func TestHandleTagsJSProxiesAndRewrites(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "max-age=3600")
		_, _ = w.Write([]byte(`fetch("//js.datadome.co/js/signals")`))
	}))
	defer upstream.Close()

	cfg := Config{SDKOrigin: upstream.URL, RewriteSDK: true}
	adapter := New(cfg, resty.New())

	req := httptest.NewRequest(http.MethodGet, tagsPath, nil)
	req.Host = "edge.example.com"
	rec := httptest.NewRecorder()
	adapter.proxyHandler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "edge.example.com/integrations/datadome/js/signals")
	require.Equal(t, "max-age=3600", rec.Header().Get("Cache-Control"))
}

func TestHandleJSAPIProxiesWithHeaderAllowlist(t *testing.T) {
	var gotUA string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer upstream.Close()

	cfg := Config{SDKOrigin: upstream.URL}
	adapter := New(cfg, resty.New())

	req := httptest.NewRequest(http.MethodGet, jsAPIPrefix+"signals", nil)
	req.Header.Set("User-Agent", "test-agent")
	rec := httptest.NewRecorder()
	adapter.proxyHandler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "test-agent", gotUA)
}
