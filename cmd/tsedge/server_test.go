package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestState(t *testing.T, originURL string) *state {
	t.Helper()
	toml := `
[publisher]
domain = "edge.example.com"
origin_host = "` + hostOf(originURL) + `"
origin_url = "` + originURL + `"

[auction]
strategy = "parallel_only"
timeout_ms = 500
`
	st, err := newState([]byte(toml), nil)
	require.NoError(t, err)
	return st
}

func TestDiscoveryHandlerServesJWKS(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer origin.Close()

	st := newTestState(t, origin.URL)

	r := newRouter(st)
	req := httptest.NewRequest(http.MethodGet, "/.well-known/trusted-server.json", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"version"`)
}

func TestProxyHandlerRewritesOriginHost(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<a href="https://` + r.Host + `/path">link</a>`))
	}))
	defer origin.Close()

	st := newTestState(t, origin.URL)
	r := newRouter(st)

	req := httptest.NewRequest(http.MethodGet, "/page", nil)
	req.Host = "edge.example.com"
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "edge.example.com/path")
}

func TestSyntheticIDHandlerMintsScopedIdentifier(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer origin.Close()

	st := newTestState(t, origin.URL)
	_, err := st.signer.Rotate(context.Background(), "", time.Now())
	require.NoError(t, err)

	r := newRouter(st)
	req := httptest.NewRequest(http.MethodPost, "/internal/synthetic-id/datadome", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"scope":"datadome"`)
}

func TestAuctionHandlerNoProvidersFails(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer origin.Close()

	st := newTestState(t, origin.URL)
	r := newRouter(st)

	req := httptest.NewRequest(http.MethodPost, "/internal/auction", strings.NewReader(`{"slots":[]}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadGateway, rec.Code)
}
