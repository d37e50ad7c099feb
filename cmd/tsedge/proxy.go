package main

import (
	"encoding/json"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/trusted-server/ts-edge/internal/geo"
	"github.com/trusted-server/ts-edge/internal/htmlinject"
	"github.com/trusted-server/ts-edge/internal/integration"
	"github.com/trusted-server/ts-edge/internal/logger"
	"github.com/trusted-server/ts-edge/internal/nextdata"
	"github.com/trusted-server/ts-edge/internal/reqctx"
	"github.com/trusted-server/ts-edge/internal/rsc"
	"github.com/trusted-server/ts-edge/internal/signing"
	"github.com/trusted-server/ts-edge/internal/streaming"
	"github.com/trusted-server/ts-edge/internal/tserr"
	"github.com/trusted-server/ts-edge/internal/urlrewrite"
)

var originScriptRe = regexp.MustCompile(`(?s)<script([^>]*)>(.*?)</script>`)
var srcAttrRe = regexp.MustCompile(`\bsrc=(["'])(.*?)\1`)

// proxyHandler forwards every non-control request to the configured
// origin, decompressing, rewriting, and recompressing the body along the
// way (C6-C8 and C12 wired together, SPEC_FULL.md §0).
func (st *state) proxyHandler(c *gin.Context) {
	rc := reqctx.New()
	ctx := reqctx.WithContext(c.Request.Context(), rc)
	log := rc.Logger(logger.Log)

	backend, ok := st.backends.Lookup(st.originName)
	if !ok {
		c.AbortWithStatus(http.StatusBadGateway)
		return
	}

	targetScheme := backend.Scheme
	target := targetScheme + "://" + backend.Host
	if backend.Port != 0 && backend.Port != 443 && backend.Port != 80 {
		target += ":" + strconv.Itoa(backend.Port)
	}
	target += c.Request.URL.RequestURI()

	outReq, err := http.NewRequestWithContext(ctx, c.Request.Method, target, c.Request.Body)
	if err != nil {
		c.AbortWithError(http.StatusBadGateway, tserr.ProxyWrap(err, "build upstream request"))
		return
	}
	outReq.Header = c.Request.Header.Clone()
	outReq.Host = backend.HostHeader

	client := &http.Client{Timeout: backend.FirstByteTimeout}
	resp, err := client.Do(outReq)
	if err != nil {
		log.Warn("upstream request failed", "error", err)
		c.AbortWithStatus(http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	for k, vv := range resp.Header {
		for _, v := range vv {
			c.Writer.Header().Add(k, v)
		}
	}
	geo.CopyHeaders(c.Request, c.Writer.Header())

	requestScheme := requestSchemeOf(c.Request)
	requestHost := c.Request.Host
	contentType := resp.Header.Get("Content-Type")
	codec := streaming.CodecFromEncoding(resp.Header.Get("Content-Encoding"))

	if strings.Contains(contentType, "text/html") {
		st.rewriteHTML(c, resp, codec, requestHost, requestScheme, log)
		return
	}

	c.Status(resp.StatusCode)
	replacer := urlrewrite.NewReplacer(st.settings.Publisher.OriginHost, st.settings.Publisher.OriginURL, requestHost, requestScheme)
	pipeline, err := streaming.NewPipeline(codec, streaming.DefaultChunkSize, replacer)
	if err != nil {
		log.Warn("unsupported stream transformation", "error", err)
		io.Copy(c.Writer, resp.Body)
		return
	}
	if err := pipeline.Run(resp.Body, c.Writer); err != nil {
		log.Warn("stream pipeline failed", "error", err)
	}
}

func (st *state) rewriteHTML(c *gin.Context, resp *http.Response, codec streaming.Codec, requestHost, requestScheme string, log interface {
	Warn(string, ...any)
}) {
	raw, err := streaming.DecodeAll(codec, resp.Body)
	if err != nil {
		log.Warn("decode html body failed", "error", err)
		c.AbortWithStatus(http.StatusBadGateway)
		return
	}

	html := string(raw)
	html = st.rewriteRSC(html, requestHost, requestScheme)
	html = nextdata.NewRewriter(nextdata.DefaultAttributes, st.settings.Publisher.OriginHost, st.settings.Publisher.OriginURL, requestHost, requestScheme).Rewrite(html)
	html = urlrewrite.RewriteAll(html, st.settings.Publisher.OriginHost, st.settings.Publisher.OriginURL, requestHost, requestScheme)
	html = st.rewriteIntegrationAttributes(html, requestHost, requestScheme)
	html = st.integrations.PostProcess(html)
	html = st.injectSyntheticID(c, html)

	out, err := streaming.EncodeAll(codec, []byte(html))
	if err != nil {
		log.Warn("encode html body failed", "error", err)
		c.AbortWithStatus(http.StatusBadGateway)
		return
	}

	c.Header("Content-Length", strconv.Itoa(len(out)))
	c.Status(resp.StatusCode)
	c.Writer.Write(out)
}

// injectSyntheticID mints a page-scoped synthetic identifier and splices a
// bootstrap script carrying it into <head>, so page scripts can read a
// first-party id in place of a third-party cookie on first paint. Minting
// failures are non-fatal: the page still serves without the bootstrap.
func (st *state) injectSyntheticID(c *gin.Context, html string) string {
	cfg := signing.SyntheticConfig{
		CurrentKIDOverride: st.settings.Synthetic.CurrentKIDOverride,
		ActiveTTLDays:      st.settings.Synthetic.ActiveTTLDays,
		MinSecretBytes:     st.settings.Synthetic.MinSecretBytes,
	}
	id, err := st.signer.MintSyntheticID(c.Request.Context(), cfg, "page", time.Now())
	if err != nil {
		return html
	}
	payload, err := json.Marshal(id)
	if err != nil {
		return html
	}
	script := `<script id="ts-synthetic-id" type="application/json">` + string(payload) + `</script>`
	return htmlinject.Splice(html, script)
}

// rewriteRSC runs the streaming-then-finish RSC rewrite over every
// <script> body in html in one pass, since the proxy buffers the whole
// document rather than feeding it through in fragments.
func (st *state) rewriteRSC(html, requestHost, requestScheme string) string {
	doc := rsc.NewDocument(rsc.Origin{
		Host:          st.settings.Publisher.OriginHost,
		URL:           st.settings.Publisher.OriginURL,
		RequestHost:   requestHost,
		RequestScheme: requestScheme,
	})
	html = originScriptRe.ReplaceAllStringFunc(html, func(tag string) string {
		m := originScriptRe.FindStringSubmatch(tag)
		if m == nil {
			return tag
		}
		rewritten := doc.RewriteScript(m[2])
		return "<script" + m[1] + ">" + rewritten + "</script>"
	})
	return doc.Finish(html)
}

// rewriteIntegrationAttributes runs every registered AttributeRewriter
// over src="..." attribute values found in html.
func (st *state) rewriteIntegrationAttributes(html, requestHost, requestScheme string) string {
	return srcAttrRe.ReplaceAllStringFunc(html, func(m string) string {
		sub := srcAttrRe.FindStringSubmatch(m)
		quote, value := sub[1], sub[2]
		action := st.integrations.RewriteAttribute("src", value, integration.AttributeContext{
			AttributeName: "src",
			RequestHost:   requestHost,
			RequestScheme: requestScheme,
			OriginHost:    st.settings.Publisher.OriginHost,
		})
		if !action.Replace {
			return m
		}
		return "src=" + quote + action.NewValue + quote
	})
}

func requestSchemeOf(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if v := r.Header.Get("X-Forwarded-Proto"); v != "" {
		return v
	}
	return "http"
}

