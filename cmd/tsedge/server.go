package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/trusted-server/ts-edge/internal/auction"
	"github.com/trusted-server/ts-edge/internal/metrics"
	"github.com/trusted-server/ts-edge/internal/signing"
)

// newRouter builds the daemon's HTTP surface: the discovery endpoint
// (spec.md §6.3), the internal auction trigger, integration proxy routes,
// and the catch-all streaming proxy.
func newRouter(st *state) http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/.well-known/trusted-server.json", st.discoveryHandler)
	r.POST("/internal/auction", st.auctionHandler)
	r.GET("/internal/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.POST("/internal/synthetic-id/:scope", st.syntheticIDHandler)

	for _, id := range []string{"datadome"} {
		if proxy, ok := st.integrations.ProxyFor(id); ok {
			r.Any("/integrations/"+id+"/*rest", gin.WrapH(proxy))
		}
	}

	r.NoRoute(st.proxyHandler)
	return r
}

func (st *state) discoveryHandler(c *gin.Context) {
	disc, err := st.signer.Discovery(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, disc)
}

func (st *state) auctionHandler(c *gin.Context) {
	var req auction.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.RequestHost == "" {
		req.RequestHost = c.Request.Host
	}

	actx := auction.Context{
		RequestHost:   c.Request.Host,
		RequestScheme: requestSchemeOf(c.Request),
	}

	result, err := st.orchestrator.Orchestrate(c.Request.Context(), req, actx)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// syntheticIDHandler mints the privacy-scoped identifier an integration
// (an ad server or bot-protection vendor) presents in lieu of a
// third-party cookie, scoped to the path segment naming that integration.
func (st *state) syntheticIDHandler(c *gin.Context) {
	scope := c.Param("scope")
	cfg := signing.SyntheticConfig{
		CurrentKIDOverride: st.settings.Synthetic.CurrentKIDOverride,
		ActiveTTLDays:      st.settings.Synthetic.ActiveTTLDays,
		MinSecretBytes:     st.settings.Synthetic.MinSecretBytes,
	}
	id, err := st.signer.MintSyntheticID(c.Request.Context(), cfg, scope, time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, id)
}
