// Package metrics registers the proxy's Prometheus counters and exposes
// them over HTTP. Grounded on luxfi-consensus's
// protocol/prism/early_term_traversal.go: a single Registerer, one CounterVec
// per concern, and label constants instead of building label maps inline
// at every call site.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	bidOutcomeLabel      = "outcome"
	bidProviderLabel     = "provider"
	streamCodecLabel     = "codec"
	streamDirectionLabel = "direction"
)

// Registry is the proxy's private Prometheus registry; using a private one
// rather than the global default registerer keeps repeated Signer/state
// construction in tests from panicking on duplicate registration.
var Registry = prometheus.NewRegistry()

var (
	bidsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ts_edge_auction_bids_total",
		Help: "Total bid requests dispatched by the auction orchestrator, by provider and outcome.",
	}, []string{bidProviderLabel, bidOutcomeLabel})

	bidLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ts_edge_auction_bid_latency_seconds",
		Help:    "Bid round-trip latency by provider.",
		Buckets: prometheus.DefBuckets,
	}, []string{bidProviderLabel})

	streamBytesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ts_edge_stream_bytes_total",
		Help: "Bytes processed by the streaming pipeline, by codec and direction (decoded|encoded).",
	}, []string{streamCodecLabel, streamDirectionLabel})
)

func init() {
	Registry.MustRegister(bidsTotal, bidLatencySeconds, streamBytesTotal)
}

// ObserveBid records one provider dispatch outcome and its latency.
func ObserveBid(provider, outcome string, elapsed float64) {
	bidsTotal.WithLabelValues(provider, outcome).Inc()
	bidLatencySeconds.WithLabelValues(provider).Observe(elapsed)
}

// AddStreamBytes records n bytes moved through the pipeline in direction
// ("decoded" or "encoded") for codec.
func AddStreamBytes(codec, direction string, n int) {
	if n <= 0 {
		return
	}
	streamBytesTotal.WithLabelValues(codec, direction).Add(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
