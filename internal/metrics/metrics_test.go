package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestObserveBidAndStreamBytesAreVisibleOnHandler(t *testing.T) {
	ObserveBid("acme", "success", 0.042)
	AddStreamBytes("gzip", "decoded", 1024)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "ts_edge_auction_bids_total")
	require.Contains(t, body, "ts_edge_stream_bytes_total")
}

func TestAddStreamBytesIgnoresNonPositive(t *testing.T) {
	require.NotPanics(t, func() {
		AddStreamBytes("none", "decoded", 0)
		AddStreamBytes("none", "decoded", -5)
	})
}
