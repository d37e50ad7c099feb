package geo

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCopyHeadersCopiesPresentOnly(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Geo-Country", "US")
	req.Header.Set("X-Geo-City", "Seattle")

	rec := httptest.NewRecorder()
	CopyHeaders(req, rec.Header())

	require.Equal(t, "US", rec.Header().Get("X-Geo-Country"))
	require.Equal(t, "Seattle", rec.Header().Get("X-Geo-City"))
	require.Empty(t, rec.Header().Get("X-Geo-Continent"))
}
