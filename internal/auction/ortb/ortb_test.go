package ortb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/trusted-server/ts-edge/internal/auction"
)

func TestAdapterRequestBidsAndParse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"req1","cur":"USD","seatbid":[{"bid":[{"impid":"slot1","price":"2.50","adm":"<div/>","crid":"c1"}]}]}`))
	}))
	defer srv.Close()

	cfg := Config{BidderName: "acme", Enabled: true, Endpoint: srv.URL, BackendName: "b1", TimeoutMS: 1000}
	a := New(cfg, nil)

	req := auction.Request{Slots: []auction.Slot{{ID: "slot1", Width: 300, Height: 250}}, PublisherID: "pub1"}
	pending, err := a.RequestBids(context.Background(), req, auction.Context{})
	require.NoError(t, err)

	resp, err := pending.Wait(context.Background())
	require.NoError(t, err)
	require.Equal(t, auction.StatusSuccess, resp.Status)
	require.Len(t, resp.Bids, 1)
	require.Equal(t, "slot1", resp.Bids[0].SlotID)
	require.True(t, decimal.NewFromFloat(2.5).Equal(*resp.Bids[0].Price))
	require.Equal(t, "USD", resp.Bids[0].Currency)
}

func TestAdapterBackendNameEmptyReturnsFalse(t *testing.T) {
	a := New(Config{BidderName: "acme"}, nil)
	_, ok := a.BackendName()
	require.False(t, ok)
}
