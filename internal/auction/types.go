// Package auction implements the real-time ad auction data model, provider
// contract, and orchestrator (spec.md §4.9, C9–C11): parallel dispatch to
// N bidders with an optional mediation hand-off, floor-price filtering,
// and stable highest-price winner selection.
package auction

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the per-provider-call outcome (spec.md §4.9 "State machine").
type Status string

const (
	StatusSuccess Status = "success"
	StatusTimeout Status = "timeout"
	StatusError   Status = "error"
)

// Slot describes one ad placement being auctioned.
type Slot struct {
	ID         string
	MediaType  string // e.g. "banner"; see Provider.SupportsMediaType
	FloorPrice *decimal.Decimal
	Width      int
	Height     int
}

// Request is the auction request a Provider receives.
type Request struct {
	Slots       []Slot
	PublisherID string
	PageURL     string
	RequestHost string
}

// Bid is one bid a provider returned for a slot. Price is a pointer
// because a provider may return an encoded (not yet decoded) price,
// modeled as a nil Price (spec.md §4.9's Option<price>). It stays a
// decimal.Decimal end to end rather than converting to float64 at parse
// time, so winner selection and floor-price comparisons never reintroduce
// the rounding a wire-format decimal string was chosen to avoid.
type Bid struct {
	SlotID        string
	Price         *decimal.Decimal
	Currency      string
	CreativeID    string
	EncodedMarkup string
}

// Response is one provider's parsed result, tagged with the Status the
// orchestrator's select loop resolved it to.
type Response struct {
	ProviderName string
	Status       Status
	Bids         []Bid
	ElapsedMS    int64
	Err          error
}

// Context carries identity the provider needs to build its request and
// the orchestrator needs to correlate the response, plus — on the
// mediation path — the combined per-provider responses (spec.md §4.9
// "parallel_mediation").
type Context struct {
	RequestHost       string
	RequestScheme     string
	ProviderResponses []Response // populated only for the mediator's own request_bids call
}

// PendingRequest is the non-blocking handle request_bids returns; Wait
// blocks until the underlying HTTP call completes or ctx is canceled.
type PendingRequest struct {
	ProviderName string
	BackendName  string
	Start        time.Time
	Wait         func(ctx context.Context) (*Response, error)
}

// OrchestrationResult is what Orchestrate returns: the winning bid per
// slot, plus bookkeeping useful for logging/metrics.
type OrchestrationResult struct {
	Winners        map[string]Bid // slot id -> winning bid
	ProviderCount  int
	ResponseCount  int
	DroppedByFloor int
}
