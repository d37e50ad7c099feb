package auction

import "context"

// Provider is the bidder contract (spec.md §4.9 "Provider contract").
// request_bids launches the outbound call and returns immediately with a
// PendingRequest the orchestrator waits on; the Response comes back from
// PendingRequest.Wait. The orchestrator never calls ParseResponse itself —
// it turns a raw body a caller already holds into a Response.
type Provider interface {
	Name() string
	IsEnabled() bool
	// BackendName returns the backend this provider's requests resolve to,
	// for the orchestrator's select-loop correlation (spec.md §4.4/§4.9).
	// A provider with no resolvable backend returns ("", false) and is
	// skipped.
	BackendName() (string, bool)
	TimeoutMS() int
	RequestBids(ctx context.Context, req Request, actx Context) (PendingRequest, error)
	ParseResponse(raw any, elapsedMS int64) Response
	// SupportsMediaType defaults to banner-only when a provider has no
	// reason to diverge.
	SupportsMediaType(mediaType string) bool
}

// BaseProvider gives concrete providers a banner-only SupportsMediaType
// for free; embed it and override when a provider supports more.
type BaseProvider struct{}

func (BaseProvider) SupportsMediaType(mediaType string) bool {
	return mediaType == "banner" || mediaType == ""
}
