package auction

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/trusted-server/ts-edge/internal/metrics"
	"github.com/trusted-server/ts-edge/internal/tserr"
)

// Orchestrator dispatches an auction request to every enabled provider in
// parallel and selects winning bids (spec.md §4.9, C11). With a Mediator
// configured, the combined provider responses are handed off to it for
// final winner selection instead (the "parallel_mediation" strategy).
type Orchestrator struct {
	Providers []Provider
	Mediator  Provider // nil selects "parallel_only"
	TimeoutMS int
}

// Orchestrate runs one auction end to end: parallel dispatch, optional
// mediation hand-off, floor-price filtering. An auction with zero
// configured providers fails with NoProviders; individual provider errors
// never fail the auction (spec.md §4.9 "Failure model").
func (o *Orchestrator) Orchestrate(ctx context.Context, req Request, actx Context) (*OrchestrationResult, error) {
	if len(o.Providers) == 0 {
		return nil, tserr.Auction("no providers configured")
	}

	timeout := time.Duration(o.TimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	responses := o.dispatch(ctx, req, actx, o.Providers)

	if o.Mediator != nil {
		actx.ProviderResponses = responses
		resp, err := o.runMediator(ctx, req, actx)
		if err != nil {
			return nil, err
		}
		winners, dropped := mediatorWinners(resp)
		return &OrchestrationResult{
			Winners:        winners,
			ProviderCount:  len(o.Providers),
			ResponseCount:  1,
			DroppedByFloor: dropped,
		}, nil
	}

	winners, droppedNone := SelectWinners(responses, req.Slots)
	winners, droppedFloor := ApplyFloor(winners, req.Slots)
	return &OrchestrationResult{
		Winners:        winners,
		ProviderCount:  len(o.Providers),
		ResponseCount:  len(responses),
		DroppedByFloor: droppedNone + droppedFloor,
	}, nil
}

func (o *Orchestrator) runMediator(ctx context.Context, req Request, actx Context) (Response, error) {
	pending, err := o.Mediator.RequestBids(ctx, req, actx)
	if err != nil {
		return Response{}, tserr.AuctionWrap(err, "mediator request_bids")
	}
	resp, err := pending.Wait(ctx)
	if err != nil {
		return Response{}, tserr.AuctionWrap(err, "mediator failed")
	}
	return *resp, nil
}

// dispatch launches request_bids on every enabled provider with a
// resolvable backend and fans in their responses as each call completes.
// The fan-in over independently-completing goroutines is this codebase's
// equivalent of the single-threaded runtime's "select across pending
// requests, return first ready" primitive (spec.md §5): arrival order is
// the order in which the goroutines append under the mutex, and downstream
// selection logic is written to be commutative with respect to it.
func (o *Orchestrator) dispatch(ctx context.Context, req Request, actx Context, providers []Provider) []Response {
	g, gctx := errgroup.WithContext(ctx)
	var mu sync.Mutex
	var responses []Response

	for _, p := range providers {
		p := p
		if !p.IsEnabled() {
			continue
		}
		if _, ok := p.BackendName(); !ok {
			slog.Debug("auction: skipping provider with no backend", "provider", p.Name())
			continue
		}
		pending, err := p.RequestBids(gctx, req, actx)
		if err != nil {
			slog.Warn("auction: request_bids failed", "provider", p.Name(), "error", err)
			continue
		}
		g.Go(func() error {
			resp, waitErr := pending.Wait(gctx)
			elapsed := time.Since(pending.Start)
			var r Response
			if waitErr != nil {
				r = Response{ProviderName: p.Name(), Status: StatusError, Err: waitErr, ElapsedMS: elapsed.Milliseconds()}
			} else {
				r = *resp
			}
			metrics.ObserveBid(p.Name(), string(r.Status), elapsed.Seconds())
			mu.Lock()
			responses = append(responses, r)
			mu.Unlock()
			return nil // provider failures are isolated, never fail the group
		})
	}
	_ = g.Wait()
	return responses
}

// SelectWinners implements the no-mediator winner selection (spec.md
// §4.9): for each Success response, skip price=None bids, group by
// slot_id, and keep the highest price with a stable first-seen tie-break.
// It returns the winners and a count of bids skipped for having no
// decoded price.
func SelectWinners(responses []Response, slots []Slot) (map[string]Bid, int) {
	best := make(map[string]Bid)
	bestPrice := make(map[string]decimal.Decimal)
	droppedNone := 0

	for _, resp := range responses {
		if resp.Status != StatusSuccess {
			continue
		}
		for _, b := range resp.Bids {
			if b.Price == nil {
				droppedNone++
				continue
			}
			cur, exists := bestPrice[b.SlotID]
			if !exists || b.Price.GreaterThan(cur) {
				best[b.SlotID] = b
				bestPrice[b.SlotID] = *b.Price
			}
		}
	}
	return best, droppedNone
}

// ApplyFloor drops winning bids below their slot's floor price (spec.md
// §4.9 "Floor-price filter"). A bid with no decoded price is kept — the
// mediator is trusted to enforce the floor in that case — though in the
// no-mediator path SelectWinners has already removed all such bids.
func ApplyFloor(winners map[string]Bid, slots []Slot) (map[string]Bid, int) {
	floors := make(map[string]*decimal.Decimal, len(slots))
	for _, s := range slots {
		floors[s.ID] = s.FloorPrice
	}
	dropped := 0
	for slotID, bid := range winners {
		floor := floors[slotID]
		if floor == nil || bid.Price == nil {
			continue
		}
		if bid.Price.LessThan(*floor) {
			delete(winners, slotID)
			dropped++
		}
	}
	return winners, dropped
}

// mediatorWinners maps the mediator's final bid list by slot id, dropping
// any bid the mediator left with an undecoded (None) price, with a
// warning (spec.md §4.9 "Mediator path").
func mediatorWinners(resp Response) (map[string]Bid, int) {
	winners := make(map[string]Bid, len(resp.Bids))
	dropped := 0
	for _, b := range resp.Bids {
		if b.Price == nil {
			slog.Warn("auction: mediator returned bid with no decoded price", "slot", b.SlotID)
			dropped++
			continue
		}
		winners[b.SlotID] = b
	}
	return winners, dropped
}
