// Package reqctx attaches a correlation id and a start time to each
// inbound request, supplementing spec.md with the request-scoped
// bookkeeping original_source's request_id.rs and request_timer.rs
// carried that the distillation dropped (SPEC_FULL.md §4.1).
package reqctx

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

type ctxKey struct{}

// RequestContext is the per-request bag threaded through a handler: a
// correlation id for log correlation, and a start time for elapsed-time
// bookkeeping (e.g. the auction orchestrator's total_time_ms).
type RequestContext struct {
	CorrelationID string
	Start         time.Time
}

// New mints a fresh RequestContext with a random correlation id.
func New() *RequestContext {
	return &RequestContext{CorrelationID: uuid.NewString(), Start: time.Now()}
}

// WithContext attaches rc to ctx.
func WithContext(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, rc)
}

// FromContext retrieves the RequestContext attached by WithContext, or nil
// if none was attached.
func FromContext(ctx context.Context) *RequestContext {
	rc, _ := ctx.Value(ctxKey{}).(*RequestContext)
	return rc
}

// Elapsed returns time since the request started.
func (rc *RequestContext) Elapsed() time.Duration {
	return time.Since(rc.Start)
}

// Logger returns a slog.Logger pre-populated with the correlation id, so
// every log line a handler emits for this request carries it without the
// caller repeating the attribute.
func (rc *RequestContext) Logger(base *slog.Logger) *slog.Logger {
	if base == nil {
		base = slog.Default()
	}
	return base.With("correlation_id", rc.CorrelationID)
}
