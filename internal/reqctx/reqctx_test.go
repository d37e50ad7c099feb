package reqctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewAssignsCorrelationID(t *testing.T) {
	rc := New()
	require.NotEmpty(t, rc.CorrelationID)
}

func TestWithContextRoundTrip(t *testing.T) {
	rc := New()
	ctx := WithContext(context.Background(), rc)
	got := FromContext(ctx)
	require.Same(t, rc, got)
}

func TestFromContextMissingReturnsNil(t *testing.T) {
	got := FromContext(context.Background())
	require.Nil(t, got)
}
