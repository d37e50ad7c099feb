package signing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMintSyntheticIDThenVerify(t *testing.T) {
	s, ctx := newTestSigner()
	_, err := s.Rotate(ctx, "", time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	now := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	id, err := s.MintSyntheticID(ctx, SyntheticConfig{ActiveTTLDays: 7, MinSecretBytes: 16}, "datadome", now)
	require.NoError(t, err)
	require.NotEmpty(t, id.Value)
	require.Equal(t, "datadome", id.Scope)
	require.Equal(t, now.Add(7*24*time.Hour), id.ExpiresAt)

	ok, err := s.VerifySyntheticID(ctx, id, now.Add(time.Hour))
	require.NoError(t, err)
	require.True(t, ok)
}

func TestVerifySyntheticIDRejectsExpired(t *testing.T) {
	s, ctx := newTestSigner()
	_, err := s.Rotate(ctx, "", time.Now())
	require.NoError(t, err)

	now := time.Now()
	id, err := s.MintSyntheticID(ctx, SyntheticConfig{ActiveTTLDays: 1}, "ads", now)
	require.NoError(t, err)

	ok, err := s.VerifySyntheticID(ctx, id, now.Add(48*time.Hour))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMintSyntheticIDDistinctScopesDiffer(t *testing.T) {
	s, ctx := newTestSigner()
	_, err := s.Rotate(ctx, "", time.Now())
	require.NoError(t, err)

	now := time.Now()
	a, err := s.MintSyntheticID(ctx, SyntheticConfig{}, "scope-a", now)
	require.NoError(t, err)
	b, err := s.MintSyntheticID(ctx, SyntheticConfig{}, "scope-b", now)
	require.NoError(t, err)

	require.NotEqual(t, a.Value, b.Value)
}

func TestMintSyntheticIDUsesDefaultsWhenUnset(t *testing.T) {
	s, ctx := newTestSigner()
	_, err := s.Rotate(ctx, "", time.Now())
	require.NoError(t, err)

	now := time.Now()
	id, err := s.MintSyntheticID(ctx, SyntheticConfig{}, "prebid", now)
	require.NoError(t, err)
	require.Equal(t, now.UTC().Add(defaultSyntheticTTLDays*24*time.Hour), id.ExpiresAt)
}
