package signing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/trusted-server/ts-edge/internal/configstore"
)

func newTestSigner() (*Signer, context.Context) {
	public := configstore.NewMemStore()
	secret := configstore.NewMemStore()
	return NewSigner(public, secret), context.Background()
}

func TestRotateThenSignAndVerify(t *testing.T) {
	s, ctx := newTestSigner()
	kid, err := s.Rotate(ctx, "", time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, "ts-2026-07-30", kid)

	payload := []byte("hello world")
	sig, signedKID, err := s.Sign(ctx, payload)
	require.NoError(t, err)
	require.Equal(t, kid, signedKID)

	ok, err := s.Verify(ctx, payload, sig, kid)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	s, ctx := newTestSigner()
	kid, err := s.Rotate(ctx, "", time.Now())
	require.NoError(t, err)
	sig, _, err := s.Sign(ctx, []byte("original"))
	require.NoError(t, err)

	ok, err := s.Verify(ctx, []byte("tampered"), sig, kid)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestVerifyUnknownKidFails(t *testing.T) {
	s, ctx := newTestSigner()
	_, err := s.Verify(ctx, []byte("x"), "sig", "nope")
	require.ErrorIs(t, err, ErrKeyNotFound)
}

func TestRotateTwiceKeepsBothActive(t *testing.T) {
	s, ctx := newTestSigner()
	k1, err := s.Rotate(ctx, "k1", time.Now())
	require.NoError(t, err)
	k2, err := s.Rotate(ctx, "k2", time.Now())
	require.NoError(t, err)

	active, err := s.ActiveKIDs(ctx)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{k1, k2}, active)

	cur, err := s.public.Get(ctx, "current-kid")
	require.NoError(t, err)
	require.Equal(t, k2, cur)
}

func TestDeactivateLastActiveKeyFails(t *testing.T) {
	s, ctx := newTestSigner()
	kid, err := s.Rotate(ctx, "only", time.Now())
	require.NoError(t, err)

	err = s.Deactivate(ctx, kid)
	require.ErrorIs(t, err, ErrLastActiveKey)
}

func TestDeactivateThenDeleteRemovesKey(t *testing.T) {
	s, ctx := newTestSigner()
	k1, err := s.Rotate(ctx, "k1", time.Now())
	require.NoError(t, err)
	k2, err := s.Rotate(ctx, "k2", time.Now())
	require.NoError(t, err)

	require.NoError(t, s.Deactivate(ctx, k1))
	active, err := s.ActiveKIDs(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{k2}, active)

	require.NoError(t, s.Delete(ctx, k1))
	_, err = s.loadJWK(ctx, k1)
	require.ErrorIs(t, err, ErrKeyNotFound)
}

func TestJWKSAndDiscovery(t *testing.T) {
	s, ctx := newTestSigner()
	kid, err := s.Rotate(ctx, "", time.Now())
	require.NoError(t, err)

	doc, err := s.Discovery(ctx)
	require.NoError(t, err)
	require.Equal(t, "1.0", doc.Version)
	require.Len(t, doc.JWKS.Keys, 1)
	require.Equal(t, kid, doc.JWKS.Keys[0].Kid)
	require.Equal(t, "OKP", doc.JWKS.Keys[0].Kty)
}
