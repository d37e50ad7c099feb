package configstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemStoreGetNotFound(t *testing.T) {
	s := NewMemStore()
	_, err := s.Get(context.Background(), "settings")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPublishSettingsThenVerify(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	content := "[publisher]\ndomain = \"example.com\"\n"
	hash := "sha256:deadbeef"

	verify := func(c, expected string) bool { return expected == hash && c == content }

	require.NoError(t, PublishSettings(ctx, s, content, hash))

	got, err := FetchAndVerify(ctx, s, verify)
	require.NoError(t, err)
	require.Equal(t, content, got)
}

func TestFetchAndVerifyMismatch(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, KeySettings, "content"))
	require.NoError(t, s.Put(ctx, KeySettingsHash, "sha256:wrong"))

	_, err := FetchAndVerify(ctx, s, func(c, expected string) bool { return false })
	require.Error(t, err)
}
