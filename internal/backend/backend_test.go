package backend

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnsureDefaultsPortAndHostHeader(t *testing.T) {
	r := NewRegistry()
	b, err := r.Ensure("https", "origin.example.com", 0, true)
	require.NoError(t, err)
	require.Equal(t, 443, b.Port)
	require.Equal(t, "origin.example.com", b.HostHeader)
	require.Equal(t, "backend_https_origin_example_com_443", b.Name)
	require.True(t, b.TLSEnabled())
}

func TestEnsureNonDefaultPortIncludesPortInHostHeader(t *testing.T) {
	r := NewRegistry()
	b, err := r.Ensure("http", "origin.example.com", 8080, true)
	require.NoError(t, err)
	require.Equal(t, "origin.example.com:8080", b.HostHeader)
}

func TestEnsureNoCertCheckSuffixesName(t *testing.T) {
	r := NewRegistry()
	b, err := r.Ensure("https", "origin.example.com", 0, false)
	require.NoError(t, err)
	require.Equal(t, "backend_https_origin_example_com_443_nocert", b.Name)
	require.False(t, b.TLSConfig().InsecureSkipVerify == false)
}

func TestEnsureIsIdempotent(t *testing.T) {
	r := NewRegistry()
	a, err := r.Ensure("https", "origin.example.com", 0, true)
	require.NoError(t, err)
	b, err := r.Ensure("https", "origin.example.com", 443, true)
	require.NoError(t, err)
	require.Same(t, a, b)
}

func TestEnsureRejectsEmptyHost(t *testing.T) {
	r := NewRegistry()
	_, err := r.Ensure("https", "", 0, true)
	require.Error(t, err)
}

func TestEnsureRejectsBadScheme(t *testing.T) {
	r := NewRegistry()
	_, err := r.Ensure("ftp", "origin.example.com", 0, true)
	require.Error(t, err)
}

func TestLookupByName(t *testing.T) {
	r := NewRegistry()
	b, err := r.Ensure("https", "origin.example.com", 0, true)
	require.NoError(t, err)
	got, ok := r.Lookup(b.Name)
	require.True(t, ok)
	require.Same(t, b, got)
}
