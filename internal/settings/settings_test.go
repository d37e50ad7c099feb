package settings

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/trusted-server/ts-edge/internal/canon"
)

const sampleTOML = `
[publisher]
domain = "example.com"
origin_host = "origin.example.com"
origin_url = "https://origin.example.com"

[synthetic]
active_ttl_days = 30

[[handlers]]
id = "static"
scheme = "https"
host = "static.example.com"
cert_check = true

[auction]
strategy = "parallel_only"
timeout_ms = 1200

[[auction.providers]]
name = "acme"
enabled = true
endpoint = "https://bid.acme.example/rtb"
`

func TestParseTOMLPopulatesSettings(t *testing.T) {
	s, err := ParseTOML(sampleTOML)
	require.NoError(t, err)
	require.Equal(t, "example.com", s.Publisher.Domain)
	require.Len(t, s.Handlers, 1)
	require.Equal(t, "static", s.Handlers[0].ID)
	require.Len(t, s.Auction.Providers, 1)
	require.Equal(t, "acme", s.Auction.Providers[0].Name)
}

func TestValidateRejectsMissingDomain(t *testing.T) {
	s := &Settings{Publisher: Publisher{OriginHost: "origin.example.com"}}
	require.Error(t, Validate(s))
}

func TestValidateRejectsMediationWithoutMediator(t *testing.T) {
	s := &Settings{
		Publisher: Publisher{Domain: "example.com", OriginHost: "origin.example.com"},
		Auction:   Auction{Strategy: "parallel_mediation"},
	}
	require.Error(t, Validate(s))
}

func TestApplyEnvOverridesPublisherDomain(t *testing.T) {
	s, err := ParseTOML(sampleTOML)
	require.NoError(t, err)

	err = ApplyEnv(s, []string{"TRUSTED_SERVER__PUBLISHER__DOMAIN=override.example.com"})
	require.NoError(t, err)
	require.Equal(t, "override.example.com", s.Publisher.Domain)
}

func TestApplyEnvIgnoresUnrelatedVars(t *testing.T) {
	s, err := ParseTOML(sampleTOML)
	require.NoError(t, err)

	err = ApplyEnv(s, []string{"PATH=/usr/bin", "TRUSTED_SERVER__UNKNOWN_SECTION__FOO=bar"})
	require.NoError(t, err)
	require.Equal(t, "example.com", s.Publisher.Domain)
}

func TestToCanonicalTOMLIsStableAcrossReserialization(t *testing.T) {
	s, err := Load(sampleTOML, nil)
	require.NoError(t, err)

	first, err := ToCanonicalTOML(s)
	require.NoError(t, err)

	reparsed, err := ParseTOML(first)
	require.NoError(t, err)
	second, err := ToCanonicalTOML(reparsed)
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Equal(t, canon.Hash(first), canon.Hash(second))
}

func TestToCanonicalTOMLEndsWithSingleNewline(t *testing.T) {
	s, err := Load(sampleTOML, nil)
	require.NoError(t, err)
	out, err := ToCanonicalTOML(s)
	require.NoError(t, err)
	require.True(t, len(out) > 0 && out[len(out)-1] == '\n')
	require.False(t, out[len(out)-2] == '\n')
}
