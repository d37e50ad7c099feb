package nextdata

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRewriteFullURLNormalizesScheme(t *testing.T) {
	r := NewRewriter(nil, "origin.example.com", "https://origin.example.com", "edge.example.com", "https")
	in := `{"href":"http://origin.example.com/a"}`
	out := r.Rewrite(in)
	require.Equal(t, `{"href":"https://edge.example.com/a"}`, out)
}

func TestRewriteProtocolRelativeStaysRelative(t *testing.T) {
	r := NewRewriter(nil, "origin.example.com", "https://origin.example.com", "edge.example.com", "https")
	in := `{"url":"//origin.example.com/a"}`
	out := r.Rewrite(in)
	require.Equal(t, `{"url":"//edge.example.com/a"}`, out)
}

func TestRewriteBareHostValue(t *testing.T) {
	r := NewRewriter(nil, "origin.example.com", "https://origin.example.com", "edge.example.com", "https")
	in := `{"siteProductionDomain":"origin.example.com"}`
	out := r.Rewrite(in)
	require.Equal(t, `{"siteProductionDomain":"edge.example.com"}`, out)
}

func TestRewriteIgnoresUnconfiguredAttribute(t *testing.T) {
	r := NewRewriter(nil, "origin.example.com", "https://origin.example.com", "edge.example.com", "https")
	in := `{"other":"origin.example.com"}`
	out := r.Rewrite(in)
	require.Equal(t, in, out)
}

func TestRewriteDoesNotTouchSubdomainHost(t *testing.T) {
	r := NewRewriter(nil, "origin.example.com", "https://origin.example.com", "edge.example.com", "https")
	in := `{"url":"cdn.origin.example.com"}`
	out := r.Rewrite(in)
	require.Equal(t, in, out)
}

func TestRewriteCustomAttributeList(t *testing.T) {
	r := NewRewriter([]string{"apiBase"}, "origin.example.com", "https://origin.example.com", "edge.example.com", "https")
	in := `{"apiBase":"https://origin.example.com/api"}`
	out := r.Rewrite(in)
	require.Equal(t, `{"apiBase":"https://edge.example.com/api"}`, out)
}
