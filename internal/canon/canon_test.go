package canon

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashFormat(t *testing.T) {
	h := Hash("[publisher]\ndomain = \"example.com\"\n")
	require.Len(t, h, Len)
	require.True(t, strings.HasPrefix(h, "sha256:"))
}

func TestHashCRLFNormalization(t *testing.T) {
	lf := "[publisher]\ndomain = \"example.com\"\n"
	crlf := strings.ReplaceAll(lf, "\n", "\r\n")
	require.Equal(t, Hash(lf), Hash(crlf))
}

func TestHashIdempotentUnderNormalize(t *testing.T) {
	content := "a\r\nb\r\nc\n"
	require.Equal(t, Hash(Normalize(content)), Hash(content))
}

func TestVerify(t *testing.T) {
	content := "hello\nworld\n"
	h := Hash(content)
	require.True(t, Verify(content, h))
	require.False(t, Verify(content+"x", h))
}

func TestVerifyCRLFVariant(t *testing.T) {
	content := "hello\nworld\n"
	crlf := strings.ReplaceAll(content, "\n", "\r\n")
	h := Hash(content)
	require.True(t, Verify(crlf, h))
}
