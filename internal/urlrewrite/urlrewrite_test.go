package urlrewrite

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func runAll(t *testing.T, r *Replacer, chunks []string) string {
	t.Helper()
	var out string
	for i, c := range chunks {
		isLast := i == len(chunks)-1
		b, err := r.ProcessChunk([]byte(c), isLast)
		require.NoError(t, err)
		out += string(b)
	}
	return out
}

func TestReplacerWholeURLAndHost(t *testing.T) {
	r := NewReplacer("origin.example.com", "https://origin.example.com", "edge.example.com", "https")
	out := runAll(t, r, []string{`<a href="https://origin.example.com/path">link</a> origin.example.com`})
	require.Equal(t, `<a href="https://edge.example.com/path">link</a> edge.example.com`, out)
}

func TestReplacerSchemeSwapVariant(t *testing.T) {
	r := NewReplacer("origin.example.com", "https://origin.example.com", "edge.example.com", "https")
	out := runAll(t, r, []string{`http://origin.example.com/x`})
	require.Equal(t, `https://edge.example.com/x`, out)
}

func TestReplacerProtocolRelative(t *testing.T) {
	r := NewReplacer("origin.example.com", "https://origin.example.com", "edge.example.com", "https")
	out := runAll(t, r, []string{`src="//origin.example.com/a.js"`})
	require.Equal(t, `src="//edge.example.com/a.js"`, out)
}

func TestReplacerSameOutputRegardlessOfChunking(t *testing.T) {
	input := `before https://origin.example.com/middle after origin.example.com tail`
	r1 := NewReplacer("origin.example.com", "https://origin.example.com", "edge.example.com", "https")
	whole := runAll(t, r1, []string{input})

	r2 := NewReplacer("origin.example.com", "https://origin.example.com", "edge.example.com", "https")
	var chunks []string
	for i := 0; i < len(input); i += 7 {
		end := i + 7
		if end > len(input) {
			end = len(input)
		}
		chunks = append(chunks, input[i:end])
	}
	chunked := runAll(t, r2, chunks)

	require.Equal(t, whole, chunked)
}
