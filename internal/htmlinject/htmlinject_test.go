package htmlinject

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFindInsertionOffsetBeforeHeadClose(t *testing.T) {
	doc := `<html><head><title>x</title></head><body>hi</body></html>`
	offset := FindInsertionOffset(doc)
	require.Equal(t, doc[:offset], `<html><head><title>x</title>`)
}

func TestFindInsertionOffsetIgnoresHeadCloseLookalikeInAttribute(t *testing.T) {
	doc := `<html><head><meta data-note="</head>"><title>x</title></head><body>hi</body></html>`
	offset := FindInsertionOffset(doc)
	require.Equal(t, "</head><body>hi</body></html>", doc[offset:])
}

func TestFindInsertionOffsetFallsBackToBodyStart(t *testing.T) {
	doc := `<html><body>no head here</body></html>`
	offset := FindInsertionOffset(doc)
	require.Equal(t, "no head here</body></html>", doc[offset:])
}

func TestFindInsertionOffsetReturnsNegativeOneWithNoAnchors(t *testing.T) {
	require.Equal(t, -1, FindInsertionOffset("plain text, no tags"))
}

func TestSpliceInsertsFragmentAtHeadClose(t *testing.T) {
	doc := `<html><head></head><body></body></html>`
	out := Splice(doc, "<script>1</script>")
	require.Equal(t, `<html><head><script>1</script></head><body></body></html>`, out)
}

func TestSpliceAppendsWhenNoAnchorFound(t *testing.T) {
	out := Splice("no tags here", "<script>1</script>")
	require.Equal(t, "no tags here<script>1</script>", out)
}
