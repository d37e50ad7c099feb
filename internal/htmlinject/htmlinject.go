// Package htmlinject locates a safe byte offset to splice a script tag
// into an HTML document without touching anything else in the buffer.
// Finding that offset by regex is fragile: a literal "</head>" can appear
// inside a quoted attribute, an inline script body, or a comment. A real
// tokenizer sidesteps that, so this package uses golang.org/x/net/html in
// scan-only mode — it never re-serializes the document, it only walks
// tokens to find where the head ends.
package htmlinject

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// FindInsertionOffset returns the byte offset in doc just before the
// document's closing </head> tag. If there is no </head>, it falls back to
// the offset just after the opening <body> tag. It returns -1 if neither
// is found, meaning doc isn't a well-formed-enough document to splice into.
func FindInsertionOffset(doc string) int {
	z := html.NewTokenizer(strings.NewReader(doc))
	pos := 0
	bodyStart := -1

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		raw := z.Raw()

		switch tt {
		case html.EndTagToken:
			if name, _ := z.TagName(); atom.Lookup(name) == atom.Head {
				return pos
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			if bodyStart < 0 {
				if name, _ := z.TagName(); atom.Lookup(name) == atom.Body {
					bodyStart = pos + len(raw)
				}
			}
		}
		pos += len(raw)
	}
	return bodyStart
}

// Splice inserts fragment at the offset FindInsertionOffset reports,
// appending it to the end of doc if no insertion point was found.
func Splice(doc, fragment string) string {
	offset := FindInsertionOffset(doc)
	if offset < 0 {
		return doc + fragment
	}
	return doc[:offset] + fragment + doc[offset:]
}
