// Package rsc implements the React Server Components streaming-payload
// rewriter (spec.md §4.8.1, C8): it finds __next_f.push script payloads in
// HTML, rewrites origin references inside them, and recomputes the
// Server-Component "T-chunk" length headers the payload shrinking or
// growing invalidates.
package rsc

import "strings"

// pushPrefixes are the two script forms the extractor recognizes
// (spec.md §4.8.1).
var pushPrefixes = []string{
	`self.__next_f.push([1,`,
	`(self.__next_f = self.__next_f || []).push([1,`,
}

// Payload is one extracted __next_f.push string literal payload and its
// byte range within the source script body.
type Payload struct {
	Raw        string // the literal content, escapes intact
	StartQuote byte   // ' or "
	BodyStart  int    // offset of the first payload byte within the script text
	BodyEnd    int    // offset just past the last payload byte (exclusive), before the closing quote
}

// ExtractPayload finds the first __next_f.push(...) call in script and
// returns its string literal payload. It returns ok=false, with no error,
// for scripts that don't match either push form, and also for a payload
// whose string literal is unterminated or ends on an unpaired trailing
// backslash — both are "abort extraction for this script" conditions, not
// panics (spec.md §4.8.1).
func ExtractPayload(script string) (Payload, bool) {
	for _, prefix := range pushPrefixes {
		idx := strings.Index(script, prefix)
		if idx < 0 {
			continue
		}
		rest := script[idx+len(prefix):]
		if len(rest) == 0 {
			continue
		}
		quote := rest[0]
		if quote != '\'' && quote != '"' {
			continue
		}
		end, ok := findStringEnd(rest, 1, quote)
		if !ok {
			continue
		}
		bodyStart := idx + len(prefix) + 1
		return Payload{
			Raw:        rest[1:end],
			StartQuote: quote,
			BodyStart:  bodyStart,
			BodyEnd:    bodyStart + (end - 1),
		}, true
	}
	return Payload{}, false
}

// findStringEnd walks s starting at offset start, honoring backslash
// escapes, looking for the closing quote byte. Returns the index of the
// closing quote and true, or false if the string is unterminated or ends
// on a dangling unpaired backslash.
func findStringEnd(s string, start int, quote byte) (int, bool) {
	i := start
	for i < len(s) {
		switch s[i] {
		case '\\':
			if i+1 >= len(s) {
				return 0, false // trailing unpaired backslash
			}
			i += 2
		case quote:
			return i, true
		default:
			i++
		}
	}
	return 0, false // unterminated string
}
