// Package urlrewrite implements the boundary-safe URL replacer (spec.md
// §4.7, C7): a streaming processor that rewrites origin URLs/hosts to the
// publisher-facing equivalent, tolerating pattern matches split across
// chunk boundaries.
package urlrewrite

import "strings"

// pair is one ordered (pattern, replacement) substitution.
type pair struct {
	pattern     string
	replacement string
	bareHost    bool
}

// Replacer rewrites references to an origin into references to the
// publisher-facing request host, across an arbitrarily-chunked stream. It
// implements streaming.Processor.
type Replacer struct {
	pairs      []pair
	maxPattern int
	overlap    []byte
}

// NewReplacer constructs a Replacer for the given origin and request
// identity. originURL and originHost may be empty if unknown; requestHost
// and requestScheme describe the publisher-facing identity replacements
// target.
func NewReplacer(originHost, originURL, requestHost, requestScheme string) *Replacer {
	targetURL := requestScheme + "://" + requestHost

	var pairs []pair
	if originURL != "" {
		pairs = append(pairs, pair{pattern: originURL, replacement: targetURL})
		if swapped := swapScheme(originURL); swapped != "" {
			pairs = append(pairs, pair{pattern: swapped, replacement: targetURL})
		}
	}
	if originHost != "" {
		pairs = append(pairs, pair{pattern: "//" + originHost, replacement: "//" + requestHost})
		pairs = append(pairs, pair{pattern: originHost, replacement: requestHost, bareHost: true})
	}

	max := 0
	for _, p := range pairs {
		if len(p.pattern) > max {
			max = len(p.pattern)
		}
	}

	return &Replacer{pairs: pairs, maxPattern: max}
}

func swapScheme(u string) string {
	switch {
	case strings.HasPrefix(u, "https://"):
		return "http://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		return "https://" + strings.TrimPrefix(u, "http://")
	default:
		return ""
	}
}

// ProcessChunk implements streaming.Processor. It concatenates the
// retained overlap with chunk, reserves at least the trailing
// max-pattern-length bytes as the new overlap (unless isLast), moving the
// split earlier so that no match straddles it, runs the substitutions in
// order over the rest, and emits the processed prefix. A buffer no longer
// than maxPattern is held back in full rather than processed early: any
// byte in it could still be the start of a pattern match completed by the
// next chunk.
func (r *Replacer) ProcessChunk(chunk []byte, isLast bool) ([]byte, error) {
	buf := append(r.overlap, chunk...)
	r.overlap = nil

	var toProcess, toRetain []byte
	switch {
	case isLast:
		toProcess = buf
	case len(buf) <= r.maxPattern:
		toRetain = buf
	default:
		split := len(buf) - r.maxPattern
		// Keep each match (with a bare host's boundary bytes) on one side.
		for moved := true; moved && split > 0; {
			moved = false
			for _, p := range r.pairs {
				pad := 0
				if p.bareHost {
					pad = 1
				}
				from := max(split-len(p.pattern)-pad+1, 0)
				if i := strings.Index(string(buf[from:]), p.pattern); i >= 0 && from+i-pad < split {
					split, moved = max(from+i-pad, 0), true
				}
			}
		}
		toProcess = buf[:split]
		toRetain = append([]byte(nil), buf[split:]...)
	}

	out := r.replace(string(toProcess))
	r.overlap = toRetain
	return []byte(out), nil
}

func (r *Replacer) replace(s string) string {
	for _, p := range r.pairs {
		if p.pattern == "" {
			continue
		}
		if p.bareHost {
			s = ReplaceBareHost(s, p.pattern, p.replacement)
		} else {
			s = strings.ReplaceAll(s, p.pattern, p.replacement)
		}
	}
	return s
}

// Reset clears retained overlap state for reuse across streams.
func (r *Replacer) Reset() {
	r.overlap = nil
}

// RewriteAll applies the same substitution rules as a Replacer to a whole
// string in one pass, for callers that already hold the complete text
// (RSC payloads, __NEXT_DATA__ JSON) rather than a chunked stream.
func RewriteAll(s, originHost, originURL, requestHost, requestScheme string) string {
	r := NewReplacer(originHost, originURL, requestHost, requestScheme)
	out, _ := r.ProcessChunk([]byte(s), true)
	return string(out)
}
