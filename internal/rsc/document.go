package rsc

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/trusted-server/ts-edge/internal/urlrewrite"
)

// MaxCombinedPayload is the hard cap on combined payload size (spec.md
// §4.8.1). Above it, Document falls back to per-script rewriting with no
// cross-script T-chunk coherence.
const MaxCombinedPayload = 10 << 20 // 10 MiB

const sentinel = "\x00__ts_rsc_sep__\x00"

// placeholderFormat is the opaque in-place marker left by streaming mode.
const placeholderFormat = "__ts_rsc_payload_%d__"

// tChunkHeader matches a Server-Component T-chunk header: <hex_id>:T<hex_length>,
var tChunkHeader = regexp.MustCompile(`([0-9a-fA-F]+):T([0-9a-fA-F]+),`)

// scriptTagRe finds every <script> body directly in raw HTML,
// for the post-processing pass's regex re-scan of deferred/fragmented
// scripts (spec.md §4.8.1 "plus any scripts re-discovered by a regex pass
// over the final HTML buffer").
var scriptTagRe = regexp.MustCompile(`(?s)<script[^>]*>(.*?)</script>`)

// Origin carries the identity RewriteAll needs to rewrite a payload.
type Origin struct {
	Host          string
	URL           string
	RequestHost   string
	RequestScheme string
}

// Document accumulates payloads found while streaming HTML through the
// rewriter, for the deferred post-processing pass.
type Document struct {
	origin   Origin
	payloads []Payload
}

func NewDocument(origin Origin) *Document {
	return &Document{origin: origin}
}

// RewriteScript implements streaming mode (spec.md §4.8.1): given one
// complete, un-fragmented script body, it extracts the payload, records it
// at a new index, and returns the script with the payload replaced by an
// opaque placeholder. If the script doesn't match a push form, it is
// returned unchanged (fragmented scripts are deferred to post-processing).
func (d *Document) RewriteScript(script string) string {
	p, ok := ExtractPayload(script)
	if !ok {
		return script
	}
	idx := len(d.payloads)
	d.payloads = append(d.payloads, p)
	placeholder := fmt.Sprintf(placeholderFormat, idx)
	return script[:p.BodyStart] + placeholder + script[p.BodyEnd:]
}

// Finish runs the post-processing pass over the fully-buffered HTML
// document: re-discovers any scripts streaming mode deferred, rewrites
// every recorded payload's origin references (concatenated with a
// sentinel so cross-script T-chunks rewrite coherently), recomputes
// T-chunk length headers, and splices the result back over the
// placeholders.
func (d *Document) Finish(html string) string {
	html = d.discoverDeferred(html)

	if len(d.payloads) == 0 {
		return html
	}

	total := 0
	for _, p := range d.payloads {
		total += len(p.Raw)
	}
	if total > MaxCombinedPayload {
		return d.finishPerScript(html)
	}

	raws := make([]string, len(d.payloads))
	for i, p := range d.payloads {
		raws[i] = p.Raw
	}
	combined := strings.Join(raws, sentinel)
	rewritten := urlrewrite.RewriteAll(combined, d.origin.Host, d.origin.URL, d.origin.RequestHost, d.origin.RequestScheme)
	rewritten = recomputeTChunks(rewritten)

	parts := strings.Split(rewritten, sentinel)
	if len(parts) != len(d.payloads) {
		// The sentinel collided with rewritten content (extremely unlikely
		// given it's a NUL-delimited token); fall back rather than splice
		// mismatched parts.
		return d.finishPerScript(html)
	}

	out := html
	for i, part := range parts {
		placeholder := fmt.Sprintf(placeholderFormat, i)
		out = strings.Replace(out, placeholder, part, 1)
	}
	return out
}

// finishPerScript rewrites each recorded payload independently, without
// cross-script T-chunk coherence (the hard-cap fallback).
func (d *Document) finishPerScript(html string) string {
	out := html
	for i, p := range d.payloads {
		rewritten := urlrewrite.RewriteAll(p.Raw, d.origin.Host, d.origin.URL, d.origin.RequestHost, d.origin.RequestScheme)
		rewritten = recomputeTChunks(rewritten)
		placeholder := fmt.Sprintf(placeholderFormat, i)
		out = strings.Replace(out, placeholder, rewritten, 1)
	}
	return out
}

// discoverDeferred re-scans raw HTML for push scripts that streaming mode
// never saw (because they arrived fragmented across chunk boundaries, so
// RewriteScript was never called on them as a single body) and records
// them the same way RewriteScript would: extract, assign the next index,
// substitute the placeholder in place. Scripts that already carry a
// placeholder are skipped.
func (d *Document) discoverDeferred(html string) string {
	const placeholderPrefix = "__ts_rsc_payload_"
	out := html
	for _, m := range scriptTagRe.FindAllStringSubmatch(html, -1) {
		body := m[1]
		if strings.Contains(body, placeholderPrefix) {
			continue
		}
		p, ok := ExtractPayload(body)
		if !ok {
			continue
		}
		idx := len(d.payloads)
		d.payloads = append(d.payloads, p)
		placeholder := fmt.Sprintf(placeholderFormat, idx)
		rewrittenScript := body[:p.BodyStart] + placeholder + body[p.BodyEnd:]
		out = strings.Replace(out, body, rewrittenScript, 1)
	}
	return out
}

// recomputeTChunks finds every T-chunk header in s and rewrites its hex
// length to the actual byte length of the chunk body that follows, up to
// the next recognized boundary (the next T-chunk header or end of
// string). Body length may have changed because host substitution grew or
// shrank the payload (spec.md §4.8.1).
func recomputeTChunks(s string) string {
	matches := tChunkHeader.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return s
	}

	var sb strings.Builder
	last := 0
	for i, m := range matches {
		headerStart, headerEnd := m[0], m[1]
		idStart, idEnd := m[2], m[3]

		bodyStart := headerEnd
		bodyEnd := len(s)
		if i+1 < len(matches) {
			bodyEnd = matches[i+1][0]
		}
		bodyLen := bodyEnd - bodyStart

		sb.WriteString(s[last:headerStart])
		sb.WriteString(s[idStart:idEnd])
		sb.WriteString(":T")
		sb.WriteString(strconv.FormatInt(int64(bodyLen), 16))
		sb.WriteString(",")
		last = headerEnd
	}
	sb.WriteString(s[last:])
	return sb.String()
}
