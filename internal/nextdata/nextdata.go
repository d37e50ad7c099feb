// Package nextdata implements the __NEXT_DATA__ JSON rewriter (spec.md
// §4.8.2, C8): it finds configured attribute values that carry origin URLs
// or bare hostnames inside a Next.js hydration payload and rewrites them
// to the publisher-facing host, without touching the surrounding JSON
// structure.
package nextdata

import (
	"regexp"
	"strings"

	"github.com/trusted-server/ts-edge/internal/urlrewrite"
)

// DefaultAttributes are the JSON keys rewritten out of the box (spec.md
// §4.8.2's example list). Callers pass their own set via NewRewriter when
// an integration declares extra attribute names.
var DefaultAttributes = []string{"href", "link", "url", "siteProductionDomain"}

// Rewriter rewrites origin references found in configured attribute
// values of a buffered __NEXT_DATA__ JSON blob.
type Rewriter struct {
	pattern       *regexp.Regexp
	originHost    string
	originURL     string
	requestHost   string
	requestScheme string
}

// NewRewriter compiles the attribute-name alternation and captures the
// origin/request identity substitutions will use.
func NewRewriter(attrs []string, originHost, originURL, requestHost, requestScheme string) *Rewriter {
	if len(attrs) == 0 {
		attrs = DefaultAttributes
	}
	quoted := make([]string, len(attrs))
	for i, a := range attrs {
		quoted[i] = regexp.QuoteMeta(a)
	}
	// Matches "<attr>":"<value>" allowing an optional leading backslash
	// before each quote, so both prettified and backslash-escaped minified
	// JSON (as embedded inside another JSON string) match.
	alt := strings.Join(quoted, "|")
	pattern := regexp.MustCompile(`\\?"(` + alt + `)\\?":\\?"([^"\\]*(?:\\.[^"\\]*)*)\\?"`)
	return &Rewriter{
		pattern:       pattern,
		originHost:    originHost,
		originURL:     originURL,
		requestHost:   requestHost,
		requestScheme: requestScheme,
	}
}

// Rewrite applies the attribute-value substitution over the whole buffered
// blob. Each match's value is rewritten independently: full URLs get their
// scheme normalized to the request's scheme (protocol-relative values stay
// protocol-relative), and bare-host values are rewritten via the shared
// boundary-safe host replacer.
func (r *Rewriter) Rewrite(blob string) string {
	return r.pattern.ReplaceAllStringFunc(blob, func(match string) string {
		sub := r.pattern.FindStringSubmatch(match)
		if sub == nil {
			return match
		}
		value := sub[2]
		newValue := r.rewriteValue(value)
		if newValue == value {
			return match
		}
		return strings.Replace(match, value, newValue, 1)
	})
}

func (r *Rewriter) rewriteValue(value string) string {
	switch {
	case strings.HasPrefix(value, "//"):
		return "//" + urlrewrite.ReplaceBareHost(strings.TrimPrefix(value, "//"), r.originHost, r.requestHost)
	case strings.HasPrefix(value, "http://"), strings.HasPrefix(value, "https://"):
		rest := value
		rest = strings.TrimPrefix(rest, "https://")
		rest = strings.TrimPrefix(rest, "http://")
		hostAndPath := urlrewrite.ReplaceBareHost(rest, r.originHost, r.requestHost)
		if hostAndPath == rest {
			return value
		}
		return r.requestScheme + "://" + hostAndPath
	default:
		return urlrewrite.ReplaceBareHost(value, r.originHost, r.requestHost)
	}
}

