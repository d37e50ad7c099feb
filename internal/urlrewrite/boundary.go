package urlrewrite

import "strings"

// isHostChar reports whether b can appear inside a bare hostname token
// (spec.md §4.8.3): letters, digits, dot, hyphen, colon (for a port).
func isHostChar(b byte) bool {
	switch {
	case b >= 'A' && b <= 'Z', b >= 'a' && b <= 'z', b >= '0' && b <= '9':
		return true
	case b == '.' || b == '-' || b == ':':
		return true
	default:
		return false
	}
}

// ReplaceBareHost replaces every occurrence of host in s with repl, but
// only where neither adjacent byte is itself a host character — so
// rewriting "origin.example.com" never touches "cdn.origin.example.com"
// (spec.md §4.8.3, the bare-host boundary rewriter shared by C7, RSC, and
// the __NEXT_DATA__ rewriter).
func ReplaceBareHost(s, host, repl string) string {
	if host == "" {
		return s
	}
	var sb strings.Builder
	i := 0
	for {
		idx := strings.Index(s[i:], host)
		if idx < 0 {
			sb.WriteString(s[i:])
			break
		}
		start := i + idx
		end := start + len(host)
		sb.WriteString(s[i:start])
		leftOK := start == 0 || !isHostChar(s[start-1])
		rightOK := end == len(s) || !isHostChar(s[end])
		if leftOK && rightOK {
			sb.WriteString(repl)
		} else {
			sb.WriteString(s[start:end])
		}
		i = end
	}
	return sb.String()
}
