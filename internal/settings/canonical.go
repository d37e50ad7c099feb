package settings

import (
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/trusted-server/ts-edge/internal/tserr"
)

// ToCanonicalTOML re-serializes a validated Settings tree to the exact byte
// form that gets hashed and published (spec.md §4.3). go-toml/v2's Marshal
// walks struct fields in declaration order rather than sorting keys
// alphabetically, so re-marshaling the same *Settings value always produces
// the same bytes — that stability, not alphabetical sorting, is what makes
// this a pure function safe to hash. The only post-processing is folding
// CRLF and trimming a trailing blank line, matching canon.Normalize so a
// round trip through the store never changes the hash.
func ToCanonicalTOML(s *Settings) (string, error) {
	b, err := toml.Marshal(s)
	if err != nil {
		return "", tserr.ConfigWrap(err, "marshal canonical settings TOML")
	}
	out := strings.ReplaceAll(string(b), "\r\n", "\n")
	out = strings.TrimRight(out, "\n") + "\n"
	return out, nil
}
