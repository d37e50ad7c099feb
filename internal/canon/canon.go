// Package canon normalizes text and computes the content-addressed hash used
// to pin published settings (spec.md §4.1, §6.1): CRLF is folded to LF, the
// result is hashed with SHA-256, and the digest is rendered as
// "sha256:<hex>" — 71 characters, always lowercase.
package canon

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const prefix = "sha256:"

// Normalize folds CRLF line endings to LF. It is idempotent: normalizing
// already-normalized content is a no-op.
func Normalize(content string) string {
	if !strings.Contains(content, "\r\n") {
		return content
	}
	return strings.ReplaceAll(content, "\r\n", "\n")
}

// Hash normalizes content and returns its "sha256:<hex>" digest.
func Hash(content string) string {
	normalized := Normalize(content)
	sum := sha256.Sum256([]byte(normalized))
	return prefix + hex.EncodeToString(sum[:])
}

// Verify recomputes the hash of content and compares it byte-for-byte
// against expected.
func Verify(content, expected string) bool {
	return Hash(content) == expected
}

// Len is the fixed length of a well-formed digest string: "sha256:" (7) plus
// 64 hex characters.
const Len = len(prefix) + sha256.Size*2
