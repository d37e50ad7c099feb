// Package configstore is the read side of the platform key-value store
// (spec.md §4.2, §6.1): a Get(key) contract over three well-known keys
// ("settings", "settings-hash", "settings-metadata") plus the reserved
// "settings-signature" envelope slot. The same Store interface also carries
// Put and Delete: the daemon only reads settings, while publishing
// (cmd/tsctl via PublishSettings) and key rotation (internal/signing) write
// through it.
package configstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/trusted-server/ts-edge/internal/tserr"
)

// Well-known keys (spec.md §6.1, §6.2).
const (
	KeySettings         = "settings"
	KeySettingsHash     = "settings-hash"
	KeySettingsMetadata = "settings-metadata"
	KeySettingsSignature = "settings-signature" // reserved for a future DSSE envelope

	KeyCurrentKID = "current-kid"
	KeyActiveKIDs = "active-kids"
)

// ErrNotFound is returned by Get when a key has no value (the spec's "None").
var ErrNotFound = errors.New("configstore: key not found")

// Metadata is the JSON body of the "settings-metadata" key.
type Metadata struct {
	Version    string     `json:"version"`
	PublishedAt time.Time `json:"published_at"`
	ValidUntil *time.Time `json:"valid_until,omitempty"`
	PolicyID   string     `json:"policy_id,omitempty"`
}

// Store is the read/write contract for the platform key-value store. Both
// the public store (JWKs, settings) and the secret store (private seeds)
// implement it; callers decide which concrete Store to construct based on
// whether the key-space holds public or secret material.
type Store interface {
	// Get returns the value for key, or ErrNotFound if it has none.
	Get(ctx context.Context, key string) (string, error)
	// Put writes key := value. Publishing "settings" then "settings-hash" is
	// the caller's responsibility (see PublishSettings below); Put itself is
	// a single atomic key write, not a transaction across keys.
	Put(ctx context.Context, key, value string) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// GetMetadata fetches and decodes the "settings-metadata" key.
func GetMetadata(ctx context.Context, s Store) (*Metadata, error) {
	raw, err := s.Get(ctx, KeySettingsMetadata)
	if err != nil {
		return nil, err
	}
	var m Metadata
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, tserr.StoreWrap(err, "decode settings-metadata")
	}
	return &m, nil
}

// PublishSettings writes "settings" then "settings-hash", in that order, per
// the publish protocol in spec.md §4.2. If the hash write fails after the
// settings write succeeds, the store is left in a state consumers MUST
// treat as a failed publish (mismatched hash) — callers should retry the
// hash write rather than re-publish settings.
func PublishSettings(ctx context.Context, s Store, canonicalTOML, hash string) error {
	if err := s.Put(ctx, KeySettings, canonicalTOML); err != nil {
		return tserr.StoreWrap(err, "write settings")
	}
	if err := s.Put(ctx, KeySettingsHash, hash); err != nil {
		return tserr.StoreWrap(err, "write settings-hash (settings already published — hash mismatch until retried)")
	}
	return nil
}

// FetchAndVerify reads "settings" and "settings-hash" and confirms they
// agree. A mismatch means a failed or partial publish; consumers MUST
// refuse to hot-swap in that case.
func FetchAndVerify(ctx context.Context, s Store, verify func(content, expected string) bool) (string, error) {
	content, err := s.Get(ctx, KeySettings)
	if err != nil {
		return "", err
	}
	expected, err := s.Get(ctx, KeySettingsHash)
	if err != nil {
		return "", err
	}
	if !verify(content, expected) {
		return "", tserr.Store("settings-hash mismatch: refusing to hot-swap")
	}
	return content, nil
}
