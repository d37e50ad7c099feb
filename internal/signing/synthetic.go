package signing

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"time"

	"golang.org/x/crypto/hkdf"

	"github.com/trusted-server/ts-edge/internal/tserr"
)

const (
	defaultSyntheticTTLDays = 30
	defaultMinSecretBytes   = 16
)

// SyntheticConfig mirrors settings.Synthetic: the minimum entropy and
// lifetime of minted identifiers, plus an optional kid to scope the
// sub-key derivation to instead of the signer's current signing kid.
type SyntheticConfig struct {
	CurrentKIDOverride string
	ActiveTTLDays      int
	MinSecretBytes     int
}

// SyntheticID is the privacy-scoped identifier downstream integrations
// consume in lieu of a third-party cookie.
type SyntheticID struct {
	KID       string    `json:"kid"`
	Scope     string    `json:"scope"`
	Value     string    `json:"value"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Signature string    `json:"signature"`
	SigKID    string    `json:"sig_kid"`
}

// MintSyntheticID derives a sub-key from the signing seed with HKDF-SHA256,
// scoped by cfg's kid and the caller's scope (typically an integration id),
// HMACs a fresh random nonce into an opaque identifier value, and signs the
// resulting claim with the process signing key so a holder of the JWKS can
// check provenance later.
func (s *Signer) MintSyntheticID(ctx context.Context, cfg SyntheticConfig, scope string, now time.Time) (*SyntheticID, error) {
	seed, currentKID, err := s.signingSeed(ctx)
	if err != nil {
		return nil, err
	}

	minBytes := cfg.MinSecretBytes
	if minBytes <= 0 {
		minBytes = defaultMinSecretBytes
	}
	ttlDays := cfg.ActiveTTLDays
	if ttlDays <= 0 {
		ttlDays = defaultSyntheticTTLDays
	}
	subKID := currentKID
	if cfg.CurrentKIDOverride != "" {
		subKID = cfg.CurrentKIDOverride
	}

	subKey := make([]byte, minBytes)
	kdf := hkdf.New(sha256.New, seed, []byte(subKID), []byte("ts-synthetic:"+scope))
	if _, err := io.ReadFull(kdf, subKey); err != nil {
		return nil, tserr.CryptoWrap(err, "derive synthetic sub-key")
	}

	nonce := make([]byte, minBytes)
	if _, err := rand.Read(nonce); err != nil {
		return nil, tserr.CryptoWrap(err, "generate synthetic nonce")
	}
	mac := hmac.New(sha256.New, subKey)
	mac.Write(nonce)
	value := base64.RawURLEncoding.EncodeToString(append(nonce, mac.Sum(nil)...))

	issued := now.UTC()
	expires := issued.Add(time.Duration(ttlDays) * 24 * time.Hour)

	sig, sigKID, err := s.Sign(ctx, syntheticClaimBytes(scope, value, issued, expires))
	if err != nil {
		return nil, err
	}

	return &SyntheticID{
		KID:       subKID,
		Scope:     scope,
		Value:     value,
		IssuedAt:  issued,
		ExpiresAt: expires,
		Signature: sig,
		SigKID:    sigKID,
	}, nil
}

// VerifySyntheticID checks that id has not expired and that its signature
// matches the claim under id.SigKID.
func (s *Signer) VerifySyntheticID(ctx context.Context, id *SyntheticID, now time.Time) (bool, error) {
	if now.UTC().After(id.ExpiresAt) {
		return false, nil
	}
	claim := syntheticClaimBytes(id.Scope, id.Value, id.IssuedAt, id.ExpiresAt)
	return s.Verify(ctx, claim, id.Signature, id.SigKID)
}

func syntheticClaimBytes(scope, value string, issued, expires time.Time) []byte {
	return []byte(scope + "|" + value + "|" + issued.Format(time.RFC3339Nano) + "|" + expires.Format(time.RFC3339Nano))
}

// signingSeed exposes the raw Ed25519 seed backing the current signing key,
// for sub-key derivation; it reuses the same lazy-load path as Sign.
func (s *Signer) signingSeed(ctx context.Context) ([]byte, string, error) {
	key, kid, err := s.ensureSigningKey(ctx)
	if err != nil {
		return nil, "", err
	}
	return key.Seed(), kid, nil
}
