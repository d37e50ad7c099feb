// Package signing implements the key store and signer (spec.md §4.5, C5):
// a lazily-initialized process-wide Ed25519 signing key backed by the
// config store's public/secret key spaces, detached sign/verify, rotation,
// and JWKS publication.
package signing

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"sync"
	"time"

	"github.com/trusted-server/ts-edge/internal/configstore"
	"github.com/trusted-server/ts-edge/internal/tserr"
)

// ErrKeyNotFound is returned by Verify when the kid has no known JWK.
var ErrKeyNotFound = tserr.Crypto("key not found")

// ErrLastActiveKey is returned by Deactivate when removing the kid would
// empty active-kids.
var ErrLastActiveKey = tserr.Crypto("cannot deactivate the last active key")

// Signer lazily initializes the process's signing key from the config
// store and serves sign/verify/rotate/deactivate/delete over it. Public
// and secret material live in two different Store instances, mirroring the
// platform's separate public/secret key spaces (spec.md §4.5, §6.2).
type Signer struct {
	public Store
	secret Store

	mu         sync.Mutex
	signingKey ed25519.PrivateKey
	currentKID string
}

// Store is an alias of the full configstore.Store interface, so any
// configstore implementation (a configstore.MemStore in tests) can back
// the signer.
type Store = configstore.Store

func NewSigner(public, secret Store) *Signer {
	return &Signer{public: public, secret: secret}
}

// ensureSigningKey lazily loads current-kid and the matching secret seed,
// caching the resulting Ed25519 key until Rotate clears it (spec.md
// §4.5 "Sign").
func (s *Signer) ensureSigningKey(ctx context.Context) (ed25519.PrivateKey, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.signingKey != nil {
		return s.signingKey, s.currentKID, nil
	}

	kid, err := s.public.Get(ctx, configstore.KeyCurrentKID)
	if err != nil {
		return nil, "", tserr.CryptoWrap(err, "load current-kid")
	}
	seedRaw, err := s.secret.Get(ctx, secretKey(kid))
	if err != nil {
		return nil, "", tserr.CryptoWrap(err, "load secret seed for kid %s", kid)
	}
	seed, err := decodeSeed(seedRaw)
	if err != nil {
		return nil, "", tserr.CryptoWrap(err, "decode secret seed for kid %s", kid)
	}
	s.signingKey = ed25519.NewKeyFromSeed(seed)
	s.currentKID = kid
	return s.signingKey, s.currentKID, nil
}

// decodeSeed base64-decodes the stored seed if it is longer than 32 bytes
// (the store holds it base64-encoded); the decoded result must be exactly
// 32 bytes, an Ed25519 seed.
func decodeSeed(raw string) ([]byte, error) {
	b := []byte(raw)
	if len(b) > ed25519.SeedSize {
		dec, err := decodeB64Any(raw)
		if err != nil {
			return nil, err
		}
		b = dec
	}
	if len(b) != ed25519.SeedSize {
		return nil, tserr.Crypto("secret seed has length %d, want %d", len(b), ed25519.SeedSize)
	}
	return b, nil
}

func decodeB64Any(s string) ([]byte, error) {
	if b, err := base64.RawURLEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	if b, err := base64.URLEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	if b, err := base64.RawStdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.StdEncoding.DecodeString(s)
}

// Sign produces a base64url-no-pad detached signature over payload using
// the process signing key, lazily initializing it on first use.
func (s *Signer) Sign(ctx context.Context, payload []byte) (sig string, kid string, err error) {
	key, kid, err := s.ensureSigningKey(ctx)
	if err != nil {
		return "", "", err
	}
	raw := ed25519.Sign(key, payload)
	return base64.RawURLEncoding.EncodeToString(raw), kid, nil
}

// Verify checks a detached signature against payload using the JWK stored
// under kid. Tries URL-safe base64 first, then standard, for both the
// public key's x coordinate and the signature (spec.md §4.5 "Verify").
func (s *Signer) Verify(ctx context.Context, payload []byte, sigB64, kid string) (bool, error) {
	jwk, err := s.loadJWK(ctx, kid)
	if err != nil {
		return false, err
	}
	pub, err := decodeB64Any(jwk.X)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return false, tserr.Crypto("malformed public key for kid %s", kid)
	}
	sig, err := decodeB64Any(sigB64)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false, nil
	}
	return ed25519.Verify(ed25519.PublicKey(pub), payload, sig), nil
}

func (s *Signer) loadJWK(ctx context.Context, kid string) (*JWK, error) {
	raw, err := s.public.Get(ctx, jwkKey(kid))
	if err != nil {
		if err == configstore.ErrNotFound {
			return nil, ErrKeyNotFound
		}
		return nil, tserr.CryptoWrap(err, "load jwk for kid %s", kid)
	}
	jwk, err := ParseJWK(raw)
	if err != nil {
		return nil, tserr.CryptoWrap(err, "parse jwk for kid %s", kid)
	}
	return jwk, nil
}

// Rotate generates a fresh Ed25519 keypair and makes it current. If kid is
// empty, it defaults to ts-<UTC YYYY-MM-DD> using now. The four writes
// happen in the order the spec requires and are not atomic across them;
// see spec.md §4.5 "Rotate" for the partial-failure contract.
func (s *Signer) Rotate(ctx context.Context, kid string, now time.Time) (string, error) {
	if kid == "" {
		kid = "ts-" + now.UTC().Format("2006-01-02")
	}
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return "", tserr.CryptoWrap(err, "generate keypair")
	}

	seedB64 := base64.RawURLEncoding.EncodeToString(priv.Seed())
	if err := s.secret.Put(ctx, secretKey(kid), seedB64); err != nil {
		return "", tserr.CryptoWrap(err, "write secret seed for kid %s", kid)
	}

	jwk := NewJWK(kid, pub)
	jwkJSON, err := jwk.Marshal()
	if err != nil {
		return "", tserr.CryptoWrap(err, "marshal jwk for kid %s", kid)
	}
	if err := s.public.Put(ctx, jwkKey(kid), jwkJSON); err != nil {
		return "", tserr.CryptoWrap(err, "write jwk for kid %s", kid)
	}

	if err := s.public.Put(ctx, configstore.KeyCurrentKID, kid); err != nil {
		return "", tserr.CryptoWrap(err, "set current-kid to %s", kid)
	}

	active, err := s.ActiveKIDs(ctx)
	if err != nil && err != configstore.ErrNotFound {
		return "", tserr.CryptoWrap(err, "load active-kids")
	}
	active = dedupAppend(active, kid)
	if err := s.putActiveKIDs(ctx, active); err != nil {
		return "", tserr.CryptoWrap(err, "write active-kids")
	}

	s.mu.Lock()
	s.signingKey = nil
	s.currentKID = ""
	s.mu.Unlock()

	return kid, nil
}

// Deactivate removes kid from active-kids. It fails with ErrLastActiveKey
// if kid is the only active key.
func (s *Signer) Deactivate(ctx context.Context, kid string) error {
	active, err := s.ActiveKIDs(ctx)
	if err != nil {
		return err
	}
	remaining := make([]string, 0, len(active))
	found := false
	for _, k := range active {
		if k == kid {
			found = true
			continue
		}
		remaining = append(remaining, k)
	}
	if !found {
		return nil
	}
	if len(remaining) == 0 {
		return ErrLastActiveKey
	}
	return s.putActiveKIDs(ctx, remaining)
}

// Delete deactivates kid, then removes its JWK and secret seed.
func (s *Signer) Delete(ctx context.Context, kid string) error {
	if err := s.Deactivate(ctx, kid); err != nil {
		return err
	}
	if err := s.public.Delete(ctx, jwkKey(kid)); err != nil {
		return tserr.CryptoWrap(err, "delete jwk for kid %s", kid)
	}
	if err := s.secret.Delete(ctx, secretKey(kid)); err != nil {
		return tserr.CryptoWrap(err, "delete secret seed for kid %s", kid)
	}
	return nil
}

// ActiveKIDs returns the ordered set of currently-active kids.
func (s *Signer) ActiveKIDs(ctx context.Context) ([]string, error) {
	raw, err := s.public.Get(ctx, configstore.KeyActiveKIDs)
	if err != nil {
		if err == configstore.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	return splitCSV(raw), nil
}

func (s *Signer) putActiveKIDs(ctx context.Context, kids []string) error {
	return s.public.Put(ctx, configstore.KeyActiveKIDs, joinCSV(kids))
}

// JWKS returns {"keys":[jwk_for(kid) ...]} for every active kid.
func (s *Signer) JWKS(ctx context.Context) (*JWKSet, error) {
	kids, err := s.ActiveKIDs(ctx)
	if err != nil {
		return nil, err
	}
	set := &JWKSet{Keys: make([]*JWK, 0, len(kids))}
	for _, kid := range kids {
		jwk, err := s.loadJWK(ctx, kid)
		if err != nil {
			return nil, err
		}
		set.Keys = append(set.Keys, jwk)
	}
	return set, nil
}

// Discovery returns the discovery-document wrapper around JWKS (spec.md
// §4.5 "JWKS publication", supplemented per SPEC_FULL.md §4 with a version
// field so the document is itself forward-compatible).
func (s *Signer) Discovery(ctx context.Context) (*Discovery, error) {
	set, err := s.JWKS(ctx)
	if err != nil {
		return nil, err
	}
	return &Discovery{Version: "1.0", JWKS: set}, nil
}

// secretKey and jwkKey are the bare kid (spec.md §6.2): the public and
// secret key spaces are separate Store instances, so both can use the kid
// directly as the key without colliding.
func secretKey(kid string) string { return kid }
func jwkKey(kid string) string    { return kid }

func dedupAppend(existing []string, add string) []string {
	out := make([]string, 0, len(existing)+1)
	seen := make(map[string]bool, len(existing)+1)
	for _, k := range existing {
		if !seen[k] {
			out = append(out, k)
			seen[k] = true
		}
	}
	if !seen[add] {
		out = append(out, add)
	}
	return out
}
