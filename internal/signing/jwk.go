package signing

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"strings"
)

// JWK is the OKP/Ed25519 JSON Web Key shape the public store holds per kid
// (spec.md §4.5). Only the fields the proxy actually needs are modeled;
// unknown fields round-trip through encoding/json's default lenience.
type JWK struct {
	Kty string `json:"kty"`           // "OKP"
	Crv string `json:"crv"`           // "Ed25519"
	X   string `json:"x"`             // base64url-no-pad public key
	Kid string `json:"kid"`
	Alg string `json:"alg,omitempty"` // "EdDsa"
	Use string `json:"use,omitempty"` // "sig"
}

// JWKSet is the body the JWKS endpoint serves.
type JWKSet struct {
	Keys []*JWK `json:"keys"`
}

// Discovery wraps JWKSet with a document version (spec.md §4.5).
type Discovery struct {
	Version string  `json:"version"`
	JWKS    *JWKSet `json:"jwks"`
}

// NewJWK builds the public JWK for an Ed25519 public key.
func NewJWK(kid string, pub ed25519.PublicKey) *JWK {
	return &JWK{
		Kty: "OKP",
		Crv: "Ed25519",
		X:   base64.RawURLEncoding.EncodeToString(pub),
		Kid: kid,
		Alg: "EdDsa",
		Use: "sig",
	}
}

func (j *JWK) Marshal() (string, error) {
	b, err := json.Marshal(j)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func ParseJWK(raw string) (*JWK, error) {
	var j JWK
	if err := json.Unmarshal([]byte(raw), &j); err != nil {
		return nil, err
	}
	return &j, nil
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func joinCSV(parts []string) string {
	return strings.Join(parts, ",")
}
