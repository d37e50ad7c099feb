// Package tserr defines the error-kind taxonomy shared across the proxy
// core: config, store, crypto, signature, proxy, auction, and integration
// failures each get their own Kind on a single *Error type, so callers can
// errors.As to *Error and gate on its Kind without parsing message strings.
package tserr

import "fmt"

// Kind names one of the error taxonomy buckets from the propagation policy.
type Kind string

const (
	KindConfig      Kind = "ConfigError"
	KindStore       Kind = "StoreError"
	KindCrypto      Kind = "CryptoError"
	KindSignature   Kind = "SignatureInvalid"
	KindProxy       Kind = "ProxyError"
	KindAuction     Kind = "AuctionError"
	KindIntegration Kind = "IntegrationError"
)

// Error is the common shape for every taxonomy member. Integration errors
// additionally carry the offending integration id.
type Error struct {
	Kind        Kind
	Integration string
	Message     string
	Cause       error
}

func (e *Error) Error() string {
	if e.Integration != "" {
		return fmt.Sprintf("%s[%s]: %s", e.Kind, e.Integration, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapf(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

func Config(format string, args ...any) *Error  { return newf(KindConfig, format, args...) }
func ConfigWrap(err error, format string, args ...any) *Error {
	return wrapf(KindConfig, err, format, args...)
}

func Store(format string, args ...any) *Error { return newf(KindStore, format, args...) }
func StoreWrap(err error, format string, args ...any) *Error {
	return wrapf(KindStore, err, format, args...)
}

func Crypto(format string, args ...any) *Error { return newf(KindCrypto, format, args...) }
func CryptoWrap(err error, format string, args ...any) *Error {
	return wrapf(KindCrypto, err, format, args...)
}

// Signature reports a verification failure distinct from CryptoError so
// callers can gate behavior without leaking why the signature was rejected.
func Signature(format string, args ...any) *Error { return newf(KindSignature, format, args...) }

func Proxy(format string, args ...any) *Error { return newf(KindProxy, format, args...) }
func ProxyWrap(err error, format string, args ...any) *Error {
	return wrapf(KindProxy, err, format, args...)
}

func Auction(format string, args ...any) *Error { return newf(KindAuction, format, args...) }
func AuctionWrap(err error, format string, args ...any) *Error {
	return wrapf(KindAuction, err, format, args...)
}

// Integration reports a named integration subsystem failure.
func Integration(id, format string, args ...any) *Error {
	e := newf(KindIntegration, format, args...)
	e.Integration = id
	return e
}
