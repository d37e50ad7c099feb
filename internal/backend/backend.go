// Package backend implements the idempotent backend factory (spec.md §4.4,
// C4): a process-wide mapping from (scheme, host, port, cert_check) to a
// named upstream, complete with the transport settings (TLS, SNI, timeouts)
// a request handler needs to reach it.
package backend

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/trusted-server/ts-edge/internal/tserr"
)

// Default timeouts (spec.md §4.4).
const (
	DefaultConnectTimeout      = 1 * time.Second
	DefaultFirstByteTimeout    = 15 * time.Second
	DefaultBetweenBytesTimeout = 10 * time.Second
)

// Backend is a resolved upstream: everything a proxy handler needs to open
// a connection and address the right virtual host on the other end.
type Backend struct {
	Name       string
	Scheme     string
	Host       string
	Port       int
	CertCheck  bool
	HostHeader string

	ConnectTimeout      time.Duration
	FirstByteTimeout    time.Duration
	BetweenBytesTimeout time.Duration
}

// TLSEnabled reports whether connections to this backend should be made
// over TLS.
func (b *Backend) TLSEnabled() bool { return b.Scheme == "https" }

// TLSConfig returns the tls.Config a client dialing this backend should
// use: SNI set to the backend's host, verification toggled per CertCheck.
func (b *Backend) TLSConfig() *tls.Config {
	return &tls.Config{
		ServerName:         b.Host,
		InsecureSkipVerify: !b.CertCheck,
	}
}

type key struct {
	scheme    string
	host      string
	port      int
	certCheck bool
}

// Registry is the process-wide (scheme,host,port,cert_check) → Backend
// map. The zero value is not usable; construct with NewRegistry.
type Registry struct {
	mu       sync.Mutex
	backends map[key]*Backend
}

func NewRegistry() *Registry {
	return &Registry{backends: make(map[key]*Backend)}
}

// Ensure returns the Backend for (scheme, host, port, certCheck), creating
// it on first use. port may be 0 to take the scheme's default. Concurrent
// callers racing to create the same backend both get the same *Backend —
// the spec's "NameInUse treated as success and reuse" requirement, which a
// mutex satisfies directly since there is no external naming authority to
// race against.
func (r *Registry) Ensure(scheme, host string, port int, certCheck bool) (*Backend, error) {
	scheme = strings.ToLower(scheme)
	if host == "" {
		return nil, tserr.Proxy("invalid upstream: empty host")
	}
	if scheme != "http" && scheme != "https" {
		return nil, tserr.Proxy("invalid upstream: unsupported scheme %q", scheme)
	}
	if port == 0 {
		port = defaultPort(scheme)
	}
	if net.ParseIP(host) == nil {
		if _, err := url.Parse("//" + host); err != nil {
			return nil, tserr.ProxyWrap(err, "invalid upstream host %q", host)
		}
	}

	k := key{scheme: scheme, host: host, port: port, certCheck: certCheck}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.backends[k]; ok {
		return b, nil
	}
	b := &Backend{
		Name:                name(scheme, host, port, certCheck),
		Scheme:              scheme,
		Host:                host,
		Port:                port,
		CertCheck:           certCheck,
		HostHeader:          hostHeader(host, port, scheme),
		ConnectTimeout:      DefaultConnectTimeout,
		FirstByteTimeout:    DefaultFirstByteTimeout,
		BetweenBytesTimeout: DefaultBetweenBytesTimeout,
	}
	r.backends[k] = b
	return b, nil
}

// Lookup returns a previously-created backend by name, for response
// correlation (spec.md §4.10's backend_name() getter).
func (r *Registry) Lookup(name string) (*Backend, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.backends {
		if b.Name == name {
			return b, true
		}
	}
	return nil, false
}

func defaultPort(scheme string) int {
	if scheme == "https" {
		return 443
	}
	return 80
}

func hostHeader(host string, port int, scheme string) string {
	if port == defaultPort(scheme) {
		return host
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// name builds backend_<scheme>_<host-with-dots-and-colons-mapped-to-underscore>_<port>[_nocert].
func name(scheme, host string, port int, certCheck bool) string {
	mapped := strings.NewReplacer(".", "_", ":", "_").Replace(host)
	n := fmt.Sprintf("backend_%s_%s_%d", scheme, mapped, port)
	if !certCheck {
		n += "_nocert"
	}
	return n
}
