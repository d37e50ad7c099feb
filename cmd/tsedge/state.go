package main

import (
	"net/url"
	"strconv"

	"github.com/go-resty/resty/v2"

	"github.com/trusted-server/ts-edge/internal/auction"
	"github.com/trusted-server/ts-edge/internal/auction/ortb"
	"github.com/trusted-server/ts-edge/internal/backend"
	"github.com/trusted-server/ts-edge/internal/configstore"
	"github.com/trusted-server/ts-edge/internal/integration"
	"github.com/trusted-server/ts-edge/internal/integration/datadome"
	"github.com/trusted-server/ts-edge/internal/settings"
	"github.com/trusted-server/ts-edge/internal/signing"
)

// state holds the process-wide singletons spec.md §5 requires be
// initialized once and held immutable for the daemon's lifetime: the
// settings snapshot, the backend registry, the signer, the auction
// orchestrator, and the integration registry.
type state struct {
	settings     *settings.Settings
	backends     *backend.Registry
	originName   string
	signer       *signing.Signer
	orchestrator *auction.Orchestrator
	integrations *integration.Registry
}

// newState builds the daemon's singletons from raw settings TOML and the
// process environment once at startup; the result is held as an immutable
// snapshot for every request handler thereafter (spec.md §5 "Shared
// resources"). Per-singleton set-once guarantees live closer to the
// resource itself: the backend registry's Ensure is idempotent
// (spec.md §4.4), and the signer's key cache loads lazily behind its own
// mutex and reloads only after Rotate clears it (spec.md §4.5) — newState has no separate guard of
// its own, since main calls it exactly once per process by construction.
func newState(raw []byte, environ []string) (*state, error) {
	st := &state{}
	if err := st.init(raw, environ); err != nil {
		return nil, err
	}
	return st, nil
}

func (st *state) init(raw []byte, environ []string) error {
	s, err := settings.Load(string(raw), environ)
	if err != nil {
		return err
	}
	st.settings = s

	st.backends = backend.NewRegistry()
	originScheme, originPort := schemeAndPort(s.Publisher.OriginURL)
	origin, err := st.backends.Ensure(originScheme, s.Publisher.OriginHost, originPort, true)
	if err != nil {
		return err
	}
	st.originName = origin.Name

	for _, h := range s.Handlers {
		if _, err := st.backends.Ensure(h.Scheme, h.Host, h.Port, h.CertCheck); err != nil {
			return err
		}
	}

	public := configstore.NewMemStore()
	secret := configstore.NewMemStore()
	st.signer = signing.NewSigner(public, secret)

	client := resty.New()
	providers := make([]auction.Provider, 0, len(s.Auction.Providers))
	var mediator auction.Provider
	for _, p := range s.Auction.Providers {
		backendName := ""
		scheme, port := schemeAndPort(p.Endpoint)
		if b, err := st.backends.Ensure(scheme, hostOf(p.Endpoint), port, true); err == nil {
			backendName = b.Name
		}
		adapter := ortb.New(ortb.Config{
			BidderName:  p.Name,
			Enabled:     p.Enabled,
			Endpoint:    p.Endpoint,
			BackendName: backendName,
			TimeoutMS:   p.TimeoutMS,
		}, client)
		if s.Auction.Mediator != "" && p.Name == s.Auction.Mediator {
			mediator = adapter
			continue
		}
		providers = append(providers, adapter)
	}
	st.orchestrator = &auction.Orchestrator{
		Providers: providers,
		Mediator:  mediator,
		TimeoutMS: s.Auction.TimeoutMS,
	}

	st.integrations = integration.NewRegistry()
	if ddSettings, ok := s.Integrations["datadome"]; ok {
		cfg := datadome.FromSettings(ddSettings)
		if cfg.Enabled {
			st.integrations.Register(datadome.New(cfg, client).Registration())
		}
	}

	return nil
}

// schemeAndPort extracts the scheme and explicit port (0 if default) from
// a URL string, defaulting to https when the URL doesn't parse cleanly.
func schemeAndPort(rawURL string) (string, int) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" {
		return "https", 0
	}
	port := 0
	if p := u.Port(); p != "" {
		port, _ = strconv.Atoi(p)
	}
	return u.Scheme, port
}

// hostOf extracts the bare hostname from a URL string, falling back to the
// raw string itself (e.g. a bare host with no scheme) when it doesn't
// parse as a URL with a host component.
func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err == nil && u.Hostname() != "" {
		return u.Hostname()
	}
	return rawURL
}
