package settings

import (
	"net/url"
	"strings"

	"github.com/trusted-server/ts-edge/internal/tserr"
)

// Validate checks the structural invariants spec.md §3 requires of a
// settings tree before it is allowed to become the active snapshot: a
// publisher domain and origin must be present, every handler and provider
// endpoint must be a well-formed URL or host, and auction strategy must be
// one of the two recognized values.
func Validate(s *Settings) error {
	if strings.TrimSpace(s.Publisher.Domain) == "" {
		return tserr.Config("publisher.domain is required")
	}
	if strings.TrimSpace(s.Publisher.OriginHost) == "" {
		return tserr.Config("publisher.origin_host is required")
	}
	if s.Publisher.OriginURL != "" {
		if _, err := url.Parse(s.Publisher.OriginURL); err != nil {
			return tserr.ConfigWrap(err, "publisher.origin_url is not a valid URL")
		}
	}

	seen := make(map[string]bool, len(s.Handlers))
	for _, h := range s.Handlers {
		if strings.TrimSpace(h.ID) == "" {
			return tserr.Config("handler with empty id")
		}
		if seen[h.ID] {
			return tserr.Config("duplicate handler id %q", h.ID)
		}
		seen[h.ID] = true
		if strings.TrimSpace(h.Host) == "" {
			return tserr.Config("handler %q: host is required", h.ID)
		}
		if h.Scheme != "" && h.Scheme != "http" && h.Scheme != "https" {
			return tserr.Config("handler %q: scheme must be http or https, got %q", h.ID, h.Scheme)
		}
	}

	switch s.Auction.Strategy {
	case "", "parallel_only", "parallel_mediation":
	default:
		return tserr.Config("auction.strategy must be parallel_only or parallel_mediation, got %q", s.Auction.Strategy)
	}
	if s.Auction.Strategy == "parallel_mediation" && strings.TrimSpace(s.Auction.Mediator) == "" {
		return tserr.Config("auction.mediator is required when strategy is parallel_mediation")
	}
	names := make(map[string]bool, len(s.Auction.Providers))
	for _, p := range s.Auction.Providers {
		if strings.TrimSpace(p.Name) == "" {
			return tserr.Config("auction provider with empty name")
		}
		if names[p.Name] {
			return tserr.Config("duplicate auction provider %q", p.Name)
		}
		names[p.Name] = true
		if p.Enabled && strings.TrimSpace(p.Endpoint) == "" {
			return tserr.Config("auction provider %q: endpoint is required when enabled", p.Name)
		}
		if p.Endpoint != "" {
			if _, err := url.Parse(p.Endpoint); err != nil {
				return tserr.ConfigWrap(err, "auction provider %q: endpoint is not a valid URL", p.Name)
			}
		}
	}
	return nil
}
