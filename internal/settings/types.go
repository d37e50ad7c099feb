// Package settings implements the settings loader (spec.md §3 "Settings",
// §4.3 C3): parse TOML once, merge TRUSTED_SERVER__ environment overrides,
// validate, and re-serialize to the canonical form that gets hashed. The
// result is an immutable snapshot shared read-only by every request handler
// (spec.md §5 "Shared resources").
package settings

// Settings is the root of the recognized configuration tree (spec.md §3).
type Settings struct {
	Publisher    Publisher              `toml:"publisher"`
	Synthetic    Synthetic              `toml:"synthetic"`
	Handlers     []Handler              `toml:"handlers"`
	Integrations map[string]Integration `toml:"integrations"`
	Auction      Auction                `toml:"auction"`
}

// Publisher holds the first-party domain this instance terminates requests
// under, and the origin it proxies to.
type Publisher struct {
	Domain     string `toml:"domain"`
	PageURL    string `toml:"page_url,omitempty"`
	OriginHost string `toml:"origin_host"`
	OriginURL  string `toml:"origin_url"`
	LogLevel   string `toml:"log_level,omitempty"`
	LogFormat  string `toml:"log_format,omitempty"`
}

// Synthetic controls the privacy-scoped synthetic identifier minted by C5.
type Synthetic struct {
	CurrentKIDOverride string `toml:"current_kid_override,omitempty"`
	ActiveTTLDays      int    `toml:"active_ttl_days,omitempty"`
	MinSecretBytes     int    `toml:"min_secret_bytes,omitempty"`
}

// Handler describes one upstream the backend registry (C4) resolves
// requests to.
type Handler struct {
	ID         string `toml:"id"`
	Type       string `toml:"type,omitempty"`
	Scheme     string `toml:"scheme"`
	Host       string `toml:"host"`
	Port       int    `toml:"port,omitempty"`
	CertCheck  bool   `toml:"cert_check"`
}

// Integration is a generic per-integration settings table (e.g. the
// DataDome integration's API key, or a CDN vendor's endpoint). Kept as a
// flat string map because integrations are declared dynamically (spec.md
// §4.10) — each integration's own package interprets its own keys.
type Integration map[string]string

// Auction configures the orchestrator (C11): the dispatch strategy, an
// optional mediator, the overall deadline, and the provider roster.
type Auction struct {
	Strategy  string     `toml:"strategy"` // "parallel_only" | "parallel_mediation"
	Mediator  string     `toml:"mediator,omitempty"`
	TimeoutMS int        `toml:"timeout_ms"`
	Providers []Provider `toml:"providers"`
}

// Provider configures one bidder the orchestrator dispatches to.
type Provider struct {
	Name      string `toml:"name"`
	Enabled   bool   `toml:"enabled"`
	Endpoint  string `toml:"endpoint"`
	TimeoutMS int    `toml:"timeout_ms,omitempty"`
}
