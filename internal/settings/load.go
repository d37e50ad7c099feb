package settings

import (
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/trusted-server/ts-edge/internal/tserr"
)

// EnvPrefix is the prefix recognized by ApplyEnv (spec.md §3 "Environment
// overrides"). A variable TRUSTED_SERVER__PUBLISHER__DOMAIN overrides
// publisher.domain.
const EnvPrefix = "TRUSTED_SERVER__"

const envSeparator = "__"

// ParseTOML unmarshals raw TOML text into a Settings tree. Unknown keys are
// accepted (forward compatibility for config pushed by a newer control
// plane) since go-toml/v2's Unmarshal ignores fields with no matching tag.
func ParseTOML(raw string) (*Settings, error) {
	var s Settings
	if err := toml.Unmarshal([]byte(raw), &s); err != nil {
		return nil, tserr.ConfigWrap(err, "parse settings TOML")
	}
	return &s, nil
}

// ApplyEnv merges TRUSTED_SERVER__-prefixed environment variables over s,
// in place. environ is the process environment in "KEY=VALUE" form (as
// returned by os.Environ), passed in rather than read directly so the merge
// stays pure and testable.
func ApplyEnv(s *Settings, environ []string) error {
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(k, EnvPrefix) {
			continue
		}
		path := strings.Split(strings.TrimPrefix(k, EnvPrefix), envSeparator)
		if err := setPath(s, path, v); err != nil {
			return tserr.ConfigWrap(err, "apply env override %s", k)
		}
	}
	return nil
}

// setPath resolves a dotted env-var path against the known Settings shape.
// Only the leaves callers actually need to override from the environment
// (publisher.*, synthetic.*, auction.strategy/mediator/timeout_ms) are
// wired; unrecognized paths are ignored rather than rejected, since an
// operator's environment may carry unrelated TRUSTED_SERVER__ variables
// meant for a different component.
func setPath(s *Settings, path []string, value string) error {
	if len(path) < 2 {
		return nil
	}
	section := strings.ToLower(path[0])
	leaf := strings.ToLower(path[1])
	switch section {
	case "publisher":
		return setStringField(&s.Publisher, leaf, value)
	case "synthetic":
		return setStringField(&s.Synthetic, leaf, value)
	case "auction":
		return setStringField(&s.Auction, leaf, value)
	}
	return nil
}

// setStringField assigns value to the struct field whose lowercase toml
// name matches leaf, converting to int/bool as the field type requires.
func setStringField(dst any, leaf, value string) error {
	switch d := dst.(type) {
	case *Publisher:
		switch leaf {
		case "domain":
			d.Domain = value
		case "page_url":
			d.PageURL = value
		case "origin_host":
			d.OriginHost = value
		case "origin_url":
			d.OriginURL = value
		case "log_level":
			d.LogLevel = value
		case "log_format":
			d.LogFormat = value
		}
	case *Synthetic:
		switch leaf {
		case "current_kid_override":
			d.CurrentKIDOverride = value
		case "active_ttl_days":
			n, err := strconv.Atoi(value)
			if err != nil {
				return err
			}
			d.ActiveTTLDays = n
		case "min_secret_bytes":
			n, err := strconv.Atoi(value)
			if err != nil {
				return err
			}
			d.MinSecretBytes = n
		}
	case *Auction:
		switch leaf {
		case "strategy":
			d.Strategy = value
		case "mediator":
			d.Mediator = value
		case "timeout_ms":
			n, err := strconv.Atoi(value)
			if err != nil {
				return err
			}
			d.TimeoutMS = n
		}
	}
	return nil
}

// Load parses raw TOML, applies environment overrides, and validates the
// result. It does not canonicalize — call ToCanonicalTOML separately once
// the caller is ready to hash or publish, per spec.md §4.3's requirement
// that canonicalization be a pure function of the validated model.
func Load(raw string, environ []string) (*Settings, error) {
	s, err := ParseTOML(raw)
	if err != nil {
		return nil, err
	}
	if err := ApplyEnv(s, environ); err != nil {
		return nil, err
	}
	if err := Validate(s); err != nil {
		return nil, err
	}
	return s, nil
}
