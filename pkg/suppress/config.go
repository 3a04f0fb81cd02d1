// Package suppress implements the Suppressor pipeline stage: allowlists,
// path filters, ignore-file entries, and inline-comment directives,
// applied in the fixed precedence order the finding data model requires.
package suppress

import (
	"fmt"
	"regexp"

	"github.com/gobwas/glob"
)

// Config is the process-wide, read-only configuration loaded once from
// .nosecrets.toml (or defaults if absent).
type Config struct {
	IgnorePaths   []glob.Glob
	AllowPattern  []*regexp.Regexp
	AllowValue    map[string]struct{}
	LowIsBlocking bool
}

// RawConfig mirrors the parsed .nosecrets.toml tables before compilation.
type RawConfig struct {
	Ignore struct {
		Paths []string `toml:"paths"`
	} `toml:"ignore"`
	Allow struct {
		Patterns []string `toml:"patterns"`
		Values   []string `toml:"values"`
	} `toml:"allow"`
	LowIsBlocking bool `toml:"low_is_blocking"`
}

// ErrInvalidConfig reports a malformed .nosecrets.toml.
type ErrInvalidConfig struct{ Cause error }

func (e *ErrInvalidConfig) Error() string { return fmt.Sprintf("invalid configuration: %v", e.Cause) }
func (e *ErrInvalidConfig) Unwrap() error { return e.Cause }

// CompileConfig compiles a RawConfig into a Config with every glob and
// regex pre-built, failing fast on any malformed entry.
func CompileConfig(raw RawConfig) (*Config, error) {
	cfg := &Config{LowIsBlocking: raw.LowIsBlocking}

	for _, p := range raw.Ignore.Paths {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, &ErrInvalidConfig{Cause: fmt.Errorf("ignore.paths %q: %w", p, err)}
		}
		cfg.IgnorePaths = append(cfg.IgnorePaths, g)
	}

	for _, p := range raw.Allow.Patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, &ErrInvalidConfig{Cause: fmt.Errorf("allow.patterns %q: %w", p, err)}
		}
		cfg.AllowPattern = append(cfg.AllowPattern, re)
	}

	if len(raw.Allow.Values) > 0 {
		cfg.AllowValue = make(map[string]struct{}, len(raw.Allow.Values))
		for _, v := range raw.Allow.Values {
			cfg.AllowValue[v] = struct{}{}
		}
	}

	return cfg, nil
}

// Default returns the all-empty configuration used when no
// .nosecrets.toml file is present.
func Default() *Config {
	return &Config{}
}
