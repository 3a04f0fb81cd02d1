// Package config loads .nosecrets.toml into a compiled suppress.Config.
// An absent file is equivalent to all-empty configuration, not an error.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/nosecrets/nosecrets/pkg/suppress"
)

// Load reads and compiles .nosecrets.toml from path. A missing file
// returns the all-empty default configuration rather than an error.
func Load(path string) (*suppress.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return suppress.Default(), nil
		}
		return nil, &suppress.ErrInvalidConfig{Cause: fmt.Errorf("reading %s: %w", path, err)}
	}

	dec := toml.NewDecoder(strings.NewReader(string(data)))
	dec.DisallowUnknownFields()

	var raw suppress.RawConfig
	if err := dec.Decode(&raw); err != nil {
		return nil, &suppress.ErrInvalidConfig{Cause: fmt.Errorf("parsing %s: %w", path, err)}
	}

	return suppress.CompileConfig(raw)
}
