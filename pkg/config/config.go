// Package config holds the manager settings decoded from property maps.
//
// Properties use the "test.context." prefix, e.g. "test.context.closable". Keys
// without the prefix are accepted as well, so a metadata file may list either form.
package config

import (
	"fmt"
	"maps"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/testctx/pkg/domain"
)

// Prefix is stripped from property keys before decoding.
const Prefix = "test.context."

// Config controls how managers build and tear down shared contexts.
type Config struct {
	// Closable tears the context down once the last tracked execution finishes.
	Closable bool `mapstructure:"closable" json:"closable"`
	// Extension is used when a group declares no extension in metadata.
	Extension string `mapstructure:"extension" json:"extension"`
	// DefaultGroup receives units the metadata does not assign to a group.
	DefaultGroup string `mapstructure:"default.group" json:"default_group"`
	// Properties keeps the raw property map for listeners.
	Properties map[string]any `mapstructure:"-" json:"properties,omitempty"`
}

// Default returns the settings used when no property overrides them.
func Default() Config {
	return Config{
		Closable:     true,
		Extension:    domain.ExtensionReloadable,
		DefaultGroup: "default",
	}
}

// Decode overlays props on Default. Values are weakly typed, so "false" and 0 both disable Closable.
func Decode(props map[string]any) (Config, error) {
	cfg := Default()
	if len(props) == 0 {
		return cfg, nil
	}

	flat := make(map[string]any, len(props))
	for k, v := range props {
		flat[strings.TrimPrefix(k, Prefix)] = v
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return cfg, err
	}
	if err := dec.Decode(flat); err != nil {
		return cfg, fmt.Errorf("failed to decode properties: %w", err)
	}
	cfg.Properties = maps.Clone(props)
	return cfg, cfg.Validate()
}

// Validate checks the extension and default group.
func (c Config) Validate() error {
	switch c.Extension {
	case domain.ExtensionDefault, domain.ExtensionReloadable:
	default:
		return domain.NewConfigurationError("unknown context extension %q", c.Extension)
	}
	if c.DefaultGroup == "" {
		return domain.NewConfigurationError("default group must not be empty")
	}
	return nil
}

// Property returns a raw property by key, trying the prefixed form first.
func (c Config) Property(key string) (any, bool) {
	if v, ok := c.Properties[Prefix+key]; ok {
		return v, true
	}
	v, ok := c.Properties[key]
	return v, ok
}
