// Package config loads the run configuration: defaults, then an optional
// YAML file, then DOCGEN_* environment variables, highest priority last.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	koanfyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	envprovider "github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// Config holds every run parameter not supplied on the command line.
type Config struct {
	// Output is the path the generated document is written to.
	Output string `koanf:"output" validate:"required"`
	// Format selects the output encoding.
	Format string `koanf:"format" validate:"required,oneof=json yaml"`
	// ContactEmail lands in the document's info.contact section.
	ContactEmail string `koanf:"contact_email" validate:"omitempty,email"`
	// ServerURL is a template with one %s placeholder for the app name.
	ServerURL string `koanf:"server_url"`
	// DocsURL is a template with one %s placeholder for the app name.
	DocsURL  string `koanf:"docs_url"`
	LogLevel string `koanf:"log_level" validate:"required,oneof=trace debug info warn error"`
	Pretty   bool   `koanf:"pretty"`
}

func defaults() map[string]any {
	return map[string]any{
		"output":        "openapi.json",
		"format":        "json",
		"contact_email": "developers@cloudcix.com",
		"server_url":    "https://%s.api.cloudcix.com/",
		"docs_url":      "https://%s.api.cloudcix.com/documentation/",
		"log_level":     "info",
		"pretty":        false,
	}
}

// Load builds the configuration. path names an optional YAML config file; an
// empty path skips the file layer, a named file must exist.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		if err := k.Load(file.Provider(path), koanfyaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(envprovider.Provider("DOCGEN_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "DOCGEN_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	return unmarshal(k)
}

// LoadBytes builds the configuration from raw YAML over the defaults,
// skipping file and environment layers.
func LoadBytes(data []byte) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	if err := k.Load(rawbytes.Provider(data), koanfyaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return unmarshal(k)
}

func unmarshal(k *koanf.Koanf) (*Config, error) {
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}
