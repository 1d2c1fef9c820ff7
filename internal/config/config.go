// Package config loads and validates the mudb CLI's YAML configuration,
// following libs/configguard's schema-then-decode pattern: a config file is
// first parsed as a generic document and checked against an embedded JSON
// Schema, then -- only if that passes -- decoded into the typed Config
// struct. This catches malformed or unknown fields with a pointer to the
// offending location rather than an opaque yaml.Unmarshal error.
package config

import (
	"bytes"
	_ "embed"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaSource []byte

// ViewSpec names a secondary index to register at startup.
type ViewSpec struct {
	Name string `yaml:"name"`
}

// Config is the typed shape of an mudb CLI configuration file.
type Config struct {
	DataDir  string     `yaml:"dataDir"`
	File     string     `yaml:"file"`
	LogLevel string     `yaml:"logLevel"`
	Views    []ViewSpec `yaml:"views"`
}

var compiledSchema *jsonschema.Schema

func schema() (*jsonschema.Schema, error) {
	if compiledSchema != nil {
		return compiledSchema, nil
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("mudb-config.json", bytes.NewReader(schemaSource)); err != nil {
		return nil, fmt.Errorf("config: compile schema resource: %w", err)
	}
	s, err := compiler.Compile("mudb-config.json")
	if err != nil {
		return nil, fmt.Errorf("config: compile schema: %w", err)
	}
	compiledSchema = s
	return s, nil
}

// Parse validates data against the embedded schema, then decodes it into a
// Config. Validation errors from jsonschema, which reports every offending
// field in one pass rather than failing on the first, are returned wrapped
// with a "config: validate" prefix.
func Parse(data []byte) (*Config, error) {
	var generic any
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	// jsonschema validates over JSON-shaped values (map[string]any,
	// []any, string, float64, bool, nil); yaml.v3 already decodes
	// mappings as map[string]any, so no intermediate JSON round trip is
	// needed.
	s, err := schema()
	if err != nil {
		return nil, err
	}
	if err := s.Validate(generic); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	return &cfg, nil
}
