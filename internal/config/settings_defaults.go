package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/boddenberg/donations-ledger-go/internal/domain"

	"gopkg.in/yaml.v3"
)

// settingsDefaultsFile is the shape of SETTINGS_DEFAULTS_FILE:
//
//	defaults:
//	  foundation_name: Fundación Esperanza
//	  goal: 12000
//	  amounts: [5, 10, 25]
type settingsDefaultsFile struct {
	Defaults map[string]any `yaml:"defaults"`
}

// LoadSettingsSchema returns the declared settings with defaults overridden
// by the YAML file at path. An empty path returns the built-in defaults.
// Unknown keys and values that do not parse as the declared kind are errors.
func LoadSettingsSchema(path string) (domain.SettingsSchema, error) {
	schema := domain.DefaultSettings()
	if path == "" {
		return schema, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading settings defaults %s: %w", path, err)
	}

	var file settingsDefaultsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing settings defaults: %w", err)
	}

	for key, raw := range file.Defaults {
		def, ok := schema[key]
		if !ok {
			return nil, fmt.Errorf("settings defaults: unknown key %q", key)
		}
		value, ok := def.Normalize(yamlScalar(raw))
		if !ok {
			return nil, fmt.Errorf("settings defaults: %q is not a valid %s", key, def.Kind)
		}
		def.Default = value
		schema[key] = def
	}
	return schema, nil
}

// yamlScalar flattens a decoded YAML value into the string form settings use.
func yamlScalar(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []any:
		parts := make([]string, len(t))
		for i, item := range t {
			parts[i] = yamlScalar(item)
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(t)
	}
}
