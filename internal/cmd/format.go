package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"cui-prefs/internal/preferences"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Supported interchange formats for import and export.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatTOML = "toml"
)

// formatFromPath picks the format from a file extension.
func formatFromPath(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("unsupported file type %q (want .json, .yaml, .yml or .toml)", filepath.Ext(path))
	}
}

// decodePreferences parses data in the given format. A full preferences
// document (with "preferences" and "metadata" keys) is accepted as well as
// a bare preferences object.
func decodePreferences(data []byte, format string) (preferences.Preferences, error) {
	var raw map[string]any
	var err error
	switch format {
	case FormatJSON:
		err = json.Unmarshal(data, &raw)
	case FormatYAML:
		err = yaml.Unmarshal(data, &raw)
	case FormatTOML:
		err = toml.Unmarshal(data, &raw)
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", format, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("parsing %s: expected an object", format)
	}

	if inner, ok := raw["preferences"].(map[string]any); ok {
		if _, hasMeta := raw["metadata"]; hasMeta {
			return preferences.Preferences(inner), nil
		}
	}
	return preferences.Preferences(raw), nil
}

// encodePreferences renders p in the given format.
func encodePreferences(p preferences.Preferences, format string) ([]byte, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(p, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case FormatYAML:
		return yaml.Marshal(map[string]any(p))
	case FormatTOML:
		if keys := nullKeys("", map[string]any(p)); len(keys) > 0 {
			return nil, fmt.Errorf("TOML cannot represent null values (keys: %s); use --format json or yaml", strings.Join(keys, ", "))
		}
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(map[string]any(p)); err != nil {
			return nil, fmt.Errorf("encoding TOML: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unknown format %q (want json, yaml or toml)", format)
	}
}

// nullKeys returns the dotted paths of every null value under m, sorted.
func nullKeys(prefix string, m map[string]any) []string {
	var keys []string
	for k, v := range m {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		keys = append(keys, nullPaths(path, v)...)
	}
	sort.Strings(keys)
	return keys
}

func nullPaths(path string, v any) []string {
	switch v := v.(type) {
	case nil:
		return []string{path}
	case map[string]any:
		return nullKeys(path, v)
	case []any:
		var keys []string
		for i, item := range v {
			keys = append(keys, nullPaths(fmt.Sprintf("%s[%d]", path, i), item)...)
		}
		return keys
	}
	return nil
}
