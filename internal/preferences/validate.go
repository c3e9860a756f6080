package preferences

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// keyCheck validates the value of one well-known key and returns one
// message per problem.
type keyCheck func(key string, value any) []string

// knownKeys lists the keys with a fixed meaning. Any other key is stored
// as given.
var knownKeys = map[string]keyCheck{
	KeyColorScheme:   stringRule("oneof=light dark system"),
	KeyLanguage:      stringRule("min=2,max=35"),
	KeyNotifications: checkNotifications,
}

// ValidatePartial checks the well-known keys present in partial. A null
// value is always accepted. It returns an error wrapping ErrInvalid that
// lists every problem, or nil.
func ValidatePartial(partial Preferences) error {
	keys := make([]string, 0, len(partial))
	for k := range partial {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var errs []string
	for _, key := range keys {
		if key == "" {
			errs = append(errs, "empty key")
			continue
		}
		check, ok := knownKeys[key]
		if !ok || partial[key] == nil {
			// null clears a setting, known or not.
			continue
		}
		errs = append(errs, check(key, partial[key])...)
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w:\n  %s", ErrInvalid, strings.Join(errs, "\n  "))
}

// ValidateDocument checks the structure of a decoded document.
func ValidateDocument(d Document) error {
	if d.Preferences == nil {
		return errors.New("missing preferences object")
	}
	switch v := d.Metadata.SchemaVersion; {
	case v < 1:
		return fmt.Errorf("invalid schema_version %d", v)
	case v > SchemaVersion:
		return fmt.Errorf("%w: file has version %d, this build supports %d", ErrUnsupportedSchema, v, SchemaVersion)
	}
	if d.Metadata.CreatedAt.IsZero() {
		return errors.New("missing metadata.created_at")
	}
	if d.Metadata.LastUpdated.IsZero() {
		return errors.New("missing metadata.last_updated")
	}
	return nil
}

// normalize round-trips p through JSON so values carry the same Go types a
// later read from disk would produce (float64 numbers, map[string]any
// objects).
func normalize(p Preferences) (Preferences, error) {
	if p == nil {
		return Preferences{}, nil
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	var out Preferences
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return out, nil
}

func stringRule(tag string) keyCheck {
	return func(key string, value any) []string {
		s, ok := value.(string)
		if !ok {
			return []string{fmt.Sprintf("%s: must be a string, got %s", key, jsonType(value))}
		}
		if err := validate.Var(s, tag); err != nil {
			return []string{fmt.Sprintf("%s: invalid value %q (%s)", key, s, tag)}
		}
		return nil
	}
}

func checkNotifications(key string, value any) []string {
	obj, ok := value.(map[string]any)
	if !ok {
		return []string{fmt.Sprintf("%s: must be an object, got %s", key, jsonType(value))}
	}

	var errs []string
	if enabled, present := obj["enabled"]; present {
		if _, ok := enabled.(bool); !ok {
			errs = append(errs, fmt.Sprintf("%s.enabled: must be a boolean, got %s", key, jsonType(enabled)))
		}
	}
	if u, present := obj["ntfyUrl"]; present {
		errs = append(errs, stringRule("omitempty,url")(key+".ntfyUrl", u)...)
	}
	return errs
}

func jsonType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case float64, float32, int, int64, int32, uint, uint64, uint32, json.Number:
		return "number"
	case []any:
		return "array"
	case map[string]any, Preferences:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
