package preferences

import "time"

// SchemaVersion is the document shape revision written by this build.
const SchemaVersion = 1

// Well-known preference keys.
const (
	KeyColorScheme   = "colorScheme"
	KeyLanguage      = "language"
	KeyNotifications = "notifications"
)

// Preferences maps setting names to JSON values. Values are treated as
// immutable: functions in this package return new maps instead of
// modifying their arguments.
type Preferences map[string]any

// Metadata records document bookkeeping.
type Metadata struct {
	SchemaVersion int       `json:"schema_version"`
	CreatedAt     time.Time `json:"created_at"`
	LastUpdated   time.Time `json:"last_updated"`
}

// Document is the persisted unit stored in preferences.json.
type Document struct {
	Preferences Preferences `json:"preferences"`
	Metadata    Metadata    `json:"metadata"`
}

// DefaultPreferences returns a fresh copy of the built-in defaults.
func DefaultPreferences() Preferences {
	return Preferences{
		KeyColorScheme: "system",
		KeyLanguage:    "en",
	}
}

// NewDocument builds a document holding prefs, created at now.
func NewDocument(prefs Preferences, now time.Time) Document {
	now = now.UTC()
	return Document{
		Preferences: prefs.Clone(),
		Metadata: Metadata{
			SchemaVersion: SchemaVersion,
			CreatedAt:     now,
			LastUpdated:   now,
		},
	}
}

// Clone returns a deep copy of p.
func (p Preferences) Clone() Preferences {
	if p == nil {
		return Preferences{}
	}
	out := make(Preferences, len(p))
	for k, v := range p {
		out[k] = cloneValue(v)
	}
	return out
}

// Merge returns a new Preferences with the keys of partial laid over base.
// Keys absent from partial keep their base value. The merge is shallow:
// a nested object in partial replaces the one in base as a whole.
func Merge(base, partial Preferences) Preferences {
	out := make(Preferences, len(base)+len(partial))
	for k, v := range base {
		out[k] = cloneValue(v)
	}
	for k, v := range partial {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = cloneValue(e)
		}
		return out
	case Preferences:
		return v.Clone()
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
