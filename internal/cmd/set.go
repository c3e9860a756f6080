package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"cui-prefs/internal/preferences"

	"github.com/spf13/cobra"
)

func newSetCmd(provider *AppProvider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <key=value>...",
		Short: "Update preferences",
		Long: `Merge one or more key=value pairs into the stored preferences.

Each value is parsed as JSON when possible and stored as a plain string
otherwise. Keys not mentioned keep their current value.

Examples:
  cui-prefs set colorScheme=dark
  cui-prefs set language=fr sidebarWidth=240
  cui-prefs set 'notifications={"enabled":true,"ntfyUrl":"https://ntfy.sh/me"}'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}

			partial := make(preferences.Preferences, len(args))
			for _, arg := range args {
				key, value, err := parseAssignment(arg)
				if err != nil {
					return err
				}
				partial[key] = value
			}

			updated, err := app.Prefs.Update(cmd.Context(), partial)
			if err != nil {
				return fmt.Errorf("updating preferences: %w", err)
			}

			if app.JSON {
				return app.PrintJSON(updated)
			}
			for _, arg := range args {
				key, _, _ := parseAssignment(arg)
				fmt.Fprintf(app.Out, "%s %s = %s\n", app.SuccessColor("Set"), key, formatValue(updated[key]))
			}
			return nil
		},
	}
	return cmd
}

// parseAssignment splits key=value. The value is decoded as JSON if it
// parses, otherwise it is kept as a string.
func parseAssignment(arg string) (string, any, error) {
	key, raw, ok := strings.Cut(arg, "=")
	if !ok {
		return "", nil, fmt.Errorf("invalid argument %q: expected key=value", arg)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", nil, fmt.Errorf("invalid argument %q: empty key", arg)
	}

	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return key, raw, nil
	}
	return key, value, nil
}
