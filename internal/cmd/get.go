package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func newGetCmd(provider *AppProvider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get [key]",
		Short: "Print preferences",
		Long: `Print all stored preferences, or the value of one key.

If the preferences file cannot be read, the defaults are printed and a
warning is written to stderr.

Examples:
  cui-prefs get
  cui-prefs get colorScheme
  cui-prefs --json get`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}

			res := app.Prefs.Get(cmd.Context())
			if res.Fallback {
				fmt.Fprintf(app.Err, "%s using defaults: %v\n", app.WarnColor("warning:"), res.Err)
			}

			if len(args) == 1 {
				key := args[0]
				value, ok := res.Preferences[key]
				if !ok {
					return fmt.Errorf("preference %q is not set", key)
				}
				if app.JSON {
					return app.PrintJSON(map[string]any{"key": key, "value": value})
				}
				fmt.Fprintln(app.Out, formatValue(value))
				return nil
			}

			if app.JSON {
				return app.PrintJSON(res.Preferences)
			}

			keys := make([]string, 0, len(res.Preferences))
			for k := range res.Preferences {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(app.Out, "%s = %s\n", k, formatValue(res.Preferences[k]))
			}
			return nil
		},
	}
	return cmd
}
