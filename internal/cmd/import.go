package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
)

// ImportResult is the JSON output of the import command.
type ImportResult struct {
	File        string         `json:"file"`
	Keys        []string       `json:"keys"`
	Preferences map[string]any `json:"preferences"`
}

func newImportCmd(provider *AppProvider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Merge preferences from a file",
		Long: `Merge preferences from a JSON, YAML or TOML file into the stored
preferences. The format is chosen by the file extension.

The file may hold a bare preferences object or a full preferences.json
document; in the latter case only its "preferences" object is imported.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}

			path := args[0]
			format, err := formatFromPath(path)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}
			partial, err := decodePreferences(data, format)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}

			updated, err := app.Prefs.Update(cmd.Context(), partial)
			if err != nil {
				return fmt.Errorf("importing %s: %w", path, err)
			}

			keys := make([]string, 0, len(partial))
			for k := range partial {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			if app.JSON {
				return app.PrintJSON(ImportResult{File: path, Keys: keys, Preferences: updated})
			}
			fmt.Fprintf(app.Out, "%s %d preference(s) from %s\n", app.SuccessColor("Imported"), len(keys), path)
			return nil
		},
	}
	return cmd
}
