package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newExportCmd(provider *AppProvider) *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Print preferences as JSON, YAML or TOML",
		Long: `Print the stored preferences in the chosen format, or write them to
a file with --output. The result can be read back with 'cui-prefs import'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}

			res := app.Prefs.Get(cmd.Context())
			if res.Fallback {
				fmt.Fprintf(app.Err, "%s exporting defaults: %v\n", app.WarnColor("warning:"), res.Err)
			}

			data, err := encodePreferences(res.Preferences, format)
			if err != nil {
				return err
			}

			if output == "" {
				_, err = app.Out.Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", output, err)
			}
			if app.JSON {
				return app.PrintJSON(map[string]string{"file": output, "format": format})
			}
			fmt.Fprintf(app.Out, "%s preferences to %s\n", app.SuccessColor("Exported"), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", FormatJSON, "Output format: json, yaml or toml")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to this file instead of stdout")

	return cmd
}
