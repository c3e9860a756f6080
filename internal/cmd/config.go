package cmd

import (
	"fmt"

	"cui-prefs/internal/config"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// newConfigCmd creates the config command with subcommands.
func newConfigCmd(provider *AppProvider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage server configuration",
		Long: `Manage the cui-prefs configuration file.

Settings are read from <base>/.cui/config.yaml (or --config) and can be
overridden by environment variables prefixed with CUI_, for example
CUI_SERVER_PORT=8080 or CUI_LOGGER_LEVEL=debug.

Subcommands:
  show  Print the effective configuration
  init  Write a config file with the default settings`,
	}

	cmd.AddCommand(newConfigShowCmd(provider))
	cmd.AddCommand(newConfigInitCmd(provider))

	return cmd
}

func newConfigShowCmd(provider *AppProvider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}

			if app.JSON {
				return app.PrintJSON(app.Config)
			}

			data, err := yaml.Marshal(app.Config)
			if err != nil {
				return fmt.Errorf("encoding config: %w", err)
			}
			fmt.Fprintf(app.Out, "# %s\n", app.ConfigPath)
			_, err = app.Out.Write(data)
			return err
		},
	}
	return cmd
}

func newConfigInitCmd(provider *AppProvider) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}

			path := app.ConfigPath
			if fileExists(path) && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.WriteDefault(path); err != nil {
				return err
			}

			if app.JSON {
				return app.PrintJSON(map[string]string{"path": path})
			}
			fmt.Fprintf(app.Out, "%s %s\n", app.SuccessColor("Wrote"), path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")

	return cmd
}
