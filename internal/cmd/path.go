package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// PathResult is the JSON output of the path command.
type PathResult struct {
	BaseDir    string `json:"base_dir"`
	ConfigDir  string `json:"config_dir"`
	Path       string `json:"path"`
	ConfigPath string `json:"config_path"`
	Exists     bool   `json:"exists"`
}

func newPathCmd(provider *AppProvider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "path",
		Short: "Print the preferences file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}

			paths := app.Prefs.Paths()
			if app.JSON {
				return app.PrintJSON(PathResult{
					BaseDir:    paths.BaseDir,
					ConfigDir:  paths.ConfigDir,
					Path:       paths.DBPath,
					ConfigPath: app.ConfigPath,
					Exists:     fileExists(paths.DBPath),
				})
			}
			fmt.Fprintln(app.Out, paths.DBPath)
			return nil
		},
	}
	return cmd
}
