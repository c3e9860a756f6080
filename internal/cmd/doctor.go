package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"cui-prefs/internal/jsonstore"
	"cui-prefs/internal/preferences"

	"github.com/spf13/cobra"
)

// DoctorResult represents the output of the doctor command.
type DoctorResult struct {
	Path     string   `json:"path"`
	Exists   bool     `json:"exists"`
	Problems []string `json:"problems"`
	Fixed    bool     `json:"fixed"`
	Backup   string   `json:"backup,omitempty"`
}

// newDoctorCmd creates the doctor command.
func newDoctorCmd(provider *AppProvider) *cobra.Command {
	var fix bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check for and fix a broken preferences file",
		Long: `Check the preferences file for problems.

Checks for:
- Malformed JSON or a document without a preferences object
- Missing or invalid metadata
- A schema version newer than this build understands
- Invalid values for well-known keys (colorScheme, language, notifications)

With --fix, a broken file is moved aside to preferences.json.corrupt-<unix time>
and replaced with the defaults.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			path := app.Prefs.Paths().DBPath
			result := DoctorResult{
				Path:     path,
				Exists:   fileExists(path),
				Problems: diagnose(cmd, app),
			}

			if fix && len(result.Problems) > 0 {
				backup := fmt.Sprintf("%s.corrupt-%d", path, time.Now().Unix())
				if err := os.Rename(path, backup); err != nil {
					return fmt.Errorf("moving %s aside: %w", path, err)
				}
				result.Backup = backup
				if _, err := app.Prefs.Reset(ctx); err != nil {
					return fmt.Errorf("resetting preferences: %w", err)
				}
				result.Fixed = true
			}

			if app.JSON {
				return app.PrintJSON(result)
			}

			if len(result.Problems) == 0 {
				if result.Exists {
					fmt.Fprintln(app.Out, app.SuccessColor("No problems found."))
				} else {
					fmt.Fprintf(app.Out, "%s %s does not exist yet; defaults are in use.\n", app.SuccessColor("No problems found."), path)
				}
				return nil
			}

			if result.Fixed {
				fmt.Fprintf(app.Out, "Fixed %d problems:\n", len(result.Problems))
			} else {
				fmt.Fprintf(app.Out, "Found %d problems:\n", len(result.Problems))
			}
			for _, problem := range result.Problems {
				fmt.Fprintf(app.Out, "  - %s\n", app.ErrorColor(problem))
			}

			if result.Fixed {
				fmt.Fprintf(app.Out, "\nThe old file was saved as %s\n", result.Backup)
			} else {
				fmt.Fprintln(app.Out, app.WarnColor("\nRun 'cui-prefs doctor --fix' to reset to defaults."))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&fix, "fix", false, "Move a broken file aside and reset to defaults")

	return cmd
}

// diagnose reads the stored document and describes what is wrong with it.
// A missing file is not a problem.
func diagnose(cmd *cobra.Command, app *App) []string {
	problems := []string{}

	doc, err := app.Prefs.Document(cmd.Context())
	switch {
	case err == nil:
	case errors.Is(err, preferences.ErrUnsupportedSchema):
		return append(problems, fmt.Sprintf("written by a newer version: %v", err))
	case errors.Is(err, jsonstore.ErrCorrupt):
		return append(problems, fmt.Sprintf("corrupt file: %v", err))
	default:
		return append(problems, fmt.Sprintf("cannot read file: %v", err))
	}

	if err := preferences.ValidatePartial(doc.Preferences); err != nil {
		problems = append(problems, err.Error())
	}
	if doc.Metadata.LastUpdated.Before(doc.Metadata.CreatedAt) {
		problems = append(problems, "metadata.last_updated is earlier than metadata.created_at")
	}
	return problems
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
