package preferences

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DirName is the application directory created under the base directory.
	DirName = ".cui"
	// FileName is the preferences file inside DirName.
	FileName = "preferences.json"
)

// Paths captures resolved locations for the preferences file.
type Paths struct {
	BaseDir   string // directory holding .cui
	ConfigDir string // path to .cui
	DBPath    string // path to .cui/preferences.json
}

// ResolvePaths computes Paths under baseDir, or under the current user's
// home directory when baseDir is empty.
func ResolvePaths(baseDir string) (Paths, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Paths{}, fmt.Errorf("resolving home directory: %w", err)
		}
		baseDir = home
	}

	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return Paths{}, fmt.Errorf("resolving path: %w", err)
	}

	configDir := filepath.Join(abs, DirName)
	return Paths{
		BaseDir:   abs,
		ConfigDir: configDir,
		DBPath:    filepath.Join(configDir, FileName),
	}, nil
}
