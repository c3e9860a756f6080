package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"cui-prefs/internal/config"
	"cui-prefs/internal/jsonstore"
	"cui-prefs/internal/logger"
	"cui-prefs/internal/metrics"
	"cui-prefs/internal/preferences"

	"github.com/spf13/cobra"
)

// AppProvider lazily initializes the App on first use.
type AppProvider struct {
	once sync.Once
	app  *App
	err  error

	// Config captured from flags before Execute()
	BaseDir    string
	ConfigPath string
	JSONOutput bool
	Out        io.Writer
	Err        io.Writer
}

// Get returns the App, initializing it on first call.
func (p *AppProvider) Get() (*App, error) {
	p.once.Do(func() {
		if p.app == nil {
			p.app, p.err = p.init()
		}
	})
	return p.app, p.err
}

// NewTestProvider creates a provider pre-initialized with the given App.
// Used for testing commands with a test App.
func NewTestProvider(app *App) *AppProvider {
	return &AppProvider{
		app:        app,
		JSONOutput: app.JSON,
		Out:        app.Out,
		Err:        app.Err,
	}
}

func (p *AppProvider) init() (*App, error) {
	configPath, err := p.resolveConfigPath()
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if p.BaseDir != "" {
		cfg.BaseDir = p.BaseDir
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, err
	}

	var (
		m        *metrics.Metrics
		observer jsonstore.Observer
	)
	if cfg.Metrics.Enabled {
		m = metrics.New()
		observer = m
	}

	prefs, err := preferences.New(preferences.Options{
		BaseDir:  cfg.BaseDir,
		Logger:   log,
		Observer: observer,
	})
	if err != nil {
		return nil, err
	}

	out := p.Out
	if out == nil {
		out = os.Stdout
	}
	errOut := p.Err
	if errOut == nil {
		errOut = os.Stderr
	}

	return &App{
		Config:     cfg,
		ConfigPath: configPath,
		Prefs:      prefs,
		Logger:     log,
		Metrics:    m,
		Out:        out,
		Err:        errOut,
		JSON:       p.JSONOutput,
	}, nil
}

// resolveConfigPath returns --config if given, otherwise config.yaml in the
// .cui directory of the base directory (--dir, then CUI_BASE_DIR, then home).
func (p *AppProvider) resolveConfigPath() (string, error) {
	if p.ConfigPath != "" {
		return p.ConfigPath, nil
	}
	base := p.BaseDir
	if base == "" {
		base = os.Getenv(config.EnvBaseDir)
	}
	paths, err := preferences.ResolvePaths(base)
	if err != nil {
		return "", err
	}
	return filepath.Join(paths.ConfigDir, config.FileName), nil
}

// Execute runs the CLI.
func Execute() error {
	provider := &AppProvider{
		Out: os.Stdout,
		Err: os.Stderr,
	}

	rootCmd := newRootCmd(provider)
	return rootCmd.Execute()
}

// newRootCmd creates the root command with all subcommands.
func newRootCmd(provider *AppProvider) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cui-prefs",
		Short: "Persistent user preferences for CUI",
		Long: `cui-prefs stores user preferences in a single JSON document at
<base>/.cui/preferences.json and serves them over HTTP.

The base directory defaults to your home directory; override it with
--dir or CUI_BASE_DIR.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags - these populate the provider config
	rootCmd.PersistentFlags().BoolVar(&provider.JSONOutput, "json", envBool(config.EnvJSON), "Output in JSON format")
	rootCmd.PersistentFlags().StringVar(&provider.BaseDir, "dir", "", "Base directory holding .cui (default: $CUI_BASE_DIR or home)")
	rootCmd.PersistentFlags().StringVar(&provider.ConfigPath, "config", "", "Config file (default: <base>/.cui/config.yaml)")

	rootCmd.AddCommand(newServeCmd(provider))
	rootCmd.AddCommand(newGetCmd(provider))
	rootCmd.AddCommand(newSetCmd(provider))
	rootCmd.AddCommand(newImportCmd(provider))
	rootCmd.AddCommand(newExportCmd(provider))
	rootCmd.AddCommand(newPathCmd(provider))
	rootCmd.AddCommand(newDoctorCmd(provider))
	rootCmd.AddCommand(newConfigCmd(provider))
	rootCmd.AddCommand(newVersionCmd(provider))

	return rootCmd
}

// envBool reports whether the environment variable is set to "1" or "true".
func envBool(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true":
		return true
	}
	return false
}

// formatValue renders a preference value for text output: strings bare,
// everything else as compact JSON.
func formatValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return mustJSON(v)
}

func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
