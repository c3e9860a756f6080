// Package cmd implements the cui-prefs command-line interface.
package cmd

import (
	"encoding/json"
	"io"
	"os"

	"cui-prefs/internal/config"
	"cui-prefs/internal/logger"
	"cui-prefs/internal/metrics"
	"cui-prefs/internal/preferences"

	"golang.org/x/term"
)

// App holds application state shared across commands.
type App struct {
	Config     config.Config
	ConfigPath string // path to the config.yaml that was (or would be) loaded
	Prefs      *preferences.Service
	Logger     *logger.Logger
	Metrics    *metrics.Metrics // nil unless metrics.enabled
	Out        io.Writer
	Err        io.Writer
	JSON       bool // output in JSON format
}

// PrintJSON writes v to Out as indented JSON.
func (a *App) PrintJSON(v any) error {
	enc := json.NewEncoder(a.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *App) isTerminal() bool {
	f, ok := a.Out.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// SuccessColor returns the string wrapped in green ANSI codes if stdout is a terminal,
// otherwise returns the string unchanged.
func (a *App) SuccessColor(s string) string {
	if a.isTerminal() {
		return "\033[32m" + s + "\033[0m"
	}
	return s
}

// WarnColor returns the string wrapped in orange ANSI codes if stdout is a terminal,
// otherwise returns the string unchanged.
func (a *App) WarnColor(s string) string {
	if a.isTerminal() {
		return "\033[38;5;214m" + s + "\033[0m"
	}
	return s
}

// ErrorColor returns the string wrapped in red ANSI codes if stdout is a terminal,
// otherwise returns the string unchanged.
func (a *App) ErrorColor(s string) string {
	if a.isTerminal() {
		return "\033[31m" + s + "\033[0m"
	}
	return s
}
