// cui-prefs stores and serves user preferences for CUI.
package main

import (
	"fmt"
	"os"

	"cui-prefs/internal/cmd"
)

var (
	run    = func() error { return cmd.Execute() }
	osExit = os.Exit
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		osExit(1)
	}
}
