package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"cui-prefs/internal/server"

	"github.com/spf13/cobra"
)

func newServeCmd(provider *AppProvider) *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve preferences over HTTP",
		Long: `Start the HTTP server.

Routes:
  GET  /api/preferences   current preferences
  PUT  /api/preferences   merge a partial preferences object
  GET  /health            liveness
  GET  /health/ready      200 once the preferences file has been loaded
  GET  /metrics           Prometheus metrics (when metrics.enabled)

The server stops gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}
			defer app.Logger.Close()

			cfg := app.Config
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}

			if err := app.Prefs.Initialize(cmd.Context()); err != nil {
				return err
			}

			srv := server.New(cfg, app.Prefs, app.Logger, app.Metrics)
			if !app.JSON {
				fmt.Fprintf(app.Err, "Serving %s on http://%s\n", app.Prefs.Paths().DBPath, srv.Address())
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Listen address (overrides server.host)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Listen port (overrides server.port)")

	return cmd
}
