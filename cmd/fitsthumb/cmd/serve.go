/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ssargent/fitsthumb/pkg/api"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start the fitsthumb REST API server.

Frame summaries are served at /{frame_id}/, metrics at /metrics and the API
documentation at /swagger/. The archive URL can be overridden with the
ARCHIVE_API_URL environment variable.

Examples:
  fitsthumb serve
  fitsthumb serve --port=9000 --bind=127.0.0.1
  ARCHIVE_API_URL=http://localhost:9100 fitsthumb serve --config ./fitsthumb.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := container.Config()
		if cmd.Flags().Changed("port") {
			cfg.Port, _ = cmd.Flags().GetInt("port")
		}
		if cmd.Flags().Changed("bind") {
			cfg.Bind, _ = cmd.Flags().GetString("bind")
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		server, err := container.NewServer()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		container.Logger().Info("serving frames",
			"addr", cfg.Addr(), "archive", cfg.Archive.URL, "cache", cfg.Cache.Enabled)
		return api.StartServer(ctx, server)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8000, "Port to listen on")
	serveCmd.Flags().String("bind", "0.0.0.0", "Address to bind to")
}
