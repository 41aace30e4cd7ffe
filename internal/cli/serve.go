package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/vietddude/walletview/internal/core/domain"
)

var serveAddress string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the profile, health and metrics over HTTP",
	Run:   runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddress, "address", "", "profile address to load at startup")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) {
	cfg := loadConfig(cmd)

	ctx, cancel := signalContext()
	defer cancel()

	app := startApp(ctx, cfg)
	if serveAddress != "" {
		if err := app.Profile.Load(domain.Address(serveAddress)); err != nil {
			slog.Error("Failed to load profile", "error", err)
			stopApp(app)
			os.Exit(1)
		}
	}

	slog.Info("Walletview started", "config", cfgPath, "port", cfg.Server.Port)

	if err := app.Serve(ctx); err != nil {
		slog.Error("HTTP server failed", "error", err)
	}
	slog.Info("Shutting down...")
	stopApp(app)
}
