package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/vietddude/walletview/internal/core/config"
	"github.com/vietddude/walletview/internal/core/domain"
)

var networkCmd = &cobra.Command{
	Use:   "network",
	Short: "Show the active network",
	Args:  cobra.NoArgs,
	Run:   runNetwork,
}

var networkSwitchCmd = &cobra.Command{
	Use:   "switch [mainnet|testnet]",
	Short: "Switch the active network and remember the choice",
	Args:  cobra.ExactArgs(1),
	Run:   runNetworkSwitch,
}

var networkResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the remembered network to the configured default",
	Args:  cobra.NoArgs,
	Run:   runNetworkReset,
}

func init() {
	networkCmd.AddCommand(networkSwitchCmd, networkResetCmd)
	rootCmd.AddCommand(networkCmd)
}

func runNetwork(cmd *cobra.Command, args []string) {
	cfg := loadConfig(cmd)
	app := startApp(context.Background(), cfg)
	defer stopApp(app)

	fmt.Println(app.Session.Network())
}

func runNetworkSwitch(cmd *cobra.Command, args []string) {
	target, err := domain.ParseNetwork(args[0])
	if err != nil {
		fmt.Printf("Invalid network: %v\n", err)
		os.Exit(1)
	}
	switchTo(loadConfig(cmd), target)
}

func runNetworkReset(cmd *cobra.Command, args []string) {
	cfg := loadConfig(cmd)
	switchTo(cfg, cfg.Network)
}

func switchTo(cfg *config.AppConfig, target domain.Network) {
	ctx := context.Background()
	app := startApp(ctx, cfg)
	defer stopApp(app)

	from := app.Session.Network()
	if err := app.Session.SwitchNetwork(ctx, target); err != nil {
		slog.Error("Failed to switch network", "error", err)
		return
	}
	fmt.Printf("Switched network from %s to %s\n", from, target)
}
