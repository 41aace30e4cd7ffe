package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/vietddude/walletview/internal/core/config"
	"github.com/vietddude/walletview/internal/core/domain"
	"github.com/vietddude/walletview/internal/session"
	"github.com/vietddude/walletview/internal/sources"
	"github.com/vietddude/walletview/internal/transfer"
)

var (
	transferTo       string
	transferAmount   string
	transferToken    string
	transferFeeRate  uint64
	transferDecimals int32
	transferDryRun   bool
	transferTimeout  time.Duration
)

var transferCmd = &cobra.Command{
	Use:   "transfer",
	Short: "Send an xUDT token from the connected wallet",
	Args:  cobra.NoArgs,
	Run:   runTransfer,
}

func init() {
	f := transferCmd.Flags()
	f.StringVar(&transferTo, "to", "", "recipient address")
	f.StringVar(&transferAmount, "amount", "", "amount in token units, e.g. 1.5")
	f.StringVar(&transferToken, "token", "", "token symbol from the config or its type script args")
	f.Uint64Var(&transferFeeRate, "fee-rate", 0, "fee rate in shannons per 1000 bytes (default from config)")
	f.Int32Var(&transferDecimals, "decimals", -1, "decimals of an unregistered token")
	f.BoolVar(&transferDryRun, "dry-run", false, "build the transaction without sending it")
	f.DurationVar(&transferTimeout, "timeout", 2*time.Minute, "how long to wait for the wallet")
	_ = transferCmd.MarkFlagRequired("to")
	_ = transferCmd.MarkFlagRequired("amount")
	_ = transferCmd.MarkFlagRequired("token")
	rootCmd.AddCommand(transferCmd)
}

func runTransfer(cmd *cobra.Command, args []string) {
	cfg := loadConfig(cmd)

	ctx, cancel := signalContext()
	defer cancel()

	if err := sendTransfer(ctx, cfg); err != nil {
		slog.Error("Transfer failed", "error", err)
		if msg := session.UserMessage(err); msg != "" {
			fmt.Fprintln(os.Stderr, msg)
		}
		cancel()
		os.Exit(1)
	}
}

func sendTransfer(ctx context.Context, cfg *config.AppConfig) error {
	ctx, cancel := context.WithTimeout(ctx, transferTimeout)
	defer cancel()

	app := startApp(ctx, cfg)
	defer stopApp(app)

	addrs, err := app.Session.AwaitAddresses(ctx)
	if err != nil {
		return fmt.Errorf("wallet not ready: %w", err)
	}

	token, err := resolveToken(app.Registry, transferToken)
	if err != nil {
		return err
	}
	if transferDecimals >= 0 {
		token.Decimals = transferDecimals
	}
	amount, err := token.ParseAmount(transferAmount)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", transferAmount, err)
	}
	if amount.Sign() <= 0 {
		return fmt.Errorf("invalid amount %q: must be positive", transferAmount)
	}
	feeRate := transferFeeRate
	if feeRate == 0 {
		feeRate = cfg.Transfer.FeeRate
	}

	req := transfer.Request{
		From:    domain.ResolveAddressSet(addrs.Recommended, addrs.List),
		To:      domain.Address(transferTo),
		Amount:  amount,
		FeeRate: feeRate,
		Token:   token,
	}

	if transferDryRun {
		skel, err := app.Transfer.Build(ctx, req)
		if err != nil {
			return err
		}
		fmt.Printf("Built %s %s transfer to %s: %s\n", transferAmount, token.Symbol, transferTo, transfer.Describe(skel))
		return nil
	}

	hash, err := app.Transfer.SignAndSend(ctx, req)
	if err != nil {
		return err
	}
	fmt.Printf("Sent %s %s to %s: %s\n", transferAmount, token.Symbol, transferTo, hash)
	return nil
}

// resolveToken accepts a registered symbol or raw type script args.
func resolveToken(reg *sources.Registry, token string) (domain.TokenDescriptor, error) {
	if t, ok := reg.BySymbol(token); ok {
		return t, nil
	}
	if strings.HasPrefix(token, "0x") || strings.HasPrefix(token, `\x`) {
		return reg.Describe(token), nil
	}
	return domain.TokenDescriptor{}, fmt.Errorf("unknown token %q: use a configured symbol or the type script args", token)
}
