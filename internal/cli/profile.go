package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/vietddude/walletview/internal/aggregate"
	"github.com/vietddude/walletview/internal/control"
	"github.com/vietddude/walletview/internal/core/domain"
	"github.com/vietddude/walletview/internal/feed"
)

var (
	historyPage    int
	dobPage        int
	historyAddress string
	profileTimeout time.Duration
)

var profileCmd = &cobra.Command{
	Use:   "profile [address]",
	Short: "Show balances, digital objects and history of an address",
	Args:  cobra.ExactArgs(1),
	Run:   runProfile,
}

func init() {
	profileCmd.Flags().IntVar(&historyPage, "history-page", 1, "transaction history page")
	profileCmd.Flags().IntVar(&dobPage, "dob-page", 1, "digital object page")
	profileCmd.Flags().StringVar(&historyAddress, "history-address", "", "address of the profile to list history for")
	profileCmd.Flags().DurationVar(&profileTimeout, "timeout", time.Minute, "how long to wait for all sources")
	rootCmd.AddCommand(profileCmd)
}

func runProfile(cmd *cobra.Command, args []string) {
	cfg := loadConfig(cmd)

	ctx, cancel := signalContext()
	defer cancel()

	app := startApp(ctx, cfg)
	defer stopApp(app)

	p := app.Profile
	if err := loadProfile(p, domain.Address(args[0])); err != nil {
		slog.Error("Failed to load profile", "error", err)
		return
	}

	awaitCtx, awaitCancel := context.WithTimeout(ctx, profileTimeout)
	defer awaitCancel()
	if err := p.Await(awaitCtx); err != nil {
		slog.Warn("Some sources did not settle", "error", err)
	}

	printProfile(os.Stdout, p.Address(), app.Session.Network(), p.Assets(), p.DOBs(), p.History(), p.HistoryPage())
}

func loadProfile(p *control.Profile, addr domain.Address) error {
	if err := p.Load(addr); err != nil {
		return err
	}
	if historyAddress != "" {
		if err := p.SelectHistoryAddress(domain.Address(historyAddress)); err != nil {
			return err
		}
	}
	if historyPage != 1 {
		if err := p.SetHistoryPage(historyPage); err != nil {
			return fmt.Errorf("history page: %w", err)
		}
	}
	if dobPage != 1 {
		if err := p.SetDOBPage(dobPage); err != nil {
			return fmt.Errorf("dob page: %w", err)
		}
	}
	return nil
}

func printProfile(
	out io.Writer,
	addr domain.Address,
	network domain.Network,
	assets aggregate.View,
	dobs feed.State[domain.DigitalObject],
	history feed.State[domain.TransactionHistory],
	page int,
) {
	_, _ = fmt.Fprintf(out, "Address: %s (%s)\n\n", addr, network)

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintf(w, "ASSETS [%s]\n", assets.Status)
	_, _ = fmt.Fprintln(w, "SYMBOL\tAMOUNT\tSOURCE")
	for _, b := range assets.Data {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", b.Symbol, b.Display().String(), b.Source)
	}
	for _, e := range assets.Errors {
		_, _ = fmt.Fprintf(w, "! %s\t\t\n", e.Err)
	}
	_ = w.Flush()

	_, _ = fmt.Fprintf(out, "\nDIGITAL OBJECTS [%s]\n", dobs.Status)
	w = tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCONTENT TYPE\tCLUSTER\tSOURCE")
	for _, d := range dobs.Data {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.ID, d.ContentType, d.ClusterID, d.Source)
	}
	if dobs.Err != nil {
		_, _ = fmt.Fprintf(w, "! %s\t\t\t\n", dobs.Err)
	}
	_ = w.Flush()

	_, _ = fmt.Fprintf(out, "\nHISTORY page %d [%s]\n", page, history.Status)
	w = tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, "TX\tBLOCK\tINCOME")
	for _, h := range history.Data {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", h.Attributes.TransactionHash, h.Attributes.BlockNumber, h.Attributes.Income)
	}
	if history.Err != nil {
		_, _ = fmt.Fprintf(w, "! %s\t\t\n", history.Err)
	}
	_ = w.Flush()
}
