package cli

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the health of the active network and storage",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg := loadConfig(cmd)

	ctx := context.Background()
	app := startApp(ctx, cfg)
	defer stopApp(app)

	report := app.Health(ctx)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "COMPONENT\tSTATUS\tDETAIL")

	n := report.Network
	detail := fmt.Sprintf("session %s, tip %d", n.Session, n.TipBlock)
	if n.Error != "" {
		detail = n.Error
	}
	_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", n.Network, n.Status, detail)

	names := make([]string, 0, len(report.Components))
	for name := range report.Components {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c := report.Components[name]
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", name, c.Status, c.Error)
	}
	_ = w.Flush()

	fmt.Printf("\nSystem: %s\n", report.SystemStatus)
}
