package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chal0326/researchcms/internal/ledger"
)

var syncLedgerCmd = &cobra.Command{
	Use:   "sync-ledger",
	Short: "Mirror ledger entities and edges into the graph",
	RunE:  runSyncLedger,
}

func init() {
	rootCmd.AddCommand(syncLedgerCmd)
}

func runSyncLedger(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()
	a, err := newApp(ctx, cfg, log, appOptions{ledger: true})
	if err != nil {
		return err
	}
	defer a.Close()

	if a.ledger == nil {
		return ledger.ErrNoLedger
	}
	stats, err := a.ledger.Sync(ctx)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	return printJSON(cmd, stats)
}
