package cli

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/chal0326/researchcms/internal/config"
	"github.com/chal0326/researchcms/internal/orchestrator"
)

var (
	bucketFlag string
	prefixFlag string
	limitFlag  int
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Extract every document under a prefix, one batch at a time",
	RunE:  runSweep,
}

var enqueueCmd = &cobra.Command{
	Use:   "enqueue",
	Short: "Queue every document under a prefix for background extraction",
	RunE:  runEnqueue,
}

var dispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Start one extraction workflow per document under a prefix",
	RunE:  runDispatch,
}

var extractCmd = &cobra.Command{
	Use:   "extract <key>",
	Short: "Run a single document through the pipeline",
	Args:  cobra.ExactArgs(1),
	RunE:  runExtract,
}

func init() {
	for _, c := range []*cobra.Command{sweepCmd, enqueueCmd, dispatchCmd, extractCmd} {
		c.Flags().StringVar(&bucketFlag, "bucket", config.DefaultBucket, "bucket binding name")
		rootCmd.AddCommand(c)
	}
	for _, c := range []*cobra.Command{sweepCmd, enqueueCmd, dispatchCmd} {
		c.Flags().StringVar(&prefixFlag, "prefix", config.DefaultPrefix, "key prefix to walk")
	}
	sweepCmd.Flags().IntVar(&limitFlag, "limit", config.DefaultSweepLimit, "documents per batch")
}

func runSweep(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()
	a, err := newApp(ctx, cfg, log, appOptions{pipeline: true})
	if err != nil {
		return err
	}
	defer a.Close()

	batch := 0
	total, err := a.orchestrator.SweepAll(ctx, orchestrator.SweepRequest{
		Limit:  limitFlag,
		Bucket: bucketFlag,
		Prefix: prefixFlag,
	}, func(resp orchestrator.SweepResponse) {
		batch++
		cmd.Printf("batch %d: files=%d failed=%d chunks=%d entities=%d relationships=%d\n",
			batch, resp.Stats.Files, resp.Stats.FilesFailed, resp.Stats.Chunks,
			resp.Stats.EntitiesCreated, resp.Stats.RelationshipsCreated)
	})
	if err != nil {
		return err
	}
	return printJSON(cmd, total)
}

func runEnqueue(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()
	a, err := newApp(ctx, cfg, log, appOptions{queue: true})
	if err != nil {
		return err
	}
	defer a.Close()

	n, err := a.orchestrator.Enqueue(ctx, bucketFlag, prefixFlag)
	if err != nil {
		return err
	}
	cmd.Printf("Enqueued %d files for background extraction.\n", n)
	return nil
}

func runDispatch(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()
	a, err := newApp(ctx, cfg, log, appOptions{host: true, pipeline: true})
	if err != nil {
		return err
	}
	defer a.Close()

	stats, err := a.orchestrator.Dispatch(ctx, bucketFlag, prefixFlag)
	if err != nil {
		return err
	}
	return printJSON(cmd, stats)
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx, cfg, log, appOptions{pipeline: true})
	if err != nil {
		return err
	}
	defer a.Close()

	res := a.pipeline.ProcessFile(ctx, bucketFlag, args[0])
	return printJSON(cmd, res)
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
