package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/chal0326/researchcms/internal/orchestrator"
	"github.com/chal0326/researchcms/internal/workflow/temporalx"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the workflow worker, queue consumer and poll scheduler",
	Long: `Runs the background side of extraction. With Temporal configured it polls
the task queue for ExtractDocument workflows; otherwise workflows run in
process. Queued documents are dispatched as workflows, and when
workflow.poll_schedule is set the configured prefix is dispatched on that
cron schedule.`,
	RunE: runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, log, appOptions{queue: true, host: true, pipeline: true})
	if err != nil {
		return err
	}
	defer a.Close()

	if a.temporal != nil {
		runner, err := temporalx.NewRunner(log, a.temporal, cfg.Temporal.TaskQueue, cfg.Extraction.Concurrency, a.pipeline)
		if err != nil {
			return err
		}
		if err := runner.Start(ctx); err != nil {
			return err
		}
	}

	if cfg.Workflow.PollSchedule != "" {
		sched := orchestrator.NewScheduler(a.orchestrator, cfg.Workflow.PollBucket, cfg.Workflow.PollPrefix)
		if err := sched.Start(ctx, cfg.Workflow.PollSchedule); err != nil {
			return err
		}
		defer sched.Stop()
	}

	if a.orchestrator.Queue != nil {
		go func() {
			if err := orchestrator.NewConsumer(a.orchestrator).Run(ctx); err != nil {
				log.Error("Queue consumer stopped", "error", err)
				stop()
			}
		}()
	}

	<-ctx.Done()
	log.Info("Worker shutting down")
	return nil
}
