package temporalx

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/activity"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/chal0326/researchcms/internal/logger"
	wf "github.com/chal0326/researchcms/internal/workflow"
)

type Runner struct {
	log         *logger.Logger
	tc          temporalsdkclient.Client
	taskQueue   string
	concurrency int
	acts        *Activities
}

func NewRunner(log *logger.Logger, tc temporalsdkclient.Client, taskQueue string, concurrency int, p wf.Processor) (*Runner, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	if p == nil {
		return nil, fmt.Errorf("temporal worker missing processor")
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Runner{
		log:         log,
		tc:          tc,
		taskQueue:   taskQueue,
		concurrency: concurrency,
		acts:        &Activities{Processor: p},
	}, nil
}

// Start begins polling and stops the worker when ctx is done.
func (r *Runner) Start(ctx context.Context) error {
	w := worker.New(r.tc, r.taskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     r.concurrency,
		MaxConcurrentWorkflowTaskExecutionSize: r.concurrency,
	})
	w.RegisterWorkflowWithOptions(ExtractDocument, workflow.RegisterOptions{Name: WorkflowName})
	w.RegisterActivityWithOptions(r.acts.ProcessDocument, activity.RegisterOptions{Name: ActivityName})

	if err := w.Start(); err != nil {
		return fmt.Errorf("start temporal worker: %w", err)
	}
	r.log.Info("Temporal worker started", "task_queue", r.taskQueue, "concurrency", r.concurrency)

	go func() {
		<-ctx.Done()
		w.Stop()
	}()
	return nil
}
