package orchestrator

import (
	"context"

	"github.com/chal0326/researchcms/internal/core/model"
)

// Consumer starts a workflow for every queued document.
type Consumer struct {
	Orchestrator *Orchestrator
}

func NewConsumer(o *Orchestrator) *Consumer {
	return &Consumer{Orchestrator: o}
}

// Run blocks until ctx is done. Messages are acknowledged once their
// workflow is started or found already running.
func (c *Consumer) Run(ctx context.Context) error {
	if c.Orchestrator.Queue == nil {
		return nil
	}
	return c.Orchestrator.Queue.Consume(ctx, c.Handle)
}

func (c *Consumer) Handle(ctx context.Context, ref model.DocumentRef) (bool, error) {
	if _, err := c.Orchestrator.Start(ctx, ref); err != nil {
		return false, err
	}
	return true, nil
}
