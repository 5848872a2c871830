package orchestrator

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
)

// Scheduler periodically dispatches every document under one prefix.
type Scheduler struct {
	orch   *Orchestrator
	cron   *cron.Cron
	bucket string
	prefix string
}

func NewScheduler(o *Orchestrator, bucketName, prefix string) *Scheduler {
	return &Scheduler{orch: o, cron: cron.New(), bucket: bucketName, prefix: prefix}
}

// Start adds the poll job and runs the scheduler until Stop.
func (s *Scheduler) Start(ctx context.Context, schedule string) error {
	_, err := s.cron.AddFunc(schedule, func() { s.poll(ctx) })
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}
	s.cron.Start()
	s.orch.Log.Info("Poll scheduler started", "schedule", schedule, "bucket", s.bucket, "prefix", s.prefix)
	return nil
}

func (s *Scheduler) poll(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := s.orch.Dispatch(ctx, s.bucket, s.prefix); err != nil {
		s.orch.Log.Warn("Scheduled dispatch failed", "error", err)
	}
}

// Stop halts the scheduler and waits for a running poll to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
