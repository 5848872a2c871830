package workflow

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chal0326/researchcms/internal/core/model"
	"github.com/chal0326/researchcms/internal/logger"
	"github.com/chal0326/researchcms/internal/retry"
)

// InlineHost runs steps in-process under a retry policy. It is used when no
// Temporal cluster is configured, and its dedup memory does not survive a
// restart.
type InlineHost struct {
	Processor Processor
	Policy    retry.Policy
	Window    time.Duration
	Log       *logger.Logger

	mu   sync.Mutex
	seen map[string]time.Time
	wg   sync.WaitGroup
	now  func() time.Time
}

func NewInlineHost(p Processor, policy retry.Policy, window time.Duration, log *logger.Logger) *InlineHost {
	if log == nil {
		log = logger.Nop()
	}
	return &InlineHost{
		Processor: p,
		Policy:    policy,
		Window:    window,
		Log:       log,
		seen:      make(map[string]time.Time),
		now:       time.Now,
	}
}

func (h *InlineHost) Start(ctx context.Context, id string, ref model.DocumentRef) (string, error) {
	now := h.now()

	h.mu.Lock()
	for k, at := range h.seen {
		if now.Sub(at) >= h.Window {
			delete(h.seen, k)
		}
	}
	if _, ok := h.seen[id]; ok {
		h.mu.Unlock()
		return "", ErrDuplicate
	}
	h.seen[id] = now
	h.mu.Unlock()

	runID := uuid.NewString()
	runCtx := context.WithoutCancel(ctx)
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.run(runCtx, id, runID, ref)
	}()
	return runID, nil
}

func (h *InlineHost) run(ctx context.Context, id, runID string, ref model.DocumentRef) {
	log := h.Log.With("workflow_id", id, "run_id", runID, "key", ref.Key)
	err := retry.Do(ctx, h.Policy, func(ctx context.Context, attempt int) error {
		res := h.Processor.ProcessFile(ctx, ref.Bucket, ref.Key)
		if !res.Success {
			log.Warn("Extraction attempt failed", "attempt", attempt, "error", res.Error)
			return errors.New(res.Error)
		}
		return nil
	})
	if err != nil {
		log.Error("Extraction failed after retries", "error", err)
		return
	}
	log.Info("Extraction completed")
}

// Wait blocks until every started step has finished.
func (h *InlineHost) Wait() {
	h.wg.Wait()
}
