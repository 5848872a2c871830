package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/chal0326/researchcms/internal/core/model"
	"github.com/chal0326/researchcms/internal/queue"
	"github.com/chal0326/researchcms/internal/workflow"
)

type MockProcessor struct {
	mu   sync.Mutex
	Keys []string
}

// ProcessFile fails every key containing "broken".
func (m *MockProcessor) ProcessFile(ctx context.Context, bucketName, key string) model.FileResult {
	m.mu.Lock()
	m.Keys = append(m.Keys, key)
	m.mu.Unlock()
	if strings.Contains(key, "broken") {
		return model.FileResult{Key: key, Error: "model unavailable"}
	}
	return model.FileResult{Key: key, Success: true, Stats: &model.ExtractionStats{Files: 1, Chunks: 2, EntitiesCreated: 1}}
}

type MockHost struct {
	mu      sync.Mutex
	IDs     []string
	started map[string]bool
	Err     error
}

func (h *MockHost) Start(ctx context.Context, id string, ref model.DocumentRef) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.Err != nil {
		return "", h.Err
	}
	if h.started == nil {
		h.started = map[string]bool{}
	}
	if h.started[id] {
		return "", workflow.ErrDuplicate
	}
	h.started[id] = true
	h.IDs = append(h.IDs, id)
	return "run-" + id, nil
}

type MockQueue struct {
	Sent    []model.DocumentRef
	SendErr error
	Acked   []string
}

func (q *MockQueue) Send(ctx context.Context, ref model.DocumentRef) error {
	if q.SendErr != nil {
		return q.SendErr
	}
	q.Sent = append(q.Sent, ref)
	return nil
}

// Consume delivers everything sent so far, then returns.
func (q *MockQueue) Consume(ctx context.Context, h queue.Handler) error {
	for _, ref := range q.Sent {
		ack, _ := h(ctx, ref)
		if ack {
			q.Acked = append(q.Acked, ref.Key)
		}
	}
	return nil
}

func (q *MockQueue) Close() error { return nil }

var errUnavailable = errors.New("unavailable")
