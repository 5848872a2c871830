// Package orchestrator walks document buckets and feeds documents to the
// extraction pipeline, either inline in pages or through durable workflows.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chal0326/researchcms/internal/bucket"
	"github.com/chal0326/researchcms/internal/config"
	"github.com/chal0326/researchcms/internal/core/model"
	"github.com/chal0326/researchcms/internal/logger"
	"github.com/chal0326/researchcms/internal/queue"
	"github.com/chal0326/researchcms/internal/workflow"
)

// EnumeratePageSize is the listing page size of full-prefix enumeration.
const EnumeratePageSize = 1000

var ErrNoHost = errors.New("workflow host not configured")

type Orchestrator struct {
	Buckets   bucket.Registry
	Processor workflow.Processor
	Host      workflow.Host
	Queue     queue.Queue
	Window    time.Duration
	Log       *logger.Logger

	now func() time.Time
}

func New(buckets bucket.Registry, p workflow.Processor, log *logger.Logger) *Orchestrator {
	if log == nil {
		log = logger.Nop()
	}
	return &Orchestrator{
		Buckets:   buckets,
		Processor: p,
		Window:    time.Hour,
		Log:       log,
		now:       time.Now,
	}
}

// SweepRequest selects one page of a bucket prefix. Zero values take the
// defaults.
type SweepRequest struct {
	Limit  int    `json:"limit"`
	Cursor string `json:"cursor"`
	Bucket string `json:"bucket"`
	Prefix string `json:"prefix"`
}

func (r *SweepRequest) applyDefaults() {
	if r.Limit <= 0 {
		r.Limit = config.DefaultSweepLimit
	}
	if r.Bucket == "" {
		r.Bucket = config.DefaultBucket
	}
	if r.Prefix == "" {
		r.Prefix = config.DefaultPrefix
	}
}

type SweepResponse struct {
	Stats      model.ExtractionStats `json:"stats"`
	NextCursor *string               `json:"next_cursor"`
}

// Sweep processes one listing page sequentially. Files that fail are only
// counted; the returned error is reserved for request-level failures.
func (o *Orchestrator) Sweep(ctx context.Context, req SweepRequest) (SweepResponse, error) {
	req.applyDefaults()

	b, err := o.Buckets.Bucket(req.Bucket)
	if err != nil {
		return SweepResponse{}, err
	}
	page, err := b.List(ctx, req.Prefix, req.Cursor, req.Limit)
	if err != nil {
		return SweepResponse{}, fmt.Errorf("failed to list %s: %w", req.Bucket, err)
	}

	var resp SweepResponse
	for _, obj := range page.Objects {
		if !bucket.IsDocumentKey(obj.Key) {
			continue
		}
		res := o.Processor.ProcessFile(ctx, req.Bucket, obj.Key)
		if !res.Success || res.Stats == nil {
			resp.Stats.FilesFailed++
			continue
		}
		resp.Stats.Add(*res.Stats)
	}

	if page.Truncated && page.Cursor != "" {
		next := page.Cursor
		resp.NextCursor = &next
	}
	o.Log.Info("Sweep batch finished",
		"bucket", req.Bucket,
		"prefix", req.Prefix,
		"files", resp.Stats.Files,
		"failed", resp.Stats.FilesFailed,
		"more", resp.NextCursor != nil,
	)
	return resp, nil
}

// SweepAll repeats Sweep until the listing is exhausted, calling onBatch
// after each page.
func (o *Orchestrator) SweepAll(ctx context.Context, req SweepRequest, onBatch func(SweepResponse)) (model.ExtractionStats, error) {
	var total model.ExtractionStats
	for {
		resp, err := o.Sweep(ctx, req)
		if err != nil {
			return total, err
		}
		total.Add(resp.Stats)
		if onBatch != nil {
			onBatch(resp)
		}
		if resp.NextCursor == nil {
			return total, nil
		}
		req.Cursor = *resp.NextCursor
	}
}

// Enqueue sends every document under prefix to the queue and returns how
// many were sent.
func (o *Orchestrator) Enqueue(ctx context.Context, bucketName, prefix string) (int, error) {
	if o.Queue == nil {
		return 0, queue.ErrNotConfigured
	}
	bucketName, prefix = defaults(bucketName, prefix)
	b, err := o.Buckets.Bucket(bucketName)
	if err != nil {
		return 0, err
	}

	sent := 0
	err = bucket.Walk(ctx, b, prefix, EnumeratePageSize, func(key string) error {
		if err := o.Queue.Send(ctx, model.DocumentRef{Bucket: bucketName, Key: key}); err != nil {
			return fmt.Errorf("enqueue %s: %w", key, err)
		}
		sent++
		return nil
	})
	o.Log.Info("Enqueued documents", "bucket", bucketName, "prefix", prefix, "count", sent)
	return sent, err
}

type DispatchStats struct {
	Started    int `json:"started"`
	Duplicates int `json:"duplicates"`
	Failed     int `json:"failed"`
}

// Dispatch starts one workflow per document under prefix.
func (o *Orchestrator) Dispatch(ctx context.Context, bucketName, prefix string) (DispatchStats, error) {
	var stats DispatchStats
	bucketName, prefix = defaults(bucketName, prefix)
	b, err := o.Buckets.Bucket(bucketName)
	if err != nil {
		return stats, err
	}

	err = bucket.Walk(ctx, b, prefix, EnumeratePageSize, func(key string) error {
		started, err := o.Start(ctx, model.DocumentRef{Bucket: bucketName, Key: key})
		switch {
		case err != nil:
			stats.Failed++
			o.Log.Warn("Failed to start workflow", "key", key, "error", err)
		case started:
			stats.Started++
		default:
			stats.Duplicates++
		}
		return nil
	})
	o.Log.Info("Dispatched documents",
		"bucket", bucketName,
		"started", stats.Started,
		"duplicates", stats.Duplicates,
		"failed", stats.Failed,
	)
	return stats, err
}

// Start launches the workflow for ref. A duplicate inside the dedup window is
// not an error and reports started=false.
func (o *Orchestrator) Start(ctx context.Context, ref model.DocumentRef) (bool, error) {
	if o.Host == nil {
		return false, ErrNoHost
	}
	id := workflow.ID(ref.Key, o.Window, o.now())
	runID, err := o.Host.Start(ctx, id, ref)
	if errors.Is(err, workflow.ErrDuplicate) {
		o.Log.Debug("Workflow already running", "workflow_id", id)
		return false, nil
	}
	if err != nil {
		return false, err
	}
	o.Log.Debug("Workflow started", "workflow_id", id, "run_id", runID)
	return true, nil
}

func defaults(bucketName, prefix string) (string, string) {
	if bucketName == "" {
		bucketName = config.DefaultBucket
	}
	if prefix == "" {
		prefix = config.DefaultPrefix
	}
	return bucketName, prefix
}
