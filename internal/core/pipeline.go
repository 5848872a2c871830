package core

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/chal0326/researchcms/internal/bucket"
	"github.com/chal0326/researchcms/internal/core/chunker"
	"github.com/chal0326/researchcms/internal/core/extraction"
	"github.com/chal0326/researchcms/internal/core/model"
	"github.com/chal0326/researchcms/internal/logger"
)

// Pipeline takes one document from its bucket through chunking, extraction
// and reconciliation.
type Pipeline struct {
	Buckets     bucket.Registry
	Chunker     *chunker.Chunker
	Extractor   *extraction.Extractor
	Reconciler  *Reconciler
	Log         *logger.Logger
	Concurrency int
}

func NewPipeline(buckets bucket.Registry, ch *chunker.Chunker, ex *extraction.Extractor, rec *Reconciler, log *logger.Logger, concurrency int) *Pipeline {
	if log == nil {
		log = logger.Nop()
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Pipeline{
		Buckets:     buckets,
		Chunker:     ch,
		Extractor:   ex,
		Reconciler:  rec,
		Log:         log,
		Concurrency: concurrency,
	}
}

// ProcessFile never returns an error; file-level failures are reported
// through FileResult.Success and FileResult.Error.
func (p *Pipeline) ProcessFile(ctx context.Context, bucketName, key string) (result model.FileResult) {
	result.Key = key
	log := p.Log.With("bucket", bucketName, "key", key)

	defer func() {
		if r := recover(); r != nil {
			log.Error("Panic while processing file", "panic", r)
			result = model.FileResult{Key: key, Error: fmt.Sprintf("panic: %v", r)}
		}
	}()

	stats, err := p.process(ctx, log, bucketName, key)
	if err != nil {
		log.Error("Failed to process file", "error", err)
		result.Error = err.Error()
		return result
	}

	log.Info("Processed file",
		"chunks", stats.Chunks,
		"entities_created", stats.EntitiesCreated,
		"relationships_created", stats.RelationshipsCreated,
		"events_created", stats.EventsCreated,
	)
	result.Success = true
	result.Stats = &stats
	return result
}

func (p *Pipeline) process(ctx context.Context, log *logger.Logger, bucketName, key string) (model.ExtractionStats, error) {
	b, err := p.Buckets.Bucket(bucketName)
	if err != nil {
		return model.ExtractionStats{}, err
	}
	text, err := b.Get(ctx, key)
	if err != nil {
		return model.ExtractionStats{}, err
	}

	chunks := p.Chunker.Split(text)
	log.Debug("Split document", "chunks", len(chunks))

	var results []model.ChunkResult
	if p.Extractor.Variant == extraction.Extended || p.Concurrency <= 1 {
		results = p.extractSequential(ctx, log, chunks)
	} else {
		results = p.extractConcurrent(ctx, log, chunks)
	}

	return p.Reconciler.Reconcile(ctx, key, results)
}

func (p *Pipeline) extractSequential(ctx context.Context, log *logger.Logger, chunks []string) []model.ChunkResult {
	results := make([]model.ChunkResult, len(chunks))
	for i, chunk := range chunks {
		results[i] = p.extractChunk(ctx, log, i, chunk)
	}
	return results
}

func (p *Pipeline) extractConcurrent(ctx context.Context, log *logger.Logger, chunks []string) []model.ChunkResult {
	results := make([]model.ChunkResult, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.Concurrency)
	for i, chunk := range chunks {
		g.Go(func() error {
			results[i] = p.extractChunk(gctx, log, i, chunk)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (p *Pipeline) extractChunk(ctx context.Context, log *logger.Logger, index int, chunk string) model.ChunkResult {
	res, err := p.Extractor.ExtractChunk(ctx, index, chunk)
	if err != nil {
		log.Warn("Chunk extraction failed", "chunk", index, "error", err)
		return model.ChunkResult{Index: index, Text: chunk}
	}
	return res
}
