package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/chal0326/researchcms/internal/bucket"
	"github.com/chal0326/researchcms/internal/config"
	"github.com/chal0326/researchcms/internal/core"
	"github.com/chal0326/researchcms/internal/core/chunker"
	"github.com/chal0326/researchcms/internal/core/extraction"
	"github.com/chal0326/researchcms/internal/driver"
	"github.com/chal0326/researchcms/internal/ledger"
	"github.com/chal0326/researchcms/internal/llm"
	"github.com/chal0326/researchcms/internal/logger"
	"github.com/chal0326/researchcms/internal/orchestrator"
	"github.com/chal0326/researchcms/internal/queue"
	"github.com/chal0326/researchcms/internal/retry"
	"github.com/chal0326/researchcms/internal/store"
	"github.com/chal0326/researchcms/internal/store/graphstore"
	"github.com/chal0326/researchcms/internal/store/memstore"
	"github.com/chal0326/researchcms/internal/store/sqlstore"
	"github.com/chal0326/researchcms/internal/workflow"
	"github.com/chal0326/researchcms/internal/workflow/temporalx"
)

// app holds the wired components of one process.
type app struct {
	cfg          *config.Config
	log          *logger.Logger
	store        store.Store
	buckets      bucket.Registry
	pipeline     *core.Pipeline
	orchestrator *orchestrator.Orchestrator
	temporal     temporalsdkclient.Client
	inline       *workflow.InlineHost
	ledger       *ledger.Syncer

	closers []func()
}

type appOptions struct {
	queue    bool
	host     bool
	ledger   bool
	pipeline bool
}

func newApp(ctx context.Context, cfg *config.Config, log *logger.Logger, opts appOptions) (*app, error) {
	a := &app{cfg: cfg, log: log}

	s, err := openStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	a.store = s
	a.closers = append(a.closers, func() { _ = s.Close(context.Background()) })

	buckets, err := bucket.Open(ctx, cfg.Buckets)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.buckets = buckets

	if opts.pipeline {
		if err := a.wirePipeline(ctx); err != nil {
			a.Close()
			return nil, err
		}
	}
	a.orchestrator = orchestrator.New(a.buckets, nil, log)
	if a.pipeline != nil {
		a.orchestrator.Processor = a.pipeline
	}
	a.orchestrator.Window = config.Duration(cfg.Workflow.DedupWindow, a.orchestrator.Window)

	if opts.queue {
		q, err := queue.Open(cfg.Queue, log)
		switch {
		case err == nil:
			a.orchestrator.Queue = q
			a.closers = append(a.closers, func() { _ = q.Close() })
		case errors.Is(err, queue.ErrNotConfigured):
			log.Warn("No queue configured; background enqueue disabled")
		default:
			a.Close()
			return nil, err
		}
	}

	if opts.host {
		if err := a.wireHost(ctx); err != nil {
			a.Close()
			return nil, err
		}
	}

	if opts.ledger {
		src, err := ledger.OpenSQL(cfg.Ledger.Driver, cfg.Ledger.DSN)
		if err != nil {
			log.Warn("Ledger unavailable", "error", err)
		} else {
			a.closers = append(a.closers, func() { _ = src.Close() })
			a.ledger = ledger.NewSyncer(src, s, cfg.Ledger.Limit, log)
		}
	}

	return a, nil
}

func (a *app) wirePipeline(ctx context.Context) error {
	client, err := llm.NewClient(ctx, a.cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to initialize LLM client: %w", err)
	}
	variant := extraction.ParseVariant(a.cfg.Extraction.Variant)
	if variant == extraction.Extended {
		client = llm.Throttle(client, config.Duration(a.cfg.Extraction.CallInterval, 0))
	}

	a.pipeline = core.NewPipeline(
		a.buckets,
		chunker.New(a.cfg.Extraction.ChunkSize, a.cfg.Extraction.MinChunkSize),
		extraction.NewExtractor(client, variant, a.cfg.Extraction.SystemPrompt),
		core.NewReconciler(a.store, a.log, variant, a.cfg.Extraction.FallbackMountain),
		a.log,
		a.cfg.Extraction.Concurrency,
	)
	return nil
}

func (a *app) wireHost(ctx context.Context) error {
	policy := retry.FromConfig(a.cfg.Workflow.Retry)

	tc, err := temporalx.NewClient(ctx, a.cfg.Temporal, a.log)
	if err != nil {
		return err
	}
	if tc != nil {
		a.temporal = tc
		a.closers = append(a.closers, tc.Close)
		a.orchestrator.Host = temporalx.NewHost(tc, a.cfg.Temporal.TaskQueue, policy)
		return nil
	}

	if a.pipeline == nil {
		return fmt.Errorf("inline workflow host needs the extraction pipeline")
	}
	a.inline = workflow.NewInlineHost(a.pipeline, policy, a.orchestrator.Window, a.log)
	a.orchestrator.Host = a.inline
	return nil
}

// Close waits for inline workflows and releases every resource.
func (a *app) Close() {
	if a.inline != nil {
		a.inline.Wait()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (store.Store, error) {
	switch strings.ToLower(cfg.Store.Driver) {
	case "memory":
		return memstore.New(), nil
	case "sqlite", "postgres":
		return sqlstore.Open(strings.ToLower(cfg.Store.Driver), cfg.Store.DSN, log)
	case "memgraph":
		d, err := driver.NewMemgraphDriver(ctx, cfg.Memgraph.URI, cfg.Memgraph.User, cfg.Memgraph.Password, log)
		if err != nil {
			return nil, err
		}
		if err := d.BuildIndices(ctx); err != nil {
			_ = d.Close(ctx)
			return nil, err
		}
		return graphstore.New(d), nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
}
