//go:build integration

package integration

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chal0326/researchcms/internal/bucket"
	"github.com/chal0326/researchcms/internal/config"
	"github.com/chal0326/researchcms/internal/core"
	"github.com/chal0326/researchcms/internal/core/chunker"
	"github.com/chal0326/researchcms/internal/core/extraction"
	"github.com/chal0326/researchcms/internal/core/model"
	"github.com/chal0326/researchcms/internal/logger"
	"github.com/chal0326/researchcms/internal/retry"
	"github.com/chal0326/researchcms/internal/store/memstore"
	"github.com/chal0326/researchcms/internal/workflow"
	"github.com/chal0326/researchcms/internal/workflow/temporalx"
)

// TestTemporalExtraction runs ExtractDocument on a live cluster and checks
// that a second start inside the window is rejected.
func TestTemporalExtraction(t *testing.T) {
	addr := os.Getenv("TEMPORAL_ADDRESS")
	if addr == "" {
		t.Skip("Skipping integration test: TEMPORAL_ADDRESS not set")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.TemporalConfig{Address: addr, Namespace: "default", TaskQueue: "inquisitor-it-" + time.Now().Format("150405")}
	log := logger.Nop()

	tc, err := temporalx.NewClient(ctx, cfg, log)
	require.NoError(t, err)
	defer tc.Close()

	docs := bucket.NewMemory()
	docs.Put("uploads/acme.md", acmeDocument)
	s := memstore.New()
	mockLLM := &extraction.MockLLMClient{Response: `{"entities":[{"name":"Acme Fund","ein":"12-3456789"}]}`}
	p := core.NewPipeline(
		bucket.Registry{config.DefaultBucket: docs},
		chunker.New(0, 0),
		extraction.NewExtractor(mockLLM, extraction.Simple, ""),
		core.NewReconciler(s, log, extraction.Simple, ""),
		log,
		1,
	)

	runner, err := temporalx.NewRunner(log, tc, cfg.TaskQueue, 1, p)
	require.NoError(t, err)
	require.NoError(t, runner.Start(ctx))

	policy := retry.Policy{MaxAttempts: 2, InitialDelay: time.Second, BackoffMultiplier: 2}
	host := temporalx.NewHost(tc, cfg.TaskQueue, policy)
	ref := model.DocumentRef{Bucket: config.DefaultBucket, Key: "uploads/acme.md"}
	id := workflow.ID(ref.Key, time.Hour, time.Now()) + "-" + cfg.TaskQueue

	runID, err := host.Start(ctx, id, ref)
	require.NoError(t, err)

	var out model.FileResult
	require.NoError(t, tc.GetWorkflow(ctx, id, runID).Get(ctx, &out))
	assert.True(t, out.Success)
	assert.Len(t, s.Entities(), 1)

	_, err = host.Start(ctx, id, ref)
	assert.ErrorIs(t, err, workflow.ErrDuplicate)
}
