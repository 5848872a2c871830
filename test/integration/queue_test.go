//go:build integration

package integration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/chal0326/researchcms/internal/core/model"
	"github.com/chal0326/researchcms/internal/logger"
	"github.com/chal0326/researchcms/internal/queue"
)

func startRedis(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "error starting redis container")
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(c) })

	endpoint, err := c.Endpoint(ctx, "")
	require.NoError(t, err)
	return endpoint
}

// TestRedisQueueRedelivers checks that a message left unacknowledged is
// claimed and delivered again while acknowledged ones are consumed once.
func TestRedisQueueRedelivers(t *testing.T) {
	addr := startRedis(t)
	q := queue.NewRedis(addr, "", "extraction-jobs", "inquisitor", logger.Nop())
	q.ClaimIdle = 200 * time.Millisecond
	defer q.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, key := range []string{"uploads/a.md", "uploads/b.md"} {
		require.NoError(t, q.Send(ctx, model.DocumentRef{Bucket: "RESEARCH_DOCS", Key: key}))
	}

	consumeCtx, stop := context.WithCancel(ctx)
	var keys []string
	failed := false
	err := q.Consume(consumeCtx, func(ctx context.Context, ref model.DocumentRef) (bool, error) {
		keys = append(keys, ref.Key)
		if ref.Key == "uploads/b.md" && !failed {
			failed = true
			return false, errors.New("workflow host unavailable")
		}
		if len(keys) == 3 {
			stop()
		}
		return true, nil
	})
	require.NoError(t, err)
	require.NoError(t, ctx.Err(), "timed out waiting for redelivery")
	assert.Equal(t, []string{"uploads/a.md", "uploads/b.md", "uploads/b.md"}, keys)
}
