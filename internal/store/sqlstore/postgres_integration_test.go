//go:build integration

package sqlstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/chal0326/researchcms/internal/core/model"
	"github.com/chal0326/researchcms/internal/logger"
	"github.com/chal0326/researchcms/internal/store"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	pg, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("inquisitor"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "error starting postgres container")
	t.Cleanup(func() { _ = pg.Terminate(context.Background()) })

	dsn, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return dsn
}

func TestPostgresStore(t *testing.T) {
	ctx := context.Background()
	s, err := Open("postgres", startPostgres(t), logger.Nop())
	require.NoError(t, err)
	defer s.Close(ctx)

	acme, err := s.CreateEntity(ctx, model.Entity{Name: "Acme Fund", Type: model.EntityOrganization, TaxID: "123456789"})
	require.NoError(t, err)

	_, err = s.CreateEntity(ctx, model.Entity{Name: "Acme Fund Duplicate", TaxID: "123456789"})
	assert.Error(t, err, "ein unique index")

	found, err := s.FindEntities(ctx, store.EntityQuery{Names: []string{"nobody"}, TaxIDs: []string{"123456789"}})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, acme.ID, found[0].ID)

	require.NoError(t, s.EnsureMountains(ctx, model.DefaultMountains))
	mountains, err := s.FindMountains(ctx, model.DefaultMountains)
	require.NoError(t, err)
	assert.Len(t, mountains, len(model.DefaultMountains))
}
