package memstore

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chal0326/researchcms/internal/core/model"
	"github.com/chal0326/researchcms/internal/store"
)

func TestEntities(t *testing.T) {
	ctx := context.Background()
	s := New()

	acme, err := s.CreateEntity(ctx, model.Entity{Name: "Acme Fund", TaxID: "123456789"})
	require.NoError(t, err)
	_, err = s.CreateEntity(ctx, model.Entity{Name: "Jane Doe", LedgerSourceID: "L-1"})
	require.NoError(t, err)

	_, err = s.CreateEntity(ctx, model.Entity{Name: "Acme Again", TaxID: "123456789"})
	assert.Error(t, err, "tax ids are unique")

	found, err := s.FindEntities(ctx, store.EntityQuery{TaxIDs: []string{"123456789"}, LedgerIDs: []string{"L-1"}})
	require.NoError(t, err)
	assert.Len(t, found, 2)

	found, err = s.FindEntities(ctx, store.EntityQuery{})
	require.NoError(t, err)
	assert.Empty(t, found)

	desc := "A 501c3"
	updated, err := s.UpdateEntity(ctx, acme.ID, model.EntityUpdate{Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "A 501c3", updated.Description)

	_, err = s.UpdateEntity(ctx, "missing", model.EntityUpdate{})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRelationshipsAndMountains(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.CreateRelationship(ctx, model.Relationship{FromID: "a", ToID: "b", Type: model.RelTriggered})
	require.NoError(t, err)

	found, err := s.FindRelationships(ctx, store.RelationshipQuery{FromID: "a", ToID: "b", Type: model.RelTriggered})
	require.NoError(t, err)
	assert.Len(t, found, 1)

	found, err = s.FindRelationships(ctx, store.RelationshipQuery{FromID: "a", ToID: "b", Type: model.RelAffected})
	require.NoError(t, err)
	assert.Empty(t, found)

	require.NoError(t, s.EnsureMountains(ctx, model.DefaultMountains))
	require.NoError(t, s.EnsureMountains(ctx, []string{"media"}))
	mountains, err := s.FindMountains(ctx, []string{"Media", "arts-entertainment", "Sports"})
	require.NoError(t, err)
	assert.Len(t, mountains, 2)

	counts, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts.Relationships)
}

func TestFindEntitiesPages(t *testing.T) {
	ctx := context.Background()
	s := New()
	n := 0
	s.NewID = func() string {
		n++
		return fmt.Sprintf("id-%02d", n)
	}

	var names []string
	for i := 0; i < 5; i++ {
		name := fmt.Sprintf("Org %d", i)
		names = append(names, name)
		_, err := s.CreateEntity(ctx, model.Entity{Name: name})
		require.NoError(t, err)
	}

	page, err := s.FindEntities(ctx, store.EntityQuery{Names: names, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "id-01", page[0].ID)

	page, err = s.FindEntities(ctx, store.EntityQuery{Names: names, Limit: 2, Offset: 4})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "id-05", page[0].ID)

	page, err = s.FindEntities(ctx, store.EntityQuery{Names: names, Offset: 5})
	require.NoError(t, err)
	assert.Empty(t, page)

	ledgerID := "L-9"
	updated, err := s.UpdateEntity(ctx, "id-03", model.EntityUpdate{LedgerSourceID: &ledgerID})
	require.NoError(t, err)
	assert.Equal(t, "L-9", updated.LedgerSourceID)
}
