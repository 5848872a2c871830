package graphstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chal0326/researchcms/internal/core/model"
	"github.com/chal0326/researchcms/internal/driver"
	"github.com/chal0326/researchcms/internal/store"
)

func newTestStore(d *MockDriver) *Store {
	s := New(d)
	s.UUIDGenerator = func() string { return "uuid-1" }
	s.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return s
}

func TestFindEntities(t *testing.T) {
	d := &MockDriver{Results: []neo4j.EagerResult{
		result(record([]string{"props"}, map[string]any{
			"id":      "e1",
			"name":    "Acme Fund",
			"type":    "Organization",
			"ein":     "123456789",
			"aliases": `[{"name":"Acme","type":"DBA"}]`,
		})),
	}}
	s := newTestStore(d)

	found, err := s.FindEntities(context.Background(), store.EntityQuery{Names: []string{"Acme Fund"}})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "123456789", found[0].TaxID)
	assert.Equal(t, []model.Alias{{Name: "Acme", Kind: model.AliasDBA}}, found[0].Aliases)

	require.Len(t, d.Executed, 1)
	assert.Equal(t, driver.FindEntitiesQuery, d.Executed[0].Query)
	assert.Equal(t, []string{}, d.Executed[0].Params["eins"])
	assert.Equal(t, int64(store.DefaultLimit), d.Executed[0].Params["limit"])
	assert.Equal(t, int64(0), d.Executed[0].Params["offset"])
}

func TestFindEntitiesEmptyQuerySkipsDriver(t *testing.T) {
	d := &MockDriver{}
	found, err := newTestStore(d).FindEntities(context.Background(), store.EntityQuery{})
	require.NoError(t, err)
	assert.Empty(t, found)
	assert.Empty(t, d.Executed)
}

func TestCreateEntity(t *testing.T) {
	d := &MockDriver{Results: []neo4j.EagerResult{
		result(record([]string{"props"}, map[string]any{"id": "uuid-1", "name": "Jane Doe", "type": "Person", "created_at": int64(1700000000000)})),
	}}
	s := newTestStore(d)

	e, err := s.CreateEntity(context.Background(), model.Entity{Name: "Jane Doe", Type: model.EntityPerson})
	require.NoError(t, err)
	assert.Equal(t, "uuid-1", e.ID)
	assert.Equal(t, time.UnixMilli(1700000000000).UTC(), e.CreatedAt)

	params := d.Executed[0].Params
	assert.Equal(t, "uuid-1", params["id"])
	assert.Nil(t, params["ein"])
	assert.Nil(t, params["ledger_source_id"])
}

func TestUpdateEntityNotFound(t *testing.T) {
	ein := "123456789"
	_, err := newTestStore(&MockDriver{}).UpdateEntity(context.Background(), "missing", model.EntityUpdate{TaxID: &ein})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdateEntityClaimsLedgerID(t *testing.T) {
	d := &MockDriver{Results: []neo4j.EagerResult{
		result(record([]string{"props"}, map[string]any{"id": "e1", "name": "Acme Fund", "ledger_source_id": "L1"})),
	}}
	ledgerID := "L1"
	updated, err := newTestStore(d).UpdateEntity(context.Background(), "e1", model.EntityUpdate{LedgerSourceID: &ledgerID})
	require.NoError(t, err)
	assert.Equal(t, "L1", updated.LedgerSourceID)

	require.Len(t, d.Executed, 1)
	assert.Equal(t, "L1", d.Executed[0].Params["ledger_id"])
	assert.Nil(t, d.Executed[0].Params["ein"])
}

func TestRelationships(t *testing.T) {
	keys := []string{"props", "from_id", "to_id"}
	d := &MockDriver{Results: []neo4j.EagerResult{
		result(record(keys, map[string]any{"id": "r1", "type": "Grant", "amount": 1500.5, "year": int64(2020)}, "a", "b")),
		result(),
	}}
	s := newTestStore(d)

	found, err := s.FindRelationships(context.Background(), store.RelationshipQuery{FromID: "a", ToID: "b", Type: model.RelGrant})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "a", found[0].FromID)
	assert.Equal(t, 1500.5, *found[0].Amount)
	assert.Equal(t, 2020, *found[0].Year)
	assert.Equal(t, "", d.Executed[0].Params["ledger_id"])

	_, err = s.CreateRelationship(context.Background(), model.Relationship{FromID: "a", ToID: "ghost", Type: model.RelMentions})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCreateEventLinks(t *testing.T) {
	d := &MockDriver{Results: []neo4j.EagerResult{
		result(record([]string{"props"}, map[string]any{"id": "uuid-1", "year": int64(1999), "title": "Charter signed", "mountains": []any{"m1"}})),
	}}
	s := newTestStore(d)

	ev, err := s.CreateEvent(context.Background(), model.TimelineEvent{
		Year:        1999,
		Title:       "Charter signed",
		Entities:    []model.EventEntity{{EntityID: "a"}},
		MountainIDs: []string{"m1"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1999, ev.Year)
	assert.Equal(t, []string{"m1"}, ev.MountainIDs)

	require.Len(t, d.Executed, 4)
	assert.Equal(t, driver.CreateEventQuery, d.Executed[0].Query)
	assert.Equal(t, driver.ClearEventLinksQuery, d.Executed[1].Query)
	assert.Equal(t, []string{"a"}, d.Executed[2].Params["entity_ids"])
	assert.Equal(t, []string{"m1"}, d.Executed[3].Params["mountain_ids"])
}

func TestCounts(t *testing.T) {
	d := &MockDriver{Results: []neo4j.EagerResult{
		result(record([]string{"entities", "relationships", "events"}, int64(3), int64(2), int64(1))),
	}}
	c, err := newTestStore(d).Counts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, store.Counts{Entities: 3, Relationships: 2, Events: 1}, c)
}

func TestDriverError(t *testing.T) {
	d := &MockDriver{Err: errors.New("connection refused")}
	_, err := newTestStore(d).FindEntities(context.Background(), store.EntityQuery{Names: []string{"x"}})
	assert.ErrorContains(t, err, "connection refused")
}
