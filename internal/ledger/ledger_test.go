package ledger

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chal0326/researchcms/internal/core/model"
	"github.com/chal0326/researchcms/internal/store"
	"github.com/chal0326/researchcms/internal/store/memstore"
)

const ledgerSchema = `
CREATE TABLE entities (id TEXT PRIMARY KEY, name TEXT, ein TEXT, type TEXT);
CREATE TABLE edges (
	id TEXT PRIMARY KEY, source_id TEXT, target_id TEXT, type TEXT,
	role TEXT, year INTEGER, amount REAL, attributes TEXT
);
INSERT INTO entities VALUES
	('L1', 'Acme Fund', '12-3456789', 'Organization'),
	('L2', 'Jane Doe', NULL, 'person'),
	('L3', '', 'n/a', NULL);
INSERT INTO edges VALUES
	('E1', 'L1', 'L2', 'Officer Compensation', 'Treasurer', 2021, 85000.5, '{"hours": 40}'),
	('E2', 'L1', 'L3', 'Grant Award', NULL, NULL, NULL, NULL),
	('E3', 'L1', 'L9', 'contract', NULL, NULL, NULL, NULL);
`

func openLedger(t *testing.T) *SQLSource {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(ledgerSchema)
	require.NoError(t, err)
	return NewSQLSource(db, "sqlite")
}

func TestSQLSource(t *testing.T) {
	src := openLedger(t)
	ctx := context.Background()

	ents, err := src.Entities(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, ents, 2)

	edges, err := src.Edges(ctx, 10)
	require.NoError(t, err)
	require.Len(t, edges, 3)
	assert.Equal(t, 2021, *edges[0].Year)
	assert.Equal(t, 85000.5, *edges[0].Amount)
	assert.Nil(t, edges[1].Year)
	assert.Empty(t, edges[1].Role)
}

func TestSync(t *testing.T) {
	src := openLedger(t)
	s := memstore.New()
	ctx := context.Background()
	syncer := NewSyncer(src, s, 0, nil)

	stats, err := syncer.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, SyncStats{Entities: 3, EntitiesCreated: 3, EdgesSynced: 2, EdgesSkipped: 1}, stats)

	ents, err := s.FindEntities(ctx, store.EntityQuery{LedgerIDs: []string{"L1", "L2", "L3"}})
	require.NoError(t, err)
	byLedger := map[string]model.Entity{}
	for _, e := range ents {
		byLedger[e.LedgerSourceID] = e
	}
	assert.Equal(t, "123456789", byLedger["L1"].TaxID)
	assert.Equal(t, model.EntityPerson, byLedger["L2"].Type)
	assert.Equal(t, "Unknown Entity", byLedger["L3"].Name)
	assert.Equal(t, model.EntityOrganization, byLedger["L3"].Type)
	assert.Empty(t, byLedger["L3"].TaxID)

	rels, err := s.FindRelationships(ctx, store.RelationshipQuery{LedgerID: "E1"})
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, model.RelEmployment, rels[0].Type)
	assert.Equal(t, "Treasurer", rels[0].Role)
	assert.Equal(t, float64(40), rels[0].Attributes["hours"])

	// A second run updates in place.
	_, err = src.db.Exec(`UPDATE edges SET amount = 90000 WHERE id = 'E1'`)
	require.NoError(t, err)
	stats, err = syncer.Sync(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.EntitiesCreated)
	assert.Equal(t, 2, stats.EdgesSynced)
	assert.Len(t, s.Relationships(), 2)

	rels, err = s.FindRelationships(ctx, store.RelationshipQuery{LedgerID: "E1"})
	require.NoError(t, err)
	assert.Equal(t, 90000.0, *rels[0].Amount)
}

func TestSyncClaimsEntityByTaxID(t *testing.T) {
	src := openLedger(t)
	s := memstore.New()
	ctx := context.Background()

	extracted, err := s.CreateEntity(ctx, model.Entity{Name: "Acme Fund", TaxID: "123456789", SourceFile: "uploads/acme.md"})
	require.NoError(t, err)

	syncer := NewSyncer(src, s, 0, nil)
	stats, err := syncer.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, SyncStats{Entities: 3, EntitiesCreated: 2, EdgesSynced: 2, EdgesSkipped: 1}, stats)

	ents, err := s.FindEntities(ctx, store.EntityQuery{LedgerIDs: []string{"L1"}})
	require.NoError(t, err)
	require.Len(t, ents, 1)
	assert.Equal(t, extracted.ID, ents[0].ID)
	assert.Equal(t, "uploads/acme.md", ents[0].SourceFile)

	rels, err := s.FindRelationships(ctx, store.RelationshipQuery{LedgerID: "E1"})
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, extracted.ID, rels[0].FromID)

	stats, err = syncer.Sync(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.EntitiesCreated)
	assert.Len(t, s.Entities(), 3)
}

func TestSyncWithoutLedger(t *testing.T) {
	_, err := NewSyncer(nil, memstore.New(), 0, nil).Sync(context.Background())
	assert.ErrorIs(t, err, ErrNoLedger)

	_, err = OpenSQL("sqlite", "")
	assert.ErrorIs(t, err, ErrNoLedger)
	_, err = OpenSQL("mysql", "dsn")
	assert.Error(t, err)
}

func TestMapEdgeType(t *testing.T) {
	cases := map[string]model.RelationshipType{
		"":                   model.RelOther,
		"Service Contract":   model.RelContract,
		"GRANT":              model.RelGrant,
		"Key Employee":       model.RelEmployment,
		"compensation":       model.RelEmployment,
		"Salary":             model.RelEmployment,
		"Board Member":       model.RelBoard,
		"officer":            model.RelBoard,
		"Trustee":            model.RelBoard,
		"board contract":     model.RelContract,
		"donation":           model.RelOther,
		"Officer Comp Table": model.RelEmployment,
	}
	for raw, want := range cases {
		assert.Equal(t, want, MapEdgeType(raw), raw)
	}
}
