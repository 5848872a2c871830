package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chal0326/researchcms/internal/core/common"
	"github.com/chal0326/researchcms/internal/core/model"
	"github.com/chal0326/researchcms/internal/logger"
	"github.com/chal0326/researchcms/internal/store"
)

// DefaultLimit bounds each ledger fetch.
const DefaultLimit = 2000

type SyncStats struct {
	Entities        int `json:"entities"`
	EntitiesCreated int `json:"entities_created"`
	EdgesSynced     int `json:"edges_synced"`
	EdgesSkipped    int `json:"edges_skipped"`
}

// Syncer upserts ledger rows keyed by their ledger id. An entity with no
// ledger match but a known tax id is claimed by stamping the ledger id on it.
type Syncer struct {
	Source Source
	Store  store.Store
	Limit  int
	Log    *logger.Logger
}

func NewSyncer(src Source, s store.Store, limit int, log *logger.Logger) *Syncer {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Syncer{Source: src, Store: s, Limit: limit, Log: log}
}

func (s *Syncer) Sync(ctx context.Context) (SyncStats, error) {
	var stats SyncStats
	if s.Source == nil {
		return stats, ErrNoLedger
	}

	entities, err := s.Source.Entities(ctx, s.Limit)
	if err != nil {
		return stats, err
	}
	stats.Entities = len(entities)

	ids := make(map[string]string, len(entities))
	for _, ent := range entities {
		id, created, err := s.syncEntity(ctx, ent)
		if err != nil {
			s.Log.Warn("Failed to sync ledger entity", "ledger_id", ent.ID, "name", ent.Name, "error", err)
			continue
		}
		if created {
			stats.EntitiesCreated++
		}
		ids[ent.ID] = id
	}

	edges, err := s.Source.Edges(ctx, s.Limit)
	if err != nil {
		return stats, err
	}
	for _, edge := range edges {
		fromID, okFrom := ids[edge.SourceID]
		toID, okTo := ids[edge.TargetID]
		if !okFrom || !okTo {
			stats.EdgesSkipped++
			continue
		}
		if err := s.syncEdge(ctx, edge, fromID, toID); err != nil {
			s.Log.Warn("Failed to sync ledger edge", "ledger_id", edge.ID, "error", err)
			continue
		}
		stats.EdgesSynced++
	}

	s.Log.Info("Ledger sync finished",
		"entities", stats.Entities,
		"entities_created", stats.EntitiesCreated,
		"edges_synced", stats.EdgesSynced,
		"edges_skipped", stats.EdgesSkipped,
	)
	return stats, nil
}

func (s *Syncer) syncEntity(ctx context.Context, ent Entity) (string, bool, error) {
	found, err := s.Store.FindEntities(ctx, store.EntityQuery{LedgerIDs: []string{ent.ID}, Limit: 1})
	if err != nil {
		return "", false, err
	}
	if len(found) > 0 {
		return found[0].ID, false, nil
	}

	taxID := common.NormalizeTaxID(ent.TaxID)
	if taxID != "" {
		found, err = s.Store.FindEntities(ctx, store.EntityQuery{TaxIDs: []string{taxID}, Limit: 1})
		if err != nil {
			return "", false, err
		}
		if len(found) > 0 {
			ledgerID := ent.ID
			if _, err := s.Store.UpdateEntity(ctx, found[0].ID, model.EntityUpdate{LedgerSourceID: &ledgerID}); err != nil {
				return "", false, fmt.Errorf("claim entity %s: %w", found[0].ID, err)
			}
			return found[0].ID, false, nil
		}
	}

	name := strings.TrimSpace(ent.Name)
	if name == "" {
		name = "Unknown Entity"
	}
	kind := ent.Type
	if strings.TrimSpace(kind) == "" {
		kind = string(model.EntityOrganization)
	}

	created, err := s.Store.CreateEntity(ctx, model.Entity{
		Name:           name,
		Type:           model.NormalizeEntityType(kind),
		TaxID:          taxID,
		LedgerSourceID: ent.ID,
	})
	if err != nil {
		return "", false, err
	}
	return created.ID, true, nil
}

func (s *Syncer) syncEdge(ctx context.Context, edge Edge, fromID, toID string) error {
	rel := model.Relationship{
		FromID:         fromID,
		ToID:           toID,
		Type:           MapEdgeType(edge.Type),
		Description:    edge.Attributes,
		Attributes:     parseAttributes(edge.Attributes),
		LedgerSourceID: edge.ID,
		Amount:         edge.Amount,
		Year:           edge.Year,
		Role:           edge.Role,
	}

	found, err := s.Store.FindRelationships(ctx, store.RelationshipQuery{LedgerID: edge.ID, Limit: 1})
	if err != nil {
		return err
	}
	if len(found) > 0 {
		_, err = s.Store.UpdateRelationship(ctx, found[0].ID, rel)
		return err
	}
	_, err = s.Store.CreateRelationship(ctx, rel)
	if err != nil {
		return fmt.Errorf("create relationship: %w", err)
	}
	return nil
}

func parseAttributes(raw string) map[string]interface{} {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "{") {
		return nil
	}
	var attrs map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &attrs); err != nil {
		return nil
	}
	return attrs
}

// MapEdgeType classifies a ledger edge type by keyword. Checks run in order,
// so "board contract" is a Contract.
func MapEdgeType(raw string) model.RelationshipType {
	norm := strings.ToLower(raw)
	switch {
	case norm == "":
		return model.RelOther
	case strings.Contains(norm, "contract"):
		return model.RelContract
	case strings.Contains(norm, "grant"):
		return model.RelGrant
	case strings.Contains(norm, "employee"), strings.Contains(norm, "comp"), strings.Contains(norm, "salary"):
		return model.RelEmployment
	case strings.Contains(norm, "board"), strings.Contains(norm, "officer"), strings.Contains(norm, "trustee"):
		return model.RelBoard
	default:
		return model.RelOther
	}
}
