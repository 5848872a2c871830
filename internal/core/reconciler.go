package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/chal0326/researchcms/internal/core/dedupe"
	"github.com/chal0326/researchcms/internal/core/extraction"
	"github.com/chal0326/researchcms/internal/core/model"
	"github.com/chal0326/researchcms/internal/logger"
	"github.com/chal0326/researchcms/internal/store"
)

// Reconciler writes the merged output of one document into the store.
type Reconciler struct {
	Store            store.Store
	Log              *logger.Logger
	Variant          extraction.Variant
	FallbackMountain string
}

func NewReconciler(s store.Store, log *logger.Logger, variant extraction.Variant, fallbackMountain string) *Reconciler {
	if log == nil {
		log = logger.Nop()
	}
	return &Reconciler{
		Store:            s,
		Log:              log,
		Variant:          variant,
		FallbackMountain: fallbackMountain,
	}
}

// Reconcile merges the chunk results of one document and upserts them.
// Only the bulk entity lookup is fatal; a failed write of a single record is
// logged and skipped.
func (r *Reconciler) Reconcile(ctx context.Context, key string, chunks []model.ChunkResult) (model.ExtractionStats, error) {
	doc := dedupe.Merge(key, chunks)
	stats := model.ExtractionStats{Files: 1, Chunks: doc.Chunks}
	log := r.Log.With("key", key)

	if doc.Malformed > 0 {
		log.Warn("Dropped malformed records", "count", doc.Malformed)
	}

	existing, err := r.lookupEntities(ctx, doc.Names(), doc.TaxIDs())
	if err != nil {
		return stats, fmt.Errorf("failed to look up entities for %s: %w", key, err)
	}
	res := newResolution(existing)

	for _, ent := range doc.Entities {
		created, err := r.syncEntity(ctx, key, ent, res)
		if err != nil {
			log.Warn("Failed to sync entity", "name", ent.Name, "error", err)
			continue
		}
		if created {
			stats.EntitiesCreated++
		}
	}
	for alias, name := range doc.Aliases {
		res.Alias(alias, name)
	}

	for _, rel := range doc.Relationships {
		created, err := r.syncRelationship(ctx, key, rel, res)
		if err != nil {
			log.Warn("Failed to sync relationship", "from", rel.From, "to", rel.To, "error", err)
			continue
		}
		if created {
			stats.RelationshipsCreated++
		}
	}

	if r.Variant == extraction.Extended && len(doc.Events) > 0 {
		mountains := r.loadMountains(ctx, log)
		for _, ev := range doc.Events {
			created, err := r.syncEvent(ctx, key, ev, res, mountains)
			if err != nil {
				log.Warn("Failed to sync event", "year", ev.Year, "title", ev.Title, "error", err)
				continue
			}
			if created {
				stats.EventsCreated++
			} else {
				stats.EventsUpdated++
			}
		}
	}

	return stats, nil
}

// lookupEntities fetches every persisted entity matching one of names or
// taxIDs. Both lists are sent in batches of at most DefaultLimit values and
// each batch is paged until it is exhausted.
func (r *Reconciler) lookupEntities(ctx context.Context, names, taxIDs []string) ([]model.Entity, error) {
	var out []model.Entity
	seen := make(map[string]bool)
	fetch := func(q store.EntityQuery) error {
		q.Limit = store.DefaultLimit
		for {
			page, err := r.Store.FindEntities(ctx, q)
			if err != nil {
				return err
			}
			for _, e := range page {
				if !seen[e.ID] {
					seen[e.ID] = true
					out = append(out, e)
				}
			}
			if len(page) < q.Limit {
				return nil
			}
			q.Offset += len(page)
		}
	}

	for len(names) > 0 || len(taxIDs) > 0 {
		var q store.EntityQuery
		q.Names, names = cut(names, store.DefaultLimit)
		q.TaxIDs, taxIDs = cut(taxIDs, store.DefaultLimit)
		if err := fetch(q); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func cut(s []string, n int) (head, rest []string) {
	if len(s) <= n {
		return s, nil
	}
	return s[:n], s[n:]
}

// syncEntity reuses the resolved entity when there is one, backfilling its
// tax id and taking a longer description, and creates it otherwise.
func (r *Reconciler) syncEntity(ctx context.Context, key string, ent model.ExtractedEntity, res *Resolution) (bool, error) {
	if found, ok := res.Find(ent); ok {
		var u model.EntityUpdate
		if ent.TaxID != "" && found.TaxID == "" {
			taxID := ent.TaxID
			u.TaxID = &taxID
		}
		if len(ent.Description) > len(found.Description) {
			desc := ent.Description
			u.Description = &desc
		}
		if u.TaxID != nil || u.Description != nil {
			updated, err := r.Store.UpdateEntity(ctx, found.ID, u)
			if err != nil {
				return false, err
			}
			found = updated
		}
		res.Bind(ent.Name, found)
		return false, nil
	}

	created, err := r.Store.CreateEntity(ctx, model.Entity{
		Name:        ent.Name,
		Type:        model.NormalizeEntityType(ent.Type),
		TaxID:       ent.TaxID,
		Description: ent.Description,
		Aliases:     ent.Aliases,
		SourceFile:  key,
	})
	if err != nil {
		return false, err
	}
	res.Bind(ent.Name, created)
	return true, nil
}

func (r *Reconciler) syncRelationship(ctx context.Context, key string, rel model.ExtractedRelationship, res *Resolution) (bool, error) {
	fromID, ok := res.ID(rel.From)
	if !ok {
		return false, nil
	}
	toID, ok := res.ID(rel.To)
	if !ok {
		return false, nil
	}
	typ := model.NormalizeRelationshipType(rel.Type)

	found, err := r.Store.FindRelationships(ctx, store.RelationshipQuery{FromID: fromID, ToID: toID, Type: typ, Limit: 1})
	if err != nil {
		return false, err
	}
	if len(found) > 0 {
		return false, nil
	}

	_, err = r.Store.CreateRelationship(ctx, model.Relationship{
		FromID:      fromID,
		ToID:        toID,
		Type:        typ,
		Description: rel.Description,
		SourceFile:  key,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// mountainIndex resolves mountain labels by lowercased title or slug.
type mountainIndex map[string]string

func (m mountainIndex) id(label string) (string, bool) {
	label = strings.TrimSpace(label)
	if label == "" {
		return "", false
	}
	if id, ok := m[strings.ToLower(label)]; ok {
		return id, true
	}
	id, ok := m[model.MountainSlug(label)]
	return id, ok
}

func (r *Reconciler) loadMountains(ctx context.Context, log *logger.Logger) mountainIndex {
	idx := make(mountainIndex)
	if err := r.Store.EnsureMountains(ctx, model.DefaultMountains); err != nil {
		log.Warn("Failed to ensure mountains", "error", err)
	}
	found, err := r.Store.FindMountains(ctx, model.DefaultMountains)
	if err != nil {
		log.Warn("Failed to load mountains", "error", err)
		return idx
	}
	for _, m := range found {
		idx[strings.ToLower(m.Title)] = m.ID
		if m.Slug != "" {
			idx[m.Slug] = m.ID
		}
	}
	return idx
}

func (r *Reconciler) syncEvent(ctx context.Context, key string, ev dedupe.Event, res *Resolution, mountains mountainIndex) (bool, error) {
	var participants []model.EventEntity
	for _, name := range ev.Entities {
		if id, ok := res.ID(strings.TrimSpace(name)); ok {
			participants = appendParticipant(participants, model.EventEntity{EntityID: id, Context: "Named in " + key})
		}
	}

	var mountainIDs []string
	for _, label := range ev.Mountains {
		if id, ok := mountains.id(label); ok {
			mountainIDs = appendUnique(mountainIDs, id)
		}
	}
	if len(mountainIDs) == 0 {
		if id, ok := mountains.id(r.FallbackMountain); ok {
			mountainIDs = []string{id}
		}
	}

	source := model.SourceCitation{Source: key, ReferenceLocation: fmt.Sprintf("chunk %d", ev.Chunk)}

	found, err := r.Store.FindEvents(ctx, store.EventQuery{Year: ev.Year, Title: ev.Title, Limit: 1})
	if err != nil {
		return false, err
	}

	if len(found) > 0 {
		existing := found[0]
		for _, p := range participants {
			existing.Entities = appendParticipant(existing.Entities, p)
		}
		for _, id := range mountainIDs {
			existing.MountainIDs = appendUnique(existing.MountainIDs, id)
		}
		existing.Sources = appendSource(existing.Sources, source)
		existing.IsConvergence = existing.IsConvergence || ev.Convergence || len(existing.MountainIDs) > 1
		if existing.Body == "" {
			existing.Body = ev.Description
		}
		if _, err := r.Store.UpdateEvent(ctx, existing.ID, existing); err != nil {
			return false, err
		}
		return false, nil
	}

	_, err = r.Store.CreateEvent(ctx, model.TimelineEvent{
		Year:          ev.Year,
		Month:         ev.Month,
		Day:           ev.Day,
		Title:         ev.Title,
		Body:          ev.Description,
		Entities:      participants,
		MountainIDs:   mountainIDs,
		IsConvergence: ev.Convergence || len(mountainIDs) > 1,
		Sources:       []model.SourceCitation{source},
		OriginalText:  ev.Text,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func appendParticipant(list []model.EventEntity, p model.EventEntity) []model.EventEntity {
	for _, e := range list {
		if e.EntityID == p.EntityID {
			return list
		}
	}
	return append(list, p)
}

func appendSource(list []model.SourceCitation, s model.SourceCitation) []model.SourceCitation {
	for _, e := range list {
		if e.Source == s.Source && e.ReferenceLocation == s.ReferenceLocation {
			return list
		}
	}
	return append(list, s)
}

func appendUnique(list []string, s string) []string {
	for _, e := range list {
		if e == s {
			return list
		}
	}
	return append(list, s)
}
