package memstore

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chal0326/researchcms/internal/core/model"
	"github.com/chal0326/researchcms/internal/store"
)

// Store keeps the graph in memory. It backs dry runs and tests.
type Store struct {
	mu            sync.Mutex
	entities      []model.Entity
	relationships []model.Relationship
	events        []model.TimelineEvent
	mountains     []model.Mountain

	// NewID generates record ids; tests may replace it.
	NewID func() string
	now   func() time.Time
}

func New() *Store {
	return &Store{
		NewID: uuid.NewString,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) FindEntities(ctx context.Context, q store.EntityQuery) ([]model.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []model.Entity
	for _, e := range s.entities {
		if slices.Contains(q.IDs, e.ID) ||
			slices.Contains(q.Names, e.Name) ||
			(e.TaxID != "" && slices.Contains(q.TaxIDs, e.TaxID)) ||
			(e.LedgerSourceID != "" && slices.Contains(q.LedgerIDs, e.LedgerSourceID)) {
			matched = append(matched, e)
		}
	}
	slices.SortFunc(matched, func(a, b model.Entity) int { return strings.Compare(a.ID, b.ID) })

	if q.Offset >= len(matched) {
		return nil, nil
	}
	matched = matched[q.Offset:]
	if limit := store.Limit(q.Limit); len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *Store) CreateEntity(ctx context.Context, e model.Entity) (model.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.TaxID != "" {
		for _, existing := range s.entities {
			if existing.TaxID == e.TaxID {
				return model.Entity{}, fmt.Errorf("entity with ein %s already exists", e.TaxID)
			}
		}
	}
	e.ID = s.NewID()
	e.CreatedAt = s.now()
	e.UpdatedAt = e.CreatedAt
	s.entities = append(s.entities, e)
	return e, nil
}

func (s *Store) UpdateEntity(ctx context.Context, id string, u model.EntityUpdate) (model.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.IndexFunc(s.entities, func(e model.Entity) bool { return e.ID == id })
	if i < 0 {
		return model.Entity{}, store.ErrNotFound
	}
	e := &s.entities[i]
	if u.Name != nil {
		e.Name = *u.Name
	}
	if u.Type != nil {
		e.Type = *u.Type
	}
	if u.TaxID != nil {
		e.TaxID = *u.TaxID
	}
	if u.Description != nil {
		e.Description = *u.Description
	}
	if u.LedgerSourceID != nil {
		e.LedgerSourceID = *u.LedgerSourceID
	}
	e.UpdatedAt = s.now()
	return *e, nil
}

func (s *Store) FindRelationships(ctx context.Context, q store.RelationshipQuery) ([]model.Relationship, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Relationship
	limit := store.Limit(q.Limit)
	for _, r := range s.relationships {
		if len(out) >= limit {
			break
		}
		if q.FromID != "" && r.FromID != q.FromID {
			continue
		}
		if q.ToID != "" && r.ToID != q.ToID {
			continue
		}
		if q.Type != "" && r.Type != q.Type {
			continue
		}
		if q.LedgerID != "" && r.LedgerSourceID != q.LedgerID {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *Store) CreateRelationship(ctx context.Context, r model.Relationship) (model.Relationship, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r.ID = s.NewID()
	r.CreatedAt = s.now()
	r.UpdatedAt = r.CreatedAt
	s.relationships = append(s.relationships, r)
	return r, nil
}

func (s *Store) UpdateRelationship(ctx context.Context, id string, r model.Relationship) (model.Relationship, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.IndexFunc(s.relationships, func(x model.Relationship) bool { return x.ID == id })
	if i < 0 {
		return model.Relationship{}, store.ErrNotFound
	}
	r.ID = id
	r.CreatedAt = s.relationships[i].CreatedAt
	r.UpdatedAt = s.now()
	s.relationships[i] = r
	return r, nil
}

func (s *Store) FindEvents(ctx context.Context, q store.EventQuery) ([]model.TimelineEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.TimelineEvent
	limit := store.Limit(q.Limit)
	for _, ev := range s.events {
		if len(out) >= limit {
			break
		}
		if ev.Year == q.Year && ev.Title == q.Title {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (s *Store) CreateEvent(ctx context.Context, ev model.TimelineEvent) (model.TimelineEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev.ID = s.NewID()
	ev.CreatedAt = s.now()
	ev.UpdatedAt = ev.CreatedAt
	s.events = append(s.events, ev)
	return ev, nil
}

func (s *Store) UpdateEvent(ctx context.Context, id string, ev model.TimelineEvent) (model.TimelineEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.IndexFunc(s.events, func(x model.TimelineEvent) bool { return x.ID == id })
	if i < 0 {
		return model.TimelineEvent{}, store.ErrNotFound
	}
	ev.ID = id
	ev.CreatedAt = s.events[i].CreatedAt
	ev.UpdatedAt = s.now()
	s.events[i] = ev
	return ev, nil
}

func (s *Store) FindMountains(ctx context.Context, names []string) ([]model.Mountain, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Mountain
	for _, m := range s.mountains {
		for _, n := range names {
			if strings.EqualFold(m.Title, n) || m.Slug == n {
				out = append(out, m)
				break
			}
		}
	}
	return out, nil
}

func (s *Store) EnsureMountains(ctx context.Context, titles []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, title := range titles {
		exists := slices.ContainsFunc(s.mountains, func(m model.Mountain) bool {
			return strings.EqualFold(m.Title, title)
		})
		if !exists {
			s.mountains = append(s.mountains, model.Mountain{ID: s.NewID(), Title: title, Slug: model.MountainSlug(title)})
		}
	}
	return nil
}

func (s *Store) Counts(ctx context.Context) (store.Counts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return store.Counts{
		Entities:      int64(len(s.entities)),
		Relationships: int64(len(s.relationships)),
		Events:        int64(len(s.events)),
	}, nil
}

func (s *Store) Close(ctx context.Context) error { return nil }

// Entities returns a snapshot of every stored entity.
func (s *Store) Entities() []model.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.entities)
}

func (s *Store) Relationships() []model.Relationship {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.relationships)
}

func (s *Store) Events() []model.TimelineEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.events)
}

var _ store.Store = (*Store)(nil)
