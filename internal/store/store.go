package store

import (
	"context"
	"errors"

	"github.com/chal0326/researchcms/internal/core/model"
)

var ErrNotFound = errors.New("record not found")

// EntityQuery matches entities whose id, name, tax id or ledger source id is
// in any of the given lists. Empty lists match nothing. Results are ordered
// by id so that Offset pages through them.
type EntityQuery struct {
	IDs       []string
	Names     []string
	TaxIDs    []string
	LedgerIDs []string
	Limit     int
	Offset    int
}

func (q EntityQuery) Empty() bool {
	return len(q.IDs) == 0 && len(q.Names) == 0 && len(q.TaxIDs) == 0 && len(q.LedgerIDs) == 0
}

// RelationshipQuery matches relationships on every non-empty field.
type RelationshipQuery struct {
	FromID   string
	ToID     string
	Type     model.RelationshipType
	LedgerID string
	Limit    int
}

// EventQuery matches events with the given year and title.
type EventQuery struct {
	Year  int
	Title string
	Limit int
}

type Counts struct {
	Entities      int64 `json:"entities"`
	Relationships int64 `json:"relationships"`
	Events        int64 `json:"events"`
}

// Store is the persisted graph the reconciler and ledger sync write to.
// Every call is a separate round trip; callers must check each result.
type Store interface {
	FindEntities(ctx context.Context, q EntityQuery) ([]model.Entity, error)
	CreateEntity(ctx context.Context, e model.Entity) (model.Entity, error)
	UpdateEntity(ctx context.Context, id string, u model.EntityUpdate) (model.Entity, error)

	FindRelationships(ctx context.Context, q RelationshipQuery) ([]model.Relationship, error)
	CreateRelationship(ctx context.Context, r model.Relationship) (model.Relationship, error)
	UpdateRelationship(ctx context.Context, id string, r model.Relationship) (model.Relationship, error)

	FindEvents(ctx context.Context, q EventQuery) ([]model.TimelineEvent, error)
	CreateEvent(ctx context.Context, ev model.TimelineEvent) (model.TimelineEvent, error)
	UpdateEvent(ctx context.Context, id string, ev model.TimelineEvent) (model.TimelineEvent, error)

	// FindMountains matches on title or slug.
	FindMountains(ctx context.Context, names []string) ([]model.Mountain, error)
	// EnsureMountains creates any of the titles not yet present.
	EnsureMountains(ctx context.Context, titles []string) error

	Counts(ctx context.Context) (Counts, error)
	Close(ctx context.Context) error
}

// DefaultLimit bounds a lookup whose Limit is unset.
const DefaultLimit = 500

func Limit(n int) int {
	if n <= 0 {
		return DefaultLimit
	}
	return n
}
