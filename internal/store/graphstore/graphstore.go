package graphstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/chal0326/researchcms/internal/core/model"
	"github.com/chal0326/researchcms/internal/driver"
	"github.com/chal0326/researchcms/internal/store"
)

// Store keeps the graph in Memgraph: entities, events and mountains are
// nodes, relationships are RELATES edges between entities.
type Store struct {
	Driver driver.GraphDriver

	// UUIDGenerator allows mocking UUID generation for testing
	UUIDGenerator func() string
	now           func() time.Time
}

func New(d driver.GraphDriver) *Store {
	return &Store{
		Driver:        d,
		UUIDGenerator: uuid.NewString,
		now:           time.Now,
	}
}

func (s *Store) FindEntities(ctx context.Context, q store.EntityQuery) ([]model.Entity, error) {
	if q.Empty() {
		return nil, nil
	}
	res, err := s.Driver.ExecuteQuery(ctx, driver.FindEntitiesQuery, map[string]any{
		"ids":        nonNil(q.IDs),
		"names":      nonNil(q.Names),
		"eins":       nonNil(q.TaxIDs),
		"ledger_ids": nonNil(q.LedgerIDs),
		"limit":      int64(store.Limit(q.Limit)),
		"offset":     int64(q.Offset),
	})
	if err != nil {
		return nil, fmt.Errorf("find entities: %w", err)
	}
	out := make([]model.Entity, 0, len(res.Records))
	for _, rec := range res.Records {
		out = append(out, entityFromProps(props(rec, "props")))
	}
	return out, nil
}

func (s *Store) CreateEntity(ctx context.Context, e model.Entity) (model.Entity, error) {
	res, err := s.Driver.ExecuteQuery(ctx, driver.CreateEntityQuery, map[string]any{
		"id":               s.UUIDGenerator(),
		"name":             e.Name,
		"type":             string(e.Type),
		"ein":              nullable(e.TaxID),
		"description":      e.Description,
		"aliases":          encode(e.Aliases),
		"source_file":      e.SourceFile,
		"ledger_source_id": nullable(e.LedgerSourceID),
		"metadata":         encode(e.Metadata),
		"now":              s.now().UnixMilli(),
	})
	if err != nil {
		return model.Entity{}, fmt.Errorf("create entity %q: %w", e.Name, err)
	}
	if len(res.Records) == 0 {
		return model.Entity{}, fmt.Errorf("create entity %q: no record returned", e.Name)
	}
	return entityFromProps(props(res.Records[0], "props")), nil
}

func (s *Store) UpdateEntity(ctx context.Context, id string, u model.EntityUpdate) (model.Entity, error) {
	params := map[string]any{
		"id":          id,
		"name":        ptr(u.Name),
		"type":        nil,
		"ein":         ptr(u.TaxID),
		"description": ptr(u.Description),
		"ledger_id":   ptr(u.LedgerSourceID),
		"now":         s.now().UnixMilli(),
	}
	if u.Type != nil {
		params["type"] = string(*u.Type)
	}
	res, err := s.Driver.ExecuteQuery(ctx, driver.UpdateEntityQuery, params)
	if err != nil {
		return model.Entity{}, fmt.Errorf("update entity: %w", err)
	}
	if len(res.Records) == 0 {
		return model.Entity{}, fmt.Errorf("update entity %s: %w", id, store.ErrNotFound)
	}
	return entityFromProps(props(res.Records[0], "props")), nil
}

func (s *Store) FindRelationships(ctx context.Context, q store.RelationshipQuery) ([]model.Relationship, error) {
	res, err := s.Driver.ExecuteQuery(ctx, driver.FindRelationshipsQuery, map[string]any{
		"from":      q.FromID,
		"to":        q.ToID,
		"type":      string(q.Type),
		"ledger_id": q.LedgerID,
		"limit":     int64(store.Limit(q.Limit)),
	})
	if err != nil {
		return nil, fmt.Errorf("find relationships: %w", err)
	}
	out := make([]model.Relationship, 0, len(res.Records))
	for _, rec := range res.Records {
		out = append(out, relationshipFromRecord(rec))
	}
	return out, nil
}

func (s *Store) CreateRelationship(ctx context.Context, r model.Relationship) (model.Relationship, error) {
	params := relationshipParams(r)
	params["id"] = s.UUIDGenerator()
	params["now"] = s.now().UnixMilli()

	res, err := s.Driver.ExecuteQuery(ctx, driver.CreateRelationshipQuery, params)
	if err != nil {
		return model.Relationship{}, fmt.Errorf("create relationship: %w", err)
	}
	if len(res.Records) == 0 {
		return model.Relationship{}, fmt.Errorf("create relationship %s->%s: endpoint %w", r.FromID, r.ToID, store.ErrNotFound)
	}
	return relationshipFromRecord(res.Records[0]), nil
}

func (s *Store) UpdateRelationship(ctx context.Context, id string, r model.Relationship) (model.Relationship, error) {
	params := relationshipParams(r)
	params["id"] = id
	params["now"] = s.now().UnixMilli()

	res, err := s.Driver.ExecuteQuery(ctx, driver.UpdateRelationshipQuery, params)
	if err != nil {
		return model.Relationship{}, fmt.Errorf("update relationship: %w", err)
	}
	if len(res.Records) == 0 {
		return model.Relationship{}, fmt.Errorf("update relationship %s: %w", id, store.ErrNotFound)
	}
	return relationshipFromRecord(res.Records[0]), nil
}

func (s *Store) FindEvents(ctx context.Context, q store.EventQuery) ([]model.TimelineEvent, error) {
	res, err := s.Driver.ExecuteQuery(ctx, driver.FindEventsQuery, map[string]any{
		"year":  int64(q.Year),
		"title": q.Title,
		"limit": int64(store.Limit(q.Limit)),
	})
	if err != nil {
		return nil, fmt.Errorf("find events: %w", err)
	}
	out := make([]model.TimelineEvent, 0, len(res.Records))
	for _, rec := range res.Records {
		out = append(out, eventFromProps(props(rec, "props")))
	}
	return out, nil
}

func (s *Store) CreateEvent(ctx context.Context, ev model.TimelineEvent) (model.TimelineEvent, error) {
	params := eventParams(ev)
	params["id"] = s.UUIDGenerator()
	params["now"] = s.now().UnixMilli()
	return s.writeEvent(ctx, driver.CreateEventQuery, params, ev)
}

func (s *Store) UpdateEvent(ctx context.Context, id string, ev model.TimelineEvent) (model.TimelineEvent, error) {
	params := eventParams(ev)
	params["id"] = id
	params["now"] = s.now().UnixMilli()
	return s.writeEvent(ctx, driver.UpdateEventQuery, params, ev)
}

func (s *Store) writeEvent(ctx context.Context, query string, params map[string]any, ev model.TimelineEvent) (model.TimelineEvent, error) {
	res, err := s.Driver.ExecuteQuery(ctx, query, params)
	if err != nil {
		return model.TimelineEvent{}, fmt.Errorf("write event %q: %w", ev.Title, err)
	}
	if len(res.Records) == 0 {
		return model.TimelineEvent{}, fmt.Errorf("write event %q: %w", ev.Title, store.ErrNotFound)
	}
	saved := eventFromProps(props(res.Records[0], "props"))

	entityIDs := make([]string, 0, len(ev.Entities))
	for _, p := range ev.Entities {
		entityIDs = append(entityIDs, p.EntityID)
	}
	links := []struct {
		query  string
		params map[string]any
	}{
		{driver.ClearEventLinksQuery, map[string]any{"id": saved.ID}},
		{driver.LinkEventEntitiesQuery, map[string]any{"id": saved.ID, "entity_ids": entityIDs}},
		{driver.LinkEventMountainsQuery, map[string]any{"id": saved.ID, "mountain_ids": nonNil(ev.MountainIDs)}},
	}
	for _, l := range links {
		if _, err := s.Driver.ExecuteQuery(ctx, l.query, l.params); err != nil {
			return saved, fmt.Errorf("link event %q: %w", ev.Title, err)
		}
	}
	return saved, nil
}

func (s *Store) FindMountains(ctx context.Context, names []string) ([]model.Mountain, error) {
	if len(names) == 0 {
		return nil, nil
	}
	lowered := make([]string, len(names))
	for i, n := range names {
		lowered[i] = strings.ToLower(n)
	}
	res, err := s.Driver.ExecuteQuery(ctx, driver.FindMountainsQuery, map[string]any{
		"lowered": lowered,
		"names":   names,
	})
	if err != nil {
		return nil, fmt.Errorf("find mountains: %w", err)
	}
	out := make([]model.Mountain, 0, len(res.Records))
	for _, rec := range res.Records {
		p := props(rec, "props")
		out = append(out, model.Mountain{ID: str(p, "id"), Title: str(p, "title"), Slug: str(p, "slug")})
	}
	return out, nil
}

func (s *Store) EnsureMountains(ctx context.Context, titles []string) error {
	for _, title := range titles {
		_, err := s.Driver.ExecuteQuery(ctx, driver.EnsureMountainQuery, map[string]any{
			"title": title,
			"id":    s.UUIDGenerator(),
			"slug":  model.MountainSlug(title),
		})
		if err != nil {
			return fmt.Errorf("ensure mountain %q: %w", title, err)
		}
	}
	return nil
}

func (s *Store) Counts(ctx context.Context) (store.Counts, error) {
	res, err := s.Driver.ExecuteQuery(ctx, driver.CountQuery, nil)
	if err != nil {
		return store.Counts{}, fmt.Errorf("count graph: %w", err)
	}
	if len(res.Records) == 0 {
		return store.Counts{}, nil
	}
	rec := res.Records[0]
	return store.Counts{
		Entities:      integer(value(rec, "entities")),
		Relationships: integer(value(rec, "relationships")),
		Events:        integer(value(rec, "events")),
	}, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.Driver.Close(ctx)
}

func relationshipParams(r model.Relationship) map[string]any {
	params := map[string]any{
		"from":             r.FromID,
		"to":               r.ToID,
		"type":             string(r.Type),
		"description":      r.Description,
		"attributes":       encode(r.Attributes),
		"source_file":      r.SourceFile,
		"ledger_source_id": nullable(r.LedgerSourceID),
		"amount":           nil,
		"year":             nil,
		"role":             r.Role,
	}
	if r.Amount != nil {
		params["amount"] = *r.Amount
	}
	if r.Year != nil {
		params["year"] = int64(*r.Year)
	}
	return params
}

func eventParams(ev model.TimelineEvent) map[string]any {
	return map[string]any{
		"year":           int64(ev.Year),
		"month":          int64(ev.Month),
		"day":            int64(ev.Day),
		"title":          ev.Title,
		"body":           ev.Body,
		"entities":       encode(ev.Entities),
		"mountains":      nonNil(ev.MountainIDs),
		"is_convergence": ev.IsConvergence,
		"sources":        encode(ev.Sources),
		"original_text":  ev.OriginalText,
	}
}

func entityFromProps(p map[string]any) model.Entity {
	e := model.Entity{
		ID:             str(p, "id"),
		Name:           str(p, "name"),
		Type:           model.EntityType(str(p, "type")),
		TaxID:          str(p, "ein"),
		Description:    str(p, "description"),
		SourceFile:     str(p, "source_file"),
		LedgerSourceID: str(p, "ledger_source_id"),
		CreatedAt:      millis(p["created_at"]),
		UpdatedAt:      millis(p["updated_at"]),
	}
	decode(str(p, "aliases"), &e.Aliases)
	decode(str(p, "metadata"), &e.Metadata)
	return e
}

func relationshipFromRecord(rec *neo4j.Record) model.Relationship {
	p := props(rec, "props")
	r := model.Relationship{
		ID:             str(p, "id"),
		FromID:         asString(value(rec, "from_id")),
		ToID:           asString(value(rec, "to_id")),
		Type:           model.RelationshipType(str(p, "type")),
		Description:    str(p, "description"),
		SourceFile:     str(p, "source_file"),
		LedgerSourceID: str(p, "ledger_source_id"),
		Role:           str(p, "role"),
		CreatedAt:      millis(p["created_at"]),
		UpdatedAt:      millis(p["updated_at"]),
	}
	decode(str(p, "attributes"), &r.Attributes)
	if v, ok := p["amount"].(float64); ok {
		r.Amount = &v
	}
	if v, ok := p["year"].(int64); ok {
		y := int(v)
		r.Year = &y
	}
	return r
}

func eventFromProps(p map[string]any) model.TimelineEvent {
	ev := model.TimelineEvent{
		ID:            str(p, "id"),
		Year:          int(integer(p["year"])),
		Month:         int(integer(p["month"])),
		Day:           int(integer(p["day"])),
		Title:         str(p, "title"),
		Body:          str(p, "body"),
		OriginalText:  str(p, "original_text"),
		CreatedAt:     millis(p["created_at"]),
		UpdatedAt:     millis(p["updated_at"]),
		IsConvergence: p["is_convergence"] == true,
	}
	if list, ok := p["mountains"].([]any); ok {
		for _, v := range list {
			ev.MountainIDs = append(ev.MountainIDs, asString(v))
		}
	}
	decode(str(p, "entities"), &ev.Entities)
	decode(str(p, "sources"), &ev.Sources)
	return ev
}

func value(rec *neo4j.Record, key string) any {
	if rec == nil {
		return nil
	}
	v, _ := rec.Get(key)
	return v
}

func props(rec *neo4j.Record, key string) map[string]any {
	m, _ := value(rec, key).(map[string]any)
	return m
}

func str(p map[string]any, key string) string {
	return asString(p[key])
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func integer(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}

func millis(v any) time.Time {
	n := integer(v)
	if n == 0 {
		return time.Time{}
	}
	return time.UnixMilli(n).UTC()
}

func encode(v any) string {
	b, err := json.Marshal(v)
	if err != nil || string(b) == "null" {
		return ""
	}
	return string(b)
}

func decode(raw string, dst any) {
	if raw != "" {
		_ = json.Unmarshal([]byte(raw), dst)
	}
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func ptr(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

var _ store.Store = (*Store)(nil)
