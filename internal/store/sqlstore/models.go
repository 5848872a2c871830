package sqlstore

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/chal0326/researchcms/internal/core/model"
)

type entityRow struct {
	ID             string  `gorm:"type:varchar(36);primaryKey"`
	Name           string  `gorm:"index;not null"`
	Type           string  `gorm:"not null;default:Other"`
	EIN            *string `gorm:"column:ein;uniqueIndex"`
	Description    string
	Aliases        datatypes.JSON
	SourceFile     string
	LedgerSourceID *string `gorm:"uniqueIndex"`
	Metadata       datatypes.JSON
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (entityRow) TableName() string { return "entities" }

type relationshipRow struct {
	ID             string `gorm:"type:varchar(36);primaryKey"`
	FromID         string `gorm:"type:varchar(36);index:idx_relationship_triple;not null"`
	ToID           string `gorm:"type:varchar(36);index:idx_relationship_triple;not null"`
	Type           string `gorm:"index:idx_relationship_triple;not null"`
	Description    string
	Attributes     datatypes.JSON
	SourceFile     string
	LedgerSourceID *string `gorm:"uniqueIndex"`
	Amount         *float64
	Year           *int
	Role           string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (relationshipRow) TableName() string { return "relationships" }

type eventRow struct {
	ID            string `gorm:"type:varchar(36);primaryKey"`
	Year          int    `gorm:"index:idx_event_year_title;not null"`
	Month         int
	Day           int
	Title         string `gorm:"index:idx_event_year_title;not null"`
	Body          string
	Entities      datatypes.JSON
	Mountains     datatypes.JSON
	IsConvergence bool
	Sources       datatypes.JSON
	OriginalText  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (eventRow) TableName() string { return "timeline_events" }

type mountainRow struct {
	ID        string `gorm:"type:varchar(36);primaryKey"`
	Title     string `gorm:"uniqueIndex;not null"`
	Slug      string `gorm:"uniqueIndex;not null"`
	CreatedAt time.Time
}

func (mountainRow) TableName() string { return "mountains" }

func toJSON(v interface{}) datatypes.JSON {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil || string(b) == "null" {
		return nil
	}
	return datatypes.JSON(b)
}

func fromJSON[T any](raw datatypes.JSON) T {
	var out T
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out)
	}
	return out
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func newEntityRow(e model.Entity) entityRow {
	return entityRow{
		ID:             e.ID,
		Name:           e.Name,
		Type:           string(e.Type),
		EIN:            optional(e.TaxID),
		Description:    e.Description,
		Aliases:        toJSON(e.Aliases),
		SourceFile:     e.SourceFile,
		LedgerSourceID: optional(e.LedgerSourceID),
		Metadata:       toJSON(e.Metadata),
	}
}

func (r entityRow) model() model.Entity {
	return model.Entity{
		ID:             r.ID,
		Name:           r.Name,
		Type:           model.EntityType(r.Type),
		TaxID:          deref(r.EIN),
		Description:    r.Description,
		Aliases:        fromJSON[[]model.Alias](r.Aliases),
		SourceFile:     r.SourceFile,
		LedgerSourceID: deref(r.LedgerSourceID),
		Metadata:       fromJSON[map[string]interface{}](r.Metadata),
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func newRelationshipRow(rel model.Relationship) relationshipRow {
	return relationshipRow{
		ID:             rel.ID,
		FromID:         rel.FromID,
		ToID:           rel.ToID,
		Type:           string(rel.Type),
		Description:    rel.Description,
		Attributes:     toJSON(rel.Attributes),
		SourceFile:     rel.SourceFile,
		LedgerSourceID: optional(rel.LedgerSourceID),
		Amount:         rel.Amount,
		Year:           rel.Year,
		Role:           rel.Role,
	}
}

func (r relationshipRow) model() model.Relationship {
	return model.Relationship{
		ID:             r.ID,
		FromID:         r.FromID,
		ToID:           r.ToID,
		Type:           model.RelationshipType(r.Type),
		Description:    r.Description,
		Attributes:     fromJSON[map[string]interface{}](r.Attributes),
		SourceFile:     r.SourceFile,
		LedgerSourceID: deref(r.LedgerSourceID),
		Amount:         r.Amount,
		Year:           r.Year,
		Role:           r.Role,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func newEventRow(ev model.TimelineEvent) eventRow {
	return eventRow{
		ID:            ev.ID,
		Year:          ev.Year,
		Month:         ev.Month,
		Day:           ev.Day,
		Title:         ev.Title,
		Body:          ev.Body,
		Entities:      toJSON(ev.Entities),
		Mountains:     toJSON(ev.MountainIDs),
		IsConvergence: ev.IsConvergence,
		Sources:       toJSON(ev.Sources),
		OriginalText:  ev.OriginalText,
	}
}

func (r eventRow) model() model.TimelineEvent {
	return model.TimelineEvent{
		ID:            r.ID,
		Year:          r.Year,
		Month:         r.Month,
		Day:           r.Day,
		Title:         r.Title,
		Body:          r.Body,
		Entities:      fromJSON[[]model.EventEntity](r.Entities),
		MountainIDs:   fromJSON[[]string](r.Mountains),
		IsConvergence: r.IsConvergence,
		Sources:       fromJSON[[]model.SourceCitation](r.Sources),
		OriginalText:  r.OriginalText,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}
