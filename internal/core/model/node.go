package model

import "time"

type AliasKind string

const (
	AliasAKA AliasKind = "AKA"
	AliasDBA AliasKind = "DBA"
)

type Alias struct {
	Name string    `json:"name"`
	Kind AliasKind `json:"type"`
}

// Entity is a named actor in the graph. TaxID, when set, is exactly nine
// digits and unique across all entities.
type Entity struct {
	ID             string                 `json:"id"`
	Name           string                 `json:"name"`
	Type           EntityType             `json:"type"`
	TaxID          string                 `json:"ein,omitempty"`
	Description    string                 `json:"description,omitempty"`
	Aliases        []Alias                `json:"aliases,omitempty"`
	SourceFile     string                 `json:"source_file,omitempty"`
	LedgerSourceID string                 `json:"ledger_source_id,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

// EntityUpdate carries the fields an update should overwrite. Nil fields are left alone.
type EntityUpdate struct {
	Name           *string
	Type           *EntityType
	TaxID          *string
	Description    *string
	LedgerSourceID *string
}

type Mountain struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Slug  string `json:"slug"`
}

type EventEntity struct {
	EntityID string `json:"entity"`
	Context  string `json:"context,omitempty"`
}

type SourceCitation struct {
	Source            string `json:"source"`
	ReferenceLocation string `json:"reference_location,omitempty"`
	Quote             string `json:"quote,omitempty"`
}

// TimelineEvent is a dated occurrence. Month and Day are zero when unknown.
type TimelineEvent struct {
	ID            string           `json:"id"`
	Year          int              `json:"year"`
	Month         int              `json:"month,omitempty"`
	Day           int              `json:"day,omitempty"`
	Title         string           `json:"title"`
	Body          string           `json:"body,omitempty"`
	Entities      []EventEntity    `json:"entities,omitempty"`
	MountainIDs   []string         `json:"mountains,omitempty"`
	IsConvergence bool             `json:"is_convergence"`
	Sources       []SourceCitation `json:"sources,omitempty"`
	OriginalText  string           `json:"original_text,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// DocumentRef addresses one object in a named bucket binding.
type DocumentRef struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}
