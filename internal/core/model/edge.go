package model

import "time"

type Relationship struct {
	ID             string                 `json:"id"`
	FromID         string                 `json:"from"`
	ToID           string                 `json:"to"`
	Type           RelationshipType       `json:"type"`
	Description    string                 `json:"description,omitempty"`
	Attributes     map[string]interface{} `json:"attributes,omitempty"`
	SourceFile     string                 `json:"source_file,omitempty"`
	LedgerSourceID string                 `json:"ledger_source_id,omitempty"`
	Amount         *float64               `json:"amount,omitempty"`
	Year           *int                   `json:"year,omitempty"`
	Role           string                 `json:"role,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}
