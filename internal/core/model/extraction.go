package model

// ExtractedEntity is one validated entity record from a model response.
type ExtractedEntity struct {
	Name        string
	Type        string
	TaxID       string
	Description string
	Aliases     []Alias
}

type ExtractedRelationship struct {
	From        string
	To          string
	Type        string
	Description string
}

type ExtractedEvent struct {
	Year        int
	Month       int
	Day         int
	Title       string
	Description string
	Entities    []string
	Mountains   []string
	Convergence bool
}

// ChunkResult holds everything extracted from one chunk. Malformed counts the
// records dropped by validation.
type ChunkResult struct {
	Index         int
	Text          string
	Entities      []ExtractedEntity
	Relationships []ExtractedRelationship
	Events        []ExtractedEvent
	Malformed     int
}
