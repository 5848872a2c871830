package model

type ExtractionStats struct {
	Files                int `json:"files"`
	Chunks               int `json:"chunks"`
	EntitiesCreated      int `json:"entitiesCreated"`
	RelationshipsCreated int `json:"relationshipsCreated"`
	EventsCreated        int `json:"eventsCreated"`
	EventsUpdated        int `json:"eventsUpdated"`
	FilesFailed          int `json:"filesFailed"`
}

func (s *ExtractionStats) Add(o ExtractionStats) {
	s.Files += o.Files
	s.Chunks += o.Chunks
	s.EntitiesCreated += o.EntitiesCreated
	s.RelationshipsCreated += o.RelationshipsCreated
	s.EventsCreated += o.EventsCreated
	s.EventsUpdated += o.EventsUpdated
	s.FilesFailed += o.FilesFailed
}

// FileResult is the outcome of processing one document.
type FileResult struct {
	Key     string           `json:"key"`
	Success bool             `json:"success"`
	Stats   *ExtractionStats `json:"stats,omitempty"`
	Error   string           `json:"error,omitempty"`
}
