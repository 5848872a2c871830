package dedupe

import (
	"strconv"
	"strings"

	"github.com/chal0326/researchcms/internal/core/model"
)

// relationshipSet collapses relationships sharing (from, to, normalized type).
type relationshipSet struct {
	index map[string]int
	items []model.ExtractedRelationship
}

func newRelationshipSet() *relationshipSet {
	return &relationshipSet{index: make(map[string]int)}
}

func (s *relationshipSet) add(rel model.ExtractedRelationship) {
	rel.From = strings.TrimSpace(rel.From)
	rel.To = strings.TrimSpace(rel.To)
	if rel.From == "" || rel.To == "" {
		return
	}
	rel.Type = string(model.NormalizeRelationshipType(rel.Type))

	k := rel.From + "\x00" + rel.To + "\x00" + rel.Type
	if i, ok := s.index[k]; ok {
		if len(rel.Description) > len(s.items[i].Description) {
			s.items[i].Description = rel.Description
		}
		return
	}
	s.index[k] = len(s.items)
	s.items = append(s.items, rel)
}

func (s *relationshipSet) list() []model.ExtractedRelationship {
	return s.items
}

func eventKey(year int, title string) string {
	return strconv.Itoa(year) + "|" + strings.ToLower(title)
}

func mergeEvent(kept, incoming model.ExtractedEvent) model.ExtractedEvent {
	if len(incoming.Description) > len(kept.Description) {
		kept.Description = incoming.Description
	}
	if kept.Month == 0 {
		kept.Month = incoming.Month
	}
	if kept.Day == 0 {
		kept.Day = incoming.Day
	}
	kept.Entities = union(kept.Entities, incoming.Entities)
	kept.Mountains = union(kept.Mountains, incoming.Mountains)
	kept.Convergence = kept.Convergence || incoming.Convergence
	return kept
}

func union(a, b []string) []string {
	seen := make(map[string]bool, len(a))
	for _, s := range a {
		seen[s] = true
	}
	for _, s := range b {
		if !seen[s] {
			seen[s] = true
			a = append(a, s)
		}
	}
	return a
}
