package extraction

import (
	"fmt"
	"strings"

	"github.com/chal0326/researchcms/internal/core/model"
)

const DefaultSystemPrompt = "You are an investigative assistant. Return JSON only."

const simplePrompt = `Extract the people, organizations and other actors named in the text below, and the relationships between them.

Entity types: %s
Relationship types: %s

Return a JSON object with this shape:
{
  "entities": [
    {"name": "...", "type": "...", "ein": "12-3456789 or omit", "description": "...", "aliases": [{"name": "...", "type": "AKA or DBA"}]}
  ],
  "relationships": [
    {"from": "entity name", "to": "entity name", "type": "...", "description": "..."}
  ]
}

Only include an "ein" when the text states a U.S. employer identification number.

TEXT:
%s`

const extendedPrompt = `Extract the actors, the relationships between them, and the dated events described in the text below.

Entity types: %s
Relationship types: %s
Event categories (mountains): %s

Return a JSON object with this shape:
{
  "entities": [
    {"name": "...", "type": "...", "ein": "12-3456789 or omit", "description": "...", "aliases": [{"name": "...", "type": "AKA or DBA"}]}
  ],
  "relationships": [
    {"from": "entity name", "to": "entity name", "type": "...", "description": "..."}
  ],
  "events": [
    {"year": 1999, "month": 4, "day": 12, "title": "...", "description": "...", "entities": ["entity name"], "mountains": ["category"], "convergence": false}
  ]
}

Every event needs a year and a title. Set "convergence" when the event joins several categories.

TEXT:
%s`

func join[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}

func buildPrompt(variant Variant, chunk string) string {
	entityTypes := join(model.EntityTypes)
	relTypes := join(model.RelationshipTypes)
	if variant == Extended {
		return fmt.Sprintf(extendedPrompt, entityTypes, relTypes, strings.Join(model.DefaultMountains, ", "), chunk)
	}
	return fmt.Sprintf(simplePrompt, entityTypes, relTypes, chunk)
}
