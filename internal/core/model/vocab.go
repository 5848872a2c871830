package model

import "strings"

type EntityType string

const (
	EntityPerson       EntityType = "Person"
	EntityOrganization EntityType = "Organization"
	EntityEvent        EntityType = "Event"
	EntityActor        EntityType = "Actor"
	EntityPolity       EntityType = "Polity"
	EntityConcept      EntityType = "Concept"
	EntityLocation     EntityType = "Location"
	EntityImpact       EntityType = "Impact"
	EntityTopic        EntityType = "Topic"
	EntitySystem       EntityType = "System"
	EntityOther        EntityType = "Other"
)

var EntityTypes = []EntityType{
	EntityPerson, EntityOrganization, EntityEvent, EntityActor, EntityPolity, EntityConcept,
	EntityLocation, EntityImpact, EntityTopic, EntitySystem, EntityOther,
}

// NormalizeEntityType maps a free-form label onto the closed vocabulary.
// Matching is case-insensitive; anything unknown becomes Other.
func NormalizeEntityType(s string) EntityType {
	s = strings.TrimSpace(s)
	for _, t := range EntityTypes {
		if strings.EqualFold(s, string(t)) {
			return t
		}
	}
	return EntityOther
}

type RelationshipType string

// Extraction vocabulary.
const (
	RelTriggered      RelationshipType = "TRIGGERED"
	RelParticipatedIn RelationshipType = "PARTICIPATED_IN"
	RelAffected       RelationshipType = "AFFECTED"
	RelLocatedIn      RelationshipType = "LOCATED_IN"
	RelPrecedes       RelationshipType = "PRECEDES"
	RelFollows        RelationshipType = "FOLLOWS"
	RelAssociatedWith RelationshipType = "ASSOCIATED_WITH"
	RelMentions       RelationshipType = "MENTIONS"
)

// Ledger vocabulary.
const (
	RelContract    RelationshipType = "Contract"
	RelGrant       RelationshipType = "Grant"
	RelEmployment  RelationshipType = "Employment"
	RelBoard       RelationshipType = "Board"
	RelOfficer     RelationshipType = "Officer"
	RelKeyEmployee RelationshipType = "KeyEmployee"
	RelOther       RelationshipType = "Other"
)

var RelationshipTypes = []RelationshipType{
	RelTriggered, RelParticipatedIn, RelAffected, RelLocatedIn,
	RelPrecedes, RelFollows, RelAssociatedWith, RelMentions,
}

// NormalizeRelationshipType maps an extracted label onto the extraction
// vocabulary. Spaces and dashes are treated as underscores; unknown labels
// become ASSOCIATED_WITH.
func NormalizeRelationshipType(s string) RelationshipType {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	for _, t := range RelationshipTypes {
		if s == string(t) {
			return t
		}
	}
	return RelAssociatedWith
}

// DefaultMountains are the seven societal domains events are filed under.
var DefaultMountains = []string{
	"Religion",
	"Family",
	"Education",
	"Government",
	"Media",
	"Arts & Entertainment",
	"Business",
}

// MountainSlug lowercases a title and joins its words with dashes.
func MountainSlug(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}
