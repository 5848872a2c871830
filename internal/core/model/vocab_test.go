package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeEntityType(t *testing.T) {
	assert.Equal(t, EntityOrganization, NormalizeEntityType("organization"))
	assert.Equal(t, EntityPerson, NormalizeEntityType(" Person "))
	assert.Equal(t, EntityOther, NormalizeEntityType("Foundation"))
	assert.Equal(t, EntityOther, NormalizeEntityType(""))
}

func TestNormalizeRelationshipType(t *testing.T) {
	tests := map[string]RelationshipType{
		"TRIGGERED":       RelTriggered,
		"participated in": RelParticipatedIn,
		"located-in":      RelLocatedIn,
		"BOARD":           RelAssociatedWith,
		"":                RelAssociatedWith,
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeRelationshipType(in), in)
	}
}

func TestMountainSlug(t *testing.T) {
	assert.Equal(t, "arts-entertainment", MountainSlug("Arts & Entertainment"))
	assert.Equal(t, "government", MountainSlug("Government"))
}

func TestStatsAdd(t *testing.T) {
	s := ExtractionStats{Files: 1, Chunks: 2}
	s.Add(ExtractionStats{Files: 1, Chunks: 3, EntitiesCreated: 4, FilesFailed: 1})
	assert.Equal(t, ExtractionStats{Files: 2, Chunks: 5, EntitiesCreated: 4, FilesFailed: 1}, s)
}
