package extraction

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chal0326/researchcms/internal/core/common"
	"github.com/chal0326/researchcms/internal/core/model"
	"github.com/chal0326/researchcms/internal/llm"
)

func TestExtractChunk(t *testing.T) {
	mockJSON := "```json\n" + `{
		"entities": [
			{"name": "Acme Fund", "type": "Organization", "ein": "12-3456789", "aliases": [{"name": "Acme", "type": "dba"}]},
			{"name": "Jane Doe", "type": "Person", "ein": "123"}
		],
		"relationships": [
			{"from_name": "Acme Fund", "to_name": "Jane Doe", "type": "BOARD", "description": "Board member"}
		]
	}` + "\n```"

	mockLLM := &MockLLMClient{Response: mockJSON}
	extractor := NewExtractor(mockLLM, Simple, "")

	result, err := extractor.ExtractChunk(context.Background(), 2, "Acme Fund board minutes")
	require.NoError(t, err)

	assert.Equal(t, 2, result.Index)
	assert.Equal(t, "Acme Fund board minutes", result.Text)
	require.Len(t, result.Entities, 2)
	assert.Equal(t, "123456789", result.Entities[0].TaxID)
	assert.Equal(t, []model.Alias{{Name: "Acme", Kind: model.AliasDBA}}, result.Entities[0].Aliases)
	assert.Empty(t, result.Entities[1].TaxID)

	require.Len(t, result.Relationships, 1)
	assert.Equal(t, "Acme Fund", result.Relationships[0].From)
	assert.Equal(t, "Jane Doe", result.Relationships[0].To)
	assert.Equal(t, "BOARD", result.Relationships[0].Type)

	require.Len(t, mockLLM.Requests, 1)
	req := mockLLM.Requests[0]
	assert.True(t, req.JSON)
	assert.Equal(t, llm.RoleSystem, req.Messages[0].Role)
	assert.Equal(t, DefaultSystemPrompt, req.Messages[0].Content)
	assert.Contains(t, req.Messages[1].Content, "PARTICIPATED_IN")
	assert.Contains(t, req.Messages[1].Content, "Organization")
	assert.NotContains(t, req.Messages[1].Content, "Arts & Entertainment")
}

func TestExtractChunkExtended(t *testing.T) {
	mockLLM := &MockLLMClient{Response: `{
		"entities": [],
		"relationships": [],
		"events": [
			{"year": "1999", "month": 4, "title": "Charter signed", "entities": ["Acme Fund", " "], "mountains": ["Business", "Government"]},
			{"year": 0, "title": "Undated"},
			{"year": 2001}
		]
	}`}
	extractor := NewExtractor(mockLLM, Extended, "")

	result, err := extractor.ExtractChunk(context.Background(), 0, "text")
	require.NoError(t, err)

	require.Len(t, result.Events, 1)
	ev := result.Events[0]
	assert.Equal(t, 1999, ev.Year)
	assert.Equal(t, 4, ev.Month)
	assert.Equal(t, 0, ev.Day)
	assert.Equal(t, []string{"Acme Fund"}, ev.Entities)
	assert.Equal(t, []string{"Business", "Government"}, ev.Mountains)
	assert.Equal(t, 2, result.Malformed)
	assert.Contains(t, mockLLM.Requests[0].Messages[1].Content, "Arts & Entertainment")
}

func TestSimpleVariantDropsEvents(t *testing.T) {
	mockLLM := &MockLLMClient{Response: `{"entities":[],"relationships":[],"events":[{"year":2000,"title":"X"}]}`}
	result, err := NewExtractor(mockLLM, Simple, "").ExtractChunk(context.Background(), 0, "text")
	require.NoError(t, err)
	assert.Empty(t, result.Events)
}

func TestExtractChunkErrors(t *testing.T) {
	t.Run("model failure", func(t *testing.T) {
		mockLLM := &MockLLMClient{Err: errors.New("rate limited")}
		_, err := NewExtractor(mockLLM, Simple, "").ExtractChunk(context.Background(), 0, "text")
		assert.ErrorContains(t, err, "rate limited")
	})

	t.Run("no json", func(t *testing.T) {
		mockLLM := &MockLLMClient{Response: "Sorry, I cannot help with that."}
		_, err := NewExtractor(mockLLM, Simple, "").ExtractChunk(context.Background(), 0, "text")
		assert.ErrorIs(t, err, common.ErrNoJSON)
	})
}

func TestDecodeValidation(t *testing.T) {
	result, err := Decode(`{
		"entities": [
			{"name": ""},
			{"name": "  Ford Foundation ", "ein": 131684331},
			"not an object"
		],
		"relationships": [
			{"from": "A", "to": ""},
			{"from": "A", "to_name": "B"},
			{"from": 7, "to": {"nested": true}}
		]
	}`)
	require.NoError(t, err)

	require.Len(t, result.Entities, 1)
	assert.Equal(t, "Ford Foundation", result.Entities[0].Name)
	assert.Equal(t, "131684331", result.Entities[0].TaxID)

	require.Len(t, result.Relationships, 1)
	assert.Equal(t, "B", result.Relationships[0].To)
	assert.Equal(t, 4, result.Malformed)
}

func TestDecodeRepairsTruncation(t *testing.T) {
	clean := `{"entities":[{"name":"Acme Fund"}],"relationships":[]}`
	want, err := Decode(clean)
	require.NoError(t, err)

	for _, in := range []string{
		"```json\n" + clean + "\n```",
		clean + " trailing garbage",
		"```" + clean,
	} {
		got, err := Decode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestMockLLMClientPicksSmallestMatchingMarker(t *testing.T) {
	m := &MockLLMClient{
		Response:  "default",
		Responses: map[string]string{"zeta": "z", "alpha": "a", "beta": "b"},
	}
	req := llm.Request{Messages: []llm.Message{{Role: "user", Content: "beta then zeta then alpha"}}}

	for i := 0; i < 20; i++ {
		out, err := m.Generate(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, "a", out)
	}

	out, err := m.Generate(context.Background(), llm.Request{Messages: []llm.Message{{Role: "user", Content: "none"}}})
	require.NoError(t, err)
	assert.Equal(t, "default", out)
	assert.Equal(t, 21, m.Calls())
}
