package extraction

import (
	"context"
	"fmt"

	"github.com/chal0326/researchcms/internal/core/model"
	"github.com/chal0326/researchcms/internal/llm"
)

// Variant selects which record kinds are requested from the model.
type Variant string

const (
	Simple   Variant = "simple"
	Extended Variant = "extended"
)

func ParseVariant(s string) Variant {
	if Variant(s) == Extended {
		return Extended
	}
	return Simple
}

type Extractor struct {
	LLM          llm.LLMClient
	Variant      Variant
	SystemPrompt string
}

func NewExtractor(llmClient llm.LLMClient, variant Variant, systemPrompt string) *Extractor {
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	return &Extractor{
		LLM:          llmClient,
		Variant:      variant,
		SystemPrompt: systemPrompt,
	}
}

// ExtractChunk runs one chunk through the model. Any error is scoped to this
// chunk; callers substitute an empty result.
func (e *Extractor) ExtractChunk(ctx context.Context, index int, chunk string) (model.ChunkResult, error) {
	req := llm.Prompt(e.SystemPrompt, buildPrompt(e.Variant, chunk))
	req.JSON = true

	response, err := e.LLM.Generate(ctx, req)
	if err != nil {
		return model.ChunkResult{}, fmt.Errorf("failed to generate extraction for chunk %d: %w", index, err)
	}

	result, err := Decode(response)
	if err != nil {
		return model.ChunkResult{}, fmt.Errorf("failed to parse extraction for chunk %d: %w", index, err)
	}
	if e.Variant != Extended {
		result.Events = nil
	}
	result.Index = index
	result.Text = chunk
	return result, nil
}
