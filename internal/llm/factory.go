package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/chal0326/researchcms/internal/config"
)

const workersAIBaseURL = "https://api.cloudflare.com/client/v4/accounts/%s/ai/v1"

func NewClient(ctx context.Context, cfg config.LLMConfig) (LLMClient, error) {
	provider := strings.ToLower(cfg.Provider)

	switch provider {
	case "openai":
		return NewOpenAIClient(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.MaxTokens), nil

	case "workersai":
		// Workers AI exposes an OpenAI-compatible endpoint per account.
		baseURL := cfg.BaseURL
		if baseURL == "" {
			if cfg.AccountID == "" {
				return nil, fmt.Errorf("workersai provider requires account_id or base_url")
			}
			baseURL = fmt.Sprintf(workersAIBaseURL, cfg.AccountID)
		}
		model := cfg.Model
		if model == "" {
			model = config.DefaultWorkersAIModel
		}
		return NewOpenAIClient(cfg.APIKey, model, baseURL, cfg.MaxTokens), nil

	case "gemini":
		return NewGeminiClient(ctx, cfg.APIKey, cfg.Model, cfg.MaxTokens)

	case "claude", "anthropic":
		return NewClaudeClient(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.MaxTokens), nil

	case "ollama":
		baseURL := cfg.BaseURL
		if !strings.HasSuffix(baseURL, "/v1") {
			baseURL = fmt.Sprintf("%s/v1", strings.TrimRight(baseURL, "/"))
		}
		// Ollama ignores the key but the client requires one.
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = "ollama"
		}
		return NewOpenAIClient(apiKey, cfg.Model, baseURL, cfg.MaxTokens), nil

	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", provider)
	}
}
