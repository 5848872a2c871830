package llm

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chal0326/researchcms/internal/config"
)

type countingClient struct {
	calls atomic.Int32
}

func (c *countingClient) Generate(ctx context.Context, req Request) (string, error) {
	c.calls.Add(1)
	return "{}", nil
}

func TestNewClient(t *testing.T) {
	ctx := context.Background()

	t.Run("unsupported", func(t *testing.T) {
		_, err := NewClient(ctx, config.LLMConfig{Provider: "parrot"})
		assert.Error(t, err)
	})

	t.Run("workersai needs account", func(t *testing.T) {
		_, err := NewClient(ctx, config.LLMConfig{Provider: "workersai"})
		assert.Error(t, err)
	})

	t.Run("workersai", func(t *testing.T) {
		c, err := NewClient(ctx, config.LLMConfig{Provider: "workersai", AccountID: "acct", APIKey: "k"})
		require.NoError(t, err)
		oc, ok := c.(*OpenAIClient)
		require.True(t, ok)
		assert.Equal(t, config.DefaultWorkersAIModel, oc.model)
	})

	t.Run("ollama", func(t *testing.T) {
		c, err := NewClient(ctx, config.LLMConfig{Provider: "Ollama", BaseURL: "http://localhost:11434/", Model: "llama3.1"})
		require.NoError(t, err)
		assert.IsType(t, &OpenAIClient{}, c)
	})

	t.Run("claude", func(t *testing.T) {
		c, err := NewClient(ctx, config.LLMConfig{Provider: "claude", APIKey: "k", Model: "claude-3-5-sonnet-latest"})
		require.NoError(t, err)
		assert.IsType(t, &ClaudeClient{}, c)
	})
}

func TestPrompt(t *testing.T) {
	req := Prompt("be terse", "hello")
	require.Len(t, req.Messages, 2)
	assert.Equal(t, RoleSystem, req.Messages[0].Role)

	system, turns := split(req.Messages)
	assert.Equal(t, "be terse", system)
	assert.Equal(t, []Message{{Role: RoleUser, Content: "hello"}}, turns)

	assert.Len(t, Prompt("", "hello").Messages, 1)
}

func TestThrottle(t *testing.T) {
	inner := &countingClient{}
	assert.Same(t, LLMClient(inner), Throttle(inner, 0))

	c := Throttle(inner, 40*time.Millisecond)
	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := c.Generate(context.Background(), Prompt("", "x"))
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 70*time.Millisecond)
	assert.Equal(t, int32(3), inner.calls.Load())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Generate(ctx, Prompt("", "x"))
	assert.Error(t, err)
}
