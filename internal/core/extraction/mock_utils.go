package extraction

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/chal0326/researchcms/internal/llm"
)

// MockLLMClient returns canned responses. When Responses is set, the entry
// with the lexically smallest key that appears in the prompt wins; otherwise
// Response is used.
type MockLLMClient struct {
	Response  string
	Responses map[string]string
	Err       error

	mu       sync.Mutex
	Requests []llm.Request
}

func (m *MockLLMClient) Generate(ctx context.Context, req llm.Request) (string, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()

	if m.Err != nil {
		return "", m.Err
	}
	if len(req.Messages) > 0 {
		prompt := req.Messages[len(req.Messages)-1].Content
		markers := slices.Sorted(maps.Keys(m.Responses))
		for _, marker := range markers {
			if strings.Contains(prompt, marker) {
				return m.Responses[marker], nil
			}
		}
	}
	return m.Response, nil
}

func (m *MockLLMClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}
