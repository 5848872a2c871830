package llm

import (
	"context"
)

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

type Message struct {
	Role    string
	Content string
}

// Request is one chat-style generation call. JSON asks the provider for a
// JSON-only response where it supports that.
type Request struct {
	Messages  []Message
	JSON      bool
	MaxTokens int
}

// Prompt builds a request from a system instruction and a user message.
func Prompt(system, user string) Request {
	var msgs []Message
	if system != "" {
		msgs = append(msgs, Message{Role: RoleSystem, Content: system})
	}
	msgs = append(msgs, Message{Role: RoleUser, Content: user})
	return Request{Messages: msgs}
}

type LLMClient interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// split separates the system instruction from the conversational turns for
// providers that take it as a dedicated field.
func split(msgs []Message) (string, []Message) {
	var system string
	var rest []Message
	for _, m := range msgs {
		if m.Role == RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		rest = append(rest, m)
	}
	return system, rest
}
