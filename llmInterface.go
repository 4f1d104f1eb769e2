package opspod

import (
	"context"
)

// ToolSpec describes a tool to the model: its name, what it does and the JSON
// schema of its arguments.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ChatRequest is one non-streaming completion request.
type ChatRequest struct {
	SystemPrompt string
	Messages     []Message
	Tools        []ToolSpec
}

type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}

// ChatResponse carries the assistant message produced by the model. The
// message may contain text, tool calls or both.
type ChatResponse struct {
	Message Message
	Usage   Usage
}

// LLM defines the minimal contract required by the agent runtime to
// interact with a language-model provider. One implementation exists per
// provider and the choice is made once, when the LLM is constructed.
type LLM interface {
	// Chat issues a non-streaming chat completion request.
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// Model returns the model name used for requests, for pricing and logs.
	Model() string
}
