package opspod

import (
	"context"
	"errors"
	"sync"
)

type fakeRunner struct {
	result *RunResult
	err    error
	got    [][]Message
}

func (f *fakeRunner) Run(ctx context.Context, messages []Message) (*RunResult, error) {
	f.got = append(f.got, messages)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

// scriptedLLM replays responses in order and records every request.
type scriptedLLM struct {
	mu        sync.Mutex
	responses []*ChatResponse
	requests  []ChatRequest
	err       error
}

func (s *scriptedLLM) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	if len(s.responses) == 0 {
		return nil, errors.New("no scripted response left")
	}
	resp := s.responses[0]
	s.responses = s.responses[1:]
	return resp, nil
}

func (s *scriptedLLM) Model() string {
	return "gpt-4o-mini"
}

type fakeTool struct {
	name   string
	status string
	output string
	err    error

	mu   sync.Mutex
	args []map[string]any
}

func (f *fakeTool) Name() string          { return f.name }
func (f *fakeTool) StatusMessage() string { return f.status }
func (f *fakeTool) Description() string   { return "fake tool " + f.name }
func (f *fakeTool) Parameters() map[string]any {
	return map[string]any{"type": "object", "properties": map[string]any{}}
}

func (f *fakeTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	f.mu.Lock()
	f.args = append(f.args, args)
	f.mu.Unlock()
	return f.output, f.err
}

func toolCallResponse(calls ...ToolCall) *ChatResponse {
	return &ChatResponse{
		Message: Message{Role: RoleAssistant, ToolCalls: calls},
		Usage:   Usage{InputTokens: 100, OutputTokens: 10},
	}
}

func textResponse(text string) *ChatResponse {
	return &ChatResponse{
		Message: AssistantMessage(text),
		Usage:   Usage{InputTokens: 200, OutputTokens: 20},
	}
}
