package opspod

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
)

func newTestAgent(llm LLM, tools ...Tool) *Agent {
	return NewAgent(llm, "You manage deployments.", []Skill{{
		Name:          "applications",
		Description:   "Application lifecycle",
		StatusMessage: "Looking up ArgoCD resources...",
		Tools:         tools,
	}})
}

func TestAgentRunsToolsInCallOrder(t *testing.T) {
	first := &fakeTool{name: "first", output: `{"n":1}`}
	second := &fakeTool{name: "second", output: `{"n":2}`}
	llm := &scriptedLLM{responses: []*ChatResponse{
		toolCallResponse(
			ToolCall{ID: "a", Name: "second", Arguments: `{"x":"y"}`},
			ToolCall{ID: "b", Name: "first", Arguments: ``},
		),
		textResponse("done"),
	}}

	result, err := newTestAgent(llm, first, second).Run(context.Background(), []Message{HumanMessage("go")})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Messages) != 5 {
		t.Fatalf("expected 5 messages, got %d: %+v", len(result.Messages), result.Messages)
	}
	if result.Messages[2].ToolCallID != "a" || result.Messages[3].ToolCallID != "b" {
		t.Fatalf("tool results out of order: %+v", result.Messages[2:4])
	}
	if strings.Join(result.ToolResults, ",") != `{"n":2},{"n":1}` {
		t.Fatalf("unexpected tool results %v", result.ToolResults)
	}
	if second.args[0]["x"] != "y" {
		t.Fatalf("arguments not decoded: %+v", second.args)
	}
	if result.Usage.InputTokens != 300 || result.Usage.OutputTokens != 30 {
		t.Fatalf("unexpected usage %+v", result.Usage)
	}
	if len(llm.requests) != 2 || len(llm.requests[0].Tools) != 2 {
		t.Fatalf("unexpected requests %+v", llm.requests)
	}
	if !strings.HasPrefix(llm.requests[0].SystemPrompt, "You manage deployments.") {
		t.Fatalf("unexpected system prompt %q", llm.requests[0].SystemPrompt)
	}
}

func TestAgentDoesNotModifyInput(t *testing.T) {
	llm := &scriptedLLM{responses: []*ChatResponse{textResponse("hi")}}
	input := make([]Message, 1, 4)
	input[0] = HumanMessage("hello")

	if _, err := newTestAgent(llm).Run(context.Background(), input); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if extended := input[:2]; extended[1].Content != "" {
		t.Fatalf("agent wrote into the caller's backing array: %+v", extended)
	}
}

func TestAgentToolErrors(t *testing.T) {
	tests := []struct {
		name    string
		call    ToolCall
		tool    *fakeTool
		want    string
		success bool
	}{
		{
			name: "UnknownTool",
			call: ToolCall{ID: "1", Name: "missing", Arguments: "{}"},
			tool: &fakeTool{name: "known"},
			want: "Error occurred while running. Do not retry",
		},
		{
			name: "InvalidArguments",
			call: ToolCall{ID: "1", Name: "known", Arguments: "{not json"},
			tool: &fakeTool{name: "known"},
			want: "Retry",
		},
		{
			name: "RetryableError",
			call: ToolCall{ID: "1", Name: "known", Arguments: "{}"},
			tool: &fakeTool{name: "known", err: NewRetryableError("missing required argument %q", "name")},
			want: "Error: missing required argument \"name\".\nRetry",
		},
		{
			name: "IgnorableError",
			call: ToolCall{ID: "1", Name: "known", Arguments: "{}"},
			tool: &fakeTool{name: "known", err: &IgnorableError{Err: errors.New("boom")}},
			want: "Error occurred while running. Do not retry",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &scriptedLLM{responses: []*ChatResponse{toolCallResponse(tt.call), textResponse("sorry")}}
			result, err := newTestAgent(llm, tt.tool).Run(context.Background(), []Message{HumanMessage("go")})
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			toolMsg := result.Messages[2]
			if toolMsg.Role != RoleTool || !strings.Contains(toolMsg.Content, tt.want) {
				t.Fatalf("expected tool message containing %q, got %+v", tt.want, toolMsg)
			}
			if len(result.ToolResults) != 0 {
				t.Fatalf("failed calls must not be recorded as results: %v", result.ToolResults)
			}
		})
	}
}

func TestAgentMaxIterations(t *testing.T) {
	tool := &fakeTool{name: "loop", output: "{}"}
	responses := []*ChatResponse{}
	for i := 0; i < 3; i++ {
		responses = append(responses, toolCallResponse(ToolCall{ID: "x", Name: "loop", Arguments: "{}"}))
	}
	llm := &scriptedLLM{responses: responses}
	agent := NewAgent(llm, "p", []Skill{{Name: "s", Tools: []Tool{tool}}}, WithMaxIterations(3))

	_, err := agent.Run(context.Background(), []Message{HumanMessage("go")})
	if !errors.Is(err, ErrMaxIterations) {
		t.Fatalf("expected ErrMaxIterations, got %v", err)
	}
}

func TestAgentLLMFailure(t *testing.T) {
	llm := &scriptedLLM{err: errors.New("503 service unavailable")}
	_, err := newTestAgent(llm).Run(context.Background(), []Message{HumanMessage("go")})
	if err == nil || !strings.Contains(err.Error(), "503") {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestAgentReportsStatus(t *testing.T) {
	withStatus := &fakeTool{name: "own", status: "Fetching application...", output: "{}"}
	withoutStatus := &fakeTool{name: "inherit", output: "{}"}
	llm := &scriptedLLM{responses: []*ChatResponse{
		toolCallResponse(ToolCall{ID: "1", Name: "own"}, ToolCall{ID: "2", Name: "inherit"}),
		textResponse("ok"),
	}}

	var mu sync.Mutex
	statuses := map[string]bool{}
	ctx := WithStatusReporter(context.Background(), func(status string) {
		mu.Lock()
		statuses[status] = true
		mu.Unlock()
	})
	if _, err := newTestAgent(llm, withStatus, withoutStatus).Run(ctx, []Message{HumanMessage("go")}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !statuses["Fetching application..."] || !statuses["Looking up ArgoCD resources..."] {
		t.Fatalf("unexpected statuses %v", statuses)
	}
}

func TestRespondWithAgent(t *testing.T) {
	tool := &fakeTool{name: "version", output: `{"Version":"v2.10.0"}`}
	llm := &scriptedLLM{responses: []*ChatResponse{
		toolCallResponse(ToolCall{ID: "1", Name: "version", Arguments: "{}"}),
		textResponse("Argo CD v2.10.0"),
	}}

	result, err := Respond(context.Background(), newTestAgent(llm, tool), nil, "which version?")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	want := []Message{HumanMessage("which version?"), AssistantMessage("Argo CD v2.10.0")}
	if len(result.Output) != 2 || result.Output[1].Content != want[1].Content {
		t.Fatalf("unexpected output %+v", result.Output)
	}
}
