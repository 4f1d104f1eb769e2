package opspod

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestRespondAppendsAssistantReply(t *testing.T) {
	runner := &fakeRunner{result: &RunResult{Messages: []Message{
		HumanMessage("hello"),
		AssistantMessage("hi"),
	}}}

	result, err := Respond(context.Background(), runner, nil, "hello")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	want := []Message{HumanMessage("hello"), AssistantMessage("hi")}
	if !reflect.DeepEqual(result.Output, want) {
		t.Fatalf("expected output %+v, got %+v", want, result.Output)
	}
	if !reflect.DeepEqual(result.Input, want[:1]) {
		t.Fatalf("expected input %+v, got %+v", want[:1], result.Input)
	}
	if result.Warning != nil {
		t.Fatalf("unexpected warning %v", result.Warning)
	}
}

func TestRespondKeepsPriorHistory(t *testing.T) {
	prior := []Message{HumanMessage("list apps"), AssistantMessage("guestbook")}
	runner := &fakeRunner{result: &RunResult{Messages: []Message{
		HumanMessage("list apps"),
		AssistantMessage("guestbook"),
		HumanMessage("sync it"),
		{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "1", Name: "ApplicationService_Sync"}}},
		ToolMessage(`{"status":"ok"}`, "1", "ApplicationService_Sync"),
		AssistantMessage("Synced guestbook."),
	}}}

	result, err := Respond(context.Background(), runner, prior, "sync it")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if len(result.Output) != len(result.Input)+1 {
		t.Fatalf("expected exactly one new message, got %d -> %d", len(result.Input), len(result.Output))
	}
	if !reflect.DeepEqual(result.Output[:len(result.Input)], result.Input) {
		t.Fatalf("input prefix changed: %+v", result.Output)
	}
	if got := result.Output[len(result.Output)-1]; !reflect.DeepEqual(got, AssistantMessage("Synced guestbook.")) {
		t.Fatalf("unexpected reply %+v", got)
	}
	if len(prior) != 2 {
		t.Fatalf("prior history was modified: %+v", prior)
	}
}

func TestRespondDoesNotDuplicateHumanMessage(t *testing.T) {
	runner := &fakeRunner{result: &RunResult{Messages: []Message{HumanMessage("hello"), AssistantMessage("hi")}}}

	result, err := Respond(context.Background(), runner, []Message{HumanMessage("hello")}, "hello")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if len(result.Input) != 1 {
		t.Fatalf("expected the human message once, got %+v", result.Input)
	}
	if len(runner.got[0]) != 1 {
		t.Fatalf("runner received %d messages", len(runner.got[0]))
	}
}

func TestRespondRunnerFailure(t *testing.T) {
	transport := errors.New("connection reset by peer")
	runner := &fakeRunner{err: transport}
	prior := []Message{HumanMessage("a"), AssistantMessage("b")}

	result, err := Respond(context.Background(), runner, prior, "c")
	if !errors.Is(err, ErrAgentExecutionFailed) {
		t.Fatalf("expected ErrAgentExecutionFailed, got %v", err)
	}
	if !errors.Is(err, transport) {
		t.Fatalf("expected the cause to be wrapped, got %v", err)
	}
	if result != nil {
		t.Fatalf("expected no partial result, got %+v", result)
	}
	if len(prior) != 2 || prior[1].Content != "b" {
		t.Fatalf("prior history was modified: %+v", prior)
	}
}

func TestRespondNoAssistantContent(t *testing.T) {
	runner := &fakeRunner{result: &RunResult{Messages: []Message{
		HumanMessage("hello"),
		{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "1", Name: "x"}}},
		AssistantMessage("   "),
	}}}

	result, err := Respond(context.Background(), runner, nil, "hello")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if !errors.Is(result.Warning, ErrNoAssistantContent) {
		t.Fatalf("expected ErrNoAssistantContent warning, got %v", result.Warning)
	}
	if !reflect.DeepEqual(result.Output, result.Input) {
		t.Fatalf("expected output == input, got %+v", result.Output)
	}
	if _, ok := result.Reply(); ok {
		t.Fatalf("expected no reply")
	}
}

func TestRespondIgnoresEchoedAssistantReply(t *testing.T) {
	prior := []Message{HumanMessage("a"), AssistantMessage("old answer")}
	runner := &fakeRunner{result: &RunResult{Messages: []Message{
		HumanMessage("a"),
		AssistantMessage("old answer"),
		HumanMessage("b"),
	}}}

	result, err := Respond(context.Background(), runner, prior, "b")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if result.Warning == nil {
		t.Fatalf("expected a warning instead of the stale reply, got %+v", result.Output)
	}
}

func TestRespondFallsBackToToolResults(t *testing.T) {
	runner := &fakeRunner{result: &RunResult{
		Messages:    []Message{HumanMessage("versions?")},
		ToolResults: []string{`{"Version":"v2.10.0"}`, `{"plugins":[]}`},
	}}

	result, err := Respond(context.Background(), runner, nil, "versions?")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	reply, ok := result.Reply()
	if !ok {
		t.Fatalf("expected a reply")
	}
	if reply.Content != "{\"Version\":\"v2.10.0\"}\n{\"plugins\":[]}" {
		t.Fatalf("unexpected fallback content %q", reply.Content)
	}
}

func TestRespondShortRunnerResultSkipsPriorReplies(t *testing.T) {
	prior := []Message{HumanMessage("a"), AssistantMessage("old answer")}
	runner := &fakeRunner{result: &RunResult{
		Messages:    []Message{AssistantMessage("old answer")},
		ToolResults: []string{`{"ok":true}`},
	}}

	result, err := Respond(context.Background(), runner, prior, "b")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	reply, ok := result.Reply()
	if !ok || reply.Content != `{"ok":true}` {
		t.Fatalf("expected the tool result fallback, got %+v", result.Output)
	}

	runner.result.ToolResults = nil
	result, err = Respond(context.Background(), runner, prior, "b")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if !errors.Is(result.Warning, ErrNoAssistantContent) {
		t.Fatalf("expected ErrNoAssistantContent, got %+v", result.Output)
	}
}

func TestRespondBlankInput(t *testing.T) {
	runner := &fakeRunner{result: &RunResult{}}
	if _, err := Respond(context.Background(), runner, nil, "  \n"); !errors.Is(err, ErrNoMessage) {
		t.Fatalf("expected ErrNoMessage, got %v", err)
	}
	if len(runner.got) != 0 {
		t.Fatalf("runner should not be invoked for blank input")
	}
}

type blockingRunner struct{}

func (blockingRunner) Run(ctx context.Context, messages []Message) (*RunResult, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestRespondTimeout(t *testing.T) {
	_, err := Respond(context.Background(), blockingRunner{}, nil, "hello", WithTurnTimeout(10*time.Millisecond))
	if !errors.Is(err, ErrAgentExecutionFailed) {
		t.Fatalf("expected ErrAgentExecutionFailed, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
