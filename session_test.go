package opspod

import (
	"context"
	"errors"
	"testing"
)

func TestSessionTurnPersistsHistory(t *testing.T) {
	llm := &scriptedLLM{responses: []*ChatResponse{textResponse("hi"), textResponse("still here")}}
	pod := NewPod(llm, newTestAgent(llm), NewMemoryStore())
	ctx := context.Background()

	sess := pod.NewSession(ctx, "")
	defer sess.Close()
	if sess.ID() == "" {
		t.Fatalf("expected a generated session id")
	}

	if _, err := sess.Turn(ctx, "hello"); err != nil {
		t.Fatalf("Turn: %v", err)
	}
	result, err := sess.Turn(ctx, "are you there?")
	if err != nil {
		t.Fatalf("Turn: %v", err)
	}
	if len(result.Output) != 4 {
		t.Fatalf("expected 4 messages, got %+v", result.Output)
	}

	history, err := sess.History(ctx)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 4 || history[3].Content != "still here" {
		t.Fatalf("unexpected stored history %+v", history)
	}

	cost, ok := sess.Cost()
	if !ok {
		t.Fatalf("expected pricing for %s", llm.Model())
	}
	if cost.InputTokens != 400 || cost.OutputTokens != 40 {
		t.Fatalf("unexpected usage %+v", cost)
	}
}

func TestSessionTurnFailureKeepsHistory(t *testing.T) {
	llm := &scriptedLLM{err: errors.New("unauthorized")}
	store := NewMemoryStore()
	ctx := context.Background()
	if err := store.Save(ctx, "abc", []Message{HumanMessage("a"), AssistantMessage("b")}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	sess := NewPod(llm, newTestAgent(llm), store).NewSession(ctx, "abc")
	defer sess.Close()
	if _, err := sess.Turn(ctx, "c"); !errors.Is(err, ErrAgentExecutionFailed) {
		t.Fatalf("expected ErrAgentExecutionFailed, got %v", err)
	}
	history, _ := store.Load(ctx, "abc")
	if len(history) != 2 {
		t.Fatalf("history changed after a failed turn: %+v", history)
	}
}

func TestSessionInOut(t *testing.T) {
	tool := &fakeTool{name: "list", status: "Listing applications...", output: `{"items":[]}`}
	llm := &scriptedLLM{responses: []*ChatResponse{
		toolCallResponse(ToolCall{ID: "1", Name: "list", Arguments: "{}"}),
		textResponse("No applications."),
	}}
	sess := NewPod(llm, newTestAgent(llm, tool), nil).NewSession(context.Background(), "io")
	defer sess.Close()

	if err := sess.In("list apps"); err != nil {
		t.Fatalf("In: %v", err)
	}
	var got []Response
	for {
		r := sess.Out()
		got = append(got, r)
		if r.Type == ResponseTypeEnd {
			break
		}
	}
	want := []Response{
		{Content: "Listing applications...", Type: ResponseTypeStatus},
		{Content: "No applications.", Type: ResponseTypePartialText},
		{Type: ResponseTypeEnd},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("response %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestSessionInOutWarning(t *testing.T) {
	llm := &scriptedLLM{responses: []*ChatResponse{textResponse("")}}
	sess := NewPod(llm, newTestAgent(llm), nil).NewSession(context.Background(), "")
	defer sess.Close()

	if err := sess.In("hello"); err != nil {
		t.Fatalf("In: %v", err)
	}
	if r := sess.Out(); r.Type != ResponseTypeWarning {
		t.Fatalf("expected warning, got %+v", r)
	}
	if r := sess.Out(); r.Type != ResponseTypeEnd {
		t.Fatalf("expected end, got %+v", r)
	}
}

func TestSessionClosed(t *testing.T) {
	llm := &scriptedLLM{}
	sess := NewPod(llm, newTestAgent(llm), nil).NewSession(context.Background(), "")
	sess.Close()
	sess.Close()

	if err := sess.In("hello"); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}
	if r := sess.Out(); r.Type != ResponseTypeEnd {
		t.Fatalf("expected end after close, got %+v", r)
	}
}

func TestSessionTurnWithKeepsTranscriptOnly(t *testing.T) {
	llm := &scriptedLLM{responses: []*ChatResponse{textResponse("done")}}
	store := NewMemoryStore()
	ctx := context.Background()
	sess := NewPod(llm, newTestAgent(llm), store).NewSession(ctx, "transcript")
	defer sess.Close()

	prior := []Message{
		HumanMessage("sync guestbook"),
		{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "1", Name: "ApplicationService_Sync"}}},
		ToolMessage(`{"ok":true}`, "1", "ApplicationService_Sync"),
		AssistantMessage("synced"),
	}
	result, err := sess.TurnWith(ctx, prior, "status?")
	if err != nil {
		t.Fatalf("TurnWith: %v", err)
	}
	if got := len(llm.requests[0].Messages); got != 3 {
		t.Fatalf("expected 3 messages sent to the model, got %d: %+v", got, llm.requests[0].Messages)
	}
	history, _ := store.Load(ctx, "transcript")
	if len(history) != 4 || len(result.Output) != 4 {
		t.Fatalf("unexpected stored history %+v", history)
	}
	for _, m := range history {
		if !m.IsConversational() {
			t.Fatalf("non conversational message stored: %+v", m)
		}
	}
}

func TestPodSharesTurnLockPerSession(t *testing.T) {
	llm := &scriptedLLM{}
	pod := NewPod(llm, newTestAgent(llm), nil)
	a := pod.NewSession(context.Background(), "same")
	b := pod.NewSession(context.Background(), "same")
	c := pod.NewSession(context.Background(), "other")
	defer a.Close()
	defer b.Close()
	defer c.Close()
	if a.turnMu != b.turnMu {
		t.Fatalf("handles of one session must share the turn lock")
	}
	if a.turnMu == c.turnMu {
		t.Fatalf("different sessions must not share the turn lock")
	}
}
