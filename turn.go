package opspod

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// TurnOption tunes a single call to Respond.
type TurnOption func(*turnOptions)

type turnOptions struct {
	timeout time.Duration
	logger  *slog.Logger
}

// WithTurnTimeout bounds the runner invocation. Zero means no limit beyond ctx.
func WithTurnTimeout(d time.Duration) TurnOption {
	return func(o *turnOptions) {
		o.timeout = d
	}
}

func WithTurnLogger(logger *slog.Logger) TurnOption {
	return func(o *turnOptions) {
		o.logger = logger
	}
}

// Respond runs one conversational turn. The new human text is appended unless
// the prior history already ends with the same human message, the runner is
// invoked once, and the last non-empty assistant reply is appended to the
// output. Prior is never modified.
func Respond(ctx context.Context, runner Runner, prior []Message, input string, opts ...TurnOption) (*TurnResult, error) {
	options := turnOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&options)
	}
	if strings.TrimSpace(input) == "" {
		return nil, ErrNoMessage
	}

	history := NewMessageList(prior...)
	if last, ok := history.Last(); !ok || last.Role != RoleHuman || last.Content != input {
		history.Add(HumanMessage(input))
	}
	inputMessages := history.Clone().All()

	runCtx := ctx
	if options.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, options.timeout)
		defer cancel()
	}

	result, err := runner.Run(runCtx, history.Clone().All())
	if err != nil {
		options.logger.Error("Agent execution failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrAgentExecutionFailed, err)
	}
	if runCtx.Err() != nil {
		return nil, fmt.Errorf("%w: %w", ErrAgentExecutionFailed, runCtx.Err())
	}

	turn := &TurnResult{
		ConversationState: ConversationState{
			Input:  inputMessages,
			Output: CloneMessages(inputMessages),
		},
		Usage: result.Usage,
	}

	reply := assistantReply(result, len(inputMessages))
	if reply == "" {
		options.logger.Warn("No assistant content found in agent result")
		turn.Warning = ErrNoAssistantContent
		return turn, nil
	}
	turn.Output = append(turn.Output, AssistantMessage(reply))
	return turn, nil
}

// assistantReply scans the returned messages from the end for the first
// assistant message with content. The first inputLen messages are the input
// echoed back and are never considered; a runner returning fewer messages than
// that produced no reply. Without a reply it falls back to the joined tool
// results.
func assistantReply(result *RunResult, inputLen int) string {
	for i := len(result.Messages) - 1; i >= inputLen; i-- {
		m := result.Messages[i]
		if m.Role == RoleAssistant && strings.TrimSpace(m.Content) != "" {
			return m.Content
		}
	}
	return strings.Join(result.ToolResults, "\n")
}
