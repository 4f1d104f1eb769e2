package opspod

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
)

func MessageWhenToolError(call ToolCall) Message {
	return ToolMessage("Error occurred while running. Do not retry", call.ID, call.Name)
}

func MessageWhenToolErrorWithRetry(errorString string, call ToolCall) Message {
	return ToolMessage(fmt.Sprintf("Error: %s.\nRetry", errorString), call.ID, call.Name)
}

type toolOutput struct {
	message Message
	ok      bool
}

// runTools executes the calls concurrently. Outputs keep the order of calls.
func (a *Agent) runTools(ctx context.Context, calls []ToolCall) []toolOutput {
	outputs := make([]toolOutput, len(calls))
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call ToolCall) {
			defer wg.Done()
			outputs[i] = a.runTool(ctx, call)
		}(i, call)
	}
	wg.Wait()
	return outputs
}

func (a *Agent) runTool(ctx context.Context, call ToolCall) toolOutput {
	tool, skill, err := a.findTool(call.Name)
	if err != nil {
		a.logger.Error("Error getting tool", "error", err)
		return toolOutput{message: MessageWhenToolError(call)}
	}

	if status := skill.statusFor(tool); status != "" {
		reportStatus(ctx, status)
	}

	a.logger.Info("Tool", "skill", skill.Name, "tool", tool.Name(), "arguments", call.Arguments)
	arguments := map[string]any{}
	if strings.TrimSpace(call.Arguments) != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &arguments); err != nil {
			a.logger.Error("Error unmarshalling tool arguments", "tool", call.Name, "error", err)
			return toolOutput{message: MessageWhenToolErrorWithRetry(err.Error(), call)}
		}
	}

	output, err := tool.Execute(ctx, arguments)
	if err != nil {
		a.logger.Error("Error executing tool", "tool", call.Name, "error", err)
		switch {
		case errors.As(err, &retErr):
			return toolOutput{message: MessageWhenToolErrorWithRetry(err.Error(), call)}
		case errors.As(err, &ignErr):
			return toolOutput{message: MessageWhenToolError(call)}
		default:
			return toolOutput{message: MessageWhenToolError(call)}
		}
	}
	return toolOutput{message: ToolMessage(output, call.ID, call.Name), ok: true}
}
