package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/boat-builder/opspod"
	"github.com/boat-builder/opspod/config"
)

// Anthropic talks to the Claude messages API.
type Anthropic struct {
	client anthropic.Client
	model  string
	opts   options
}

func NewAnthropic(cfg config.LLM, opts ...Option) *Anthropic {
	o := newOptions(cfg, opts)
	reqOpts := []option.RequestOption{option.WithAPIKey(cfg.AnthropicAPIKey)}
	if o.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(o.baseURL))
	}
	if o.httpClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(o.httpClient))
	}
	return &Anthropic{client: anthropic.NewClient(reqOpts...), model: cfg.AnthropicModel, opts: o}
}

func (c *Anthropic) Model() string {
	return c.model
}

func (c *Anthropic) Chat(ctx context.Context, req opspod.ChatRequest) (*opspod.ChatResponse, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   MaxTokens,
		Messages:    anthropicMessages(req.Messages),
		Temperature: anthropic.Float(0),
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}
	for _, t := range req.Tools {
		schema := anthropic.ToolInputSchemaParam{Properties: t.Parameters["properties"], Required: stringList(t.Parameters["required"])}
		if schema.Properties == nil {
			schema.Properties = map[string]any{}
		}
		params.Tools = append(params.Tools, anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
			Name:        t.Name,
			Description: anthropic.String(t.Description),
			InputSchema: schema,
		}})
	}

	var reqOpts []option.RequestOption
	for key, value := range c.opts.identifiers(ctx) {
		reqOpts = append(reqOpts, option.WithJSONSet(key, value))
	}

	c.opts.logger.Debug("Sending message", "model", c.model, "messages", len(params.Messages), "tools", len(params.Tools))
	resp, err := c.client.Messages.New(ctx, params, reqOpts...)
	if err != nil {
		return nil, fmt.Errorf("messages: %w", err)
	}

	msg := opspod.Message{Role: opspod.RoleAssistant}
	for _, block := range resp.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			msg.Content += b.Text
		case anthropic.ToolUseBlock:
			args := b.JSON.Input.Raw()
			if args == "" {
				args = "{}"
			}
			msg.ToolCalls = append(msg.ToolCalls, opspod.ToolCall{ID: toolCallID(b.ID), Name: b.Name, Arguments: args})
		}
	}
	return &opspod.ChatResponse{
		Message: msg,
		Usage:   opspod.Usage{InputTokens: resp.Usage.InputTokens, OutputTokens: resp.Usage.OutputTokens},
	}, nil
}

// anthropicMessages folds the history into alternating user and assistant
// turns. Tool results travel as user content blocks.
func anthropicMessages(msgs []opspod.Message) []anthropic.MessageParam {
	var out []anthropic.MessageParam
	push := func(role anthropic.MessageParamRole, blocks ...anthropic.ContentBlockParamUnion) {
		if len(blocks) == 0 {
			return
		}
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Content = append(out[n-1].Content, blocks...)
			return
		}
		out = append(out, anthropic.MessageParam{Role: role, Content: blocks})
	}

	for _, m := range msgs {
		switch m.Role {
		case opspod.RoleHuman:
			push(anthropic.MessageParamRoleUser, anthropic.NewTextBlock(m.Content))
		case opspod.RoleTool:
			push(anthropic.MessageParamRoleUser, anthropic.NewToolResultBlock(m.ToolCallID, m.Content, false))
		case opspod.RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if m.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Content))
			}
			for _, call := range m.ToolCalls {
				var input any = map[string]any{}
				if call.Arguments != "" {
					input = json.RawMessage(call.Arguments)
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(call.ID, input, call.Name))
			}
			push(anthropic.MessageParamRoleAssistant, blocks...)
		}
	}
	return out
}

func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
