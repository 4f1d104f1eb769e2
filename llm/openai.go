package llm

import (
	"context"
	"fmt"

	"github.com/boat-builder/opspod"
	"github.com/boat-builder/opspod/config"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"
)

// OpenAI talks to the chat completions API of OpenAI, Azure OpenAI or any
// compatible endpoint.
type OpenAI struct {
	client openai.Client
	model  string
	opts   options
}

func NewOpenAI(cfg config.LLM, opts ...Option) *OpenAI {
	o := newOptions(cfg, opts)
	reqOpts := []option.RequestOption{option.WithAPIKey(cfg.OpenAIAPIKey)}
	if cfg.OpenAIEndpoint != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.OpenAIEndpoint))
	}
	return &OpenAI{client: openai.NewClient(append(reqOpts, o.requestOptions()...)...), model: cfg.OpenAIModel, opts: o}
}

// NewAzure targets an Azure OpenAI deployment. The deployment name is used as
// the model.
func NewAzure(cfg config.LLM, opts ...Option) *OpenAI {
	o := newOptions(cfg, opts)
	reqOpts := []option.RequestOption{
		azure.WithEndpoint(cfg.AzureEndpoint, cfg.AzureAPIVersion),
		azure.WithAPIKey(cfg.AzureAPIKey),
	}
	return &OpenAI{client: openai.NewClient(append(reqOpts, o.requestOptions()...)...), model: cfg.AzureDeployment, opts: o}
}

func (c *OpenAI) Model() string {
	return c.model
}

func (c *OpenAI) Chat(ctx context.Context, req opspod.ChatRequest) (*opspod.ChatResponse, error) {
	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    openAIMessages(req),
		Temperature: openai.Float(0),
	}
	for _, t := range req.Tools {
		params.Tools = append(params.Tools, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openai.String(t.Description),
				Parameters:  openai.FunctionParameters(t.Parameters),
			},
		})
	}

	var reqOpts []option.RequestOption
	for key, value := range c.opts.identifiers(ctx) {
		reqOpts = append(reqOpts, option.WithJSONSet(key, value))
	}

	c.opts.logger.Debug("Sending chat completion", "model", c.model, "messages", len(params.Messages), "tools", len(params.Tools))
	completion, err := c.client.Chat.Completions.New(ctx, params, reqOpts...)
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("chat completion: no choices returned")
	}

	choice := completion.Choices[0].Message
	msg := opspod.Message{Role: opspod.RoleAssistant, Content: choice.Content}
	for _, call := range choice.ToolCalls {
		msg.ToolCalls = append(msg.ToolCalls, opspod.ToolCall{
			ID:        toolCallID(call.ID),
			Name:      call.Function.Name,
			Arguments: call.Function.Arguments,
		})
	}
	return &opspod.ChatResponse{
		Message: msg,
		Usage: opspod.Usage{
			InputTokens:  completion.Usage.PromptTokens,
			OutputTokens: completion.Usage.CompletionTokens,
		},
	}, nil
}

func openAIMessages(req opspod.ChatRequest) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		out = append(out, openai.SystemMessage(req.SystemPrompt))
	}
	for _, m := range req.Messages {
		switch m.Role {
		case opspod.RoleHuman:
			out = append(out, openai.UserMessage(m.Content))
		case opspod.RoleTool:
			out = append(out, openai.ToolMessage(m.Content, m.ToolCallID))
		case opspod.RoleAssistant:
			if len(m.ToolCalls) == 0 {
				out = append(out, openai.AssistantMessage(m.Content))
				continue
			}
			assistant := openai.ChatCompletionAssistantMessageParam{}
			if m.Content != "" {
				assistant.Content.OfString = openai.String(m.Content)
			}
			for _, call := range m.ToolCalls {
				assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallParam{
					ID: call.ID,
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      call.Name,
						Arguments: call.Arguments,
					},
				})
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant})
		}
	}
	return out
}

func (o options) requestOptions() []option.RequestOption {
	var out []option.RequestOption
	if o.baseURL != "" {
		out = append(out, option.WithBaseURL(o.baseURL))
	}
	if o.httpClient != nil {
		out = append(out, option.WithHTTPClient(o.httpClient))
	}
	return out
}
