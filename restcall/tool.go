package restcall

import (
	"context"
	"log/slog"

	"github.com/boat-builder/opspod"
)

var _ opspod.Tool = &EndpointTool{}
var _ opspod.Tool = &FuncTool{}

// EndpointTool exposes one Endpoint to the model.
type EndpointTool struct {
	endpoint Endpoint
	client   *Client
	schema   map[string]any
	logger   *slog.Logger
}

func NewEndpointTool(client *Client, endpoint Endpoint) *EndpointTool {
	return &EndpointTool{
		endpoint: endpoint,
		client:   client,
		schema:   endpoint.Schema(),
		logger:   slog.Default(),
	}
}

// Tools wraps every endpoint of a table.
func Tools(client *Client, endpoints []Endpoint) []opspod.Tool {
	tools := make([]opspod.Tool, 0, len(endpoints))
	for _, e := range endpoints {
		tools = append(tools, NewEndpointTool(client, e))
	}
	return tools
}

func (t *EndpointTool) Name() string               { return t.endpoint.Name }
func (t *EndpointTool) Description() string        { return describe(t.endpoint) }
func (t *EndpointTool) StatusMessage() string      { return t.endpoint.StatusMessage }
func (t *EndpointTool) Parameters() map[string]any { return t.schema }
func (t *EndpointTool) Endpoint() Endpoint         { return t.endpoint }

// Execute builds the request and calls upstream once. Argument problems are
// returned as retryable errors; upstream failures become {"error": ...}.
func (t *EndpointTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	req, err := t.endpoint.BuildRequest(Args(args))
	if err != nil {
		return "", err
	}
	t.logger.Debug("Calling endpoint", "tool", t.endpoint.Name, "method", req.Method, "path", req.Path)
	return t.client.Do(ctx, req).JSON(), nil
}

// FuncTool is a tool whose request building is custom code.
type FuncTool struct {
	name          string
	description   string
	statusMessage string
	schema        map[string]any
	fn            func(ctx context.Context, args Args) (string, error)
}

func NewFuncTool(name, description, statusMessage string, schema map[string]any, fn func(ctx context.Context, args Args) (string, error)) *FuncTool {
	return &FuncTool{
		name:          name,
		description:   description,
		statusMessage: statusMessage,
		schema:        schema,
		fn:            fn,
	}
}

func (t *FuncTool) Name() string               { return t.name }
func (t *FuncTool) Description() string        { return t.description }
func (t *FuncTool) StatusMessage() string      { return t.statusMessage }
func (t *FuncTool) Parameters() map[string]any { return t.schema }

func (t *FuncTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	return t.fn(ctx, Args(args))
}
