// Package opspod - tool.go
// Defines the Tool interface and the JSON schema helpers used to describe tool arguments.
package opspod

import (
	"context"
	"encoding/json"

	"github.com/invopop/jsonschema"
)

type Tool interface {
	Name() string
	StatusMessage() string
	Description() string
	// Parameters returns the JSON schema (type "object") of the arguments.
	Parameters() map[string]any
	// Execute runs the tool. Upstream failures are reported inside the
	// returned document; a Go error means the call itself was unusable.
	Execute(ctx context.Context, args map[string]any) (string, error)
}

// Spec converts a Tool into the provider neutral description sent to the model.
func Spec(t Tool) ToolSpec {
	return ToolSpec{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters:  t.Parameters(),
	}
}

// GenerateSchema reflects the JSON schema of T.
func GenerateSchema[T any]() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

// SchemaMap renders a schema as the generic map form expected by the LLM
// providers. Document level keywords ($schema, $id) are dropped.
func SchemaMap(schema *jsonschema.Schema) map[string]any {
	out := map[string]any{}
	b, err := json.Marshal(schema)
	if err != nil {
		return map[string]any{"type": "object"}
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return map[string]any{"type": "object"}
	}
	delete(out, "$schema")
	delete(out, "$id")
	if _, ok := out["type"]; !ok {
		out["type"] = "object"
	}
	return out
}

// DecodeArgs converts the loosely typed arguments produced by the model into T.
// A decoding failure is returned as a RetryableError so the model can fix its call.
func DecodeArgs[T any](args map[string]any) (T, error) {
	var v T
	b, err := json.Marshal(args)
	if err != nil {
		return v, &RetryableError{Err: err}
	}
	if err := json.Unmarshal(b, &v); err != nil {
		return v, &RetryableError{Err: err}
	}
	return v, nil
}
