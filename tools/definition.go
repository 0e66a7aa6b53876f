package tools

import (
	"context"
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// ToolFunc runs a tool with its raw JSON arguments and returns text for the model.
type ToolFunc func(ctx context.Context, input json.RawMessage) (string, error)

type ToolDefinition struct {
	Name        string
	Description string
	// InputSchema is a JSON Schema object describing the tool arguments.
	InputSchema map[string]any
	Function    ToolFunc
}

// Properties returns the "properties" member of the input schema.
func (d ToolDefinition) Properties() map[string]any {
	if p, ok := d.InputSchema["properties"].(map[string]any); ok {
		return p
	}
	return map[string]any{}
}

// Required returns the "required" member of the input schema.
func (d ToolDefinition) Required() []string {
	switch r := d.InputSchema["required"].(type) {
	case []string:
		return r
	case []any:
		out := make([]string, 0, len(r))
		for _, v := range r {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// GenerateSchema reflects T into an inline JSON Schema object.
func GenerateSchema[T any]() map[string]any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)

	b, err := json.Marshal(schema)
	if err != nil {
		panic("tools: marshal schema: " + err.Error())
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		panic("tools: unmarshal schema: " + err.Error())
	}
	// Providers and validators only need the object schema itself.
	delete(out, "$schema")
	delete(out, "$id")
	return out
}
