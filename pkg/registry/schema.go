package registry

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/invopop/jsonschema"
	"github.com/mitchellh/mapstructure"

	mcperrors "github.com/mcpkit/mcp-engine-go/pkg/errors"
)

// inputSchema is the subset of JSON Schema a tool declares for its
// arguments: an object with typed properties and a required list.
type inputSchema struct {
	Type       string                    `json:"type"`
	Properties map[string]schemaProperty `json:"properties"`
	Required   []string                  `json:"required"`
}

type schemaProperty struct {
	Type string `json:"type"`
}

// ObjectSchema builds an object schema from property names and their JSON
// Schema types, for tools that declare arguments by hand.
func ObjectSchema(properties map[string]string, required []string) json.RawMessage {
	s := inputSchema{Type: "object", Properties: map[string]schemaProperty{}, Required: required}
	for name, typ := range properties {
		s.Properties[name] = schemaProperty{Type: typ}
	}
	data, _ := json.Marshal(s)
	return data
}

// SchemaFor generates a JSON Schema for a tool's argument struct. Tools
// registered from typed argument structs get their inputSchema for free.
func SchemaFor(v interface{}) (json.RawMessage, error) {
	reflector := jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	schema := reflector.Reflect(v)
	data, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return data, nil
}

// DecodeArguments maps validated arguments onto a typed struct.
func DecodeArguments(args map[string]interface{}, out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  out,
		TagName: "json",
	})
	if err != nil {
		return fmt.Errorf("failed to build argument decoder: %w", err)
	}
	if err := decoder.Decode(args); err != nil {
		return fmt.Errorf("failed to decode arguments: %w", err)
	}
	return nil
}

// validateArguments checks raw call arguments against a tool's declared
// schema: every required property present, every known property of the
// declared type. Properties the schema does not declare pass through.
func validateArguments(entry string, schemaJSON, argsJSON json.RawMessage) (map[string]interface{}, error) {
	args := map[string]interface{}{}
	if len(argsJSON) > 0 {
		if err := json.Unmarshal(argsJSON, &args); err != nil {
			return nil, mcperrors.ArgumentValidation(entry, nil, nil).
				WithDetail("arguments are not a JSON object")
		}
	}

	if len(schemaJSON) == 0 {
		return args, nil
	}
	var schema inputSchema
	if err := json.Unmarshal(schemaJSON, &schema); err != nil {
		// An undecodable schema is the registrant's bug, not the caller's.
		return nil, mcperrors.Internal("argument validation", err)
	}

	var missing, invalid []string
	for _, name := range schema.Required {
		if _, ok := args[name]; !ok {
			missing = append(missing, name)
		}
	}
	for name, value := range args {
		prop, ok := schema.Properties[name]
		if !ok || prop.Type == "" {
			continue
		}
		if !matchesType(value, prop.Type) {
			invalid = append(invalid, name)
		}
	}

	if len(missing) > 0 || len(invalid) > 0 {
		sort.Strings(missing)
		sort.Strings(invalid)
		return nil, mcperrors.ArgumentValidation(entry, missing, invalid)
	}
	return args, nil
}

func matchesType(value interface{}, schemaType string) bool {
	switch schemaType {
	case "string":
		_, ok := value.(string)
		return ok
	case "number":
		_, ok := value.(float64)
		return ok
	case "integer":
		f, ok := value.(float64)
		return ok && f == float64(int64(f))
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "array":
		_, ok := value.([]interface{})
		return ok
	case "object":
		_, ok := value.(map[string]interface{})
		return ok
	case "null":
		return value == nil
	default:
		return true
	}
}
