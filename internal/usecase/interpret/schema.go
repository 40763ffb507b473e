package interpret

import (
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// conditionSchema accepts the three condition shapes. equals may arrive bare
// or wrapped in {"equals": v}; contains takes one keyword or a list that must
// all match.
const conditionSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "definitions": {
    "scalar": {"type": ["string", "number"]}
  },
  "oneOf": [
    {"$ref": "#/definitions/scalar"},
    {
      "type": "object",
      "properties": {"equals": {"$ref": "#/definitions/scalar"}},
      "required": ["equals"],
      "additionalProperties": false
    },
    {
      "type": "object",
      "properties": {
        "contains": {
          "oneOf": [
            {"type": "string"},
            {"type": "array", "items": {"type": "string"}, "minItems": 1}
          ]
        }
      },
      "required": ["contains"],
      "additionalProperties": false
    },
    {
      "type": "object",
      "properties": {
        "between": {
          "type": "array",
          "items": {"$ref": "#/definitions/scalar"},
          "minItems": 2,
          "maxItems": 2
        }
      },
      "required": ["between"],
      "additionalProperties": false
    }
  ]
}`

func compileConditionSchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("condition.json", strings.NewReader(conditionSchema)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("condition.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}
