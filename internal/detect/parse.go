package detect

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/a3tai/mcp-form-filler/internal/form"
)

// ErrNoJSONArray is returned when a reply contains no bracketed array
var ErrNoJSONArray = errors.New("no JSON array found in response")

const fieldSchemaJSON = `{
  "type": "object",
  "required": ["name", "x", "y"],
  "properties": {
    "name":   {"type": "string", "minLength": 1},
    "value":  {"type": ["string", "null"]},
    "x":      {"type": "number", "minimum": 0},
    "y":      {"type": "number", "minimum": 0},
    "width":  {"type": "number", "minimum": 0},
    "height": {"type": "number", "minimum": 0}
  }
}`

var (
	fieldSchema  = jsonschema.MustCompileString("field.json", fieldSchemaJSON)
	codeFence    = regexp.MustCompile("```[a-zA-Z]*")
	controlChars = regexp.MustCompile(`[\x00-\x1f\x7f]`)
)

// ParseFields extracts the field list from a model reply. Code fences and
// control characters are removed, then everything from the first '[' to the
// last ']' is decoded. Elements that do not match the field schema are
// dropped and logged.
func ParseFields(raw string) ([]form.Field, error) {
	cleaned := codeFence.ReplaceAllString(raw, "")
	cleaned = controlChars.ReplaceAllString(cleaned, " ")

	start := strings.Index(cleaned, "[")
	end := strings.LastIndex(cleaned, "]")
	if start < 0 || end <= start {
		return nil, ErrNoJSONArray
	}

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &items); err != nil {
		return nil, fmt.Errorf("malformed JSON array: %w", err)
	}

	fields := make([]form.Field, 0, len(items))
	for i, item := range items {
		field, err := decodeField(item)
		if err != nil {
			log.Printf("detect: dropping field %d: %v", i, err)
			continue
		}
		fields = append(fields, field)
	}
	return fields, nil
}

func decodeField(item json.RawMessage) (form.Field, error) {
	var v any
	if err := json.Unmarshal(item, &v); err != nil {
		return form.Field{}, fmt.Errorf("unmarshal: %w", err)
	}
	if err := fieldSchema.Validate(v); err != nil {
		return form.Field{}, fmt.Errorf("does not match schema: %w", err)
	}

	var f form.Field
	if err := json.Unmarshal(item, &f); err != nil {
		return form.Field{}, fmt.Errorf("decode: %w", err)
	}
	f.Name = strings.TrimSpace(f.Name)
	f.Value = strings.TrimSpace(f.Value)
	if f.Name == "" {
		return form.Field{}, fmt.Errorf("blank name")
	}
	return f, nil
}
