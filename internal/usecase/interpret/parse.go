package interpret

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kailas-cloud/receiptdex/internal/domain"
)

// extractObject pulls the single JSON object out of a model reply.
// Fences and surrounding prose are tolerated; arrays, scalars and bare text are not.
func extractObject(text string) (map[string]json.RawMessage, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")

	if strings.HasPrefix(text, "[") {
		return nil, fmt.Errorf("reply is a JSON array: %w", domain.ErrMalformedModelOutput)
	}
	start := strings.Index(text, "{")
	if start == -1 {
		return nil, fmt.Errorf("no JSON object in reply: %w", domain.ErrMalformedModelOutput)
	}
	end := strings.LastIndex(text, "}")
	if end < start {
		return nil, fmt.Errorf("unterminated JSON object: %w", domain.ErrMalformedModelOutput)
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text[start:end+1]), &obj); err != nil {
		return nil, fmt.Errorf("decode reply: %w: %w", err, domain.ErrMalformedModelOutput)
	}
	if obj == nil {
		return nil, fmt.Errorf("reply is null: %w", domain.ErrMalformedModelOutput)
	}
	return obj, nil
}

// decodeValue decodes one attribute value keeping numbers exact.
func decodeValue(raw json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}
	return v, nil
}

// scalar renders a JSON string or number as text.
func scalar(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	default:
		return "", false
	}
}
