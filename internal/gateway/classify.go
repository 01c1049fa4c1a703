package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Classify makes a single-shot call that forces JSON-only output. When
// outputSchema is non-empty, it is embedded in the system prompt and the
// response is validated against it before being returned; an invalid
// response is reported as an error and left to the caller's retry
// policy (ClassifyMap retries; Classify itself does not), matching
// spec.md §4.2.
func (gw *GenkitGateway) Classify(ctx context.Context, item, prompt string, outputSchema json.RawMessage) (json.RawMessage, error) {
	if !gw.llmOn {
		return nil, fmt.Errorf("gateway: no model configured")
	}

	system := prompt + "\n\nRespond with JSON only. No prose, no code fences."
	if len(outputSchema) > 0 && string(outputSchema) != "{}" {
		system += "\n\nYour JSON must conform to this JSON Schema:\n" + string(outputSchema)
	}

	resp, err := genkit.Generate(ctx, gw.g,
		ai.WithModelName(gw.model),
		ai.WithSystem(system),
		ai.WithPrompt(item),
	)
	if err != nil {
		return nil, fmt.Errorf("gateway: classify: %w", err)
	}

	raw := extractJSON(resp.Text())
	if raw == "" {
		return nil, fmt.Errorf("gateway: classify: response does not contain valid JSON: %q", resp.Text())
	}

	if len(outputSchema) > 0 && string(outputSchema) != "{}" {
		if err := validateAgainstSchema(raw, outputSchema); err != nil {
			return nil, fmt.Errorf("gateway: classify: schema validation failed: %w", err)
		}
	}
	return json.RawMessage(raw), nil
}

func validateAgainstSchema(rawJSON string, schemaJSON json.RawMessage) error {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(string(schemaJSON)))
	if err != nil {
		return fmt.Errorf("unmarshal schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema.json", doc); err != nil {
		return fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := c.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	parsed, err := jsonschema.UnmarshalJSON(strings.NewReader(rawJSON))
	if err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	return schema.Validate(parsed)
}

// extractJSON strips common code-fence framing and returns the first
// balanced JSON object or array found in text, or "" if none is found.
func extractJSON(text string) string {
	if idx := strings.Index(text, "```json"); idx >= 0 {
		start := idx + len("```json")
		if start < len(text) && text[start] == '\n' {
			start++
		}
		if end := strings.Index(text[start:], "```"); end >= 0 {
			if candidate := strings.TrimSpace(text[start : start+end]); candidate != "" {
				return candidate
			}
		}
	}
	if idx := strings.Index(text, "```"); idx >= 0 {
		start := idx + 3
		if start < len(text) && text[start] == '\n' {
			start++
		}
		if end := strings.Index(text[start:], "```"); end >= 0 {
			candidate := strings.TrimSpace(text[start : start+end])
			if isJSON(candidate) {
				return candidate
			}
		}
	}
	for i := 0; i < len(text); i++ {
		if text[i] == '{' || text[i] == '[' {
			if candidate := extractBalanced(text[i:]); candidate != "" && isJSON(candidate) {
				return candidate
			}
		}
	}
	return ""
}

func isJSON(s string) bool {
	var v any
	return json.Unmarshal([]byte(s), &v) == nil
}

func extractBalanced(s string) string {
	if len(s) == 0 {
		return ""
	}
	open := s[0]
	var closeCh byte
	switch open {
	case '{':
		closeCh = '}'
	case '[':
		closeCh = ']'
	default:
		return ""
	}

	depth, inString, escaped := 0, false, false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' && inString {
			escaped = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		if ch == open {
			depth++
		} else if ch == closeCh {
			depth--
			if depth == 0 {
				return s[:i+1]
			}
		}
	}
	return ""
}
