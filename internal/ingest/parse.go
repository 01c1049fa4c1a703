package ingest

import (
	"encoding/json"
	"fmt"
	"strings"
)

// parseLine dispatches one transcript line against the closed set of
// shapes in §6: message/human/assistant/tool_result, first match wins,
// anything else is skipped. A false return means "no message to
// insert" — either the line didn't parse, matched no shape, or matched
// a shape whose content extracted empty.
func parseLine(raw []byte) (role, content string, ok bool) {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", "", false
	}

	typ, _ := obj["type"].(string)
	switch typ {
	case "message":
		role, _ := obj["role"].(string)
		c := extractContent(obj["content"])
		if c == "" {
			return "", "", false
		}
		return role, c, true

	case "human":
		c := extractContent(messageOrContent(obj))
		if c == "" {
			return "", "", false
		}
		return "user", c, true

	case "assistant":
		c := extractContent(messageOrContent(obj))
		if c == "" {
			return "", "", false
		}
		return "assistant", c, true

	case "tool_result":
		c, _ := obj["content"].(string)
		if c == "" {
			return "", "", false
		}
		return "tool", truncate(c, 1000), true

	default:
		return "", "", false
	}
}

// messageOrContent picks whichever of "message"/"content" is present,
// per §6's "{type:\"human\", message|content}" shape.
func messageOrContent(obj map[string]any) any {
	if v, present := obj["message"]; present {
		return v
	}
	return obj["content"]
}

// extractContent implements §6's content-extraction rule: a bare string
// passes through; an array of parts is rendered per-part and joined
// with newlines.
func extractContent(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []any:
		parts := make([]string, 0, len(val))
		for _, p := range val {
			if s, ok := p.(string); ok {
				parts = append(parts, s)
				continue
			}
			pm, ok := p.(map[string]any)
			if !ok {
				continue
			}
			if rendered, ok := renderPart(pm); ok {
				parts = append(parts, rendered)
			}
		}
		return strings.Join(parts, "\n")
	default:
		return ""
	}
}

func renderPart(pm map[string]any) (string, bool) {
	switch pt, _ := pm["type"].(string); pt {
	case "text":
		t, _ := pm["text"].(string)
		return t, true
	case "tool_use":
		name, _ := pm["name"].(string)
		inputJSON, _ := json.Marshal(pm["input"])
		return fmt.Sprintf("[Tool: %s(%s)]", name, truncate(string(inputJSON), 200)), true
	case "tool_result":
		c, _ := pm["content"].(string)
		return fmt.Sprintf("[ToolResult: %s]", truncate(c, 500)), true
	default:
		return "", false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
