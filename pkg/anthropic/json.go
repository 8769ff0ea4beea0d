package anthropic

import "strings"

// ExtractText concatenates all text content blocks from a message response.
func ExtractText(resp *MessageResponse) string {
	if resp == nil {
		return ""
	}
	var parts []string
	for _, block := range resp.Content {
		if block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// CleanJSON attempts to extract a JSON object or array from text that may
// contain markdown code fences or surrounding prose.
func CleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}
	text = strings.TrimSpace(text)

	// Pick whichever of {...} or [...] starts first and spans furthest.
	objStart := strings.Index(text, "{")
	arrStart := strings.Index(text, "[")

	if arrStart >= 0 && (objStart < 0 || arrStart < objStart) {
		if end := strings.LastIndex(text, "]"); end > arrStart {
			return text[arrStart : end+1]
		}
	}
	if objStart >= 0 {
		if end := strings.LastIndex(text, "}"); end > objStart {
			return text[objStart : end+1]
		}
	}

	return text
}
