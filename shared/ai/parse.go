package ai

import (
	"fmt"
	"strings"
)

// ExtractJSON pulls the first JSON object out of a model response. Models
// routinely wrap JSON in prose or code fences, so we scan for the outermost
// braces instead of unmarshalling the raw text.
func ExtractJSON(response string) (string, error) {
	startIdx := strings.Index(response, "{")
	endIdx := strings.LastIndex(response, "}")
	if startIdx == -1 || endIdx == -1 || endIdx < startIdx {
		return "", fmt.Errorf("no JSON found in response: %s", truncate(response, 200))
	}
	return response[startIdx : endIdx+1], nil
}

// SanitizeJSON repairs the most common malformation in model-produced JSON:
// unescaped quotes inside string values. It works line by line, escaping
// quotes between the first and last quote of each string value.
func SanitizeJSON(jsonStr string) string {
	lines := strings.Split(jsonStr, "\n")
	var sanitized []string

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if colonIdx := strings.Index(line, ":"); colonIdx != -1 && strings.Contains(line, "\"") {
			beforeColon := line[:colonIdx+1]
			afterColon := strings.TrimSpace(line[colonIdx+1:])

			if strings.HasPrefix(afterColon, "\"") {
				lastQuoteIdx := strings.LastIndex(afterColon, "\"")
				if lastQuoteIdx > 0 {
					content := afterColon[1:lastQuoteIdx]
					content = strings.ReplaceAll(content, "\\\"", "\"")
					content = strings.ReplaceAll(content, "\"", "\\\"")
					remainder := afterColon[lastQuoteIdx+1:]
					line = beforeColon + " \"" + content + "\"" + remainder
				}
			}
		}

		sanitized = append(sanitized, line)
	}

	return strings.Join(sanitized, "\n")
}

func truncate(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	return s[:maxLength] + "..."
}
