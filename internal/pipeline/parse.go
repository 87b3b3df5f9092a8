package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"
)

// extractJSON pulls a JSON object out of a model response that may wrap it in
// markdown code fences or surrounding prose. Returns the raw object text from
// the first '{' to the last '}'.
func extractJSON(s string) (string, error) {
	s = strings.TrimSpace(s)

	// Strip a markdown code fence if present (```json ... ``` or ``` ... ```).
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return "", fmt.Errorf("no JSON object found in response")
	}
	return s[start : end+1], nil
}

// decodeModelJSON extracts and unmarshals a JSON object from a model response.
func decodeModelJSON(response string, v any) error {
	raw, err := extractJSON(response)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("unmarshaling model JSON: %w", err)
	}
	return nil
}
