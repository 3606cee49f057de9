// Package jsonutil decodes JSON out of LLM replies that may wrap the object
// in code fences or surrounding prose.
package jsonutil

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DecodeWithFallback first tries a strict unmarshal, then strips markdown
// code fences, then extracts the first balanced JSON object from the text.
func DecodeWithFallback(raw string, out any) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("empty json text")
	}
	if json.Unmarshal([]byte(raw), out) == nil {
		return nil
	}

	stripped := stripFences(raw)
	if stripped != raw && json.Unmarshal([]byte(stripped), out) == nil {
		return nil
	}

	obj, ok := firstObject(stripped)
	if !ok {
		return fmt.Errorf("no json object found")
	}
	if err := json.Unmarshal([]byte(obj), out); err != nil {
		return fmt.Errorf("decode extracted object: %w", err)
	}
	return nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		// Drop the language tag line ("json").
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// firstObject returns the first brace-balanced object, ignoring braces
// inside string literals.
func firstObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
