package jsonx

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoJSONFound is returned when no valid JSON object/array is found
var ErrNoJSONFound = errors.New("no valid JSON object or array found in response")

// Extract pulls a JSON object or array out of a generative-model response
// that may wrap it in markdown fences or surrounding prose.
func Extract(response string) (string, error) {
	if response == "" {
		return "", ErrNoJSONFound
	}

	cleaned := stripMarkdownFence(response)

	if candidate := matchBrackets(cleaned); candidate != "" && json.Valid([]byte(candidate)) {
		return candidate, nil
	}
	if json.Valid([]byte(cleaned)) {
		return cleaned, nil
	}
	return "", ErrNoJSONFound
}

// ExtractTo extracts JSON from response and unmarshals it into target
func ExtractTo(response string, target interface{}) error {
	jsonStr, err := Extract(response)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(jsonStr), target)
}

// stripMarkdownFence removes a ```json ... ``` (or plain ```) wrapper
func stripMarkdownFence(s string) string {
	s = strings.TrimSpace(s)
	start := strings.Index(s, "```")
	if start == -1 {
		return s
	}
	rest := s[start+3:]
	if newline := strings.Index(rest, "\n"); newline != -1 {
		rest = rest[newline+1:]
	}
	if end := strings.LastIndex(rest, "```"); end != -1 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

// matchBrackets returns the substring from the first { or [ to its balanced
// closing bracket, respecting strings and escapes.
func matchBrackets(s string) string {
	start := strings.IndexAny(s, "{[")
	if start == -1 {
		return ""
	}

	open := s[start]
	var close byte = '}'
	if open == '[' {
		close = ']'
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case !inString && ch == open:
			depth++
		case !inString && ch == close:
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
