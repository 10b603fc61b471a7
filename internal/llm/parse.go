package llm

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoJSON indicates no JSON object could be recovered from a response.
var ErrNoJSON = errors.New("no JSON object found in response")

// DecodeStructured extracts a JSON object from raw model output. It
// tries a direct parse, then a fenced code block, then the outermost
// brace span. Models without a native JSON output mode routinely wrap
// the object in prose or markdown fences.
func DecodeStructured(content string) (map[string]any, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, ErrNoJSON
	}

	var result map[string]any
	if err := json.Unmarshal([]byte(trimmed), &result); err == nil {
		return result, nil
	}

	if fenced, ok := extractFencedBlock(trimmed); ok {
		if err := json.Unmarshal([]byte(fenced), &result); err == nil {
			return result, nil
		}
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(trimmed[start:end+1]), &result); err == nil {
			return result, nil
		}
	}

	return nil, ErrNoJSON
}

func extractFencedBlock(s string) (string, bool) {
	open := strings.Index(s, "```")
	if open < 0 {
		return "", false
	}
	rest := s[open+3:]
	if nl := strings.Index(rest, "\n"); nl >= 0 {
		// skip a language tag like ```json
		rest = rest[nl+1:]
	}
	close := strings.Index(rest, "```")
	if close < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:close]), true
}

// truncationRatio marks completions that consumed nearly the whole
// token budget as likely cut off mid-object.
const truncationRatio = 0.95

// LikelyTruncated reports whether a completion probably hit the token cap.
func LikelyTruncated(usage Usage, maxTokens int) bool {
	if maxTokens <= 0 || usage.CompletionTokens <= 0 {
		return false
	}
	return float64(usage.CompletionTokens) >= truncationRatio*float64(maxTokens)
}
