package llm

import (
	"fmt"
	"strings"
)

// ExtractJSONPayload recovers the JSON object from a chat completion that
// wrapped it in markdown fences or prose. We only touch the envelope, never
// the object body.
func ExtractJSONPayload(content string) ([]byte, error) {
	s := strings.TrimSpace(content)

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON object in content")
	}
	return []byte(s[start : end+1]), nil
}

var refusalMarkers = []string{
	"i can't help",
	"i cannot help",
	"i'm sorry, but",
	"i am sorry, but",
	"i can't assist",
	"i cannot assist",
	"as an ai",
}

// LooksLikeRefusal reports whether the content reads as a policy refusal
// rather than an attempt at the task.
func LooksLikeRefusal(content string) bool {
	s := strings.ToLower(strings.TrimSpace(content))
	if s == "" {
		return true
	}
	for _, m := range refusalMarkers {
		if strings.HasPrefix(s, m) {
			return true
		}
	}
	return false
}
