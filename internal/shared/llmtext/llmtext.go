// Package llmtext cleans and mines structured data out of raw LLM output.
//
// Task endpoints return free text that is only expected to *contain* a JSON
// object; callers use ExtractObject to carve it out and fall back to a typed
// default when nothing usable is found.
package llmtext

import (
	"encoding/json"
	"strings"

	"github.com/forPelevin/gomoji"
)

// quoteNormalizer rewrites the stylized quote variants some models emit into
// plain double quotes so the JSON parser has a chance.
var quoteNormalizer = strings.NewReplacer("'", `"`, "’", `"`, "‘", `"`, "`", `"`)

// ExtractObject extracts a JSON object embedded in arbitrary text.
//
// The text is quote-normalized, then the span from the first '{' to the last
// '}' is parsed as strict JSON. The span is first-to-last, not brace-matched:
// a brace inside a string literal before the real object, or two objects in
// one response, can produce a span that fails to parse. That limitation is
// part of the contract; callers substitute their per-task fallback on ok=false.
func ExtractObject(text string) (map[string]any, bool) {
	sanitized := quoteNormalizer.Replace(text)

	start := strings.Index(sanitized, "{")
	end := strings.LastIndex(sanitized, "}")
	if start == -1 || end == -1 || end < start {
		return nil, false
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(sanitized[start:end+1]), &obj); err != nil {
		return nil, false
	}
	return obj, true
}

// StripQuotes removes plain double and single quote characters. The emoji
// task strips them before scanning because models like to quote their answer.
func StripQuotes(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '"' || r == '\'' {
			return -1
		}
		return r
	}, s)
}

// FirstPictograph returns the first extended-pictographic code point in s,
// or "" when there is none.
func FirstPictograph(s string) string {
	for _, r := range s {
		if gomoji.ContainsEmoji(string(r)) {
			return string(r)
		}
	}
	return ""
}

// Truncate shortens a string to at most n characters, adding "..." if it was truncated.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
