package analyst

import (
	"regexp"
	"strings"
)

var (
	sqlFence    = regexp.MustCompile("(?i)```sql\\b")
	hintedFence = regexp.MustCompile("(?im)```[ \t]*[a-z0-9_+.-]*[ \t]*\r?$")
)

// Normalize strips markdown code fences from text produced by a model and
// trims the surrounding whitespace. Opening fences may carry a language hint
// in any case. The result never contains a fence, so Normalize is idempotent.
func Normalize(raw string) string {
	s := sqlFence.ReplaceAllString(raw, "")
	s = hintedFence.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "```", "")

	return strings.TrimSpace(s)
}

// WantsExecution reports if the produced text should be executed as SQL. The
// check is a case-insensitive search for "select" anywhere in the text.
func WantsExecution(text string) bool {
	return strings.Contains(strings.ToLower(text), "select")
}
