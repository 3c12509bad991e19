package domain

import (
	"regexp"
	"strings"
)

var (
	// An opening fence may carry a SQL language tag, either alone on the
	// fence line ("```postgresql\n") or inline ("```sql SELECT"). Any other
	// word after the fence is statement text and stays.
	leadingFence  = regexp.MustCompile("(?i)^```(?:(?:sql|postgresql|postgres|pgsql|psql)(?:[ \\t]*\\n|\\s+)|[ \\t]*\\n)?")
	trailingFence = regexp.MustCompile("\\s*```$")
)

// Sanitize strips markdown code fences that language models like to wrap
// SQL in. Only the edges of the trimmed text are touched; fences are removed
// until none remain at either end, so Sanitize is idempotent.
func Sanitize(text string) string {
	s := strings.TrimSpace(text)
	for {
		next := leadingFence.ReplaceAllString(s, "")
		next = trailingFence.ReplaceAllString(next, "")
		next = strings.TrimSpace(next)
		if next == s {
			return s
		}
		s = next
	}
}
