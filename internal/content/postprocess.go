// File: internal/content/postprocess.go
package content

import (
	"regexp"
	"strings"
)

var (
	newlineRunPattern = regexp.MustCompile(`\n{3,}`)
	hashtagPattern    = regexp.MustCompile(`#[a-zA-Z0-9]+`)
)

// NormalizePost rewrites generated post text into publishing shape:
// every hashtag moves to a single trailing line in order of appearance,
// and runs of three or more newlines collapse to one blank line.
// Stripping runs before the collapse; a tag on its own line must not
// leave a fresh newline run in the output. Idempotent on its own output.
func NormalizePost(text string) string {
	tags := hashtagPattern.FindAllString(text, -1)
	normalized := hashtagPattern.ReplaceAllString(text, "")
	normalized = newlineRunPattern.ReplaceAllString(normalized, "\n\n")
	normalized = strings.TrimSpace(normalized)

	if len(tags) > 0 {
		normalized += "\n\n" + strings.Join(tags, " ")
	}
	return normalized
}
