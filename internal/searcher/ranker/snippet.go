package ranker

import "strings"

const (
	SnippetWords = 10
	Ellipsis     = "..."
)

// Snippet returns a plain preview of text: the first SnippetWords
// whitespace-separated words followed by Ellipsis, or text unchanged when it
// is short enough. Query terms do not affect the preview; front ends that
// highlight matches do so on top of it.
func Snippet(text string, _ []string) string {
	words := strings.Fields(text)
	if len(words) <= SnippetWords {
		return text
	}
	return strings.Join(words[:SnippetWords], " ") + Ellipsis
}
