package tui

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/charmbracelet/lipgloss"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher"
)

// FormatResults renders resp as numbered "N. <id> (score: S)" lines, each
// followed by its indented snippet. highlight, when set, decorates the
// snippet.
func FormatResults(resp *searcher.Response, highlight func(snippet string, terms []string) string) string {
	if resp == nil || len(resp.Results) == 0 {
		return "Nothing found."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Documents found: %d\n", len(resp.Results))
	for i, r := range resp.Results {
		snippet := r.Snippet
		if highlight != nil {
			snippet = highlight(snippet, resp.Terms)
		}
		fmt.Fprintf(&b, "\n%d. %s (score: %.3f)\n   %s", i+1, r.DocID, r.Score, snippet)
	}
	return b.String()
}

var highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)

// Highlight renders every word of text whose normalised form is one of terms
// with style. Punctuation and spacing are preserved.
func Highlight(text string, terms []string, style lipgloss.Style) string {
	if len(terms) == 0 || text == "" {
		return text
	}
	want := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		want[t] = struct{}{}
	}

	var b strings.Builder
	runes := []rune(text)
	for i := 0; i < len(runes); {
		if !isWordRune(runes[i]) {
			b.WriteRune(runes[i])
			i++
			continue
		}
		j := i
		for j < len(runes) && isWordRune(runes[j]) {
			j++
		}
		word := string(runes[i:j])
		if _, ok := want[strings.ToLower(word)]; ok {
			b.WriteString(style.Render(word))
		} else {
			b.WriteString(word)
		}
		i = j
	}
	return b.String()
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func highlightTerms(snippet string, terms []string) string {
	return Highlight(snippet, terms, highlightStyle)
}
