// Package tokenizer provides text tokenisation for the search engine.
// It lower-cases input, treats every rune that is not a letter, digit or
// underscore as a separator, and removes stop-words on request.
package tokenizer

import (
	"strings"
	"unicode"
)

var stopWordsByLanguage = map[string][]string{
	"ru": {"и", "в", "на", "с", "по", "для", "не", "что", "это", "как"},
	"en": {
		"a", "an", "and", "are", "as", "at", "be", "by", "for", "from",
		"in", "is", "it", "of", "on", "or", "that", "the", "to", "was",
		"were", "with", "this",
	},
}

// DefaultLanguages lists the stop-word sets used when none are configured.
var DefaultLanguages = []string{"ru", "en"}

var defaultTokenizer = New(DefaultLanguages...)

// Tokenizer holds an immutable stop-word set. It is safe for concurrent use.
type Tokenizer struct {
	stopWords map[string]struct{}
}

// New builds a Tokenizer whose stop-word set is the union of the given
// languages. Unknown languages contribute nothing.
func New(languages ...string) *Tokenizer {
	sw := make(map[string]struct{})
	for _, lang := range languages {
		for _, w := range stopWordsByLanguage[lang] {
			sw[w] = struct{}{}
		}
	}
	return &Tokenizer{stopWords: sw}
}

// Tokenize lower-cases text, replaces every rune that is not a letter, digit
// or underscore with a separator and returns the remaining words in order.
// Duplicates are preserved.
func (t *Tokenizer) Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), isSeparator)
}

// RemoveStopwords drops tokens present in the stop-word set, preserving order.
func (t *Tokenizer) RemoveStopwords(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if _, isStop := t.stopWords[tok]; isStop {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// QueryTerms is the query-side pipeline: Tokenize followed by RemoveStopwords.
func (t *Tokenizer) QueryTerms(query string) []string {
	return t.RemoveStopwords(t.Tokenize(query))
}

// IsStopword reports whether term is in the stop-word set.
func (t *Tokenizer) IsStopword(term string) bool {
	_, ok := t.stopWords[term]
	return ok
}

// Tokenize runs the default tokenizer.
func Tokenize(text string) []string {
	return defaultTokenizer.Tokenize(text)
}

// RemoveStopwords runs the default tokenizer's stop-word filter.
func RemoveStopwords(tokens []string) []string {
	return defaultTokenizer.RemoveStopwords(tokens)
}

// Default returns the shared tokenizer built from DefaultLanguages.
func Default() *Tokenizer {
	return defaultTokenizer
}

func isSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
}
