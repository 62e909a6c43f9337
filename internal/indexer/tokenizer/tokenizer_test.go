package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect []string
	}{
		{"punctuation is stripped", "Привет, мир!", []string{"привет", "мир"}},
		{"empty text", "", []string{}},
		{"whitespace only", "  \t\n ", []string{}},
		{"underscore kept", "snake_case value", []string{"snake_case", "value"}},
		{"digits kept", "Go 1.25 release", []string{"go", "1", "25", "release"}},
		{"duplicates preserved", "the cat, the hat", []string{"the", "cat", "the", "hat"}},
		{"mixed scripts", "Weather/погода", []string{"weather", "погода"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.input)
			if len(tt.expect) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.expect, got)
		})
	}
}

func TestRemoveStopwords(t *testing.T) {
	tokens := []string{"это", "тестовый", "текст", "и", "пример"}
	assert.Equal(t, []string{"тестовый", "текст", "пример"}, RemoveStopwords(tokens))

	english := []string{"weather", "in", "the", "moscow"}
	assert.Equal(t, []string{"weather", "moscow"}, RemoveStopwords(english))
}

func TestNew_LanguageSelection(t *testing.T) {
	ru := New("ru")
	assert.True(t, ru.IsStopword("и"))
	assert.False(t, ru.IsStopword("the"))

	en := New("en")
	assert.True(t, en.IsStopword("the"))
	assert.False(t, en.IsStopword("и"))

	none := New("xx")
	assert.Equal(t, []string{"и", "the"}, none.RemoveStopwords([]string{"и", "the"}))
}

func TestQueryTerms(t *testing.T) {
	assert.Equal(t, []string{"weather", "moscow"}, Default().QueryTerms("Weather in Moscow?"))
	assert.Empty(t, Default().QueryTerms("and the in"))
}
