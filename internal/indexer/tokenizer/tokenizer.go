// Package tokenizer provides text tokenisation for the ranking engine.
// It splits input on the space character, keeps only letters and digits
// of every fragment, and lower-cases the result.
package tokenizer

import (
	"strings"
	"unicode"
)

// Tokenize breaks text into an ordered slice of normalised terms. Fragments
// that contain no letter or digit are dropped.
func Tokenize(text string) []string {
	fragments := strings.Split(text, " ")
	tokens := make([]string, 0, len(fragments))
	for _, fragment := range fragments {
		term := Normalize(fragment)
		if term == "" {
			continue
		}
		tokens = append(tokens, term)
	}
	return tokens
}

// Normalize filters a single fragment down to its lower-cased letters and
// digits. It returns "" when nothing survives.
func Normalize(fragment string) string {
	var sb strings.Builder
	sb.Grow(len(fragment))
	for _, r := range fragment {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
		}
	}
	return strings.ToLower(sb.String())
}
