package puzzle

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// fold strips combining marks so "É" and "E" compare equal.
// A new chain is built per call; transformers are stateful.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// NormalizeWord uppercases word after removing accents.
func NormalizeWord(word string) string {
	return strings.ToUpper(fold(word))
}

// IsGuessable reports whether r is a letter that starts hidden.
func IsGuessable(r rune) bool {
	return r >= 'A' && r <= 'Z'
}

// NormalizeLetter converts raw client input into a guessable letter.
//
// Postcondition: Returns (letter, true) only when raw is exactly one letter
// that folds to A-Z; otherwise (0, false).
func NormalizeLetter(raw string) (rune, bool) {
	s := NormalizeWord(strings.TrimSpace(raw))
	if utf8.RuneCountInString(s) != 1 {
		return 0, false
	}
	r, _ := utf8.DecodeRuneInString(s)
	if !IsGuessable(r) {
		return 0, false
	}
	return r, true
}
