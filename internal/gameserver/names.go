package gameserver

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// NormalizeName cleans a client-supplied display name: NFC form, control
// characters removed, surrounding space trimmed, at most maxRunes runes.
// A name that is blank afterwards becomes fallback.
func NormalizeName(raw, fallback string, maxRunes int) string {
	name := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, norm.NFC.String(raw))
	name = strings.TrimSpace(name)
	if maxRunes > 0 {
		if runes := []rune(name); len(runes) > maxRunes {
			name = strings.TrimSpace(string(runes[:maxRunes]))
		}
	}
	if name == "" {
		return fallback
	}
	return name
}
