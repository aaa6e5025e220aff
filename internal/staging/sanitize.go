package staging

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// maxTextLength caps sanitized descriptions and payees. Bank exports
// occasionally pad fields to hundreds of characters; the ledger keeps
// them reviewable.
const maxTextLength = 255

// textCleaner normalizes to NFC and strips control characters that leak
// out of quoted CSV fields.
var textCleaner = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Cc)), norm.NFC)

// SanitizeText trims, normalizes unicode, removes control characters,
// collapses internal whitespace runs, and caps the length of a free-text
// field before it becomes a description or payee.
func SanitizeText(s string) string {
	cleaned, _, err := transform.String(textCleaner, s)
	if err != nil {
		// Fall back to the raw string minus control characters.
		cleaned = strings.Map(func(r rune) rune {
			if unicode.IsControl(r) {
				return -1
			}
			return r
		}, s)
	}

	cleaned = strings.Join(strings.Fields(cleaned), " ")

	if len(cleaned) > maxTextLength {
		runes := []rune(cleaned)
		if len(runes) > maxTextLength {
			cleaned = string(runes[:maxTextLength])
		}
	}

	return cleaned
}
