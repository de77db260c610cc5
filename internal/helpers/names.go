package helpers

import (
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Strips combining marks so that "café" becomes "cafe". This keeps generated
// names readable for module specifiers with accented file names, which would
// otherwise collapse into runs of underscores.
func FoldAccents(text string) string {
	// Transformers carry state, so each call gets its own chain
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(folder, text)
	if err != nil {
		return text
	}
	return folded
}
