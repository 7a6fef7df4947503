package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Generate returns a URL-friendly slug. Accents are stripped by decomposing
// the string and dropping combining marks, so Spanish names keep their
// letters:
//
//   - "Peluche Kuromi Pequeño" → "peluche-kuromi-pequeno"
//   - "Té Matcha Edición Sakura" → "te-matcha-edicion-sakura"
//   - "  Hello   World! " → "hello-world"
//
// Characters with no ASCII decomposition (kana, kanji) are dropped.
func Generate(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}
	s := strings.ToLower(folded)
	s = nonAlnum.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
