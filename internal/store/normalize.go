package store

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var foldTransformer = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

var lowerCaser = cases.Lower(language.Und)

// NormalizeEntityName produces the lookup key for entity similarity:
// accents stripped, case folded, whitespace collapsed. "José  PÉREZ"
// and "jose perez" normalize to the same key.
func NormalizeEntityName(name string) string {
	folded, _, err := transform.String(foldTransformer, name)
	if err != nil {
		folded = name
	}
	folded = lowerCaser.String(folded)
	return strings.Join(strings.Fields(folded), " ")
}
