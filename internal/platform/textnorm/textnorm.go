// Package textnorm normalizes human names for case-insensitive exact matching.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripMarks = runes.Remove(runes.In(unicode.Mn))

// Name lowercases v, strips accents, drops apostrophes, hyphens and dots, and collapses whitespace.
// "Martin Ødegaard" and "martin odegaard" normalize to the same key; "N'Golo Kanté" becomes "ngolo kante".
func Name(v string) string {
	decomposed, _, err := transform.String(transform.Chain(norm.NFD, stripMarks, norm.NFC), v)
	if err != nil {
		decomposed = v
	}

	var b strings.Builder
	b.Grow(len(decomposed))
	space := false
	for _, r := range strings.ToLower(decomposed) {
		switch {
		case r == '\'' || r == '’' || r == '.' || r == '-':
			continue
		case unicode.IsSpace(r):
			space = b.Len() > 0
			continue
		}
		if space {
			b.WriteByte(' ')
			space = false
		}
		b.WriteRune(foldLetter(r))
	}
	return b.String()
}

// foldLetter maps letters that have no canonical decomposition.
func foldLetter(r rune) rune {
	switch r {
	case 'ø':
		return 'o'
	case 'ł':
		return 'l'
	case 'đ':
		return 'd'
	case 'ß':
		return 's'
	case 'æ':
		return 'a'
	case 'ı':
		return 'i'
	default:
		return r
	}
}

// Equal reports whether a and b normalize to the same non-empty key.
func Equal(a, b string) bool {
	na := Name(a)
	return na != "" && na == Name(b)
}
