package recon

import (
	"strings"
	"unicode"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// NameRatio returns a similarity ratio in [0,1] between two counterparty
// names. Names are lowercased, stripped of punctuation, and whitespace
// collapsed before comparison. 1 means identical after normalization, 0 means
// no usable comparison (either side empty after normalization).
func NameRatio(a, b string) float64 {
	na := normalizeName(a)
	nb := normalizeName(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}

	ra := []rune(na)
	rb := []rune(nb)
	distance := levenshtein.DistanceForStrings(ra, rb, levenshtein.DefaultOptions)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	return 1 - float64(distance)/float64(longest)
}

// normalizeName lowercases, drops everything but letters, digits, and spaces,
// and collapses runs of whitespace to a single space.
func normalizeName(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
