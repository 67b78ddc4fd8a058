// Package variant produces the surface forms an Arabic word can take in
// running text and compiles them into a matcher.
//
// Generation attaches the single-letter prepositions and conjunctions
// (ب و ك ف ل) to the word and, for words carrying the definite article or an
// initial alef, substitutes the compound prefixes لل, وب, وك and وس. Every
// variant is split into a prefix, whose letters may carry any diacritics in
// the text, and a stem, which must match exactly.
package variant

import (
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/internal/textmatch/normalize"
)

// Variant is one surface form of a base word.
type Variant struct {
	Surface string
	Prefix  string // bare prefix letters, empty when the stem stands alone
	Stem    string // stem with the base word's diacritics preserved
	Origin  string // base word the variant was generated from
	IsMain  bool
}

const (
	definiteArticle = "ال"
	futureConj      = "وس"
)

// attachable are the one-letter prefixes attached directly to a word.
var attachable = []string{"ب", "و", "ك", "ف", "ل"}

// articleSubstitutes replace the definite article of a word.
var articleSubstitutes = []string{"لل", "وب", "وك"}

// recognized are the prefixes a base word is split on, two-letter forms
// first so that لل is not read as ل + ل.
var recognized = []string{"ال", "لل", "وب", "وك", "وس", "ب", "و", "ك", "ف", "ل"}

// Generate returns the variants of word in a fixed order: the word itself,
// each attachable letter + word, the article substitutes, then the وس form.
// Surface forms are unique; the first occurrence wins. Generate returns nil
// for a word with no letters.
func Generate(word string, isMain bool) []Variant {
	word = trimMarks(word)
	if normalize.Strip(word) == "" {
		return nil
	}

	g := generator{seen: make(map[string]struct{}), origin: word, isMain: isMain}

	prefix, stem := Decompose(word)
	g.add(word, prefix, stem)

	for _, letter := range attachable {
		g.add(letter+word, letter, word)
	}

	plain := normalize.Strip(word)
	if rest, ok := cutPrefix(word, definiteArticle); ok && utf8.RuneCountInString(plain) > 2 {
		for _, p := range articleSubstitutes {
			g.add(p+rest, p, rest)
		}
	}

	if rest, ok := cutHamza(word); ok && rest != "" {
		g.add(futureConj+rest, futureConj, rest)
	}

	return g.out
}

type generator struct {
	seen   map[string]struct{}
	out    []Variant
	origin string
	isMain bool
}

func (g *generator) add(surface, prefix, stem string) {
	if _, dup := g.seen[surface]; dup {
		return
	}
	g.seen[surface] = struct{}{}
	g.out = append(g.out, Variant{
		Surface: surface,
		Prefix:  prefix,
		Stem:    stem,
		Origin:  g.origin,
		IsMain:  g.isMain,
	})
}

// Decompose splits a word on the longest recognized prefix. A prefix is only
// split off when at least two letters remain for the stem; otherwise the
// whole word is the stem.
func Decompose(word string) (prefix, stem string) {
	for _, p := range recognized {
		rest, ok := cutPrefix(word, p)
		if !ok {
			continue
		}
		if utf8.RuneCountInString(normalize.Strip(rest)) < 2 {
			continue
		}
		return p, rest
	}
	return "", word
}

// cutPrefix removes the bare letters of prefix from the start of s,
// tolerating diacritics after each letter. It reports whether s began with
// prefix.
func cutPrefix(s, prefix string) (string, bool) {
	rest := s
	for _, want := range prefix {
		r, size := utf8.DecodeRuneInString(rest)
		if size == 0 || r != want {
			return s, false
		}
		rest = skipMarks(rest[size:])
	}
	return rest, true
}

// cutHamza removes a leading أ or ا and its diacritics.
func cutHamza(s string) (string, bool) {
	r, size := utf8.DecodeRuneInString(s)
	if r != 'أ' && r != 'ا' {
		return s, false
	}
	return skipMarks(s[size:]), true
}

func skipMarks(s string) string {
	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		if !normalize.IsDiacritic(r) {
			break
		}
		s = s[size:]
	}
	return s
}

// trimMarks drops surrounding spaces and any diacritics that precede the
// first letter.
func trimMarks(s string) string {
	start, end := 0, len(s)
	for start < end {
		r, size := utf8.DecodeRuneInString(s[start:])
		if r != ' ' && r != '\t' && r != '\n' && !normalize.IsDiacritic(r) {
			break
		}
		start += size
	}
	for end > start {
		r, size := utf8.DecodeLastRuneInString(s[start:end])
		if r != ' ' && r != '\t' && r != '\n' {
			break
		}
		end -= size
	}
	return s[start:end]
}
