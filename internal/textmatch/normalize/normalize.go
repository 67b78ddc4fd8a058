// Package normalize strips Arabic diacritical marks from text and maps
// offsets between the stripped form and the raw form.
//
// The diacritic set is fixed: U+064B..U+065F (tanween, short vowels, shadda,
// sukun and the extended marks), U+0670 (superscript alef) and U+0640
// (tatweel). Base letters, including hamza-bearing letters, are never
// removed.
//
// Offsets are rune (code point) offsets. This matches the word positions
// persisted by the data build, which count characters rather than bytes.
//
// All functions are pure and safe for concurrent use by multiple goroutines.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// Tatweel is the Arabic elongation mark (kashida).
	Tatweel = 'ـ'
	// SuperscriptAlef is the dagger alef written above a letter.
	SuperscriptAlef = 'ٰ'

	markFirst = 'ً' // fathatan
	markLast  = 'ٟ' // wavy hamza below
)

// IsDiacritic reports whether r belongs to the fixed diacritic set.
func IsDiacritic(r rune) bool {
	return (r >= markFirst && r <= markLast) || r == SuperscriptAlef || r == Tatweel
}

// IsWordRune reports whether r can be part of a word: any letter or a
// diacritic. Everything else (spaces, punctuation, digits) separates words.
func IsWordRune(r rune) bool {
	return unicode.IsLetter(r) || IsDiacritic(r)
}

// HasDiacritics reports whether s contains at least one diacritic.
func HasDiacritics(s string) bool {
	return strings.IndexFunc(s, IsDiacritic) >= 0
}

// Strip removes every diacritic from text. Strip is idempotent.
func Strip(text string) string {
	if !HasDiacritics(text) {
		return text
	}
	out, _, err := transform.String(runes.Remove(runes.Predicate(IsDiacritic)), text)
	if err != nil {
		return text
	}
	return out
}

// MapNormalizedToRaw converts an offset into Strip(text) back into an offset
// into text. It walks text counting only non-diacritic runes and returns the
// raw offset of the rune whose stripped offset equals normalizedIndex, or the
// rune length of text when the walk is exhausted.
func MapNormalizedToRaw(text string, normalizedIndex int) int {
	count, raw := 0, 0
	for _, r := range text {
		if !IsDiacritic(r) {
			if count == normalizedIndex {
				return raw
			}
			count++
		}
		raw++
	}
	return raw
}

// Compose returns s in Unicode NFC form. Query words arriving from users or
// agents may carry a decomposed hamza (alef + U+0654), which would otherwise
// lose its hamza when stripped. NFC also reorders stacked marks, so Compose
// is only applied to keys that are stripped afterwards, never to text that
// is matched rune for rune.
func Compose(s string) string {
	if norm.NFC.IsNormalString(s) {
		return s
	}
	return norm.NFC.String(s)
}

// Key returns the lookup key for a query word: composed, trimmed and
// stripped of diacritics. Store lookups always compare keys.
func Key(s string) string {
	return Strip(Compose(strings.TrimSpace(s)))
}
