// Package tokenizer splits Arabic definition text into words while keeping
// each word's rune span in the original text.
//
// A word is a maximal run of letters, diacritics and digits. Spaces and
// punctuation (including the Arabic comma, semicolon and question mark)
// separate words and are never part of a token.
package tokenizer

import (
	"unicode"

	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/internal/textmatch/normalize"
)

// Token is a single word of the original text. Start and End are rune
// offsets; string([]rune(text)[Start:End]) == Term.
type Token struct {
	Term  string
	Plain string
	Start int
	End   int
}

// IsSeparator reports whether r ends a word.
func IsSeparator(r rune) bool {
	return !normalize.IsWordRune(r) && !unicode.IsDigit(r)
}

// Tokenize breaks text into words in text order.
func Tokenize(text string) []Token {
	return tokenize([]rune(text))
}

// TokenizeRunes is Tokenize for callers that already hold the rune slice.
func TokenizeRunes(runes []rune) []Token {
	return tokenize(runes)
}

func tokenize(runes []rune) []Token {
	tokens := make([]Token, 0, len(runes)/6)
	start := -1
	for i, r := range runes {
		if IsSeparator(r) {
			if start >= 0 {
				tokens = append(tokens, newToken(runes, start, i))
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		tokens = append(tokens, newToken(runes, start, len(runes)))
	}
	return tokens
}

func newToken(runes []rune, start, end int) Token {
	term := string(runes[start:end])
	return Token{
		Term:  term,
		Plain: normalize.Strip(term),
		Start: start,
		End:   end,
	}
}

// IndexAt returns the index of the token containing rune offset pos, or the
// first token starting after pos when pos falls on a separator. It returns
// len(tokens) when no token starts at or after pos.
func IndexAt(tokens []Token, pos int) int {
	lo, hi := 0, len(tokens)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if tokens[mid].End <= pos {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}
