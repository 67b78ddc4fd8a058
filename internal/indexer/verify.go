package indexer

import (
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/internal/textmatch/scanner"
)

// Violation is a stored position that does not reproduce its word.
type Violation struct {
	Position int    `json:"position"`
	Reason   string `json:"reason"`
}

// Verify checks that every position, sliced against definition for the
// word's rune length, reproduces word exactly and that positions strictly
// increase.
func Verify(definition, word string, positions []int) []Violation {
	return verifyRunes([]rune(definition), []rune(word), positions)
}

func verifyRunes(def, word []rune, positions []int) []Violation {
	var out []Violation
	prev := -1
	for _, p := range positions {
		switch {
		case p <= prev:
			out = append(out, Violation{Position: p, Reason: "not increasing"})
			continue
		case p < 0 || p+len(word) > len(def):
			out = append(out, Violation{Position: p, Reason: "out of range"})
			continue
		case !equalAt(def, word, p):
			out = append(out, Violation{Position: p, Reason: "text mismatch"})
			continue
		}
		prev = p
	}
	return out
}

func equalAt(def, word []rune, p int) bool {
	for i, r := range word {
		if def[p+i] != r {
			return false
		}
	}
	return true
}

// Positions finds the stem-start offsets of word in definition. The scanner
// locates every variant of word; inside each match the offset where word
// itself begins is kept. Matches that only agree with word after diacritics
// are stripped are reported as dropped.
func Positions(definition, word string) (positions []int, dropped int) {
	return positionsRunes([]rune(definition), word)
}

func positionsRunes(def []rune, word string) ([]int, int) {
	w := []rune(word)
	if len(w) == 0 {
		return []int{}, 0
	}
	m := scanner.Compile(word, nil, false)
	occs := scanner.ScanRunes(def, m, word)

	positions := make([]int, 0, len(occs))
	dropped := 0
	for _, o := range occs {
		p := stemStart(def, w, o.Start, o.End)
		if p < 0 {
			dropped++
			continue
		}
		positions = append(positions, p)
	}
	if bad := verifyRunes(def, w, positions); len(bad) > 0 {
		kept := positions[:0]
		badSet := make(map[int]bool, len(bad))
		for _, v := range bad {
			badSet[v.Position] = true
		}
		for _, p := range positions {
			if !badSet[p] {
				kept = append(kept, p)
			}
		}
		dropped += len(positions) - len(kept)
		positions = kept
	}
	return positions, dropped
}

// stemStart returns the last offset in [start, end) at which word occurs
// exactly and ends inside the match, or -1.
func stemStart(def, word []rune, start, end int) int {
	for p := end - len(word); p >= start; p-- {
		if equalAt(def, word, p) {
			return p
		}
	}
	return -1
}
