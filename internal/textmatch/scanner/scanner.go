// Package scanner finds word variants in raw definition text and turns the
// matches into highlight spans.
//
// A scan is a single left-to-right pass. Matches never overlap: once a match
// consumes runes, scanning resumes right after it. Offsets are rune offsets
// and every Occurrence satisfies string([]rune(text)[Start:End]) == MatchedText.
package scanner

import (
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/internal/textmatch/variant"
)

// Category tells whether a match came from a main word or a related word.
type Category string

const (
	CategoryMain    Category = "main"
	CategoryRelated Category = "related"
)

// Occurrence is a single located match.
type Occurrence struct {
	MatchedText string   `json:"matched_text"`
	Start       int      `json:"start"`
	End         int      `json:"end"`
	Origin      string   `json:"origin"`
	Category    Category `json:"category"`
	// MainIndex counts main occurrences in scan order; -1 for related ones.
	MainIndex int `json:"main_index"`
}

// Scan runs m over text and returns the occurrences in text order.
//
// primary is the word a match is attributed to when no variant claims it.
func Scan(text string, m *variant.Matcher, primary string) []Occurrence {
	return ScanRunes([]rune(text), m, primary)
}

// ScanRunes is Scan for callers that already hold the rune slice.
func ScanRunes(runes []rune, m *variant.Matcher, primary string) []Occurrence {
	if m == nil || m.Len() == 0 || len(runes) == 0 {
		return nil
	}

	var (
		out      []Occurrence
		mainSeen int
	)
	for i := 0; i < len(runes); {
		if !variant.IsWordStart(runes, i) {
			i++
			continue
		}
		end, v, ok := m.MatchAt(runes, i)
		if !ok {
			i++
			continue
		}

		matched := string(runes[i:end])
		origin, isMain := attribute(m, matched, v, primary)

		occ := Occurrence{
			MatchedText: matched,
			Start:       i,
			End:         end,
			Origin:      origin,
			Category:    CategoryRelated,
			MainIndex:   -1,
		}
		if isMain {
			occ.Category = CategoryMain
			occ.MainIndex = mainSeen
			mainSeen++
		}
		out = append(out, occ)
		i = end
	}
	return out
}

// attribute resolves the origin of a matched span by decomposing it against
// the known variants. The matched alternative is the expected answer; a span
// no variant claims falls back to the primary word as a main match.
func attribute(m *variant.Matcher, matched string, hit variant.Variant, primary string) (string, bool) {
	if v, ok := m.Attribute(matched); ok {
		return v.Origin, v.IsMain
	}
	if hit.Origin != "" {
		return hit.Origin, hit.IsMain
	}
	return primary, true
}

// ScanWords builds a matcher from a primary word and related words and
// scans text with it. Related words are main when rootMode is set.
func ScanWords(text, primary string, related []string, rootMode bool) []Occurrence {
	return Scan(text, Compile(primary, related, rootMode), primary)
}

// Compile builds the matcher used by ScanWords and Highlight.
func Compile(primary string, related []string, rootMode bool) *variant.Matcher {
	b := variant.NewBuilder()
	if primary != "" {
		b.AddWord(primary, true)
	}
	for _, w := range related {
		b.AddWord(w, rootMode)
	}
	return b.Build()
}

// MainCount returns the number of main occurrences in occs.
func MainCount(occs []Occurrence) int {
	n := 0
	for _, o := range occs {
		if o.Category == CategoryMain {
			n++
		}
	}
	return n
}
