// Package segment cuts long definitions down to a few context windows around
// the words a caller is interested in.
//
// Candidate positions are found with a diacritic-insensitive substring
// search: target words and definition are both stripped, every target is
// searched in one Aho-Corasick pass, and hits are mapped back to raw rune
// offsets. A candidate that falls too close to an accepted one is dropped so
// that windows do not repeat the same text.
package segment

import (
	"sort"
	"strings"
	"unicode/utf8"

	ahocorasick "github.com/petar-dambovaliev/aho-corasick"

	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/internal/textmatch/normalize"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/internal/textmatch/tokenizer"
)

const (
	DefaultThreshold     = 1000
	DefaultMaxSegments   = 5
	DefaultPerWord       = 3
	DefaultOverlapFactor = 5
	DefaultWindowSize    = 20

	ellipsis = "..."
)

// Options tune extraction. Zero fields take the defaults above.
type Options struct {
	WindowSize    int
	Threshold     int
	MaxSegments   int
	PerWord       int
	OverlapFactor int
	// Full returns the whole definition regardless of its length.
	Full bool
}

func (o Options) withDefaults() Options {
	if o.WindowSize <= 0 {
		o.WindowSize = DefaultWindowSize
	}
	if o.Threshold <= 0 {
		o.Threshold = DefaultThreshold
	}
	if o.MaxSegments <= 0 {
		o.MaxSegments = DefaultMaxSegments
	}
	if o.PerWord <= 0 {
		o.PerWord = DefaultPerWord
	}
	if o.OverlapFactor <= 0 {
		o.OverlapFactor = DefaultOverlapFactor
	}
	return o
}

// Segment is one context window.
type Segment struct {
	Word     string `json:"word"`
	Position int    `json:"position"`
	Text     string `json:"text"`
}

// Result is either the full definition or a list of segments.
type Result struct {
	IsFullDefinition bool      `json:"is_full_definition"`
	Content          string    `json:"content,omitempty"`
	Segments         []Segment `json:"segments,omitempty"`
	Length           int       `json:"length"`
}

// Extract returns the segments of definition around words.
func Extract(definition string, words []string, opts Options) Result {
	opts = opts.withDefaults()
	length := utf8.RuneCountInString(definition)
	if opts.Full || length < opts.Threshold {
		return Result{IsFullDefinition: true, Content: definition, Length: length}
	}

	res := Result{Length: length}
	candidates := Find(definition, words, opts.PerWord)
	if len(candidates) == 0 {
		return res
	}

	minGap := opts.WindowSize * opts.OverlapFactor
	var accepted []Segment
	for _, c := range candidates {
		if len(accepted) == opts.MaxSegments {
			break
		}
		if tooClose(accepted, c.Position, minGap) {
			continue
		}
		accepted = append(accepted, c)
	}

	runes := []rune(definition)
	tokens := tokenizer.TokenizeRunes(runes)
	for i := range accepted {
		accepted[i].Text = Window(runes, tokens, accepted[i].Position, opts.WindowSize)
	}
	sort.SliceStable(accepted, func(i, j int) bool {
		return accepted[i].Position < accepted[j].Position
	})
	res.Segments = accepted
	return res
}

func tooClose(accepted []Segment, pos, minGap int) bool {
	for _, a := range accepted {
		d := a.Position - pos
		if d < 0 {
			d = -d
		}
		if d < minGap {
			return true
		}
	}
	return false
}

// Find returns up to perWord raw positions for each word, grouped by word in
// the caller's order and ascending within a word. Words are compared with
// diacritics stripped and may match inside longer words.
func Find(definition string, words []string, perWord int) []Segment {
	patterns := make([]string, 0, len(words))
	originals := make([]string, 0, len(words))
	seen := make(map[string]struct{}, len(words))
	for _, w := range words {
		key := normalize.Key(w)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		patterns = append(patterns, key)
		originals = append(originals, strings.TrimSpace(w))
	}
	if len(patterns) == 0 || definition == "" {
		return nil
	}

	stripped := normalize.Strip(definition)
	builder := ahocorasick.NewAhoCorasickBuilder(ahocorasick.Opts{
		AsciiCaseInsensitive: false,
		MatchOnlyWholeWords:  false,
		MatchKind:            ahocorasick.StandardMatch,
		DFA:                  false,
	})
	ac := builder.Build(patterns)

	hits := make([][]int, len(patterns))
	iter := ac.IterOverlapping(stripped)
	for m := iter.Next(); m != nil; m = iter.Next() {
		p := m.Pattern()
		if p < 0 || p >= len(hits) {
			continue
		}
		hits[p] = append(hits[p], m.Start())
	}

	rawIndex := newRawIndex(definition, stripped)
	var out []Segment
	for p, starts := range hits {
		sort.Ints(starts)
		for i, start := range starts {
			if i == perWord {
				break
			}
			out = append(out, Segment{Word: originals[p], Position: rawIndex.at(start)})
		}
	}
	return out
}

// rawIndex maps byte offsets of the stripped text to raw rune offsets.
type rawIndex struct {
	raw []int // raw rune offset of each stripped rune, by stripped byte offset
}

func newRawIndex(definition, stripped string) rawIndex {
	idx := rawIndex{raw: make([]int, len(stripped)+1)}
	strippedRune := 0
	for b := range stripped {
		idx.raw[b] = strippedRune
		strippedRune++
	}
	idx.raw[len(stripped)] = strippedRune

	// Convert stripped rune offsets into raw rune offsets in one walk.
	toRaw := make([]int, strippedRune+1)
	n, r := 0, 0
	for _, c := range definition {
		if !normalize.IsDiacritic(c) {
			toRaw[n] = r
			n++
		}
		r++
	}
	toRaw[n] = r
	for b := range idx.raw {
		idx.raw[b] = toRaw[idx.raw[b]]
	}
	return idx
}

func (x rawIndex) at(b int) int {
	if b < 0 {
		return 0
	}
	if b >= len(x.raw) {
		return x.raw[len(x.raw)-1]
	}
	return x.raw[b]
}

// Window returns size words on each side of the word at rune offset
// pos, taken verbatim from the raw text, with ellipses where the window
// stops short of the text boundaries.
func Window(runes []rune, tokens []tokenizer.Token, pos, size int) string {
	if len(tokens) == 0 {
		return ""
	}
	center := tokenizer.IndexAt(tokens, pos)
	if center >= len(tokens) {
		center = len(tokens) - 1
	}
	first := center - size
	if first < 0 {
		first = 0
	}
	last := center + size
	if last > len(tokens)-1 {
		last = len(tokens) - 1
	}

	var b strings.Builder
	if first > 0 {
		b.WriteString(ellipsis)
		b.WriteByte(' ')
	}
	b.WriteString(string(runes[tokens[first].Start:tokens[last].End]))
	if last < len(tokens)-1 {
		b.WriteByte(' ')
		b.WriteString(ellipsis)
	}
	return b.String()
}
