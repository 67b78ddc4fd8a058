package variant

import (
	"sort"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/internal/textmatch/normalize"
)

// Builder merges the variants of a primary word and any related words into
// one Matcher. The zero value is ready to use.
type Builder struct {
	seen     map[string]struct{}
	variants []Variant
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Add appends variants, dropping surface forms already added.
func (b *Builder) Add(variants ...Variant) *Builder {
	if b.seen == nil {
		b.seen = make(map[string]struct{})
	}
	for _, v := range variants {
		if _, dup := b.seen[v.Surface]; dup {
			continue
		}
		b.seen[v.Surface] = struct{}{}
		b.variants = append(b.variants, v)
	}
	return b
}

// AddWord generates the variants of word and adds them.
func (b *Builder) AddWord(word string, isMain bool) *Builder {
	return b.Add(Generate(word, isMain)...)
}

// Build compiles the variants added so far. The Builder may keep being used
// afterwards; the Matcher does not share state with it.
func (b *Builder) Build() *Matcher {
	m := &Matcher{
		alts:  make([]alternative, 0, len(b.variants)),
		table: make(map[rune][]int),
	}
	for _, v := range b.variants {
		alt, ok := compile(v)
		if !ok {
			continue
		}
		m.alts = append(m.alts, alt)
	}

	for i, alt := range m.alts {
		m.table[alt.first] = append(m.table[alt.first], i)
	}
	for first, idx := range m.table {
		sort.SliceStable(idx, func(a, c int) bool {
			return m.alts[idx[a]].length > m.alts[idx[c]].length
		})
		m.table[first] = idx
	}
	return m
}

// Matcher finds variants in raw text. Alternatives sharing a first letter are
// tried longest surface form first, ties in insertion order. A Matcher is
// immutable and safe for concurrent use.
type Matcher struct {
	alts  []alternative
	table map[rune][]int
}

type alternative struct {
	variant   Variant
	prefix    []rune
	stem      []rune
	vocalized bool // stem carries at least one diacritic
	endsBare  bool // last stem rune is a letter
	first     rune
	length    int
}

func compile(v Variant) (alternative, bool) {
	prefix := []rune(normalize.Strip(v.Prefix))
	stem := []rune(v.Stem)
	if len(stem) == 0 || normalize.IsDiacritic(stem[0]) {
		return alternative{}, false
	}
	vocalized := normalize.HasDiacritics(v.Stem)
	if !vocalized {
		stem = []rune(normalize.Strip(v.Stem))
	}
	first := stem[0]
	if len(prefix) > 0 {
		first = prefix[0]
	}
	return alternative{
		variant:   v,
		prefix:    prefix,
		stem:      stem,
		vocalized: vocalized,
		endsBare:  !normalize.IsDiacritic(stem[len(stem)-1]),
		first:     first,
		length:    utf8.RuneCountInString(v.Surface),
	}, true
}

// Len returns the number of compiled alternatives.
func (m *Matcher) Len() int {
	return len(m.alts)
}

// Variants returns the compiled variants in insertion order.
func (m *Matcher) Variants() []Variant {
	out := make([]Variant, len(m.alts))
	for i, alt := range m.alts {
		out[i] = alt.variant
	}
	return out
}

// MatchAt tries every alternative starting at rune offset i of text and
// returns the end offset and the variant of the first one that matches a
// whole word. i must be a word start.
func (m *Matcher) MatchAt(text []rune, i int) (end int, v Variant, ok bool) {
	if i >= len(text) {
		return 0, Variant{}, false
	}
	for _, idx := range m.table[text[i]] {
		alt := &m.alts[idx]
		if end, ok := alt.matchAt(text, i); ok && IsWordEnd(text, end) {
			return end, alt.variant, true
		}
	}
	return 0, Variant{}, false
}

// Attribute decomposes an already matched span and returns the variant whose
// prefix letters equal the span's stripped prefix and whose stem matches the
// rest of the span.
func (m *Matcher) Attribute(matched string) (Variant, bool) {
	text := []rune(matched)
	end, v, ok := m.MatchAt(text, 0)
	if !ok || end != len(text) {
		return Variant{}, false
	}
	return v, true
}

func (alt *alternative) matchAt(text []rune, i int) (int, bool) {
	j := i
	for _, p := range alt.prefix {
		if j >= len(text) || text[j] != p {
			return 0, false
		}
		j = skipDiacritics(text, j+1)
	}

	if alt.vocalized {
		for _, s := range alt.stem {
			if j >= len(text) || text[j] != s {
				return 0, false
			}
			j++
		}
		if alt.endsBare {
			j = skipDiacritics(text, j)
		}
		return j, true
	}

	for _, s := range alt.stem {
		if j >= len(text) || text[j] != s {
			return 0, false
		}
		j = skipDiacritics(text, j+1)
	}
	return j, true
}

func skipDiacritics(text []rune, j int) int {
	for j < len(text) && normalize.IsDiacritic(text[j]) {
		j++
	}
	return j
}

// IsWordStart reports whether a word can begin at rune offset i.
func IsWordStart(text []rune, i int) bool {
	if i >= len(text) || normalize.IsDiacritic(text[i]) {
		return false
	}
	return i == 0 || !normalize.IsWordRune(text[i-1])
}

// IsWordEnd reports whether a word can end at rune offset i.
func IsWordEnd(text []rune, i int) bool {
	return i >= len(text) || !normalize.IsWordRune(text[i])
}
