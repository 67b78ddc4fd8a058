// Package position maps character offsets of a rendered text to the
// vertical offset of the line that contains them.
//
// A renderer reports one LineMetric per laid-out line. Line lengths are rune
// counts; their sum may differ from the text length after reflow, in which
// case offsets past the last line resolve to the last line.
package position

import (
	"encoding/binary"
	"log/slog"
	"math"
	"sync/atomic"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/pkg/logger"
)

// DefaultMemoSize bounds the number of memoized (word, occurrence) entries.
const DefaultMemoSize = 1024

// LineMetric is one rendered line.
type LineMetric struct {
	Text string  `json:"text"`
	Y    float64 `json:"y"`
}

// Position is a resolved target.
type Position struct {
	Line int     `json:"line"`
	Y    float64 `json:"y"`
}

// Resolve returns the line containing rune offset offset. It returns the
// zero Position for an empty layout.
func Resolve(lines []LineMetric, offset int) Position {
	if len(lines) == 0 {
		return Position{}
	}
	if offset < 0 {
		offset = 0
	}
	cum := 0
	for i, l := range lines {
		cum += utf8.RuneCountInString(l.Text)
		if offset < cum {
			return Position{Line: i, Y: l.Y}
		}
	}
	last := len(lines) - 1
	return Position{Line: last, Y: lines[last].Y}
}

// Key identifies a memoized position.
type Key struct {
	Word       string
	Occurrence int
}

type entry struct {
	fingerprint uint64
	pos         Position
}

// Resolver memoizes Resolve per (word, occurrence index). An entry is only
// reused while the text and layout it was computed for are unchanged; any
// change evicts it. Resolver is safe for concurrent use.
type Resolver struct {
	memo   *lru.Cache[Key, entry]
	hits   atomic.Int64
	misses atomic.Int64
	logger *slog.Logger
}

// NewResolver creates a Resolver holding at most size entries.
func NewResolver(size int) (*Resolver, error) {
	if size <= 0 {
		size = DefaultMemoSize
	}
	memo, err := lru.New[Key, entry](size)
	if err != nil {
		return nil, err
	}
	return &Resolver{
		memo:   memo,
		logger: logger.WithComponent("position-resolver"),
	}, nil
}

// Locate returns the position of rune offset offset in text as laid out by
// lines, memoized under key.
func (r *Resolver) Locate(key Key, text string, lines []LineMetric, offset int) Position {
	fp := Fingerprint(text, lines, offset)
	if e, ok := r.memo.Get(key); ok {
		if e.fingerprint == fp {
			r.hits.Add(1)
			return e.pos
		}
		r.memo.Remove(key)
		r.logger.Debug("memo entry invalidated", "word", key.Word, "occurrence", key.Occurrence)
	}
	r.misses.Add(1)
	pos := Resolve(lines, offset)
	r.memo.Add(key, entry{fingerprint: fp, pos: pos})
	return pos
}

// Invalidate drops every memoized entry.
func (r *Resolver) Invalidate() {
	r.memo.Purge()
}

// Stats returns memo hits and misses.
func (r *Resolver) Stats() (hits, misses int64) {
	return r.hits.Load(), r.misses.Load()
}

// Fingerprint hashes the inputs a memoized position depends on.
func Fingerprint(text string, lines []LineMetric, offset int) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(text)
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(offset))
	_, _ = d.Write(buf[:])
	for _, l := range lines {
		binary.LittleEndian.PutUint64(buf[:], uint64(utf8.RuneCountInString(l.Text)))
		_, _ = d.Write(buf[:])
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(l.Y))
		_, _ = d.Write(buf[:])
	}
	return d.Sum64()
}
