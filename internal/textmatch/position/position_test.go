package position

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/internal/textmatch/scanner"
)

var layout = []LineMetric{
	{Text: "كتب زيدٌ ", Y: 0},
	{Text: "ثم كتب ", Y: 24},
	{Text: "عمرو وكتب", Y: 48},
}

func TestResolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		offset int
		want   Position
	}{
		{"first rune", 0, Position{Line: 0, Y: 0}},
		{"end of first line", 8, Position{Line: 0, Y: 0}},
		{"start of second line", 9, Position{Line: 1, Y: 24}},
		{"third line", 17, Position{Line: 2, Y: 48}},
		{"past the layout clamps to last line", 500, Position{Line: 2, Y: 48}},
		{"negative offset", -3, Position{Line: 0, Y: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Resolve(layout, tt.offset))
		})
	}

	assert.Equal(t, Position{}, Resolve(nil, 4))
}

func TestResolveMonotonic(t *testing.T) {
	t.Parallel()

	text := "كتب زيدٌ ثم كتب عمرو وكتب"
	occs := scanner.ScanWords(text, "كتب", nil, false)
	require.Len(t, occs, 3)

	prev := -1
	for _, o := range occs {
		pos := Resolve(layout, o.Start)
		assert.GreaterOrEqual(t, pos.Line, prev)
		prev = pos.Line
	}
}

func TestResolverMemo(t *testing.T) {
	t.Parallel()

	r, err := NewResolver(8)
	require.NoError(t, err)

	text := "كتب زيدٌ ثم كتب عمرو وكتب"
	key := Key{Word: "كتب", Occurrence: 1}

	first := r.Locate(key, text, layout, 12)
	assert.Equal(t, Position{Line: 1, Y: 24}, first)
	again := r.Locate(key, text, layout, 12)
	assert.Equal(t, first, again)

	hits, misses := r.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)

	// A reflowed layout invalidates the entry.
	reflowed := []LineMetric{{Text: text, Y: 0}}
	assert.Equal(t, Position{Line: 0, Y: 0}, r.Locate(key, text, reflowed, 12))

	// So does a different text for the same word.
	assert.Equal(t, Position{Line: 0, Y: 0}, r.Locate(key, "كتب", reflowed, 0))

	hits, misses = r.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(3), misses)

	r.Invalidate()
	r.Locate(key, "كتب", reflowed, 0)
	_, misses = r.Stats()
	assert.Equal(t, int64(4), misses)
}
