package variant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func surfaces(vs []Variant) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.Surface
	}
	return out
}

func TestGenerate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		word string
		want []string
	}{
		{
			name: "plain noun",
			word: "كتاب",
			want: []string{"كتاب", "بكتاب", "وكتاب", "ككتاب", "فكتاب", "لكتاب"},
		},
		{
			name: "definite article",
			word: "الكتاب",
			want: []string{
				"الكتاب", "بالكتاب", "والكتاب", "كالكتاب", "فالكتاب", "لالكتاب",
				"للكتاب", "وبكتاب", "وككتاب", "وسلكتاب",
			},
		},
		{
			name: "initial hamza",
			word: "أكل",
			want: []string{"أكل", "بأكل", "وأكل", "كأكل", "فأكل", "لأكل", "وسكل"},
		},
		{
			name: "short article word gets no substitutes",
			word: "ال",
			want: []string{"ال", "بال", "وال", "كال", "فال", "لال", "وسل"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, surfaces(Generate(tt.word, true)))
		})
	}
}

func TestGenerateScenario(t *testing.T) {
	t.Parallel()

	got := surfaces(Generate("كتاب", true))
	for _, want := range []string{"كتاب", "بكتاب", "وكتاب", "ككتاب", "فكتاب", "لكتاب"} {
		assert.Contains(t, got, want)
	}

	got = surfaces(Generate("الكتاب", true))
	for _, want := range []string{"للكتاب", "وبكتاب", "وككتاب"} {
		assert.Contains(t, got, want)
	}
}

func TestGenerateDeterministic(t *testing.T) {
	t.Parallel()

	for _, w := range []string{"الكتاب", "أَكَلَ", "ذهب", "الشَّخْزُ"} {
		first := Generate(w, false)
		for i := 0; i < 20; i++ {
			assert.Equal(t, first, Generate(w, false))
		}
	}
}

func TestGenerateUnique(t *testing.T) {
	t.Parallel()

	// و + وكتاب and وك + تاب collide on nothing, but ل + لكتاب style inputs
	// can produce repeats across steps.
	for _, w := range []string{"لل", "الالف", "اب", "وكتاب"} {
		seen := map[string]bool{}
		for _, v := range Generate(w, true) {
			assert.False(t, seen[v.Surface], "duplicate %q for %q", v.Surface, w)
			seen[v.Surface] = true
		}
	}
}

func TestGenerateEmpty(t *testing.T) {
	t.Parallel()

	assert.Nil(t, Generate("", true))
	assert.Nil(t, Generate("   ", true))
	assert.Nil(t, Generate("َُ", true))
}

func TestGenerateVocalizedArticle(t *testing.T) {
	t.Parallel()

	vs := Generate("الْكِتَابُ", true)
	var sub *Variant
	for i := range vs {
		if vs[i].Prefix == "لل" {
			sub = &vs[i]
		}
	}
	require.NotNil(t, sub)
	assert.Equal(t, "كِتَابُ", sub.Stem)
	assert.Equal(t, "للكِتَابُ", sub.Surface)
}

func TestDecompose(t *testing.T) {
	t.Parallel()

	tests := []struct {
		word       string
		wantPrefix string
		wantStem   string
	}{
		{"الكتاب", "ال", "كتاب"},
		{"للكتاب", "لل", "كتاب"},
		{"وبالله", "وب", "الله"},
		{"بيت", "ب", "يت"},
		{"ذهب", "", "ذهب"},
		{"بر", "", "بر"},
		{"الْكِتَابُ", "ال", "كِتَابُ"},
	}
	for _, tt := range tests {
		prefix, stem := Decompose(tt.word)
		assert.Equal(t, tt.wantPrefix, prefix, tt.word)
		assert.Equal(t, tt.wantStem, stem, tt.word)
	}
}

func matchAll(m *Matcher, text string) []string {
	runes := []rune(text)
	var out []string
	for i := 0; i < len(runes); {
		if IsWordStart(runes, i) {
			if end, _, ok := m.MatchAt(runes, i); ok {
				out = append(out, string(runes[i:end]))
				i = end
				continue
			}
		}
		i++
	}
	return out
}

func TestMatcher(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		word string
		text string
		want []string
	}{
		{
			name: "bare stem absorbs text diacritics but not extra letters",
			word: "ذهب",
			text: "ذَهَبَ الرجلُ وذَهَبَتِ المرأةُ",
			want: []string{"ذَهَبَ"},
		},
		{
			name: "prefix tolerates diacritics",
			word: "ذهب",
			text: "فَذَهَبَ ثم وَذهب",
			want: []string{"فَذَهَبَ", "وَذهب"},
		},
		{
			name: "vocalized stem must match exactly",
			word: "الشَّخْزُ",
			text: "الشَّخْزُ والشَّخْزِ وَالشَّخْزُ",
			want: []string{"الشَّخْزُ", "وَالشَّخْزُ"},
		},
		{
			name: "vocalized stem ending on a letter absorbs case ending",
			word: "كِتاب",
			text: "كِتابٌ وكِتابِ وكَتاب",
			want: []string{"كِتابٌ", "وكِتابِ"},
		},
		{
			name: "article substitute",
			word: "الكتاب",
			text: "للكتاب ووبكتاب وبِكتاب",
			want: []string{"للكتاب", "وبِكتاب"},
		},
		{
			name: "no match inside a word",
			word: "كتب",
			text: "مكتبة يكتب كتب",
			want: []string{"كتب"},
		},
		{
			name: "punctuation ends a word",
			word: "كتب",
			text: "كتب، وكتب.",
			want: []string{"كتب", "وكتب"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := NewBuilder().AddWord(tt.word, true).Build()
			assert.Equal(t, tt.want, matchAll(m, tt.text))
		})
	}
}

func TestMatcherLongestFirst(t *testing.T) {
	t.Parallel()

	// وكتب is both و + كتب and a word of its own; the longer variant of the
	// related word must win at the same start.
	m := NewBuilder().
		AddWord("كتب", true).
		AddWord("وكتب", false).
		Build()

	runes := []rune("ووكتب")
	end, v, ok := m.MatchAt(runes, 0)
	require.True(t, ok)
	assert.Equal(t, len(runes), end)
	assert.Equal(t, "وكتب", v.Origin)
	assert.False(t, v.IsMain)

	runes = []rune("وكتب")
	_, v, ok = m.MatchAt(runes, 0)
	require.True(t, ok)
	assert.Equal(t, "كتب", v.Origin, "first writer keeps the shared surface form")
}

func TestBuilderDedupAcrossWords(t *testing.T) {
	t.Parallel()

	b := NewBuilder().AddWord("كتاب", true).AddWord("كتاب", false)
	m := b.Build()
	assert.Equal(t, 6, m.Len())
	for _, v := range m.Variants() {
		assert.True(t, v.IsMain)
	}
}

func TestAttribute(t *testing.T) {
	t.Parallel()

	m := NewBuilder().AddWord("الكتاب", true).AddWord("قلم", false).Build()

	v, ok := m.Attribute("لِلكتاب")
	require.True(t, ok)
	assert.Equal(t, "لل", v.Prefix)
	assert.Equal(t, "الكتاب", v.Origin)

	v, ok = m.Attribute("بِقلمٍ")
	require.True(t, ok)
	assert.Equal(t, "قلم", v.Origin)

	_, ok = m.Attribute("كتب")
	assert.False(t, ok)
}
