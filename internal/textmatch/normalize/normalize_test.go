package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"bare word unchanged", "كتاب", "كتاب"},
		{"short vowels", "كَتَبَ", "كتب"},
		{"shadda and sukun", "الشَّخْزُ", "الشخز"},
		{"tanween", "كتابٌ", "كتاب"},
		{"superscript alef", "هٰذا", "هذا"},
		{"tatweel", "كـتـاب", "كتاب"},
		{"hamza letters kept", "أَإِآ", "أإآ"},
		{"latin untouched", "abc déjà", "abc déjà"},
		{"punctuation kept", "ذَهَبَ، وَجاءَ.", "ذهب، وجاء."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Strip(tt.input))
		})
	}
}

func TestStripIdempotent(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"", "كَتَبَ", "الْكِتَابُ", "ـــ", "مرحبا بِكُمْ"} {
		once := Strip(s)
		assert.Equal(t, once, Strip(once), "Strip(Strip(%q))", s)
	}
}

func TestIsDiacritic(t *testing.T) {
	t.Parallel()

	for _, r := range []rune{'ً', 'َ', 'ّ', 'ْ', 'ٟ', 'ٰ', 'ـ'} {
		assert.True(t, IsDiacritic(r), "%U", r)
	}
	for _, r := range []rune{'ا', 'أ', 'ب', ' ', '،', 'a', 'ي', '٠'} {
		assert.False(t, IsDiacritic(r), "%U", r)
	}
}

func TestMapNormalizedToRaw(t *testing.T) {
	t.Parallel()

	text := "كَتَبَ الوَلَدُ"
	tests := []struct {
		name       string
		normalized int
		want       int
	}{
		{"first letter", 0, 0},
		{"second letter skips fatha", 1, 2},
		{"third letter", 2, 4},
		{"space after final vowel", 3, 6},
		{"second word start", 4, 7},
		{"exhausted returns length", 100, len([]rune(text))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, MapNormalizedToRaw(text, tt.normalized))
		})
	}
}

func TestMapNormalizedToRawRoundTrip(t *testing.T) {
	t.Parallel()

	text := "فَقالَ: اللَّهُمَّ بارِكْ"
	raw := []rune(text)
	stripped := []rune(Strip(text))
	for i, r := range stripped {
		idx := MapNormalizedToRaw(text, i)
		if assert.Less(t, idx, len(raw)) {
			assert.Equal(t, r, raw[idx], "normalized offset %d", i)
		}
	}
}

func TestKey(t *testing.T) {
	t.Parallel()

	decomposed := "\u0627\u0654\u064E\u0643\u0644" // alef + hamza above + fatha
	assert.Equal(t, "أكل", Key(decomposed))
	assert.Equal(t, "الكتاب", Key("  الْكِتَابُ "))
	assert.Equal(t, "", Key("   "))
}

func FuzzStrip(f *testing.F) {
	f.Add("")
	f.Add("كَتَبَ")
	f.Add("الشَّخْزُ")
	f.Add("ـ")
	f.Add("\xff\xfe")
	f.Add("abc")

	f.Fuzz(func(t *testing.T, s string) {
		once := Strip(s)
		if twice := Strip(once); twice != once {
			t.Errorf("not idempotent:\ninput: %q\nonce:  %q\ntwice: %q", s, once, twice)
		}
		if HasDiacritics(once) {
			t.Errorf("Strip(%q) = %q still has diacritics", s, once)
		}
	})
}
