package scanner

import "strings"

// Mode selects which words are highlighted as primary.
type Mode string

const (
	// ModeWord highlights the searched word as primary and related words as
	// secondary.
	ModeWord Mode = "word"
	// ModeRoot highlights every supplied word as primary.
	ModeRoot Mode = "root"
)

// SpanCategory is how a span is rendered.
type SpanCategory string

const (
	SpanPlain     SpanCategory = "plain"
	SpanPrimary   SpanCategory = "primary"
	SpanSecondary SpanCategory = "secondary"
)

// HighlightRequest is what a rendering consumer supplies.
type HighlightRequest struct {
	RawText           string   `json:"raw_text"`
	PrimaryWord       string   `json:"primary_word"`
	RelatedWords      []string `json:"related_words,omitempty"`
	Mode              Mode     `json:"mode"`
	CurrentOccurrence int      `json:"current_occurrence"`
}

// Span is one contiguous piece of the text. Concatenating every span's Text
// reproduces the request text.
type Span struct {
	Text     string       `json:"text"`
	Category SpanCategory `json:"category"`
	Start    int          `json:"start"`
	End      int          `json:"end"`
	// Current marks the primary span at the requested occurrence index.
	Current bool `json:"current,omitempty"`
	// OccurrenceIndex is the main occurrence index of a primary span, -1
	// otherwise.
	OccurrenceIndex int `json:"occurrence_index"`
}

// HighlightResult holds the spans and the number of primary occurrences a
// consumer can step through.
type HighlightResult struct {
	Spans     []Span `json:"spans"`
	MainCount int    `json:"main_count"`
	// CurrentStart is the rune offset of the current occurrence, -1 when the
	// requested index has no occurrence.
	CurrentStart int `json:"current_start"`
}

// Highlight splits the request text into plain, primary and secondary spans.
func Highlight(req HighlightRequest) HighlightResult {
	res := HighlightResult{CurrentStart: -1}
	if req.RawText == "" {
		return res
	}

	runes := []rune(req.RawText)
	m := Compile(strings.TrimSpace(req.PrimaryWord), req.RelatedWords, req.Mode == ModeRoot)
	occs := ScanRunes(runes, m, req.PrimaryWord)

	spans := make([]Span, 0, 2*len(occs)+1)
	last := 0
	for _, o := range occs {
		if o.Start > last {
			spans = append(spans, plainSpan(runes, last, o.Start))
		}
		s := Span{
			Text:            o.MatchedText,
			Category:        SpanSecondary,
			Start:           o.Start,
			End:             o.End,
			OccurrenceIndex: -1,
		}
		if o.Category == CategoryMain {
			s.Category = SpanPrimary
			s.OccurrenceIndex = o.MainIndex
			if o.MainIndex == req.CurrentOccurrence {
				s.Current = true
				res.CurrentStart = o.Start
			}
			res.MainCount++
		}
		spans = append(spans, s)
		last = o.End
	}
	if last < len(runes) {
		spans = append(spans, plainSpan(runes, last, len(runes)))
	}
	res.Spans = spans
	return res
}

func plainSpan(runes []rune, start, end int) Span {
	return Span{
		Text:            string(runes[start:end]),
		Category:        SpanPlain,
		Start:           start,
		End:             end,
		OccurrenceIndex: -1,
	}
}
