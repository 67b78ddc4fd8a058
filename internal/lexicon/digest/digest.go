// Package digest answers tool-calling lookups: it discovers a list of words
// and renders the matches as a text digest plus structured source records
// for citation tracking.
package digest

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/internal/lexicon/discovery"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/internal/textmatch/segment"
)

// Discoverer is satisfied by discovery.Engine and the cached discoverer.
type Discoverer interface {
	Discover(ctx context.Context, word, rootHint string) discovery.Result
}

// TierIndexed marks source records produced by the indexed-word strategy.
const TierIndexed = "indexed"

// Request is a tool-calling lookup. Roots is parallel to Words; missing
// entries mean no hint.
type Request struct {
	Words []string `json:"words"`
	Roots []string `json:"roots,omitempty"`
}

// SourceRecord is one citable match.
type SourceRecord struct {
	Label          string `json:"label"`
	DictionaryName string `json:"dictionary_name"`
	Root           string `json:"root"`
	Word           string `json:"word,omitempty"`
	Snippet        string `json:"snippet,omitempty"`
	Length         int    `json:"length"`
	MatchTier      string `json:"match_tier"`
}

// Response is the text digest handed to the caller plus the records it was
// built from.
type Response struct {
	Digest  string             `json:"digest"`
	Sources []SourceRecord     `json:"sources"`
	Results []discovery.Result `json:"-"`
}

// Options tune the lookup.
type Options struct {
	// Concurrency bounds how many words are discovered at once.
	Concurrency int
	// Segment shapes the definition snippets.
	Segment segment.Options
}

// Labels names the entries cited by one response. It is created per
// request and passed explicitly, so concurrent lookups never share labels.
type Labels struct {
	byRoot map[int64]string
}

func NewLabels() *Labels {
	return &Labels{byRoot: make(map[int64]string)}
}

// For returns the label of rootID, assigning the next one on first use.
func (l *Labels) For(rootID int64) (label string, isNew bool) {
	if label, ok := l.byRoot[rootID]; ok {
		return label, false
	}
	label = fmt.Sprintf("R%d", len(l.byRoot)+1)
	l.byRoot[rootID] = label
	return label, true
}

// Len returns the number of labelled entries.
func (l *Labels) Len() int {
	return len(l.byRoot)
}

// Lookup discovers every word of req and renders the digest.
func Lookup(ctx context.Context, d Discoverer, req Request, opts Options) Response {
	words := make([]string, 0, len(req.Words))
	hints := make([]string, 0, len(req.Words))
	for i, w := range req.Words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		words = append(words, w)
		hint := ""
		if i < len(req.Roots) {
			hint = strings.TrimSpace(req.Roots[i])
		}
		hints = append(hints, hint)
	}
	if len(words) == 0 {
		return Response{Digest: "No words were given.", Sources: []SourceRecord{}}
	}

	limit := opts.Concurrency
	if limit <= 0 {
		limit = 4
	}
	results := make([]discovery.Result, len(words))
	var g errgroup.Group
	g.SetLimit(limit)
	for i := range words {
		g.Go(func() error {
			results[i] = d.Discover(ctx, words[i], hints[i])
			return nil
		})
	}
	_ = g.Wait()

	labels := NewLabels()
	var b strings.Builder
	sources := []SourceRecord{}
	for i, res := range results {
		if i > 0 {
			b.WriteString("\n")
		}
		sources = append(sources, render(&b, res, labels, opts.Segment)...)
	}
	return Response{Digest: strings.TrimRight(b.String(), "\n"), Sources: sources, Results: results}
}

func render(b *strings.Builder, res discovery.Result, labels *Labels, segOpts segment.Options) []SourceRecord {
	fmt.Fprintf(b, "Word: %s", res.Word)
	if res.RootHint != "" {
		fmt.Fprintf(b, " (root hint: %s)", res.RootHint)
	}
	b.WriteString("\n")
	if !res.Found() {
		b.WriteString("  No entries found.\n")
		if len(res.Failed) > 0 {
			fmt.Fprintf(b, "  Unavailable: %s\n", strings.Join(res.Failed, ", "))
		}
		return nil
	}

	var sources []SourceRecord
	if len(res.Indexed) > 0 {
		b.WriteString("  Indexed words:\n")
		for _, w := range res.Indexed {
			label, _ := labels.For(w.RootID)
			fmt.Fprintf(b, "    - %s in %s under %s [%s], %d occurrence(s)\n",
				w.Word, w.DictionaryName, w.Root, label, len(w.AllPositions))
			sources = append(sources, SourceRecord{
				Label:          label,
				DictionaryName: w.DictionaryName,
				Root:           w.Root,
				Word:           w.Word,
				MatchTier:      TierIndexed,
			})
		}
	}

	for _, tier := range []discovery.Tier{discovery.TierExact, discovery.TierRoot, discovery.TierFormat} {
		var group []discovery.RootMatch
		for _, m := range res.Roots {
			if m.Tier == tier {
				group = append(group, m)
			}
		}
		if len(group) == 0 {
			continue
		}
		fmt.Fprintf(b, "  Root matches (%s):\n", tier)
		for _, m := range group {
			sources = append(sources, renderRoot(b, m, res.Word, string(tier), labels, segOpts))
		}
	}

	if len(res.Partial) > 0 {
		b.WriteString("  Digitized dictionaries:\n")
		for _, m := range res.Partial {
			sources = append(sources, renderRoot(b, m, res.Word, string(m.Tier), labels, segOpts))
		}
	}
	if len(res.Failed) > 0 {
		fmt.Fprintf(b, "  Unavailable: %s\n", strings.Join(res.Failed, ", "))
	}
	return sources
}

const snippetRunes = 160

func renderRoot(b *strings.Builder, m discovery.RootMatch, word, tier string, labels *Labels, segOpts segment.Options) SourceRecord {
	label, _ := labels.For(m.ID)
	length := utf8.RuneCountInString(m.Definition)
	fmt.Fprintf(b, "    - [%s] %s: %s (%d characters)\n", label, m.DictionaryName, m.Root.Root, length)
	return SourceRecord{
		Label:          label,
		DictionaryName: m.DictionaryName,
		Root:           m.Root.Root,
		Snippet:        snippet(m.Definition, word, segOpts),
		Length:         length,
		MatchTier:      tier,
	}
}

// snippet returns the first segment around word, or the opening of the
// definition when word does not occur in it.
func snippet(definition, word string, opts segment.Options) string {
	opts.Full = false
	res := segment.Extract(definition, []string{word}, opts)
	if res.IsFullDefinition {
		return truncate(res.Content, snippetRunes)
	}
	if len(res.Segments) > 0 {
		return res.Segments[0].Text
	}
	return truncate(definition, snippetRunes)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + " ..."
}
