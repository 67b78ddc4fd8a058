package discovery

import (
	"context"
	"strings"
	"unicode"

	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/internal/lexicon/store"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/internal/textmatch/segment"
	apperrors "github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/pkg/logger"
)

// RootLookup is the outcome of fetching one root from one dictionary.
type RootLookup struct {
	Found bool `json:"found"`
	// Swapped is set when the root was found only after exchanging the
	// dictionary and root arguments.
	Swapped bool        `json:"swapped,omitempty"`
	Root    *store.Root `json:"root,omitempty"`
	// Failed is set when the store could not answer.
	Failed bool `json:"failed,omitempty"`
}

// LookupRoot fetches root from dictionaryName. Callers sometimes pass the
// two arguments in the wrong order, so a miss is retried once swapped.
func (e *Engine) LookupRoot(ctx context.Context, dictionaryName, root string) RootLookup {
	dictionaryName, root = strings.TrimSpace(dictionaryName), strings.TrimSpace(root)
	if dictionaryName == "" || root == "" {
		return RootLookup{}
	}
	log := logger.FromContext(ctx).With("component", "discovery", "dictionary", dictionaryName, "root", root)

	r, err := e.reader.GetRoot(ctx, dictionaryName, root)
	if err == nil {
		return RootLookup{Found: true, Root: r}
	}
	if !apperrors.Is(err, apperrors.ErrRootNotFound) {
		log.Error("root lookup failed", "error", err)
		return RootLookup{Failed: true}
	}

	r, err = e.reader.GetRoot(ctx, root, dictionaryName)
	switch {
	case err == nil:
		log.Info("root found with swapped arguments")
		if e.metrics != nil {
			e.metrics.SwapRetriesTotal.Inc()
		}
		return RootLookup{Found: true, Swapped: true, Root: r}
	case apperrors.Is(err, apperrors.ErrRootNotFound):
		return RootLookup{}
	default:
		log.Error("swapped root lookup failed", "error", err)
		return RootLookup{Failed: true}
	}
}

// DefinitionRequest selects the part of a root's definition to return.
type DefinitionRequest struct {
	Dictionary string
	Root       string
	// Words anchor the segments. Empty means the root's own letters.
	Words      []string
	WindowSize int
	Full       bool
}

// Definition is a root lookup together with its extracted content.
type Definition struct {
	RootLookup
	segment.Result
}

// Definition looks the root up and extracts the segments of its definition
// around the requested words.
func (e *Engine) Definition(ctx context.Context, req DefinitionRequest) Definition {
	lookup := e.LookupRoot(ctx, req.Dictionary, req.Root)
	out := Definition{RootLookup: lookup}
	if !lookup.Found {
		return out
	}

	words := req.Words
	if len(words) == 0 {
		if bare := letters(lookup.Root.Root); bare != "" {
			words = []string{bare}
		}
	}
	opts := e.cfg.Segment
	if req.WindowSize > 0 {
		opts.WindowSize = req.WindowSize
	}
	opts.Full = req.Full
	out.Result = segment.Extract(lookup.Root.Definition, words, opts)
	if e.metrics != nil && !out.IsFullDefinition {
		e.metrics.SegmentsExtracted.Observe(float64(len(out.Segments)))
	}
	return out
}

// letters keeps the letters and diacritics of a root, dropping the
// separators some dictionaries write between them.
func letters(root string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.Is(unicode.Mn, r) {
			return r
		}
		return -1
	}, root)
}
