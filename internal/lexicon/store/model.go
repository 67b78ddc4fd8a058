package store

import (
	"encoding/json"
	"fmt"
)

// Kind is the dictionary type column.
type Kind string

const (
	// KindClassical dictionaries are filed under canonical roots.
	KindClassical Kind = "lo3awi"
	// KindDigitized dictionaries hold compound entries searched by substring.
	KindDigitized Kind = "moraqman"
)

// Indexing patterns describe how a dictionary writes its root column.
const (
	PatternRootSimple    = "root_simple"
	PatternWordFull      = "word_full"
	PatternWordWithAl    = "word_with_al"
	PatternRootSpaced    = "root_spaced"
	PatternRootDashed    = "root_dashed"
	PatternRootBracketed = "root_bracketed"
	PatternMixed         = "mixed"
)

type Dictionary struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	IndexingPattern string `json:"indexing_pattern"`
	Kind            Kind   `json:"type"`
}

// Root is one dictionary entry. DictionaryName is filled by queries that
// join the dictionaries table.
type Root struct {
	ID                int64  `json:"id"`
	DictionaryID      int64  `json:"dictionary_id"`
	DictionaryName    string `json:"dictionary_name"`
	Kind              Kind   `json:"type"`
	Root              string `json:"root"`
	Definition        string `json:"definition"`
	FirstWordPosition *int   `json:"first_word_position,omitempty"`
}

// IndexedWord is a surface form filed under a root together with the rune
// offsets at which it appears in the root's definition.
type IndexedWord struct {
	ID             int64  `json:"id"`
	RootID         int64  `json:"root_id"`
	Root           string `json:"root,omitempty"`
	DictionaryName string `json:"dictionary_name,omitempty"`
	Word           string `json:"word"`
	FirstPosition  *int   `json:"first_position,omitempty"`
	AllPositions   []int  `json:"all_positions"`
}

// WordUpdate is the recomputed index of one word.
type WordUpdate struct {
	ID           int64
	WordPlain    string
	AllPositions []int
}

// RootUpdate is the recomputed index of one root and all its words.
type RootUpdate struct {
	RootID    int64
	RootPlain string
	Words     []WordUpdate
}

func decodePositions(raw string) ([]int, error) {
	if raw == "" {
		return []int{}, nil
	}
	var out []int
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decoding all_positions %q: %w", raw, err)
	}
	if out == nil {
		out = []int{}
	}
	return out, nil
}

func encodePositions(positions []int) string {
	if len(positions) == 0 {
		return "[]"
	}
	data, _ := json.Marshal(positions)
	return string(data)
}
