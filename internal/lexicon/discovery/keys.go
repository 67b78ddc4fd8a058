package discovery

import (
	"strings"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/internal/textmatch/normalize"
)

// Tier records which key family found a root.
type Tier string

const (
	TierExact  Tier = "exact"
	TierRoot   Tier = "root"
	TierFormat Tier = "format"
)

const article = "ال"

type searchKey struct {
	text string
	tier Tier
}

// toggleArticle removes a leading ال from key, or adds one when absent.
// Removal keeps at least two letters.
func toggleArticle(key string) string {
	if rest, ok := strings.CutPrefix(key, article); ok {
		if utf8.RuneCountInString(rest) >= 2 {
			return rest
		}
		return ""
	}
	if key == "" {
		return ""
	}
	return article + key
}

// formats returns the spellings dictionaries use for a root column:
// spaced, dashed, parenthesized and bracketed.
func formats(key string) []string {
	letters := []rune(strings.Join(strings.Fields(key), ""))
	if len(letters) < 2 {
		return nil
	}
	parts := make([]string, len(letters))
	for i, r := range letters {
		parts[i] = string(r)
	}
	bare := string(letters)
	return []string{
		strings.Join(parts, " "),
		strings.Join(parts, "-"),
		"(" + bare + ")",
		"[" + bare + "]",
	}
}

// wordKeys are the indexed-word lookup keys: the word and its article
// toggle.
func wordKeys(word string) []string {
	w := normalize.Key(word)
	if w == "" {
		return nil
	}
	keys := []string{w}
	if t := toggleArticle(w); t != "" {
		keys = append(keys, t)
	}
	return keys
}

// rootKeys lists root lookup keys in priority order: the word, the word's
// article toggle, the hint, the hint's formatted spellings, the hint's
// article toggle. A key text appears once, under its first tier.
func rootKeys(word, hint string) []searchKey {
	w := normalize.Key(word)
	h := normalize.Key(hint)

	var keys []searchKey
	seen := map[string]bool{}
	add := func(text string, tier Tier) {
		if text == "" || seen[text] {
			return
		}
		seen[text] = true
		keys = append(keys, searchKey{text: text, tier: tier})
	}

	add(w, TierExact)
	if w != "" {
		add(toggleArticle(w), TierExact)
	}
	if h != "" {
		add(h, TierRoot)
		for _, f := range formats(h) {
			add(f, TierFormat)
		}
		add(toggleArticle(h), TierRoot)
	}
	return keys
}
