// Package match finds calendar events plausibly related to a free-text
// subject name. The heuristics are tuned for short, human-typed subject
// names, not open-domain search.
package match

import (
	"regexp"
	"sort"
	"strings"
)

var (
	punctRe = regexp.MustCompile(`[^\w\s]`)
	wordRe  = regexp.MustCompile(`\w+`)
)

// abbreviation expansions applied as plain substring replacements. This
// is deliberately not token-boundary-aware and mirrors how users type
// subjects like "aiml"; the trade-off is occasional false expansions
// inside unrelated words.
var expansions = []struct{ from, to string }{
	{"&", " and "},
	{"ml", "machine learning"},
	{"ai", "artificial intelligence"},
	{"dbms", "database management"},
}

// Normalize expands a subject into its matchable variants: the
// case-folded, punctuation-stripped subject, each abbreviation
// expansion, and the token-sorted-and-rejoined form. Variants are
// deduplicated and returned in sorted order for determinism. An empty
// subject yields a single empty-string variant.
func Normalize(subject string) []string {
	s := strings.ToLower(subject)
	s = punctRe.ReplaceAllString(s, " ")

	variants := map[string]struct{}{s: {}}
	for _, exp := range expansions {
		variants[strings.ReplaceAll(s, exp.from, exp.to)] = struct{}{}
	}

	if toks := tokenize(s); len(toks) > 0 {
		sorted := append([]string(nil), toks...)
		sort.Strings(sorted)
		variants[strings.Join(sorted, " ")] = struct{}{}
	}

	out := make([]string, 0, len(variants))
	for v := range variants {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func tokenize(s string) []string {
	return wordRe.FindAllString(s, -1)
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range tokenize(s) {
		set[tok] = struct{}{}
	}
	return set
}
