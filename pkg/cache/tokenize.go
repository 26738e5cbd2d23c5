package cache

import (
	"sort"
	"strings"
	"unicode"
)

// stopWords is a small, English stop-word list. Similarity semantics
// depend on tokenizer/locale choice, so this is documented here rather
// than left implicit: it targets the multilingual/English corpus the
// Submission API actually receives.
var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "of": {}, "to": {},
	"in": {}, "on": {}, "is": {}, "are": {}, "was": {}, "were": {}, "for": {},
	"with": {}, "by": {}, "at": {}, "from": {}, "that": {}, "this": {}, "it": {},
	"be": {}, "as": {}, "about": {},
}

// Tokenize is a pure, deterministic word-level tokenizer: lowercase,
// split on non-letter/non-digit runs, drop single-character tokens and
// stop words. It returns a set (deduplicated) for the Jaccard similarity
// computation below.
func Tokenize(text string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if len([]rune(f)) <= 1 {
			continue
		}
		if _, stop := stopWords[f]; stop {
			continue
		}
		tokens[f] = struct{}{}
	}
	return tokens
}

// TokenSlice returns tokens as a sorted slice, for stable storage/serialization.
func TokenSlice(tokens map[string]struct{}) []string {
	out := make([]string, 0, len(tokens))
	for t := range tokens {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Jaccard computes |A∩B|/|A∪B| over two token sets. Returns 0 when either
// set is empty.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for t := range a {
		if _, ok := b[t]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
