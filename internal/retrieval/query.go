package retrieval

import (
	"slices"
	"strings"
	"unicode"
)

// MatchQuery turns free text into an FTS5 MATCH expression: each distinct
// word becomes a quoted term and terms are ORed. FTS5 operators in the input
// are neutralized. Returns "" when no words remain.
func MatchQuery(query string) string {
	words := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	var terms []string
	for _, w := range words {
		term := `"` + w + `"`
		if slices.Contains(terms, term) {
			continue
		}
		terms = append(terms, term)
		if len(terms) == MaxQueryTerms {
			break
		}
	}
	return strings.Join(terms, " OR ")
}
