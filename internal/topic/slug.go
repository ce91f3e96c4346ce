package topic

import (
	"strings"
	"unicode"
)

// Slug lowercases title and collapses every run of non-alphanumeric
// characters into one hyphen, trimming hyphens at either end.
// Letters and digits from any script count as alphanumeric.
func Slug(title string) string {
	var sb strings.Builder
	pendingHyphen := false

	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingHyphen && sb.Len() > 0 {
				sb.WriteByte('-')
			}
			pendingHyphen = false
			sb.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}

	return sb.String()
}
