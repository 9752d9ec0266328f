package enrich

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

const maxTagRunes = 40

// NormalizeTags cleans model tags while keeping their relevance order.
// Duplicates are detected case-insensitively; the first spelling wins.
func NormalizeTags(tags []string, limit int) []string {
	fold := cases.Fold()
	seen := make(map[string]bool, len(tags))
	normalized := make([]string, 0, len(tags))

	for _, tag := range tags {
		tag = norm.NFC.String(tag)
		tag = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(tag), "#"))
		tag = strings.Join(strings.Fields(tag), " ")
		if tag == "" {
			continue
		}
		tag = truncateRunes(tag, maxTagRunes)

		key := fold.String(tag)
		if seen[key] {
			continue
		}
		seen[key] = true
		normalized = append(normalized, tag)

		if limit > 0 && len(normalized) == limit {
			break
		}
	}

	return normalized
}

// truncateRunes cuts s to at most n runes on a rune boundary.
func truncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:n]))
}
