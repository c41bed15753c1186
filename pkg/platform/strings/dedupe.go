// Package strings holds list helpers for user-supplied tags such as service
// names and city lists.
package strings

import "strings"

// Lowered trims, lowercases and dedupes values, dropping blanks. Order of
// first appearance is kept.
func Lowered(values []string) []string {
	return dedupe(values, func(v string) (string, string) {
		v = strings.ToLower(v)
		return v, v
	})
}

// DedupeFold trims values and drops blanks and case-insensitive repeats,
// keeping the first spelling seen: {"Austin", "austin "} yields {"Austin"}.
func DedupeFold(values []string) []string {
	return dedupe(values, func(v string) (string, string) {
		return strings.ToLower(v), v
	})
}

// ContainsFold reports whether values holds want under case folding.
func ContainsFold(values []string, want string) bool {
	want = strings.TrimSpace(want)
	for _, v := range values {
		if strings.EqualFold(strings.TrimSpace(v), want) {
			return true
		}
	}
	return false
}

func dedupe(values []string, split func(trimmed string) (key, keep string)) []string {
	if values == nil {
		return nil
	}
	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		key, keep := split(v)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, keep)
	}
	return out
}
