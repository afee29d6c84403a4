// Package strings parses comma separated lists from query parameters and flags.
package strings

import (
	"strings"
)

// SplitList splits raw on commas, trimming each element and dropping empties
// and repeats. Order of first appearance is kept.
//
//	SplitList(" confirmed,preparing, ,confirmed") // []string{"confirmed", "preparing"}
func SplitList(raw string) []string {
	return dedupe(strings.Split(raw, ","), strings.TrimSpace)
}

// SplitListLower is SplitList with each element lowercased first, for
// case-insensitive enum values.
func SplitListLower(raw string) []string {
	return dedupe(strings.Split(raw, ","), func(s string) string {
		return strings.ToLower(strings.TrimSpace(s))
	})
}

func dedupe(values []string, normalize func(string) string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		v = normalize(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			result = append(result, v)
		}
	}
	return result
}
