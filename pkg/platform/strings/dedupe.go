// Package strings holds small slice-of-string helpers shared by config
// parsing and list-valued settings.
package strings

import "strings"

// SplitList splits a comma-separated value and passes the parts through
// DedupeAndTrim.
func SplitList(s string, normalize func(string) string) []string {
	if s == "" {
		return nil
	}
	return DedupeAndTrim(strings.Split(s, ","), normalize)
}

// DedupeAndTrim trims each element, applies normalize when non-nil, and drops
// empties and repeats. Order of first occurrence is preserved.
func DedupeAndTrim(values []string, normalize func(string) string) []string {
	if len(values) == 0 {
		return values
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if normalize != nil {
			v = normalize(v)
		}
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
