package utils

import (
	"sort"
	"strings"
)

// StringSet collects distinct non-empty strings.
type StringSet map[string]struct{}

// NewStringSet builds a set from values, skipping empty strings.
func NewStringSet(values ...string) StringSet {
	s := make(StringSet, len(values))
	s.Add(values...)
	return s
}

// Add inserts values, skipping empty strings.
func (s StringSet) Add(values ...string) {
	for _, v := range values {
		if v != "" {
			s[v] = struct{}{}
		}
	}
}

// Merge inserts every value of other.
func (s StringSet) Merge(other StringSet) {
	for v := range other {
		s[v] = struct{}{}
	}
}

// Has reports whether v is in the set.
func (s StringSet) Has(v string) bool {
	_, ok := s[v]
	return ok
}

// Sorted returns the members in ascending order.
func (s StringSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// UniqueSorted returns the distinct non-empty values in ascending order.
func UniqueSorted(values []string) []string {
	return NewStringSet(values...).Sorted()
}

// JoinList encodes values as a comma-separated list.
func JoinList(values []string) string {
	return strings.Join(values, ",")
}

// SplitList decodes a comma-separated list, dropping empty entries.
func SplitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
