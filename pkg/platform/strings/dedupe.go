// Package strings provides string manipulation utilities.
package strings

import (
	"strings"
)

// Union merges the given slices, dropping duplicates, empty values and anything
// listed in exclude. First-seen order is preserved and values are compared
// exactly, without trimming or case folding.
//
// Example:
//
//	Union([]string{"a", "b"}, []string{"b", "c"}).Excluding("a")
//	// Returns: []string{"b", "c"}
func Union[T ~string](sets ...[]T) UnionSet[T] {
	size := 0
	for _, set := range sets {
		size += len(set)
	}
	seen := make(map[T]struct{}, size)
	result := make([]T, 0, size)
	for _, set := range sets {
		for _, v := range set {
			if v == "" {
				continue
			}
			if _, ok := seen[v]; !ok {
				seen[v] = struct{}{}
				result = append(result, v)
			}
		}
	}
	return result
}

// UnionSet is the ordered result of Union.
type UnionSet[T ~string] []T

// Excluding returns the set without the given values.
func (u UnionSet[T]) Excluding(exclude ...T) []T {
	if len(exclude) == 0 {
		return []T(u)
	}
	result := make([]T, 0, len(u))
	for _, v := range u {
		skip := false
		for _, x := range exclude {
			if v == x {
				skip = true
				break
			}
		}
		if !skip {
			result = append(result, v)
		}
	}
	return result
}

// DedupeAndTrim removes duplicates and empty strings from a slice,
// trimming whitespace from each element. Order is preserved.
//
// Example:
//
//	DedupeAndTrim([]string{"  foo ", "bar", "foo", "", "  "})
//	// Returns: []string{"foo", "bar"}
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}
	trimmed := make([]string, 0, len(values))
	for _, v := range values {
		trimmed = append(trimmed, strings.TrimSpace(v))
	}
	return Union(trimmed)
}
