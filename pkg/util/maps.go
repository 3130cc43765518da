package util

import (
	"cmp"
	"maps"
	"slices"
)

// SortedKeys returns a map's keys in sorted order
func SortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	res := slices.Collect(maps.Keys(m))
	slices.Sort(res)
	return res
}
