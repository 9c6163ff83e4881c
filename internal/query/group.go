package query

import (
	"sort"
	"strings"
)

type Group[T Record] struct {
	Key   string
	Items []T
}

// GroupBy partitions items by the display value of field, keeping item order
// within each group. Groups are ordered by key, case-insensitively; records
// missing the field land in the "" group, which sorts first.
func GroupBy[T Record](items []T, field string) []Group[T] {
	index := map[string]int{}
	var groups []Group[T]
	for _, it := range items {
		v, _ := it.Field(field)
		key := asString(v)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, Group[T]{Key: key})
		}
		groups[i].Items = append(groups[i].Items, it)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return strings.ToLower(groups[i].Key) < strings.ToLower(groups[j].Key)
	})
	return groups
}

// Count returns how many items fall in each group.
func Count[T Record](items []T, field string) map[string]int {
	out := map[string]int{}
	for _, it := range items {
		v, _ := it.Field(field)
		out[asString(v)]++
	}
	return out
}
