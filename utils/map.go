package utils

// MergeByKey returns base with items from add merged in by key. Every base
// item whose key appears in add is replaced by that add item; base items are
// never dropped, including base items that share a key. Keys only in add are
// appended once, in order, with the last occurrence winning. Neither input
// slice is modified.
func MergeByKey[T any, K comparable](base, add []T, key func(T) K) []T {
	latest := make(map[K]T, len(add))
	var order []K
	for _, item := range add {
		k := key(item)
		if _, ok := latest[k]; !ok {
			order = append(order, k)
		}
		latest[k] = item
	}
	out := make([]T, 0, len(base)+len(order))
	inBase := make(map[K]struct{}, len(base))
	for _, item := range base {
		k := key(item)
		inBase[k] = struct{}{}
		if repl, ok := latest[k]; ok {
			item = repl
		}
		out = append(out, item)
	}
	for _, k := range order {
		if _, ok := inBase[k]; !ok {
			out = append(out, latest[k])
		}
	}
	return out
}

// RemoveByKey returns a copy of items without the entries whose key is k,
// and whether anything was removed.
func RemoveByKey[T any, K comparable](items []T, k K, key func(T) K) ([]T, bool) {
	out := make([]T, 0, len(items))
	removed := false
	for _, item := range items {
		if key(item) == k {
			removed = true
			continue
		}
		out = append(out, item)
	}
	return out, removed
}
