package gc

// Collect builds the set of keys of items.
//
// Usage:
//
//	profileIDs := gc.Collect(profiles, func(p types.HardwareProfile) string { return p.ID })
func Collect[T any, K comparable](items []T, key func(T) K) map[K]struct{} {
	result := make(map[K]struct{}, len(items))
	for _, item := range items {
		result[key(item)] = struct{}{}
	}
	return result
}

// Exists reports whether a VM definition file is still present.
type Exists func(path string) bool
