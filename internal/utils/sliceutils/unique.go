package sliceutils

// Unique returns the distinct elements of s in the order they are first seen.
func Unique[T comparable](s []T) []T {
	seen := make(map[T]struct{}, len(s))
	var result []T
	for _, v := range s {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	return result
}
