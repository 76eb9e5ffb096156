package sliceutils

// Chunk splits s into consecutive slices of at most size elements, in order.
// The returned slices share the backing array of s.
// It panics if size is not positive.
func Chunk[T any](s []T, size int) [][]T {
	if size <= 0 {
		panic("sliceutils.Chunk: size must be positive")
	}
	chunks := make([][]T, 0, (len(s)+size-1)/size)
	for start := 0; start < len(s); start += size {
		end := min(start+size, len(s))
		chunks = append(chunks, s[start:end:end])
	}
	return chunks
}
