package pagination

import "slices"

// Chunk splits items into consecutive groups of at most size elements,
// preserving order and duplicates. Each chunk is capacity-clipped so
// appending to it never overwrites the next one.
//
// Chunk returns nil for an empty input and panics if size is less than 1.
func Chunk[T any](items []T, size int) [][]T {
	return slices.Collect(slices.Chunk(items, size))
}
