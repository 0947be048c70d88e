// Package pagination provides the windowing and batching primitives used by the
// catalog client.
//
// The catalog service exposes sub-collections (for example the tracks of an
// album) as offset/limit windows and accepts at most a fixed number of
// identifiers per batch lookup. This package holds the pure pieces of that
// contract so they can be tested without a network:
//
//   - Window normalizes caller supplied offset/limit pairs (limit 0 means the
//     default of 20, limits above 50 are rejected).
//   - Page is the service's paging envelope, relayed verbatim.
//   - Chunk splits an identifier list into consecutive bounded groups.
//   - Collector fetches every window of a sub-collection with a worker pool
//     and reassembles the items in collection order.
//
// Example usage:
//
//	w, err := pagination.Window{Offset: 40}.Normalize()
//	if err != nil {
//		return err
//	}
//	req.Query = w.Query() // offset=40&limit=20
//
//	for _, ids := range pagination.Chunk(albumIDs, 20) {
//		// one request per chunk
//	}
package pagination
