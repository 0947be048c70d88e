// Package catalog is the resource client for the music catalog service.
//
// A Client turns album identifiers into typed results:
//
//	c, err := catalog.New(httpTransport, provider, catalog.DefaultConfig())
//	album, err := c.Album(ctx, "4aawyAB9vmqN3uQ7FjRGTy")
//	albums, err := c.Albums(ctx, ids)             // chunked by 20, input order kept
//	page, err := c.AlbumTracks(ctx, id, pagination.Window{Offset: 40, Limit: 50})
//
// Failures are *Error values with a Kind (bad request, not found, request
// failed) and the service's status and message. Match them with errors.Is
// against ErrBadRequest, ErrNotFound and ErrRequestFailed, or with errors.As
// to read the structured fields.
//
// The client never retries and never caches. Retries, throttling and 429
// cooldowns live in the transport; credentials are read from a
// credential.Provider before every dispatch and refreshed at most once at a
// time when expired.
package catalog
