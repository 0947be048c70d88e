package catalog

import "github.com/Sternrassler/catalog-client/pkg/pagination"

// Image is a cover art rendition.
type Image struct {
	URL    string `json:"url"`
	Height *int   `json:"height"`
	Width  *int   `json:"width"`
}

// ArtistRef is the simplified artist object embedded in albums and tracks.
type ArtistRef struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Type         string            `json:"type"`
	URI          string            `json:"uri"`
	Href         string            `json:"href"`
	ExternalURLs map[string]string `json:"external_urls,omitempty"`
}

// Track is the simplified track object listed under an album.
type Track struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Type         string            `json:"type"`
	TrackNumber  int               `json:"track_number"`
	DiscNumber   int               `json:"disc_number"`
	DurationMs   int               `json:"duration_ms"`
	Explicit     bool              `json:"explicit"`
	PreviewURL   *string           `json:"preview_url"`
	URI          string            `json:"uri"`
	Href         string            `json:"href"`
	ExternalURLs map[string]string `json:"external_urls,omitempty"`
	Artists      []ArtistRef       `json:"artists"`
}

// Album is a full album object including the first page of its tracks.
type Album struct {
	ID                   string                 `json:"id"`
	Name                 string                 `json:"name"`
	Type                 string                 `json:"type"`
	AlbumType            string                 `json:"album_type"`
	ReleaseDate          string                 `json:"release_date"`
	ReleaseDatePrecision string                 `json:"release_date_precision"`
	TotalTracks          int                    `json:"total_tracks"`
	Label                string                 `json:"label,omitempty"`
	Popularity           int                    `json:"popularity"`
	Genres               []string               `json:"genres"`
	URI                  string                 `json:"uri"`
	Href                 string                 `json:"href"`
	ExternalURLs         map[string]string      `json:"external_urls,omitempty"`
	Images               []Image                `json:"images"`
	Artists              []ArtistRef            `json:"artists"`
	Tracks               pagination.Page[Track] `json:"tracks"`
}

// batchAlbums is the envelope of GET /albums?ids=...
// Unknown ids inside a valid batch come back as null.
type batchAlbums struct {
	Albums []*Album `json:"albums"`
}
