package pagination

// Page is one window of a paginated sub-collection as reported by the
// catalog service. Next and Previous are nil when the service reports null.
//
// The client never recomputes these fields; they are passed through exactly
// as decoded.
type Page[T any] struct {
	Href     string  `json:"href"`
	Items    []T     `json:"items"`
	Limit    int     `json:"limit"`
	Offset   int     `json:"offset"`
	Total    int     `json:"total"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
}

// HasNext reports whether the service advertised a following window.
func (p *Page[T]) HasNext() bool {
	return p != nil && p.Next != nil
}

// HasPrevious reports whether the service advertised a preceding window.
func (p *Page[T]) HasPrevious() bool {
	return p != nil && p.Previous != nil
}
