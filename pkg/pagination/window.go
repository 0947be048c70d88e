package pagination

import (
	"errors"
	"net/url"
	"strconv"
)

const (
	// DefaultLimit is applied when a window leaves Limit unset (zero).
	DefaultLimit = 20

	// MaxLimit is the largest page size the catalog service accepts.
	MaxLimit = 50
)

// Window validation errors. The texts mirror the service's own messages and
// callers match on them.
var (
	ErrLimitTooLarge  = errors.New("Invalid limit, cannot be greater than 50")
	ErrNegativeLimit  = errors.New("Invalid limit, cannot be negative")
	ErrNegativeOffset = errors.New("Invalid offset, cannot be negative")
)

// Window describes a slice of an ordered sub-collection.
// The zero value selects the first DefaultLimit items.
type Window struct {
	Offset int
	Limit  int
}

// Normalize applies defaults and validates the window.
// A Limit of 0 is treated as unset and replaced by DefaultLimit.
func (w Window) Normalize() (Window, error) {
	switch {
	case w.Limit > MaxLimit:
		return Window{}, ErrLimitTooLarge
	case w.Limit < 0:
		return Window{}, ErrNegativeLimit
	case w.Offset < 0:
		return Window{}, ErrNegativeOffset
	}

	if w.Limit == 0 {
		w.Limit = DefaultLimit
	}
	return w, nil
}

// Query encodes the window as offset/limit query parameters.
func (w Window) Query() url.Values {
	return url.Values{
		"offset": []string{strconv.Itoa(w.Offset)},
		"limit":  []string{strconv.Itoa(w.Limit)},
	}
}
