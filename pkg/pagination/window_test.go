package pagination

import (
	"errors"
	"testing"
)

func TestWindow_Normalize(t *testing.T) {
	tests := []struct {
		name    string
		window  Window
		want    Window
		wantErr error
	}{
		{
			name:   "zero value uses defaults",
			window: Window{},
			want:   Window{Offset: 0, Limit: DefaultLimit},
		},
		{
			name:   "zero limit treated as unset",
			window: Window{Offset: 0, Limit: 0},
			want:   Window{Offset: 0, Limit: 20},
		},
		{
			name:   "offset kept with default limit",
			window: Window{Offset: 3},
			want:   Window{Offset: 3, Limit: 20},
		},
		{
			name:   "max limit accepted",
			window: Window{Offset: 500, Limit: 50},
			want:   Window{Offset: 500, Limit: 50},
		},
		{
			name:   "limit of one accepted",
			window: Window{Limit: 1},
			want:   Window{Limit: 1},
		},
		{
			name:    "limit above max rejected",
			window:  Window{Limit: 51},
			wantErr: ErrLimitTooLarge,
		},
		{
			name:    "negative limit rejected",
			window:  Window{Limit: -1},
			wantErr: ErrNegativeLimit,
		},
		{
			name:    "negative offset rejected",
			window:  Window{Offset: -5, Limit: 10},
			wantErr: ErrNegativeOffset,
		},
		{
			name:   "offset beyond any collection is not a client error",
			window: Window{Offset: 100000, Limit: 10},
			want:   Window{Offset: 100000, Limit: 10},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.window.Normalize()
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Normalize() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Normalize() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Normalize() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestErrLimitTooLarge_Message(t *testing.T) {
	want := "Invalid limit, cannot be greater than 50"
	if ErrLimitTooLarge.Error() != want {
		t.Errorf("ErrLimitTooLarge = %q, want %q", ErrLimitTooLarge.Error(), want)
	}
}

func TestWindow_Query(t *testing.T) {
	q := Window{Offset: 500, Limit: 50}.Query()

	if got := q.Get("offset"); got != "500" {
		t.Errorf("offset = %q, want 500", got)
	}
	if got := q.Get("limit"); got != "50" {
		t.Errorf("limit = %q, want 50", got)
	}
	if got := q.Encode(); got != "limit=50&offset=500" {
		t.Errorf("Encode() = %q", got)
	}
}

func TestPage_Links(t *testing.T) {
	next := "https://api.example.com/v1/albums/x/tracks?offset=20&limit=20"

	tests := []struct {
		name         string
		page         *Page[string]
		wantNext     bool
		wantPrevious bool
	}{
		{name: "nil page", page: nil},
		{name: "single page", page: &Page[string]{Total: 3, Items: []string{"a", "b", "c"}}},
		{name: "first of many", page: &Page[string]{Total: 40, Next: &next}, wantNext: true},
		{name: "middle", page: &Page[string]{Total: 60, Next: &next, Previous: &next}, wantNext: true, wantPrevious: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.page.HasNext(); got != tt.wantNext {
				t.Errorf("HasNext() = %v, want %v", got, tt.wantNext)
			}
			if got := tt.page.HasPrevious(); got != tt.wantPrevious {
				t.Errorf("HasPrevious() = %v, want %v", got, tt.wantPrevious)
			}
		})
	}
}
