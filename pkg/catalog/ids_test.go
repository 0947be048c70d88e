package catalog

import "testing"

func TestValidID(t *testing.T) {
	tests := []struct {
		id       string
		expected bool
	}{
		{"4aawyAB9vmqN3uQ7FjRGTy", true},
		{"0", true},
		{"Z", true},
		{"", false},
		{" ", false},
		{"abc-def", false},
		{"abc def", false},
		{"abc,def", false},
		{"abc/def", false},
		{"äbc", false},
		{"abc\x00", false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			if got := ValidID(tt.id); got != tt.expected {
				t.Errorf("ValidID(%q) = %v, want %v", tt.id, got, tt.expected)
			}
		})
	}
}

func TestCountInvalid(t *testing.T) {
	tests := []struct {
		name     string
		ids      []string
		expected int
	}{
		{"none", []string{"a", "b"}, 0},
		{"one empty", []string{"a", ""}, 1},
		{"two", []string{"-", "a", "?"}, 2},
		{"nil", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := countInvalid(tt.ids); got != tt.expected {
				t.Errorf("countInvalid() = %d, want %d", got, tt.expected)
			}
		})
	}
}
