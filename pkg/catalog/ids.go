package catalog

// ValidID reports whether id can name a catalog resource: non-empty and
// made only of base62 characters.
func ValidID(id string) bool {
	if id == "" {
		return false
	}
	for i := 0; i < len(id); i++ {
		if !isBase62(id[i]) {
			return false
		}
	}
	return true
}

func isBase62(b byte) bool {
	return ('0' <= b && b <= '9') || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
}

// countInvalid returns the number of ids ValidID rejects.
func countInvalid(ids []string) int {
	n := 0
	for _, id := range ids {
		if !ValidID(id) {
			n++
		}
	}
	return n
}
