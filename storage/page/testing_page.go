package page

import (
	"math/rand"
)

// TestingNewRandomPage returns page filled with random bytes except for the header
func TestingNewRandomPage() PagePtr {
	p := NewPagePtr()
	// math/rand Read never fails
	_, _ = rand.Read(p[headerSize:])
	return p
}
