package random_test

import (
	"strings"
	"testing"

	"pokermates/pkg/utils/random"
)

func TestRoomCode(t *testing.T) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	code := random.RoomCode(6)
	if len(code) != 6 {
		t.Fatalf("expected length 6, got %q", code)
	}
	for _, r := range code {
		if !strings.ContainsRune(charset, r) {
			t.Fatalf("character %q outside the code charset", r)
		}
	}

	if random.RoomCode(0) != "" {
		t.Fatalf("zero length must yield an empty code")
	}

	// collisions in a tiny sample would mean a broken generator
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		seen[random.RoomCode(6)] = true
	}
	if len(seen) < 95 {
		t.Fatalf("suspiciously many collisions: %d distinct of 100", len(seen))
	}
}
