package testutil

import "testing"

func TestSeqIDGenerator(t *testing.T) {
	gen := NewSeqIDGenerator("id")

	for i, want := range []string{"id-1", "id-2", "id-3"} {
		if got := gen.NewID(); got != want {
			t.Fatalf("NewID() #%d = %q, want %q", i+1, got, want)
		}
	}

	other := NewSeqIDGenerator("q")
	if got := other.NewID(); got != "q-1" {
		t.Fatalf("independent generator: got %q, want q-1", got)
	}
}
