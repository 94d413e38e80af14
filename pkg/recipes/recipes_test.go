package recipes

import "testing"

func TestEmbeddedTableIsComplete(t *testing.T) {
	for _, name := range names {
		r, ok := Get(name)
		if !ok {
			t.Fatalf("recipe %q missing from table", name)
		}
		if r.Hash == "" {
			t.Fatalf("recipe %q has empty hash", name)
		}
		if len(r.Bytes) == 0 {
			t.Fatalf("recipe %q has empty content", name)
		}
	}
}

func TestHashIsDeterministic(t *testing.T) {
	h1 := Hash("base")
	h2 := Hash("base")
	if h1 != h2 || h1 == "" {
		t.Fatalf("expected stable non-empty hash, got %q and %q", h1, h2)
	}
}

func TestShortHashBytesLength(t *testing.T) {
	short := ShortHashBytes([]byte("FROM debian\n"))
	if len(short) != 6 {
		t.Fatalf("expected 6 hex characters, got %q", short)
	}
}

func TestUnknownRecipeNotFound(t *testing.T) {
	if _, ok := Get("cobol"); ok {
		t.Fatal("expected unknown recipe to be absent")
	}
}
