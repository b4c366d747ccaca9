package memory

import (
	"context"
	"testing"
)

func TestMemoryStoreSaveLoadRemove(t *testing.T) {
	ctx := context.Background()
	s := New()

	got, err := s.Load(ctx, "a", "b")
	if err != nil || len(got) != 0 {
		t.Fatalf("unexpected load on empty store: %v %v", got, err)
	}

	if err := s.Save(ctx, map[string]string{"a": "1", "b": "2"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, _ = s.Load(ctx, "a", "b", "c")
	if len(got) != 2 || got["a"] != "1" || got["b"] != "2" {
		t.Fatalf("unexpected load: %v", got)
	}

	if err := s.Remove(ctx, "a", "missing"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("expected one key left, got %d", s.Len())
	}
}

func TestMemoryStoreSeedIsCopied(t *testing.T) {
	seed := map[string]string{"fields": "{}"}
	s := NewSeeded(seed)
	seed["fields"] = "changed"

	got, _ := s.Load(context.Background(), "fields")
	if got["fields"] != "{}" {
		t.Fatalf("seed not copied: %v", got)
	}
}

func TestMemoryStoreHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := New().Save(ctx, map[string]string{"a": "1"}); err == nil {
		t.Fatalf("expected context error")
	}
}
