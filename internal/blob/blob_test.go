package blob

import (
	"context"
	"io"
	"strings"
	"testing"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("new local store: %v", err)
	}
	ctx := context.Background()

	key := NewKey()
	content := "hello attachment"
	if err := store.Put(ctx, key, strings.NewReader(content), int64(len(content)), "text/plain"); err != nil {
		t.Fatalf("put: %v", err)
	}

	rc, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != content {
		t.Errorf("content = %q, want %q", data, content)
	}
}

func TestLocalStoreDelete(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("new local store: %v", err)
	}
	ctx := context.Background()

	key := NewKey()
	if err := store.Put(ctx, key, strings.NewReader("x"), 1, "text/plain"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, key); err == nil {
		t.Error("expected error reading deleted blob")
	}

	// deleting a missing key is not an error
	if err := store.Delete(ctx, "never-existed"); err != nil {
		t.Errorf("delete missing key: %v", err)
	}
}

func TestLocalStoreKeyCannotEscapeDir(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir)
	if err != nil {
		t.Fatalf("new local store: %v", err)
	}
	ctx := context.Background()

	if err := store.Put(ctx, "../../etc/passwd", strings.NewReader("x"), 1, "text/plain"); err != nil {
		t.Fatalf("put: %v", err)
	}
	// the traversal attempt lands inside the store directory
	if _, err := store.Get(ctx, "passwd"); err != nil {
		t.Errorf("expected traversal key flattened into dir: %v", err)
	}
}

func TestNewKeyUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		k := NewKey()
		if seen[k] {
			t.Fatalf("duplicate key %q", k)
		}
		seen[k] = true
	}
}
