package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/MrSnakeDoc/quickmark/internal/store"
)

func TestBackend(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "quickmark.db")

	b, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer func() { _ = b.Close() }()

	if _, err := b.Get(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}

	if err := b.SetMany(ctx, map[string][]byte{"a": []byte("1"), "b": []byte("2")}); err != nil {
		t.Fatalf("SetMany() error = %v", err)
	}
	if err := b.SetMany(ctx, map[string][]byte{"a": []byte("3")}); err != nil {
		t.Fatalf("SetMany() overwrite error = %v", err)
	}

	got, err := b.Get(ctx, "a")
	if err != nil || string(got) != "3" {
		t.Errorf("Get(a) = %q, %v, want 3", got, err)
	}

	if err := b.Delete(ctx, "a", "missing"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := b.Get(ctx, "a"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Get(a) after delete error = %v, want ErrNotFound", err)
	}
	if got, _ := b.Get(ctx, "b"); string(got) != "2" {
		t.Errorf("Get(b) = %q, want 2", got)
	}

	names, err := b.Names(ctx)
	if err != nil || len(names) != 1 || names[0] != "b" {
		t.Errorf("Names() = %v, %v, want [b]", names, err)
	}
}

func TestBackend_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "quickmark.db")

	b, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	local := store.New(b)
	id, err := local.DeviceID(ctx)
	if err != nil {
		t.Fatalf("DeviceID() error = %v", err)
	}
	_ = local.Close()

	b, err = Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	local = store.New(b)
	defer func() { _ = local.Close() }()

	again, _ := local.DeviceID(ctx)
	if again != id {
		t.Errorf("DeviceID() after reopen = %q, want %q", again, id)
	}
}
