package snapshot

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/johndauphine/partddl/internal/dbconfig"
)

func openTestStore(t *testing.T) Store {
	t.Helper()
	store, err := Open(context.Background(), dbconfig.StoreConfig{
		Type: "sqlite",
		Path: filepath.Join(t.TempDir(), "snapshots.db"),
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNew(t *testing.T) {
	s := New("SH", "SALES", "TABLE", "PARTITION BY RANGE (D)")
	if _, err := uuid.Parse(s.ID); err != nil {
		t.Errorf("ID %q is not a UUID: %v", s.ID, err)
	}
	if s.Checksum != Checksum("PARTITION BY RANGE (D)") || len(s.Checksum) != 64 {
		t.Errorf("Checksum = %q", s.Checksum)
	}
	if s.CreatedAt.IsZero() || s.CreatedAt.Location() != time.UTC {
		t.Errorf("CreatedAt = %v", s.CreatedAt)
	}
}

func TestSQLiteSaveAndLatest(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	if _, err := store.Latest(ctx, "SH", "SALES", "TABLE"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Latest() on empty store = %v, want ErrNotFound", err)
	}

	first := New("SH", "SALES", "TABLE", "v1")
	saved, err := store.Save(ctx, first)
	if err != nil || !saved {
		t.Fatalf("Save(first) = %v, %v", saved, err)
	}

	// Same DDL again is not stored.
	saved, err = store.Save(ctx, New("SH", "SALES", "TABLE", "v1"))
	if err != nil || saved {
		t.Fatalf("Save(duplicate) = %v, %v; want false, nil", saved, err)
	}

	second := New("SH", "SALES", "TABLE", "v2")
	if saved, err := store.Save(ctx, second); err != nil || !saved {
		t.Fatalf("Save(second) = %v, %v", saved, err)
	}

	// A different kind with the same name is tracked separately.
	if _, err := store.Save(ctx, New("SH", "SALES", "INDEX", "ix")); err != nil {
		t.Fatal(err)
	}

	got, err := store.Latest(ctx, "SH", "SALES", "TABLE")
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if got.ID != second.ID || got.DDL != "v2" || got.Checksum != second.Checksum {
		t.Errorf("Latest() = %+v, want second snapshot", got)
	}
	if !got.CreatedAt.Equal(second.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, second.CreatedAt)
	}

	ix, err := store.Latest(ctx, "SH", "SALES", "INDEX")
	if err != nil || ix.DDL != "ix" {
		t.Errorf("Latest(INDEX) = %+v, %v", ix, err)
	}
}

func TestSQLiteReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "snapshots.db")

	store, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Save(ctx, New("SH", "EVENTS", "TABLE", "ddl")); err != nil {
		t.Fatal(err)
	}
	store.Close()

	store, err = OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer store.Close()

	got, err := store.Latest(ctx, "SH", "EVENTS", "TABLE")
	if err != nil || got.DDL != "ddl" {
		t.Errorf("Latest() after reopen = %+v, %v", got, err)
	}
}

func TestOpenUnsupported(t *testing.T) {
	_, err := Open(context.Background(), dbconfig.StoreConfig{Type: "redis"})
	if err == nil || !strings.Contains(err.Error(), "redis") {
		t.Errorf("Open(redis) error = %v", err)
	}
}
