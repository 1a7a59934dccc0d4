package archive_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/tailored-agentic-units/percept/archive"
)

func record(session string) archive.Record {
	return archive.Record{
		Session:    session,
		ArchivedAt: time.Now().UTC().Truncate(time.Second),
		Entries: []map[string]any{
			{"role": "user", "content": "hello"},
			{"role": "assistant", "content": "hi there"},
		},
	}
}

func TestFileStore_SaveAndLoad(t *testing.T) {
	store := archive.NewFileStore(t.TempDir())
	ctx := context.Background()

	want := record("s1")
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Session != "s1" || len(got.Entries) != 2 {
		t.Errorf("record = %+v", got)
	}
	if got.Entries[1]["content"] != "hi there" {
		t.Errorf("entries not preserved: %v", got.Entries)
	}
}

func TestFileStore_LoadMissing(t *testing.T) {
	store := archive.NewFileStore(t.TempDir())

	_, err := store.Load(context.Background(), "nobody")
	if !errors.Is(err, archive.ErrNotArchived) {
		t.Errorf("error = %v, want ErrNotArchived", err)
	}
}

func TestFileStore_List(t *testing.T) {
	root := t.TempDir()
	store := archive.NewFileStore(root)
	ctx := context.Background()

	for _, id := range []string{"b", "a", "c"} {
		if err := store.Save(ctx, record(id)); err != nil {
			t.Fatalf("Save %s: %v", id, err)
		}
	}
	// Stray non-archive files are ignored.
	if err := os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	sessions, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	sort.Strings(sessions)
	if len(sessions) != 3 || sessions[0] != "a" || sessions[2] != "c" {
		t.Errorf("sessions = %v", sessions)
	}
}

func TestFileStore_ListMissingRoot(t *testing.T) {
	store := archive.NewFileStore(filepath.Join(t.TempDir(), "never-created"))

	sessions, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("sessions = %v, want none", sessions)
	}
}

func TestFileStore_SaveOverwrites(t *testing.T) {
	store := archive.NewFileStore(t.TempDir())
	ctx := context.Background()

	first := record("s1")
	if err := store.Save(ctx, first); err != nil {
		t.Fatalf("Save: %v", err)
	}
	second := first
	second.Entries = append(second.Entries, map[string]any{"role": "user", "content": "more"})
	if err := store.Save(ctx, second); err != nil {
		t.Fatalf("Save again: %v", err)
	}

	got, err := store.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Entries) != 3 {
		t.Errorf("entries = %d, want overwritten record", len(got.Entries))
	}
}

func TestFileStore_Delete(t *testing.T) {
	store := archive.NewFileStore(t.TempDir())
	ctx := context.Background()

	if err := store.Save(ctx, record("s1")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Delete(ctx, "s1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Load(ctx, "s1"); !errors.Is(err, archive.ErrNotArchived) {
		t.Errorf("error after delete = %v, want ErrNotArchived", err)
	}

	// Deleting a missing session is not an error.
	if err := store.Delete(ctx, "s1"); err != nil {
		t.Errorf("Delete missing: %v", err)
	}
}
