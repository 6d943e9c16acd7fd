package local

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type record struct {
	Name  string   `json:"name"`
	Items []string `json:"items"`
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "data"))
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return store
}

func TestStore_SaveLoad(t *testing.T) {
	store := newTestStore(t)

	in := record{Name: "An", Items: []string{"k1", "k2"}}
	if err := store.Save("py_master_student", in); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	var out record
	if err := store.Load("py_master_student", &out); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if out.Name != in.Name || len(out.Items) != 2 {
		t.Errorf("Load() = %+v, want %+v", out, in)
	}

	if _, err := os.Stat(filepath.Join(store.BasePath(), "py_master_student.json")); err != nil {
		t.Errorf("record file missing: %v", err)
	}
}

func TestStore_Overwrite(t *testing.T) {
	store := newTestStore(t)

	if err := store.Save("k", record{Name: "first"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Save("k", record{Name: "second"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	var out record
	if err := store.Load("k", &out); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if out.Name != "second" {
		t.Errorf("Name = %q, want %q", out.Name, "second")
	}

	keys, err := store.Keys()
	if err != nil {
		t.Fatalf("Keys() error = %v", err)
	}
	if len(keys) != 1 {
		t.Errorf("Keys() = %v, want a single key (no temp files left behind)", keys)
	}
}

func TestStore_LoadMissing(t *testing.T) {
	store := newTestStore(t)

	var out record
	if err := store.Load("missing", &out); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load() error = %v, want ErrNotFound", err)
	}
}

func TestStore_LoadCorrupt(t *testing.T) {
	store := newTestStore(t)

	path := filepath.Join(store.BasePath(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("failed to write corrupt record: %v", err)
	}

	var out record
	if err := store.Load("bad", &out); !errors.Is(err, ErrCorrupt) {
		t.Errorf("Load() error = %v, want ErrCorrupt", err)
	}
}

func TestStore_Delete(t *testing.T) {
	store := newTestStore(t)

	if err := store.Save("k", record{Name: "x"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Delete("k"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	var out record
	if err := store.Load("k", &out); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load() after Delete error = %v, want ErrNotFound", err)
	}
	if err := store.Delete("k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestStore_InvalidKeys(t *testing.T) {
	store := newTestStore(t)

	for _, key := range []string{"", ".", "..", "../escape", `a\b`} {
		if err := store.Save(key, record{}); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Save(%q) error = %v, want ErrInvalidKey", key, err)
		}
		if err := store.Delete(key); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Delete(%q) error = %v, want ErrInvalidKey", key, err)
		}
	}
}
