package repl

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestHistory_Add(t *testing.T) {
	h := NewHistory("", 3)

	for _, line := range []string{"help", "help", "  ", "open profile", "login a@b.c secret", "whoami", "back"} {
		h.Add(line)
	}

	want := []string{"open profile", "whoami", "back"}
	if got := h.Entries(); !reflect.DeepEqual(got, want) {
		t.Errorf("Entries() = %v, want %v", got, want)
	}
}

func TestHistory_SaveLoad(t *testing.T) {
	file := filepath.Join(t.TempDir(), "nested", "history")

	h := NewHistory(file, 0)
	h.Add("open profile")
	h.Add("login siti@example.id")
	if err := h.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	fi, err := os.Stat(file)
	if err != nil {
		t.Fatal(err)
	}
	if fi.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v", fi.Mode().Perm())
	}

	loaded := NewHistory(file, 0)
	if err := loaded.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := loaded.Entries(); !reflect.DeepEqual(got, h.Entries()) {
		t.Errorf("loaded %v, want %v", got, h.Entries())
	}
}

func TestHistory_LoadMissing(t *testing.T) {
	h := NewHistory(filepath.Join(t.TempDir(), "none"), 0)
	if err := h.Load(); err != nil {
		t.Errorf("Load() missing file error = %v", err)
	}
	if err := NewHistory("", 0).Save(); err != nil {
		t.Errorf("Save() in-memory error = %v", err)
	}
}
