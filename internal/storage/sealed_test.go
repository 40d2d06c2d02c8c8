package storage_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/jagoanbunda/bunda-cli/internal/storage"
	"github.com/jagoanbunda/bunda-cli/internal/storage/memory"
	"github.com/jagoanbunda/bunda-cli/pkg/crypto/adaptive"
)

var fastKDF = adaptive.KDFParams{Time: 1, Memory: 1024, Threads: 1}

func TestSealed_RoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()

	s, err := storage.NewSealed(ctx, kv, "rahasia", fastKDF)
	if err != nil {
		t.Fatalf("NewSealed() error = %v", err)
	}

	if err := s.Set(ctx, "@jagoanbunda:token", []byte("12|abc")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	raw, err := kv.Get(ctx, "@jagoanbunda:token")
	if err != nil {
		t.Fatalf("raw Get() error = %v", err)
	}
	if bytes.Contains(raw, []byte("12|abc")) {
		t.Error("value stored in plaintext")
	}

	got, err := s.Get(ctx, "@jagoanbunda:token")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != "12|abc" {
		t.Errorf("Get() = %q", got)
	}
}

func TestSealed_SaltPersists(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()

	s1, _ := storage.NewSealed(ctx, kv, "rahasia", fastKDF)
	_ = s1.Set(ctx, "k", []byte("v"))

	s2, err := storage.NewSealed(ctx, kv, "rahasia", fastKDF)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	got, err := s2.Get(ctx, "k")
	if err != nil || string(got) != "v" {
		t.Errorf("Get() after reopen = %q, %v", got, err)
	}
}

func TestSealed_WrongPassphrase(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()

	s1, _ := storage.NewSealed(ctx, kv, "rahasia", fastKDF)
	_ = s1.Set(ctx, "k", []byte("v"))

	s2, _ := storage.NewSealed(ctx, kv, "salah", fastKDF)
	if _, err := s2.Get(ctx, "k"); !errors.Is(err, storage.ErrSealed) {
		t.Errorf("Get() error = %v, want ErrSealed", err)
	}
}

func TestSealed_KeyBinding(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	s, _ := storage.NewSealed(ctx, kv, "rahasia", fastKDF)

	_ = s.Set(ctx, "a", []byte("v"))
	raw, _ := kv.Get(ctx, "a")
	_ = kv.Set(ctx, "b", raw)

	if _, err := s.Get(ctx, "b"); !errors.Is(err, storage.ErrSealed) {
		t.Errorf("moved value opened, error = %v", err)
	}
}

func TestSealed_PassThrough(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	s, _ := storage.NewSealed(ctx, kv, "rahasia", fastKDF)

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, storage.ErrKeyNotFound) {
		t.Errorf("Get(missing) error = %v", err)
	}
	if err := s.Set(ctx, storage.SaltKey, []byte("x")); err == nil {
		t.Error("Set(SaltKey) should be rejected")
	}

	_ = s.Set(ctx, "a", []byte("1"))
	_ = s.Set(ctx, "b", []byte("2"))
	if err := s.Clear(ctx, "a", "b"); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if _, err := kv.Get(ctx, storage.SaltKey); err != nil {
		t.Errorf("salt removed by Clear: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := s.Set(ctx, "a", []byte("1")); !errors.Is(err, storage.ErrClosed) {
		t.Errorf("Set() after Close error = %v", err)
	}
}
