package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jagoanbunda/bunda-cli/pkg/crypto/adaptive"
)

// SaltKey is where Sealed keeps its KDF salt. The salt is not secret.
const SaltKey = "@jagoanbunda:salt"

// ErrSealed is returned when a stored value cannot be opened, usually
// because the passphrase changed.
var ErrSealed = errors.New("sealed value cannot be opened")

// Sealed wraps a KV and encrypts every value except the salt.
// The key name is bound to each value as associated data, so a value
// copied to another key fails to open.
type Sealed struct {
	kv     KV
	sealer *adaptive.Sealer
}

// NewSealed derives a key from passphrase and the salt stored in kv,
// creating the salt on first use.
func NewSealed(ctx context.Context, kv KV, passphrase string, params adaptive.KDFParams) (*Sealed, error) {
	salt, err := kv.Get(ctx, SaltKey)
	if errors.Is(err, ErrKeyNotFound) {
		salt, err = adaptive.NewSalt()
		if err != nil {
			return nil, err
		}
		if err := kv.Set(ctx, SaltKey, salt); err != nil {
			return nil, fmt.Errorf("store salt: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("load salt: %w", err)
	}

	key, err := adaptive.DeriveKey([]byte(passphrase), salt, params)
	if err != nil {
		return nil, err
	}
	sealer, err := adaptive.New(key)
	if err != nil {
		return nil, err
	}

	return &Sealed{kv: kv, sealer: sealer}, nil
}

// Get returns the decrypted value for key.
func (s *Sealed) Get(ctx context.Context, key string) ([]byte, error) {
	raw, err := s.kv.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	plain, err := s.sealer.Open(raw, []byte(key))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSealed, key, err)
	}
	return plain, nil
}

// Set encrypts value and stores it under key.
func (s *Sealed) Set(ctx context.Context, key string, value []byte) error {
	if key == SaltKey {
		return fmt.Errorf("%s is reserved", SaltKey)
	}
	sealed, err := s.sealer.Seal(value, []byte(key))
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, key, sealed)
}

// Delete removes key.
func (s *Sealed) Delete(ctx context.Context, key string) error {
	return s.kv.Delete(ctx, key)
}

// Clear removes keys. The salt survives unless named explicitly.
func (s *Sealed) Clear(ctx context.Context, keys ...string) error {
	return s.kv.Clear(ctx, keys...)
}

// Close closes the wrapped store.
func (s *Sealed) Close() error {
	return s.kv.Close()
}
