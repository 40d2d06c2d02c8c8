// Package tokenstore persists the bearer token and the cached user profile.
package tokenstore

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jagoanbunda/bunda-cli/internal/core/domain"
	"github.com/jagoanbunda/bunda-cli/internal/storage"
)

// Storage keys.
const (
	TokenKey = "@jagoanbunda:token"
	UserKey  = "@jagoanbunda:user"
)

// Store is the Token Store. All failures are *domain.Error of KindStorage.
type Store struct {
	kv storage.KV
}

// New creates a token store over kv.
func New(kv storage.KV) *Store {
	return &Store{kv: kv}
}

// GetToken returns the stored bearer token, or "" if none is stored.
func (s *Store) GetToken(ctx context.Context) (string, error) {
	v, err := s.kv.Get(ctx, TokenKey)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", domain.NewStorageError("read token", err)
	}
	return string(v), nil
}

// SetToken stores the bearer token.
func (s *Store) SetToken(ctx context.Context, token string) error {
	if err := s.kv.Set(ctx, TokenKey, []byte(token)); err != nil {
		return domain.NewStorageError("write token", err)
	}
	return nil
}

// RemoveToken deletes the bearer token.
func (s *Store) RemoveToken(ctx context.Context) error {
	if err := s.kv.Delete(ctx, TokenKey); err != nil {
		return domain.NewStorageError("remove token", err)
	}
	return nil
}

// GetUser returns the cached user, or nil if none is cached.
func (s *Store) GetUser(ctx context.Context) (*domain.User, error) {
	v, err := s.kv.Get(ctx, UserKey)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewStorageError("read user", err)
	}

	var u domain.User
	if err := json.Unmarshal(v, &u); err != nil {
		return nil, domain.NewStorageError("decode user", err)
	}
	return &u, nil
}

// SetUser caches the user record as JSON.
func (s *Store) SetUser(ctx context.Context, u *domain.User) error {
	if u == nil {
		return s.RemoveUser(ctx)
	}
	data, err := json.Marshal(u)
	if err != nil {
		return domain.NewStorageError("encode user", err)
	}
	if err := s.kv.Set(ctx, UserKey, data); err != nil {
		return domain.NewStorageError("write user", err)
	}
	return nil
}

// RemoveUser deletes the cached user.
func (s *Store) RemoveUser(ctx context.Context) error {
	if err := s.kv.Delete(ctx, UserKey); err != nil {
		return domain.NewStorageError("remove user", err)
	}
	return nil
}

// Clear removes both the token and the cached user.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.kv.Clear(ctx, TokenKey, UserKey); err != nil {
		return domain.NewStorageError("clear session", err)
	}
	return nil
}

// IsAuthenticated reports whether a token is stored. It does not contact
// the server.
func (s *Store) IsAuthenticated(ctx context.Context) (bool, error) {
	tok, err := s.GetToken(ctx)
	if err != nil {
		return false, err
	}
	return tok != "", nil
}

// StoredUser returns the cached user only when a token is also stored.
func (s *Store) StoredUser(ctx context.Context) (*domain.User, error) {
	ok, err := s.IsAuthenticated(ctx)
	if err != nil || !ok {
		return nil, err
	}
	return s.GetUser(ctx)
}
