package storage

import (
	"context"
	"errors"
	"time"
)

// Common errors.
var (
	ErrKeyNotFound = errors.New("key not found")
	ErrClosed      = errors.New("kv store closed")
)

// KV is the persistent key-value storage the token store sits on.
//
// Implementations must be safe for concurrent use. Every method may fail
// with an I/O error; callers decide what a failure means.
type KV interface {
	// Get returns the value for key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Clear removes all given keys atomically where the engine allows it.
	Clear(ctx context.Context, keys ...string) error

	// Close releases the underlying resources.
	Close() error
}

// KVConfig configures the local store.
type KVConfig struct {
	// Engine is "badger" (on disk) or "memory".
	Engine string

	// Dir is the badger directory.
	Dir string

	Badger BadgerConfig
}

// BadgerConfig contains Badger tuning for a small, rarely written store.
type BadgerConfig struct {
	// GCInterval is the interval between value-log GC runs.
	GCInterval time.Duration

	// GCThreshold is the discard ratio passed to RunValueLogGC.
	GCThreshold float64

	// ValueLogFileSize caps each value log file.
	ValueLogFileSize int64

	// SyncWrites fsyncs every write.
	SyncWrites bool
}

// DefaultKVConfig returns the default on-disk configuration.
func DefaultKVConfig(dir string) KVConfig {
	return KVConfig{
		Engine: "badger",
		Dir:    dir,
		Badger: DefaultBadgerConfig(),
	}
}

// DefaultBadgerConfig returns Badger settings sized for a token store.
func DefaultBadgerConfig() BadgerConfig {
	return BadgerConfig{
		GCInterval:       10 * time.Minute,
		GCThreshold:      0.5,
		ValueLogFileSize: 16 << 20, // 16MB
		SyncWrites:       true,
	}
}
