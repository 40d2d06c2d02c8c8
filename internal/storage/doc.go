// Package storage provides the local key-value storage the CLI keeps its
// session in.
//
// Engines:
//
//   - Badger: on-disk store under the config directory (default)
//   - Memory: process-local map, used with --ephemeral and in tests
//
// Either engine can be wrapped with Sealed to encrypt values at rest with
// a key derived from a passphrase.
//
// The typed token store built on top of KV lives in storage/tokenstore.
package storage
