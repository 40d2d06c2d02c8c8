// Package memory provides an in-memory KV store for bunda-cli.
//
// It backs ephemeral sessions (--ephemeral) and tests. Contents are
// lost when the process exits.
package memory
