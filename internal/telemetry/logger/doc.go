// Package logger provides structured logging for bunda-cli.
//
// It wraps log/slog behind a small Logger interface:
//
//   - logger.go: handler construction, dynamic level, package-level default
//   - context.go: context-carried logger and request IDs
//   - redact.go: masking of bearer tokens, passwords and other secrets
//
// Logs go to stderr so command output on stdout stays machine readable.
package logger
