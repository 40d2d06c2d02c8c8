// Package logger provides structured logging for bunda-cli.
package logger

import (
	"log/slog"
	"strings"
)

// sensitiveKeyPatterns mark attribute keys whose values are never logged.
var sensitiveKeyPatterns = []string{
	"password",
	"secret",
	"token",
	"authorization",
	"credential",
	"passphrase",
	"encryption_key",
}

const redactedValue = "***REDACTED***"

const bearerPrefix = "Bearer "

// redactSensitive masks attribute values that carry credentials.
func redactSensitive(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindString {
		s := a.Value.String()
		if strings.HasPrefix(s, bearerPrefix) {
			return slog.String(a.Key, bearerPrefix+MaskToken(strings.TrimPrefix(s, bearerPrefix)))
		}
		if s != "" && IsSensitiveKey(a.Key) {
			return slog.String(a.Key, redactedValue)
		}
	}

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		out := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			out[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	}

	return a
}

// MaskToken keeps enough of a bearer token to tell tokens apart in logs.
//
// Tokens in "<id>|<secret>" form keep the id; the secret keeps its first
// and last three characters.
func MaskToken(token string) string {
	prefix := ""
	body := token
	if i := strings.IndexByte(token, '|'); i > 0 {
		prefix = token[:i+1]
		body = token[i+1:]
	}
	if len(body) <= 8 {
		return prefix + "***"
	}
	return prefix + body[:3] + "..." + body[len(body)-3:]
}

// IsSensitiveKey checks if a key name suggests sensitive content.
func IsSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(k, pattern) {
			return true
		}
	}
	return false
}
