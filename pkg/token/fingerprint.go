package token

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// FingerprintLength is the number of hex characters Fingerprint returns.
const FingerprintLength = 12

// Fingerprint returns a short, stable identifier for a token that is safe
// to print: the leading hex characters of its SHA-256.
func Fingerprint(token string) string {
	if token == "" {
		return ""
	}
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])[:FingerprintLength]
}

// Equal compares two tokens in constant time.
func Equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
