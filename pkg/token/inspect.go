package token

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Kind is the token shape.
type Kind string

const (
	KindOpaque Kind = "opaque"
	KindJWT    Kind = "jwt"
)

// ErrEmpty is returned by Inspect for an empty token.
var ErrEmpty = errors.New("token: empty")

// Info is what can be learned from a token locally.
type Info struct {
	Kind        Kind
	Fingerprint string

	// ID is the numeric prefix of a personal access token.
	ID string

	// Claims below are only set for JWTs.
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the token carries an expiry in the past.
// Tokens without an expiry never report expired.
func (i Info) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && now.After(i.ExpiresAt)
}

// Inspect decodes what it can from token. A token that is neither a
// personal access token nor a parseable JWT is reported as opaque.
func Inspect(token string) (Info, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return Info{}, ErrEmpty
	}

	info := Info{Kind: KindOpaque, Fingerprint: Fingerprint(token)}

	if id, _, ok := strings.Cut(token, "|"); ok {
		info.ID = id
		return info, nil
	}
	if strings.Count(token, ".") != 2 {
		return info, nil
	}

	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return info, nil
	}

	info.Kind = KindJWT
	info.Subject = claims.Subject
	if claims.IssuedAt != nil {
		info.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	return info, nil
}
