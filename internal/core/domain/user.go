// Package domain defines the core domain models for bunda-cli.
package domain

import (
	"strings"
	"time"
)

// UserType distinguishes parent accounts from health workers.
type UserType string

const (
	UserTypeParent UserType = "parent"
	UserTypeNakes  UserType = "nakes"
)

// User is the authenticated account profile.
type User struct {
	ID                int64      `json:"id"`
	Name              string     `json:"name"`
	Email             string     `json:"email"`
	Phone             *string    `json:"phone"`
	AvatarURL         *string    `json:"avatar_url"`
	UserType          UserType   `json:"user_type"`
	PushNotifications bool       `json:"push_notifications"`
	WeeklyReport      bool       `json:"weekly_report"`
	EmailVerifiedAt   *time.Time `json:"email_verified_at"`
	CreatedAt         time.Time  `json:"created_at"`
}

// Clone returns a deep copy of the user, or nil for a nil receiver.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.Phone != nil {
		p := *u.Phone
		c.Phone = &p
	}
	if u.AvatarURL != nil {
		a := *u.AvatarURL
		c.AvatarURL = &a
	}
	if u.EmailVerifiedAt != nil {
		t := *u.EmailVerifiedAt
		c.EmailVerifiedAt = &t
	}
	return &c
}

// IsParent reports whether the account is a parent account.
func (u *User) IsParent() bool {
	return u != nil && u.UserType == UserTypeParent
}

// AvatarURL resolves a stored avatar path against the API base URL.
//
// The backend returns paths relative to its public storage ("avatars/a.jpg");
// absolute URLs are returned unchanged. The API base ends in /api/v1 while
// storage lives at the site root.
func AvatarURL(apiURL, path string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	base := strings.TrimSuffix(strings.TrimRight(apiURL, "/"), "/api/v1")
	return base + "/storage/" + strings.TrimLeft(path, "/")
}
