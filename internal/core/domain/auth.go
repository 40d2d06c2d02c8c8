// Package domain defines the core domain models for bunda-cli.
package domain

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	RevokeOthers bool   `json:"revoke_others,omitempty"`
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Name                 string `json:"name"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
	Phone                string `json:"phone,omitempty"`
}

// AuthResponse is returned by login and register.
type AuthResponse struct {
	Message string `json:"message"`
	User    User   `json:"user"`
	Token   string `json:"token"`
}

// MeResponse is returned by GET /auth/me.
type MeResponse struct {
	User User `json:"user"`
}

// RefreshTokenResponse is returned by POST /auth/refresh.
type RefreshTokenResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

// MessageResponse is a bare acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// UpdateProfileRequest is the body of PUT /auth/profile.
// Nil fields are left untouched by the backend.
type UpdateProfileRequest struct {
	Name              *string `json:"name,omitempty"`
	Phone             *string `json:"phone,omitempty"`
	AvatarURL         *string `json:"avatar_url,omitempty"`
	PushNotifications *bool   `json:"push_notifications,omitempty"`
	WeeklyReport      *bool   `json:"weekly_report,omitempty"`
}

// IsEmpty reports whether the request changes nothing.
func (r UpdateProfileRequest) IsEmpty() bool {
	return r.Name == nil && r.Phone == nil && r.AvatarURL == nil &&
		r.PushNotifications == nil && r.WeeklyReport == nil
}

// UpdateProfileResponse is returned by PUT /auth/profile.
type UpdateProfileResponse struct {
	Message string `json:"message"`
	User    User   `json:"user"`
}

// ErrorResponse is the error body returned by the backend for any non-2xx status.
// Errors is only populated for 422 validation failures.
type ErrorResponse struct {
	Message   string              `json:"message"`
	ErrorCode string              `json:"error_code,omitempty"`
	Errors    map[string][]string `json:"errors,omitempty"`
}
