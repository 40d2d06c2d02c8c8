package api

import (
	"context"

	"github.com/jagoanbunda/bunda-cli/internal/core/domain"
)

// Auth endpoints, relative to the base URL.
const (
	PathLogin    = "/auth/login"
	PathRegister = "/auth/register"
	PathLogout   = "/auth/logout"
	PathMe       = "/auth/me"
	PathRefresh  = "/auth/refresh"
	PathProfile  = "/auth/profile"
)

// AuthService wraps the authentication endpoints.
type AuthService struct {
	client *Client
}

// NewAuthService creates an AuthService on c.
func NewAuthService(c *Client) *AuthService {
	return &AuthService{client: c}
}

// Login exchanges credentials for a token and the user profile.
func (s *AuthService) Login(ctx context.Context, req domain.LoginRequest) (*domain.AuthResponse, error) {
	var resp domain.AuthResponse
	if err := s.client.Post(ctx, PathLogin, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Register creates a parent account and signs it in.
func (s *AuthService) Register(ctx context.Context, req domain.RegisterRequest) (*domain.AuthResponse, error) {
	var resp domain.AuthResponse
	if err := s.client.Post(ctx, PathRegister, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout revokes the current token on the server.
func (s *AuthService) Logout(ctx context.Context) error {
	return s.client.Post(ctx, PathLogout, nil, &domain.MessageResponse{})
}

// GetMe returns the user the current token belongs to.
func (s *AuthService) GetMe(ctx context.Context) (*domain.User, error) {
	var resp domain.MeResponse
	if err := s.client.Get(ctx, PathMe, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// RefreshToken asks the server for a new token. The current token is
// revoked server-side once this succeeds.
func (s *AuthService) RefreshToken(ctx context.Context) (string, error) {
	var resp domain.RefreshTokenResponse
	if err := s.client.Post(ctx, PathRefresh, nil, &resp); err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", domain.ErrAPI.WithMessage("refresh response carried no token")
	}
	return resp.Token, nil
}

// UpdateProfile updates profile fields and returns the new profile.
func (s *AuthService) UpdateProfile(ctx context.Context, req domain.UpdateProfileRequest) (*domain.User, error) {
	var resp domain.UpdateProfileResponse
	if err := s.client.Put(ctx, PathProfile, req, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// UpdateProfileWithAvatar updates profile fields as multipart form data,
// uploading the image at avatarPath when it is not empty.
func (s *AuthService) UpdateProfileWithAvatar(ctx context.Context, req domain.UpdateProfileRequest, avatarPath string) (*domain.User, error) {
	form := NewForm()
	if req.Name != nil {
		form.Set("name", *req.Name)
	}
	if req.Phone != nil {
		form.Set("phone", *req.Phone)
	}
	if req.PushNotifications != nil {
		form.SetBool("push_notifications", *req.PushNotifications)
	}
	if req.WeeklyReport != nil {
		form.SetBool("weekly_report", *req.WeeklyReport)
	}
	if avatarPath != "" {
		form.AddFile("avatar", avatarPath)
	}

	var resp domain.UpdateProfileResponse
	if err := s.client.PutMultipart(ctx, PathProfile, form, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}
