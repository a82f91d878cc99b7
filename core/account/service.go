package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"VTube/core/auth"
	"VTube/logger"
	"VTube/model"
	"VTube/repository"
)

var (
	// ErrInvalidCredentials covers both an unknown identifier and a wrong password.
	ErrInvalidCredentials = errors.New("invalid username/email or password")
	ErrMissingCredentials = errors.New("username or email and password are required")
	ErrUserNotFound       = errors.New("user not found")
)

// PasswordVerifier checks a plaintext password against a stored digest.
type PasswordVerifier interface {
	Verify(password, digest string) bool
}

// Session is the result of a successful login.
type Session struct {
	User         *model.User
	AccessToken  string
	RefreshToken string
}

// Service handles login, logout and current-user lookups.
type Service struct {
	users  repository.UserRepository
	hasher PasswordVerifier
	tokens *auth.TokenIssuer
}

// NewService creates an account Service.
func NewService(users repository.UserRepository, hasher PasswordVerifier, tokens *auth.TokenIssuer) *Service {
	return &Service{users: users, hasher: hasher, tokens: tokens}
}

// Login checks the credentials, issues a token pair and stores the refresh token.
// identifier may be a username or an email, in any case.
func (s *Service) Login(ctx context.Context, identifier, password string) (*Session, error) {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	if identifier == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	user, err := s.users.FindByUsernameOrEmail(ctx, identifier)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		logger.Warn("[Login] user does not exist", logger.String("identifier", identifier))
		return nil, ErrInvalidCredentials
	}
	if !s.hasher.Verify(password, user.Password) {
		logger.Warn("[Login] password check failed", logger.String("username", user.Username))
		return nil, ErrInvalidCredentials
	}

	access, err := s.tokens.AccessToken(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.RefreshToken(user.ID)
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdateRefreshToken(ctx, user.ID, refresh); err != nil {
		return nil, err
	}

	public, err := s.Current(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	logger.Info("[Login] login succeeded", logger.Int64("userID", user.ID))
	return &Session{User: public, AccessToken: access, RefreshToken: refresh}, nil
}

// Logout clears the stored refresh token.
func (s *Service) Logout(ctx context.Context, userID int64) error {
	if err := s.users.UpdateRefreshToken(ctx, userID, ""); err != nil {
		return err
	}
	logger.Info("[Logout] refresh token cleared", logger.Int64("userID", userID))
	return nil
}

// Current returns the user without sensitive fields.
func (s *Service) Current(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.users.FindPublicByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// Authenticate validates an access token and returns the user id it was issued for.
func (s *Service) Authenticate(token string) (int64, error) {
	claims, err := s.tokens.ParseAccessToken(token)
	if err != nil {
		return 0, err
	}
	return claims.UserID, nil
}

// AccessTokenTTL and RefreshTokenTTL are used for cookie lifetimes.
func (s *Service) AccessTokenTTL() int  { return int(s.tokens.AccessTTL().Seconds()) }
func (s *Service) RefreshTokenTTL() int { return int(s.tokens.RefreshTTL().Seconds()) }
