package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"VTube/core/account"
	"VTube/logger"
	"VTube/model"
)

const (
	accessTokenCookie  = "accessToken"
	refreshTokenCookie = "refreshToken"

	maxLoginBodyBytes = 16 << 10
)

type contextKey string

const userIDKey contextKey = "userID"

// Accounts is the account service used by the auth endpoints.
type Accounts interface {
	Login(ctx context.Context, identifier, password string) (*account.Session, error)
	Logout(ctx context.Context, userID int64) error
	Current(ctx context.Context, userID int64) (*model.User, error)
	Authenticate(token string) (int64, error)
	AccessTokenTTL() int
	RefreshTokenTTL() int
}

// AuthHandler serves login, logout and current-user requests.
type AuthHandler struct {
	accounts Accounts
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(accounts Accounts) *AuthHandler {
	return &AuthHandler{accounts: accounts}
}

// LoginRequest represents the login request body. Either username or email identifies the user.
type LoginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginHandler handles POST /api/v1/users/login.
func (h *AuthHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxLoginBodyBytes)
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		logger.Warn("[Login] failed to decode request body", logger.ErrorField(err))
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	identifier := req.Username
	if strings.TrimSpace(identifier) == "" {
		identifier = req.Email
	}

	session, err := h.accounts.Login(r.Context(), identifier, req.Password)
	switch {
	case errors.Is(err, account.ErrMissingCredentials):
		writeError(w, http.StatusBadRequest, "Username or email and password are required")
		return
	case errors.Is(err, account.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Invalid username/email or password")
		return
	case err != nil:
		logger.Error("[Login] login failed", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Something went wrong while logging in")
		return
	}

	setTokenCookie(w, accessTokenCookie, session.AccessToken, h.accounts.AccessTokenTTL())
	setTokenCookie(w, refreshTokenCookie, session.RefreshToken, h.accounts.RefreshTokenTTL())

	writeJSON(w, http.StatusOK, model.NewAPIResponse(http.StatusOK, map[string]interface{}{
		"user":         session.User,
		"accessToken":  session.AccessToken,
		"refreshToken": session.RefreshToken,
	}, "User logged in successfully"))
}

// LogoutHandler handles POST /api/v1/users/logout. Requires AuthMiddleware.
func (h *AuthHandler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized request")
		return
	}

	if err := h.accounts.Logout(r.Context(), userID); err != nil {
		logger.Error("[Logout] failed to clear refresh token", logger.Int64("userID", userID), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Something went wrong while logging out")
		return
	}

	setTokenCookie(w, accessTokenCookie, "", -1)
	setTokenCookie(w, refreshTokenCookie, "", -1)
	writeJSON(w, http.StatusOK, model.NewAPIResponse(http.StatusOK, map[string]interface{}{}, "User logged out"))
}

// CurrentUserHandler handles GET /api/v1/users/current. Requires AuthMiddleware.
func (h *AuthHandler) CurrentUserHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized request")
		return
	}

	user, err := h.accounts.Current(r.Context(), userID)
	if errors.Is(err, account.ErrUserNotFound) {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		logger.Error("[User] failed to load current user", logger.Int64("userID", userID), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to get current user")
		return
	}

	writeJSON(w, http.StatusOK, model.NewAPIResponse(http.StatusOK, user, "Current user fetched successfully"))
}

// AuthMiddleware requires a valid access token from the accessToken cookie or a Bearer header.
func (h *AuthHandler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "Unauthorized request")
			return
		}

		userID, err := h.accounts.Authenticate(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid access token")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserIDFromContext extracts the user id set by AuthMiddleware.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(userIDKey).(int64)
	return userID, ok
}

func bearerToken(r *http.Request) string {
	if c, err := r.Cookie(accessTokenCookie); err == nil && c.Value != "" {
		return c.Value
	}
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func setTokenCookie(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}
