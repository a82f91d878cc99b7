package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"VTube/core/account"
	"VTube/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAccounts struct {
	loginErr    error
	identifier  string
	loggedOut   int64
	logoutErr   error
	currentErr  error
	validTokens map[string]int64
}

func (f *fakeAccounts) Login(ctx context.Context, identifier, password string) (*account.Session, error) {
	f.identifier = identifier
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &account.Session{
		User:         &model.User{ID: 7, Username: "annl"},
		AccessToken:  "access-7",
		RefreshToken: "refresh-7",
	}, nil
}

func (f *fakeAccounts) Logout(ctx context.Context, userID int64) error {
	f.loggedOut = userID
	return f.logoutErr
}

func (f *fakeAccounts) Current(ctx context.Context, userID int64) (*model.User, error) {
	if f.currentErr != nil {
		return nil, f.currentErr
	}
	return &model.User{ID: userID, Username: "annl"}, nil
}

func (f *fakeAccounts) Authenticate(token string) (int64, error) {
	if id, ok := f.validTokens[token]; ok {
		return id, nil
	}
	return 0, errors.New("invalid token")
}

func (f *fakeAccounts) AccessTokenTTL() int  { return 900 }
func (f *fakeAccounts) RefreshTokenTTL() int { return 3600 }

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{validTokens: map[string]int64{"access-7": 7}}
}

func cookieByName(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestLoginHandler(t *testing.T) {
	accounts := newFakeAccounts()
	h := NewAuthHandler(accounts)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", bytes.NewBufferString(`{"email":"ann@x.com","password":"secret"}`))
	rec := httptest.NewRecorder()
	h.LoginHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ann@x.com", accounts.identifier, "email is used when username is absent")

	access := cookieByName(rec, accessTokenCookie)
	require.NotNil(t, access)
	assert.Equal(t, "access-7", access.Value)
	assert.True(t, access.HttpOnly)
	assert.True(t, access.Secure)
	assert.Equal(t, 900, access.MaxAge)
	require.NotNil(t, cookieByName(rec, refreshTokenCookie))

	var resp struct {
		Data struct {
			AccessToken  string `json:"accessToken"`
			RefreshToken string `json:"refreshToken"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "access-7", resp.Data.AccessToken)
	assert.Equal(t, "refresh-7", resp.Data.RefreshToken)
}

func TestLoginHandler_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
	}{
		{"bad json", `{`, nil, http.StatusBadRequest},
		{"oversized", `{"username":"` + strings.Repeat("a", maxLoginBodyBytes) + `","password":"x"}`, nil, http.StatusRequestEntityTooLarge},
		{"missing", `{}`, account.ErrMissingCredentials, http.StatusBadRequest},
		{"wrong password", `{"username":"annl","password":"x"}`, account.ErrInvalidCredentials, http.StatusUnauthorized},
		{"store down", `{"username":"annl","password":"x"}`, errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			accounts := newFakeAccounts()
			accounts.loginErr = tc.err
			rec := httptest.NewRecorder()
			NewAuthHandler(accounts).LoginHandler(rec, httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(tc.body)))

			assert.Equal(t, tc.status, rec.Code)
			assert.Nil(t, cookieByName(rec, accessTokenCookie))
		})
	}
}

func TestAuthMiddleware(t *testing.T) {
	h := NewAuthHandler(newFakeAccounts())
	var seen int64
	protected := h.AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		setup  func(r *http.Request)
		status int
	}{
		{"bearer header", func(r *http.Request) { r.Header.Set("Authorization", "Bearer access-7") }, http.StatusNoContent},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: accessTokenCookie, Value: "access-7"}) }, http.StatusNoContent},
		{"missing", func(r *http.Request) {}, http.StatusUnauthorized},
		{"wrong scheme", func(r *http.Request) { r.Header.Set("Authorization", "Basic access-7") }, http.StatusUnauthorized},
		{"invalid token", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			seen = 0
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tc.setup(req)
			rec := httptest.NewRecorder()
			protected.ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code)
			if tc.status == http.StatusNoContent {
				assert.Equal(t, int64(7), seen)
			}
		})
	}
}

func TestLogoutHandler(t *testing.T) {
	accounts := newFakeAccounts()
	h := NewAuthHandler(accounts)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer access-7")
	rec := httptest.NewRecorder()
	h.AuthMiddleware(http.HandlerFunc(h.LogoutHandler)).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(7), accounts.loggedOut)
	cleared := cookieByName(rec, accessTokenCookie)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
	assert.Negative(t, cleared.MaxAge)
}

func TestCurrentUserHandler(t *testing.T) {
	accounts := newFakeAccounts()
	h := NewAuthHandler(accounts)
	handler := h.AuthMiddleware(http.HandlerFunc(h.CurrentUserHandler))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer access-7")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"username":"annl"`)

	accounts.currentErr = account.ErrUserNotFound
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
