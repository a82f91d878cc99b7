package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"VTube/core/registration"
	"VTube/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRegistrar struct {
	got      registration.Input
	calls    int
	contents map[string]string
	err      error
}

func (f *fakeRegistrar) Register(ctx context.Context, in registration.Input) (*model.User, error) {
	f.calls++
	f.got = in
	f.contents = map[string]string{}
	for _, p := range []string{in.AvatarPath, in.CoverImagePath} {
		if p == "" {
			continue
		}
		data, err := os.ReadFile(p)
		if err == nil {
			f.contents[p] = string(data)
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &model.User{
		ID:       1,
		Username: "annl",
		Email:    "ann@x.com",
		Fullname: in.Fullname,
		Avatar:   "https://media.test/avatar.png",
	}, nil
}

type filePart struct {
	field, name, content string
}

func multipartRequest(t *testing.T, fields map[string]string, files ...filePart) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		fw, err := mw.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(f.content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func validFields() map[string]string {
	return map[string]string{
		"fullname": "Ann Lee",
		"email":    "ann@x.com",
		"username": "AnnL",
		"password": "secret",
	}
}

func dirEntries(t *testing.T, dir string) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return entries
}

func TestRegisterHandler_Created(t *testing.T) {
	dir := t.TempDir()
	reg := &fakeRegistrar{}
	h := NewUserHandler(reg, dir, 1<<20)

	req := multipartRequest(t, validFields(),
		filePart{"avatar", "me.PNG", "avatar-bytes"},
		filePart{"coverImage", "banner.jpg", "cover-bytes"})
	rec := httptest.NewRecorder()
	h.RegisterHandler(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		StatusCode int            `json:"statusCode"`
		Data       map[string]any `json:"data"`
		Message    string         `json:"message"`
		Success    bool           `json:"success"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 201, resp.StatusCode)
	assert.True(t, resp.Success)
	assert.Equal(t, "User registered successfully", resp.Message)
	assert.Equal(t, "annl", resp.Data["username"])
	assert.NotContains(t, resp.Data, "password")
	assert.NotContains(t, resp.Data, "refreshToken")

	assert.Equal(t, "Ann Lee", reg.got.Fullname)
	assert.Equal(t, "AnnL", reg.got.Username)
	assert.Equal(t, "secret", reg.got.Password)
	assert.Equal(t, dir, filepath.Dir(reg.got.AvatarPath))
	assert.Equal(t, ".png", filepath.Ext(reg.got.AvatarPath))
	assert.Equal(t, "avatar-bytes", reg.contents[reg.got.AvatarPath])
	assert.Equal(t, "cover-bytes", reg.contents[reg.got.CoverImagePath])

	assert.Empty(t, dirEntries(t, dir), "staged files must not outlive the request")
}

func TestRegisterHandler_UsesFirstFileOfField(t *testing.T) {
	dir := t.TempDir()
	reg := &fakeRegistrar{}
	h := NewUserHandler(reg, dir, 1<<20)

	req := multipartRequest(t, validFields(),
		filePart{"avatar", "first.png", "first"},
		filePart{"avatar", "second.png", "second"})
	rec := httptest.NewRecorder()
	h.RegisterHandler(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "first", reg.contents[reg.got.AvatarPath])
	assert.Empty(t, reg.got.CoverImagePath)
}

func TestRegisterHandler_NoFiles(t *testing.T) {
	reg := &fakeRegistrar{err: &registration.Error{Kind: registration.ErrValidation, Message: "Avatar file is required"}}
	h := NewUserHandler(reg, t.TempDir(), 1<<20)

	rec := httptest.NewRecorder()
	h.RegisterHandler(rec, multipartRequest(t, validFields()))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, reg.got.AvatarPath)
	assert.JSONEq(t, `{"statusCode":400,"message":"Avatar file is required","success":false}`, rec.Body.String())
}

func TestRegisterHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"validation", &registration.Error{Kind: registration.ErrValidation, Message: "All fields are required"}, 400, "All fields are required"},
		{"conflict", &registration.Error{Kind: registration.ErrConflict, Message: "Username or email already exists"}, 409, "Username or email already exists"},
		{"upload", &registration.Error{Kind: registration.ErrUpload, Message: "Failed to upload avatar", Err: errors.New("timeout")}, 500, "Failed to upload avatar"},
		{"persistence", &registration.Error{Kind: registration.ErrPersistence, Message: "Something went wrong while registering user"}, 500, "Something went wrong while registering user"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			h := NewUserHandler(&fakeRegistrar{err: tc.err}, dir, 1<<20)

			rec := httptest.NewRecorder()
			h.RegisterHandler(rec, multipartRequest(t, validFields(), filePart{"avatar", "a.png", "x"}))

			assert.Equal(t, tc.status, rec.Code)
			var resp model.APIError
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tc.status, resp.StatusCode)
			assert.Equal(t, tc.message, resp.Message)
			assert.False(t, resp.Success)
			assert.NotContains(t, rec.Body.String(), "timeout", "causes stay out of the response")
			assert.Empty(t, dirEntries(t, dir), "files that were never uploaded are removed")
		})
	}
}

func TestRegisterHandler_NotMultipart(t *testing.T) {
	reg := &fakeRegistrar{}
	h := NewUserHandler(reg, t.TempDir(), 1<<20)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users", bytes.NewBufferString(`{"username":"annl"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.RegisterHandler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, reg.calls)
}

func TestRegisterHandler_BodyTooLarge(t *testing.T) {
	reg := &fakeRegistrar{}
	h := NewUserHandler(reg, t.TempDir(), 512)

	req := multipartRequest(t, validFields(), filePart{"avatar", "a.png", string(bytes.Repeat([]byte("x"), 4096))})
	rec := httptest.NewRecorder()
	h.RegisterHandler(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Zero(t, reg.calls)
}

func TestRegisterHandler_UnsafeExtensionDropped(t *testing.T) {
	reg := &fakeRegistrar{}
	h := NewUserHandler(reg, t.TempDir(), 1<<20)

	rec := httptest.NewRecorder()
	h.RegisterHandler(rec, multipartRequest(t, validFields(), filePart{"avatar", "../../evil.p/ng", "x"}))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Empty(t, filepath.Ext(reg.got.AvatarPath))
}
