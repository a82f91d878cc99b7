package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"VTube/core/registration"
	"VTube/logger"
	"VTube/metrics"
	"VTube/model"

	"github.com/google/uuid"
)

// Multipart parts above this size spill to temp files instead of memory.
const multipartMemory = 8 << 20

var safeExt = regexp.MustCompile(`^\.[a-z0-9]{1,8}$`)

// Registrar creates users from a registration request.
type Registrar interface {
	Register(ctx context.Context, in registration.Input) (*model.User, error)
}

// UserHandler serves the registration endpoint.
type UserHandler struct {
	registrar Registrar
	uploadDir string
	maxBytes  int64
}

// NewUserHandler creates a UserHandler that stages files under uploadDir.
func NewUserHandler(registrar Registrar, uploadDir string, maxBytes int64) *UserHandler {
	return &UserHandler{registrar: registrar, uploadDir: uploadDir, maxBytes: maxBytes}
}

// RegisterHandler handles POST /api/v1/users.
// Expected multipart form fields:
// - fullname, email, username, password
// - avatar: profile image (required)
// - coverImage: banner image (optional)
func (h *UserHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	if h.maxBytes > 0 {
		if r.ContentLength > h.maxBytes {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("Request body exceeds %d bytes", h.maxBytes))
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		logger.Warn("[Register] failed to parse multipart form", logger.ErrorField(err))
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	avatarPath, err := h.stageFile(r.MultipartForm, "avatar")
	if err != nil {
		logger.Error("[Register] failed to stage avatar", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to store uploaded file")
		return
	}
	// The media adapter removes files it uploads; whatever is left was never sent.
	defer removeStaged(avatarPath)

	coverPath, err := h.stageFile(r.MultipartForm, "coverImage")
	if err != nil {
		logger.Error("[Register] failed to stage cover image", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to store uploaded file")
		return
	}
	defer removeStaged(coverPath)

	user, err := h.registrar.Register(r.Context(), registration.Input{
		Fullname:       r.FormValue("fullname"),
		Email:          r.FormValue("email"),
		Username:       r.FormValue("username"),
		Password:       r.FormValue("password"),
		AvatarPath:     avatarPath,
		CoverImagePath: coverPath,
	})
	metrics.RegistrationsTotal.WithLabelValues(registration.Outcome(err)).Inc()
	if err != nil {
		status := registration.StatusCode(err)
		if status >= http.StatusInternalServerError {
			logger.Error("[Register] registration failed", logger.ErrorField(err))
		}
		writeError(w, status, registration.Message(err))
		return
	}

	writeJSON(w, http.StatusCreated, model.NewAPIResponse(http.StatusCreated, user, "User registered successfully"))
}

// stageFile copies the first file of field into the upload directory and returns its path.
// It returns "" when the field carries no file.
func (h *UserHandler) stageFile(form *multipart.Form, field string) (string, error) {
	files := form.File[field]
	if len(files) == 0 {
		return "", nil
	}
	header := files[0]

	src, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", field, err)
	}
	defer src.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !safeExt.MatchString(ext) {
		ext = ""
	}
	path := filepath.Join(h.uploadDir, uuid.NewString()+ext)

	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to close %s: %w", path, err)
	}
	return path, nil
}

func removeStaged(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("[Register] failed to remove staged file", logger.String("path", path), logger.ErrorField(err))
	}
}
