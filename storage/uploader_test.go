package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memBackend is an in-memory media host.
type memBackend struct {
	putErr     error
	destroyErr error
	stored     map[string]string
	puts       int
}

func newMemBackend() *memBackend {
	return &memBackend{stored: map[string]string{}}
}

func (m *memBackend) Name() string { return "mem" }

func (m *memBackend) Put(ctx context.Context, localPath string) (*UploadResult, error) {
	m.puts++
	if m.putErr != nil {
		return nil, m.putErr
	}
	if _, err := os.Stat(localPath); err != nil {
		return nil, err
	}
	ref := filepath.Base(localPath)
	m.stored[ref] = localPath
	return &UploadResult{URL: "https://media.test/" + ref, DeletionRef: ref}, nil
}

func (m *memBackend) Destroy(ctx context.Context, ref string) (bool, error) {
	if m.destroyErr != nil {
		return false, m.destroyErr
	}
	if _, ok := m.stored[ref]; !ok {
		return false, nil
	}
	delete(m.stored, ref)
	return true, nil
}

func stageFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, content, 0o600))
	return p
}

func TestUpload_SuccessRemovesLocalFile(t *testing.T) {
	backend := newMemBackend()
	u := NewUploader(backend)
	local := stageFile(t, "avatar.png", []byte("\x89PNG\r\n\x1a\n"))

	res, err := u.Upload(context.Background(), local)
	require.NoError(t, err)
	assert.Equal(t, "https://media.test/avatar.png", res.URL)
	assert.Equal(t, "avatar.png", res.DeletionRef)

	_, statErr := os.Stat(local)
	assert.True(t, os.IsNotExist(statErr), "local file should be removed after upload")
}

func TestUpload_FailureStillRemovesLocalFile(t *testing.T) {
	backend := newMemBackend()
	backend.putErr = errors.New("host unreachable")
	u := NewUploader(backend)
	local := stageFile(t, "avatar.png", []byte("data"))

	_, err := u.Upload(context.Background(), local)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpload)
	assert.ErrorContains(t, err, "host unreachable")

	_, statErr := os.Stat(local)
	assert.True(t, os.IsNotExist(statErr), "local file should be removed after a failed upload")
}

func TestUpload_MissingLocalFile(t *testing.T) {
	u := NewUploader(newMemBackend())

	_, err := u.Upload(context.Background(), filepath.Join(t.TempDir(), "gone.png"))
	assert.ErrorIs(t, err, ErrUpload)
}

func TestUpload_EmptyPath(t *testing.T) {
	backend := newMemBackend()
	u := NewUploader(backend)

	_, err := u.Upload(context.Background(), "")
	assert.ErrorIs(t, err, ErrUpload)
	assert.Zero(t, backend.puts)
}

func TestDelete_TwiceReturnsFalse(t *testing.T) {
	backend := newMemBackend()
	u := NewUploader(backend)
	res, err := u.Upload(context.Background(), stageFile(t, "cover.jpg", []byte("jpeg")))
	require.NoError(t, err)

	assert.True(t, u.Delete(context.Background(), res.DeletionRef))
	assert.NotPanics(t, func() {
		assert.False(t, u.Delete(context.Background(), res.DeletionRef))
	})
}

func TestDelete_BackendErrorIsSwallowed(t *testing.T) {
	backend := newMemBackend()
	backend.destroyErr = errors.New("timeout")
	u := NewUploader(backend)

	assert.False(t, u.Delete(context.Background(), "ref"))
	assert.False(t, u.Delete(context.Background(), ""))
}

func TestDetectContentType(t *testing.T) {
	png := stageFile(t, "a.bin", []byte("\x89PNG\r\n\x1a\n0000000000"))
	ct, err := DetectContentType(png)
	require.NoError(t, err)
	assert.Equal(t, "image/png", ct)

	text := stageFile(t, "notes.png", []byte("just some words\n"))
	ct, err = DetectContentType(text)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ct, "text/plain"), "extension must not decide the type, got %s", ct)

	_, err = DetectContentType(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
