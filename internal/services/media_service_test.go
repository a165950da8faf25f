package services

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMediaService(t *testing.T) MediaService {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := NewMediaService(t.TempDir(), "http://localhost:8080/media/", logger)
	require.NoError(t, err)
	return svc
}

func TestMediaServiceUpload(t *testing.T) {
	svc := newTestMediaService(t)

	url, err := svc.Upload(context.Background(), "answer.webm", "audio/webm", []byte("pcm-bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "http://localhost:8080/media/"))
	assert.True(t, strings.HasSuffix(url, ".webm"))
}

func TestMediaServiceUploadWritesFile(t *testing.T) {
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := NewMediaService(dir, "http://localhost/media", logger)
	require.NoError(t, err)

	url, err := svc.Upload(context.Background(), "essay.pdf", "application/pdf", []byte("%PDF-1.7"))
	require.NoError(t, err)

	name := url[strings.LastIndex(url, "/")+1:]
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.7"), data)
}

func TestMediaServiceUploadValidation(t *testing.T) {
	svc := newTestMediaService(t)
	ctx := context.Background()

	_, err := svc.Upload(ctx, "empty.webm", "audio/webm", nil)
	assert.ErrorIs(t, err, ErrMediaEmpty)

	_, err = svc.Upload(ctx, "evil.exe", "application/x-msdownload", []byte{0x4d, 0x5a})
	assert.ErrorIs(t, err, ErrMediaUnsupported)

	_, err = svc.Upload(ctx, "huge.webm", "audio/webm", make([]byte, maxMediaBytes+1))
	assert.ErrorIs(t, err, ErrMediaTooLarge)
}

func TestExtensionFor(t *testing.T) {
	assert.Equal(t, ".webm", extensionFor("rec.webm", "audio/ogg"))
	assert.Equal(t, ".pdf", extensionFor("no-extension", "application/pdf"))
	assert.Equal(t, "", extensionFor("plain", "application/x-unknown"))
}
