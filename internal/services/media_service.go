package services

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// MediaService stores evidence blobs (audio answers, attached files) and
// hands back durable URLs. It satisfies the engine's MediaStore boundary.
type MediaService interface {
	Upload(ctx context.Context, name, mimeType string, data []byte) (string, error)
}

const maxMediaBytes = 25 << 20 // 25 MiB

var allowedMediaPrefixes = []string{"audio/", "image/", "video/", "text/", "application/pdf"}

type mediaService struct {
	dir     string
	baseURL string
	logger  *slog.Logger
}

func NewMediaService(dir, baseURL string, logger *slog.Logger) (MediaService, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}
	return &mediaService{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}, nil
}

func (s *mediaService) Upload(ctx context.Context, name, mimeType string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrMediaEmpty
	}
	if len(data) > maxMediaBytes {
		return "", ErrMediaTooLarge
	}
	if !mediaTypeAllowed(mimeType) {
		return "", ErrMediaUnsupported
	}

	filename := uuid.NewString() + extensionFor(name, mimeType)
	path := filepath.Join(s.dir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to store media file: %w", err)
	}

	url := s.baseURL + "/" + filename
	s.logger.Info("media stored",
		"name", name,
		"mime_type", mimeType,
		"size", len(data),
		"url", url)
	return url, nil
}

func mediaTypeAllowed(mimeType string) bool {
	for _, prefix := range allowedMediaPrefixes {
		if strings.HasPrefix(mimeType, prefix) {
			return true
		}
	}
	return false
}

// extensionFor prefers the original filename's extension and falls back to
// one derived from the mime type.
func extensionFor(name, mimeType string) string {
	if ext := filepath.Ext(name); ext != "" {
		return ext
	}
	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}
