package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/SAP-F-2025/session-engine/internal/models"
)

// MediaStore transfers recording bytes to durable storage and returns the
// durable reference.
type MediaStore interface {
	Upload(ctx context.Context, name, mimeType string, data []byte) (string, error)
}

// MediaUploader promotes transient local recordings to durable URLs before
// they are allowed into a draft or final submission. A failed promotion
// keeps the local handle as fallback so the answer is never silently lost;
// failures are collected as non-blocking warnings and never stop a save.
type MediaUploader struct {
	mu       sync.Mutex
	store    MediaStore
	logger   *slog.Logger
	failures []error
}

func NewMediaUploader(store MediaStore, logger *slog.Logger) *MediaUploader {
	return &MediaUploader{store: store, logger: logger}
}

// Promote uploads one pending handle, substituting the durable URL into it.
// Already-promoted handles are left alone.
func (u *MediaUploader) Promote(ctx context.Context, p *models.PendingUpload) error {
	if p == nil || p.Promoted() {
		return nil
	}

	url, err := u.store.Upload(ctx, p.Name, p.MimeType, p.Bytes)
	if err != nil {
		wrapped := fmt.Errorf("media promotion failed for %s: %w", p.Name, err)
		u.mu.Lock()
		u.failures = append(u.failures, wrapped)
		u.mu.Unlock()
		u.logger.Warn("media promotion failed, keeping local handle",
			"name", p.Name,
			"error", err)
		return wrapped
	}

	p.DurableURL = url
	// Local bytes are released once the durable copy exists.
	p.Bytes = nil
	u.logger.Info("media promoted", "name", p.Name, "url", url)
	return nil
}

// PromoteAll attempts every pending handle; a single failure does not stop
// the rest.
func (u *MediaUploader) PromoteAll(ctx context.Context, pending []*models.PendingUpload) {
	for _, p := range pending {
		_ = u.Promote(ctx, p)
	}
}

// Failures returns the collected promotion warnings.
func (u *MediaUploader) Failures() []error {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]error(nil), u.failures...)
}
