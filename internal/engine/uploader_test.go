package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/SAP-F-2025/session-engine/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	url     string
	err     error
	uploads int
}

func (s *fakeStore) Upload(ctx context.Context, name, mimeType string, data []byte) (string, error) {
	s.uploads++
	if s.err != nil {
		return "", s.err
	}
	return s.url, nil
}

func TestUploaderPromote(t *testing.T) {
	store := &fakeStore{url: "https://cdn/rec.webm"}
	u := NewMediaUploader(store, testLogger())

	p := &models.PendingUpload{LocalRef: "blob:1", Name: "rec.webm", Bytes: []byte("pcm")}
	require.NoError(t, u.Promote(context.Background(), p))

	assert.Equal(t, "https://cdn/rec.webm", p.DurableURL)
	assert.Equal(t, "https://cdn/rec.webm", p.Ref())
	assert.Nil(t, p.Bytes)

	// Already-promoted handles are not re-uploaded.
	require.NoError(t, u.Promote(context.Background(), p))
	assert.Equal(t, 1, store.uploads)
}

func TestUploaderFailureKeepsLocalHandle(t *testing.T) {
	store := &fakeStore{err: errors.New("storage down")}
	u := NewMediaUploader(store, testLogger())

	p := &models.PendingUpload{LocalRef: "blob:2", Name: "rec.webm", Bytes: []byte("pcm")}
	err := u.Promote(context.Background(), p)
	require.Error(t, err)

	// The answer survives as the transient reference.
	assert.Equal(t, "blob:2", p.Ref())
	assert.NotNil(t, p.Bytes)
	assert.Len(t, u.Failures(), 1)
}

func TestUploaderPromoteAllContinuesPastFailures(t *testing.T) {
	store := &fakeStore{err: errors.New("storage down")}
	u := NewMediaUploader(store, testLogger())

	pending := []*models.PendingUpload{
		{LocalRef: "blob:a", Name: "a.webm"},
		nil,
		{LocalRef: "blob:b", Name: "b.webm"},
	}
	u.PromoteAll(context.Background(), pending)

	assert.Equal(t, 2, store.uploads)
	assert.Len(t, u.Failures(), 2)
}
