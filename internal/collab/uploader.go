package collab

import (
	"context"
	"strings"

	"server/internal/storage"
)

// Uploader persists generated asset bytes and returns a public URL.
type Uploader interface {
	Upload(ctx context.Context, key string, data []byte) (string, error)
}

// FileUploader writes assets through the filesystem store and serves them
// from a configured base URL.
type FileUploader struct {
	store   *storage.FileStore
	baseURL string
}

func NewFileUploader(store *storage.FileStore, baseURL string) *FileUploader {
	return &FileUploader{store: store, baseURL: strings.TrimRight(baseURL, "/")}
}

var _ Uploader = (*FileUploader)(nil)

func (u *FileUploader) Upload(ctx context.Context, key string, data []byte) (string, error) {
	cleanKey, err := u.store.Write(ctx, key, data)
	if err != nil {
		return "", err
	}
	return u.baseURL + "/" + cleanKey, nil
}
