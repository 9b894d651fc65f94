package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

var (
	ErrObjectNotFound     = errors.New("object not found")
	ErrPresignUnsupported = errors.New("presigned urls not supported by this store")
)

// Store is the Object Store used for uploaded PDFs. Keys are opaque.
type Store interface {
	UploadFile(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	DownloadFile(ctx context.Context, key string) (io.ReadCloser, error)
	DeleteFile(ctx context.Context, key string) error
	GetPresignedURL(ctx context.Context, key string, expires time.Duration) (string, error)
	// ObjectURL is the stable locator recorded on the Document.
	ObjectURL(key string) string
	Ping(ctx context.Context) error
}

// ReadAll downloads key fully into memory.
func ReadAll(ctx context.Context, s Store, key string) ([]byte, error) {
	rc, err := s.DownloadFile(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}
	return b, nil
}
