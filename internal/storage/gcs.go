package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	gcs "cloud.google.com/go/storage"
)

// GCSStorage stores objects in a Google Cloud Storage bucket.
type GCSStorage struct {
	client *gcs.Client
	bucket *gcs.BucketHandle
	name   string
}

// NewGCSStorage wraps an existing client. The caller closes the client.
func NewGCSStorage(client *gcs.Client, cfg *GCSConfig) (*GCSStorage, error) {
	if client == nil {
		return nil, fmt.Errorf("gcs client missing")
	}
	if cfg == nil || cfg.Bucket == "" {
		return nil, fmt.Errorf("gcs bucket missing")
	}
	return &GCSStorage{client: client, bucket: client.Bucket(cfg.Bucket), name: cfg.Bucket}, nil
}

func (s *GCSStorage) UploadFile(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	// Cancelling the writer's context before Close aborts the upload, so a
	// failed copy never commits a partial object.
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()
	w := s.bucket.Object(key).NewWriter(wctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, reader); err != nil {
		cancel()
		_ = w.Close()
		return fmt.Errorf("write gcs object %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize gcs object %s: %w", key, err)
	}
	return nil
}

func (s *GCSStorage) DownloadFile(ctx context.Context, key string) (io.ReadCloser, error) {
	r, err := s.bucket.Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil, fmt.Errorf("%s: %w", key, ErrObjectNotFound)
		}
		return nil, err
	}
	return r, nil
}

func (s *GCSStorage) DeleteFile(ctx context.Context, key string) error {
	err := s.bucket.Object(key).Delete(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil
	}
	return err
}

func (s *GCSStorage) GetPresignedURL(_ context.Context, key string, expires time.Duration) (string, error) {
	return s.bucket.SignedURL(key, &gcs.SignedURLOptions{
		Method:  http.MethodGet,
		Expires: time.Now().Add(expires),
	})
}

func (s *GCSStorage) ObjectURL(key string) string {
	return fmt.Sprintf("gs://%s/%s", s.name, key)
}

func (s *GCSStorage) Ping(ctx context.Context) error {
	_, err := s.bucket.Attrs(ctx)
	return err
}
