package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

type memObject struct {
	data        []byte
	contentType string
}

// MemoryStorage keeps objects in process memory. Used for local runs and tests.
type MemoryStorage struct {
	mu      sync.RWMutex
	objects map[string]memObject
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{objects: make(map[string]memObject)}
}

func (s *MemoryStorage) UploadFile(_ context.Context, key string, reader io.Reader, _ int64, contentType string) error {
	b, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.objects[key] = memObject{data: b, contentType: contentType}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStorage) DownloadFile(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.RLock()
	obj, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, ErrObjectNotFound)
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

func (s *MemoryStorage) DeleteFile(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.objects, key)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStorage) GetPresignedURL(context.Context, string, time.Duration) (string, error) {
	return "", ErrPresignUnsupported
}

func (s *MemoryStorage) ObjectURL(key string) string {
	return "memory://" + key
}

func (s *MemoryStorage) Ping(context.Context) error { return nil }

// Len reports how many objects are stored.
func (s *MemoryStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

// ContentType returns the content type recorded for key.
func (s *MemoryStorage) ContentType(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.objects[key].contentType
}
