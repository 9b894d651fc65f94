package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pdfscan/pdfscan/internal/document"
)

// MemoryRepo is an in-memory Repository used for local runs and unit tests.
// Records are copied in and out so callers never share state with the store.
type MemoryRepo struct {
	mu    sync.RWMutex
	store map[string]*document.Document
	now   func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{store: make(map[string]*document.Document), now: time.Now}
}

func (m *MemoryRepo) Create(_ context.Context, in document.CreateInput) (*document.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := document.NewFromInput(in, m.now().UTC())
	d.ID = uuid.NewString()
	m.store[d.ID] = d
	return clone(d), nil
}

func (m *MemoryRepo) Get(_ context.Context, id string) (*document.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if d, ok := m.store[id]; ok {
		return clone(d), nil
	}
	return nil, ErrNotFound
}

func (m *MemoryRepo) List(_ context.Context) ([]*document.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*document.Document, 0, len(m.store))
	for _, d := range m.store {
		out = append(out, clone(d))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[id]; !ok {
		return ErrNotFound
	}
	delete(m.store, id)
	return nil
}

func (m *MemoryRepo) ClaimProcessing(_ context.Context, id string, staleBefore time.Time) (*document.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !canClaim(d, staleBefore) {
		return nil, ErrInvalidTransition
	}
	d.ExtractionStatus = document.StatusProcessing
	d.Error = ""
	d.UpdatedAt = m.now().UTC()
	return clone(d), nil
}

func (m *MemoryRepo) MarkCompleted(_ context.Context, id string, text string, patient document.PatientData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.store[id]
	if !ok {
		return ErrNotFound
	}
	if d.ExtractionStatus != document.StatusProcessing {
		return ErrInvalidTransition
	}
	p := patient
	d.ExtractionStatus = document.StatusCompleted
	d.ExtractedText = text
	d.PatientData = &p
	d.Error = ""
	d.UpdatedAt = m.now().UTC()
	return nil
}

func (m *MemoryRepo) MarkFailed(_ context.Context, id string, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.store[id]
	if !ok {
		return ErrNotFound
	}
	if d.ExtractionStatus != document.StatusProcessing {
		return ErrInvalidTransition
	}
	d.ExtractionStatus = document.StatusFailed
	d.ExtractedText = ""
	d.PatientData = nil
	d.Error = reason
	d.UpdatedAt = m.now().UTC()
	return nil
}

func (m *MemoryRepo) Ping(context.Context) error { return nil }

func clone(d *document.Document) *document.Document {
	c := *d
	if d.PatientData != nil {
		p := *d.PatientData
		c.PatientData = &p
	}
	return &c
}
