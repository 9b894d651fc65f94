package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pdfscan/pdfscan/internal/document"
	"github.com/pdfscan/pdfscan/internal/document/repository"
	"github.com/pdfscan/pdfscan/internal/ocr"
	"github.com/pdfscan/pdfscan/internal/pdfinfo"
	"github.com/pdfscan/pdfscan/internal/storage"
	"github.com/pdfscan/pdfscan/pkg/logger"
	"github.com/pdfscan/pdfscan/pkg/metrics"
)

const (
	PDFContentType = "application/pdf"
	KeyPrefix      = "pdfs/"

	DefaultMaxUploadBytes = 10 << 20
	DefaultExtractTimeout = 2 * time.Minute
	DefaultDownloadExpiry = 15 * time.Minute

	persistTimeout = 10 * time.Second
)

type Config struct {
	MaxUploadBytes int64
	// ExtractTimeout bounds the fetch+OCR+persist work of one extraction.
	ExtractTimeout time.Duration
	DownloadExpiry time.Duration
}

// Service runs the upload, extraction and status flows against injected
// collaborators. It holds no per-document state of its own.
type Service struct {
	repo  repository.Repository
	store storage.Store
	ocr   ocr.Extractor
	cfg   Config
	newID func() string
	now   func() time.Time
}

func New(repo repository.Repository, store storage.Store, extractor ocr.Extractor, cfg Config) *Service {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if cfg.ExtractTimeout <= 0 {
		cfg.ExtractTimeout = DefaultExtractTimeout
	}
	if cfg.DownloadExpiry <= 0 {
		cfg.DownloadExpiry = DefaultDownloadExpiry
	}
	return &Service{repo: repo, store: store, ocr: extractor, cfg: cfg, newID: uuid.NewString, now: time.Now}
}

func (s *Service) MaxUploadBytes() int64 { return s.cfg.MaxUploadBytes }

type UploadInput struct {
	OriginalName string
	ContentType  string
	// Size is the declared size; -1 when unknown.
	Size int64
	Body io.Reader
}

// Upload validates the file, writes the blob and creates a pending record.
// Nothing is written when validation fails, and no record exists unless
// the blob write succeeded.
func (s *Service) Upload(ctx context.Context, in UploadInput) (*document.Document, error) {
	d, err := s.upload(ctx, in)
	switch {
	case err == nil:
		metrics.Uploads.WithLabelValues("accepted").Inc()
	case errors.Is(err, ErrNoFile), errors.Is(err, ErrUnsupportedType), errors.Is(err, ErrTooLarge):
		metrics.Uploads.WithLabelValues("rejected").Inc()
	default:
		metrics.Uploads.WithLabelValues("error").Inc()
	}
	return d, err
}

func (s *Service) upload(ctx context.Context, in UploadInput) (*document.Document, error) {
	if in.Body == nil || strings.TrimSpace(in.OriginalName) == "" {
		return nil, ErrNoFile
	}
	if !IsPDF(in.ContentType) {
		return nil, ErrUnsupportedType
	}
	if in.Size > s.cfg.MaxUploadBytes {
		return nil, ErrTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(in.Body, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return nil, ErrTooLarge
	}
	if len(data) == 0 {
		return nil, ErrNoFile
	}

	name := SanitizeFilename(in.OriginalName)
	filename := s.newID() + "-" + name
	key := KeyPrefix + filename

	pages, err := pdfinfo.PageCount(data)
	if err != nil {
		logger.Debugf("upload %s: page count unavailable: %v", name, err)
	}

	if err := s.store.UploadFile(ctx, key, bytes.NewReader(data), int64(len(data)), PDFContentType); err != nil {
		return nil, fmt.Errorf("store %s: %w", key, err)
	}

	d, err := s.repo.Create(ctx, document.CreateInput{
		Filename:     filename,
		OriginalName: in.OriginalName,
		StorageKey:   key,
		StorageURL:   s.store.ObjectURL(key),
		Size:         int64(len(data)),
		MimeType:     PDFContentType,
		PageCount:    pages,
	})
	if err != nil {
		if derr := s.store.DeleteFile(context.WithoutCancel(ctx), key); derr != nil {
			logger.Warnf("upload %s: orphaned object after record failure: %v", key, derr)
		}
		return nil, fmt.Errorf("create record: %w", err)
	}
	metrics.UploadBytes.Observe(float64(len(data)))
	logger.With("documentId", d.ID, "key", key, "size", len(data)).Info("document uploaded")
	return d, nil
}

type ExtractResult struct {
	Document *document.Document
	// AlreadyExtracted is set when the record was completed before this call
	// and the model was not invoked.
	AlreadyExtracted bool
}

// Extract runs OCR for a pending or failed document and persists the
// outcome. The work is detached from ctx cancellation so a disconnected
// caller still leaves the record in a terminal state.
func (s *Service) Extract(ctx context.Context, id string) (*ExtractResult, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: document id is required", ErrInvalidInput)
	}
	d, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	staleBefore := s.staleBefore()
	switch d.ExtractionStatus {
	case document.StatusCompleted:
		metrics.Extractions.WithLabelValues("already_completed").Inc()
		return &ExtractResult{Document: d, AlreadyExtracted: true}, nil
	case document.StatusProcessing:
		if !d.UpdatedAt.Before(staleBefore) {
			return nil, ErrExtractionInProgress
		}
		logger.With("documentId", id).Warn("reclaiming abandoned extraction", "since", d.UpdatedAt)
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ExtractTimeout)
	defer cancel()

	d, err = s.repo.ClaimProcessing(ctx, id, staleBefore)
	if err != nil {
		return s.claimLost(ctx, id, err)
	}
	metrics.ExtractionsInFlight.Inc()
	defer metrics.ExtractionsInFlight.Dec()

	log := logger.With("documentId", id)
	log.Info("extraction started")

	pdf, err := storage.ReadAll(ctx, s.store, d.StorageKey)
	if err != nil {
		return nil, s.fail(ctx, id, "failed to fetch document from storage", err)
	}
	res, err := s.ocr.Extract(ctx, pdf)
	if err != nil {
		return nil, s.fail(ctx, id, "OCR failed", err)
	}

	if err := s.repo.MarkCompleted(ctx, id, res.Text, res.Patient); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, s.fail(ctx, id, "failed to save extraction result", err)
	}
	metrics.Extractions.WithLabelValues(string(document.StatusCompleted)).Inc()
	log.Info("extraction completed", "structured", res.Structured, "textLength", len(res.Text))

	return s.finished(ctx, id)
}

// staleBefore is the cutoff after which a processing claim can no longer be
// held by a live worker: its extraction and failure write have both timed out.
func (s *Service) staleBefore() time.Time {
	return s.now().Add(-(s.cfg.ExtractTimeout + persistTimeout))
}

// claimLost explains why ClaimProcessing refused: another caller either
// holds the claim or finished between our read and the claim.
func (s *Service) claimLost(ctx context.Context, id string, err error) (*ExtractResult, error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, ErrNotFound
	case errors.Is(err, repository.ErrInvalidTransition):
		d, gerr := s.get(ctx, id)
		if gerr != nil {
			return nil, gerr
		}
		if d.ExtractionStatus == document.StatusCompleted {
			return &ExtractResult{Document: d, AlreadyExtracted: true}, nil
		}
		return nil, ErrExtractionInProgress
	}
	return nil, fmt.Errorf("claim %s: %w", id, err)
}

// fail records reason on the document and returns an ErrExtractionFailed
// wrapping cause.
func (s *Service) fail(ctx context.Context, id, reason string, cause error) error {
	msg := reason
	if cause != nil {
		msg = reason + ": " + cause.Error()
	}
	metrics.Extractions.WithLabelValues(string(document.StatusFailed)).Inc()
	logger.With("documentId", id).Error("extraction failed", "error", msg)
	// ctx may already be past its deadline; the failure must still land.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err := s.repo.MarkFailed(ctx, id, msg); err != nil {
		logger.Errorf("extraction %s: could not record failure: %v", id, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrExtractionFailed, reason, cause)
}

func (s *Service) finished(ctx context.Context, id string) (*ExtractResult, error) {
	d, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &ExtractResult{Document: d}, nil
}

// Status returns the current record. It never mutates anything.
func (s *Service) Status(ctx context.Context, id string) (*document.Document, error) {
	return s.get(ctx, id)
}

func (s *Service) Get(ctx context.Context, id string) (*document.Document, error) {
	return s.get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]*document.Document, error) {
	return s.repo.List(ctx)
}

// Delete removes the blob and then the record.
func (s *Service) Delete(ctx context.Context, id string) error {
	d, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteFile(ctx, d.StorageKey); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
		return fmt.Errorf("delete object %s: %w", d.StorageKey, err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	logger.With("documentId", id).Info("document deleted")
	return nil
}

// DownloadURL returns a time-limited link to the stored PDF.
func (s *Service) DownloadURL(ctx context.Context, id string) (string, time.Duration, error) {
	d, err := s.get(ctx, id)
	if err != nil {
		return "", 0, err
	}
	u, err := s.store.GetPresignedURL(ctx, d.StorageKey, s.cfg.DownloadExpiry)
	if err != nil {
		if errors.Is(err, storage.ErrPresignUnsupported) {
			return "", 0, ErrDownloadUnsupported
		}
		return "", 0, err
	}
	return u, s.cfg.DownloadExpiry, nil
}

func (s *Service) get(ctx context.Context, id string) (*document.Document, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrNotFound
	}
	d, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return d, nil
}

// IsPDF reports whether a declared content type is application/pdf.
func IsPDF(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && mt == PDFContentType
}

// SanitizeFilename keeps the base name and drops characters that are
// awkward in object keys.
func SanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r < 0x20, r == 0x7f:
			return -1
		case r == ' ':
			return '_'
		}
		return r
	}, name)
	if name == "" || name == "." || name == "/" {
		return "document.pdf"
	}
	return name
}
