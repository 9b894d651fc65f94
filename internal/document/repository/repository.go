package repository

import (
	"context"
	"errors"
	"time"

	"github.com/pdfscan/pdfscan/internal/document"
)

var (
	ErrNotFound          = errors.New("document not found")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Repository is the Document Store. Implementations own the status state
// machine: every mutation is conditional on the current status so concurrent
// callers cannot move a record backwards.
type Repository interface {
	Create(ctx context.Context, in document.CreateInput) (*document.Document, error)
	Get(ctx context.Context, id string) (*document.Document, error)
	List(ctx context.Context) ([]*document.Document, error)
	Delete(ctx context.Context, id string) error

	// ClaimProcessing moves a pending or failed record to processing and
	// clears any previous error. A processing record last updated before
	// staleBefore is treated as abandoned and may be claimed again; a zero
	// staleBefore never reclaims.
	ClaimProcessing(ctx context.Context, id string, staleBefore time.Time) (*document.Document, error)
	// MarkCompleted and MarkFailed only apply to a processing record.
	MarkCompleted(ctx context.Context, id string, text string, patient document.PatientData) error
	MarkFailed(ctx context.Context, id string, reason string) error

	Ping(ctx context.Context) error
}

// claimable lists the statuses ClaimProcessing accepts.
var claimable = []document.Status{document.StatusPending, document.StatusFailed}

func canClaim(d *document.Document, staleBefore time.Time) bool {
	for _, c := range claimable {
		if d.ExtractionStatus == c {
			return true
		}
	}
	return d.ExtractionStatus == document.StatusProcessing &&
		!staleBefore.IsZero() && d.UpdatedAt.Before(staleBefore)
}
