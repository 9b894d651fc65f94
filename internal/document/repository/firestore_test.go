package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/pdfscan/pdfscan/internal/document"
	"github.com/stretchr/testify/require"
)

// newEmulatorFirestore is skipped unless FIRESTORE_EMULATOR_HOST is set.
// Each test gets its own collection.
func newEmulatorFirestore(t *testing.T) *FirestoreRepo {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	client, err := firestore.NewClient(context.Background(), "pdfscan-test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return NewFirestoreRepo(client, "documents-"+uuid.NewString())
}

func TestFirestoreRepoCreateGetDelete(t *testing.T) {
	r := newEmulatorFirestore(t)
	ctx := context.Background()
	require.NoError(t, r.Ping(ctx))

	d, err := r.Create(ctx, newInput("a.pdf"))
	require.NoError(t, err)
	require.NotEmpty(t, d.ID)
	require.Equal(t, document.StatusPending, d.ExtractionStatus)

	got, err := r.Get(ctx, d.ID)
	require.NoError(t, err)
	require.Equal(t, "a.pdf", got.OriginalName)
	require.Equal(t, int64(1024), got.Metadata.Size)

	list, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, r.Delete(ctx, d.ID))
	_, err = r.Get(ctx, d.ID)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, r.Delete(ctx, d.ID), ErrNotFound)
}

func TestFirestoreRepoStateMachine(t *testing.T) {
	r := newEmulatorFirestore(t)
	ctx := context.Background()
	d, err := r.Create(ctx, newInput("a.pdf"))
	require.NoError(t, err)

	require.ErrorIs(t, r.MarkCompleted(ctx, d.ID, "x", document.PatientData{}), ErrInvalidTransition)
	require.ErrorIs(t, r.MarkFailed(ctx, d.ID, "x"), ErrInvalidTransition)

	claimed, err := r.ClaimProcessing(ctx, d.ID, time.Time{})
	require.NoError(t, err)
	require.Equal(t, document.StatusProcessing, claimed.ExtractionStatus)

	_, err = r.ClaimProcessing(ctx, d.ID, time.Time{})
	require.ErrorIs(t, err, ErrInvalidTransition)

	require.NoError(t, r.MarkFailed(ctx, d.ID, "boom"))
	got, err := r.Get(ctx, d.ID)
	require.NoError(t, err)
	require.Equal(t, document.StatusFailed, got.ExtractionStatus)
	require.Equal(t, "boom", got.Error)

	claimed, err = r.ClaimProcessing(ctx, d.ID, time.Time{})
	require.NoError(t, err)
	require.Empty(t, claimed.Error)

	name := "Jane Doe"
	require.NoError(t, r.MarkCompleted(ctx, d.ID, "hello", document.PatientData{Name: &name}))
	got, err = r.Get(ctx, d.ID)
	require.NoError(t, err)
	require.Equal(t, document.StatusCompleted, got.ExtractionStatus)
	require.Equal(t, "hello", got.ExtractedText)
	require.Equal(t, "Jane Doe", *got.PatientData.Name)
	require.Empty(t, got.Error)

	_, err = r.ClaimProcessing(ctx, d.ID, time.Now().Add(time.Hour))
	require.ErrorIs(t, err, ErrInvalidTransition)
	require.ErrorIs(t, r.MarkFailed(ctx, d.ID, "late"), ErrInvalidTransition)

	_, err = r.ClaimProcessing(ctx, "missing", time.Time{})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFirestoreRepoReclaimsAbandonedProcessing(t *testing.T) {
	r := newEmulatorFirestore(t)
	ctx := context.Background()
	claimedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return claimedAt }

	d, err := r.Create(ctx, newInput("a.pdf"))
	require.NoError(t, err)
	_, err = r.ClaimProcessing(ctx, d.ID, time.Time{})
	require.NoError(t, err)

	_, err = r.ClaimProcessing(ctx, d.ID, claimedAt.Add(-time.Second))
	require.ErrorIs(t, err, ErrInvalidTransition)

	r.now = func() time.Time { return claimedAt.Add(time.Hour) }
	again, err := r.ClaimProcessing(ctx, d.ID, claimedAt.Add(time.Second))
	require.NoError(t, err)
	require.Equal(t, document.StatusProcessing, again.ExtractionStatus)
}
