package repository

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/pdfscan/pdfscan/internal/document"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreRepo implements Repository on a Firestore collection. Status
// changes run inside transactions so the read of the current status and the
// write are atomic.
type FirestoreRepo struct {
	client *firestore.Client
	col    *firestore.CollectionRef
	now    func() time.Time
}

func NewFirestoreRepo(client *firestore.Client, collection string) *FirestoreRepo {
	if collection == "" {
		collection = "documents"
	}
	return &FirestoreRepo{client: client, col: client.Collection(collection), now: time.Now}
}

func (f *FirestoreRepo) Create(ctx context.Context, in document.CreateInput) (*document.Document, error) {
	d := document.NewFromInput(in, f.now().UTC())
	ref := f.col.NewDoc()
	if _, err := ref.Create(ctx, d); err != nil {
		return nil, err
	}
	d.ID = ref.ID
	return d, nil
}

func (f *FirestoreRepo) Get(ctx context.Context, id string) (*document.Document, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	snap, err := f.col.Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return decodeSnapshot(snap)
}

func (f *FirestoreRepo) List(ctx context.Context) ([]*document.Document, error) {
	iter := f.col.OrderBy("createdAt", firestore.Desc).Documents(ctx)
	defer iter.Stop()
	out := []*document.Document{}
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		d, err := decodeSnapshot(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func (f *FirestoreRepo) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrNotFound
	}
	// Exists precondition turns a missing doc into NotFound instead of a no-op.
	_, err := f.col.Doc(id).Delete(ctx, firestore.Exists)
	if status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	return err
}

func (f *FirestoreRepo) ClaimProcessing(ctx context.Context, id string, staleBefore time.Time) (*document.Document, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	var claimed *document.Document
	err := f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref := f.col.Doc(id)
		d, err := f.getInTx(tx, ref)
		if err != nil {
			return err
		}
		if !canClaim(d, staleBefore) {
			return ErrInvalidTransition
		}
		now := f.now().UTC()
		if err := tx.Update(ref, []firestore.Update{
			{Path: "extractionStatus", Value: document.StatusProcessing},
			{Path: "error", Value: firestore.Delete},
			{Path: "updatedAt", Value: now},
		}); err != nil {
			return err
		}
		d.ExtractionStatus = document.StatusProcessing
		d.Error = ""
		d.UpdatedAt = now
		claimed = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (f *FirestoreRepo) MarkCompleted(ctx context.Context, id string, text string, patient document.PatientData) error {
	return f.fromProcessing(ctx, id, []firestore.Update{
		{Path: "extractionStatus", Value: document.StatusCompleted},
		{Path: "extractedText", Value: text},
		{Path: "patientData", Value: patient},
		{Path: "error", Value: firestore.Delete},
	})
}

func (f *FirestoreRepo) MarkFailed(ctx context.Context, id string, reason string) error {
	return f.fromProcessing(ctx, id, []firestore.Update{
		{Path: "extractionStatus", Value: document.StatusFailed},
		{Path: "error", Value: reason},
		{Path: "extractedText", Value: firestore.Delete},
		{Path: "patientData", Value: firestore.Delete},
	})
}

// Ping reads a sentinel document; NotFound still proves connectivity.
func (f *FirestoreRepo) Ping(ctx context.Context) error {
	_, err := f.col.Doc("_ping").Get(ctx)
	if err != nil && status.Code(err) != codes.NotFound {
		return err
	}
	return nil
}

func (f *FirestoreRepo) fromProcessing(ctx context.Context, id string, updates []firestore.Update) error {
	if id == "" {
		return ErrNotFound
	}
	return f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref := f.col.Doc(id)
		d, err := f.getInTx(tx, ref)
		if err != nil {
			return err
		}
		if d.ExtractionStatus != document.StatusProcessing {
			return ErrInvalidTransition
		}
		return tx.Update(ref, append(updates, firestore.Update{Path: "updatedAt", Value: f.now().UTC()}))
	})
}

func (f *FirestoreRepo) getInTx(tx *firestore.Transaction, ref *firestore.DocumentRef) (*document.Document, error) {
	snap, err := tx.Get(ref)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return decodeSnapshot(snap)
}

func decodeSnapshot(snap *firestore.DocumentSnapshot) (*document.Document, error) {
	var d document.Document
	if err := snap.DataTo(&d); err != nil {
		return nil, err
	}
	d.ID = snap.Ref.ID
	return &d, nil
}
