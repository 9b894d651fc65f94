package repository

import (
	"context"
	"errors"
	"time"

	"github.com/pdfscan/pdfscan/internal/document"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepo implements Repository on a MongoDB collection. Ids are ObjectID
// hex strings stored in _id; status changes use filtered updates so the
// database serializes competing writers per record.
type MongoRepo struct {
	col *mongo.Collection
	now func() time.Time
}

func NewMongoRepo(col *mongo.Collection) *MongoRepo {
	return &MongoRepo{col: col, now: time.Now}
}

// EnsureIndexes creates the listing and status indexes. Safe to call repeatedly.
func (m *MongoRepo) EnsureIndexes(ctx context.Context) error {
	_, err := m.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "extractionStatus", Value: 1}}},
	})
	return err
}

func (m *MongoRepo) Create(ctx context.Context, in document.CreateInput) (*document.Document, error) {
	d := document.NewFromInput(in, m.now().UTC())
	d.ID = primitive.NewObjectID().Hex()
	if _, err := m.col.InsertOne(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (m *MongoRepo) Get(ctx context.Context, id string) (*document.Document, error) {
	var d document.Document
	err := m.col.FindOne(ctx, bson.M{"_id": id}).Decode(&d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (m *MongoRepo) List(ctx context.Context) ([]*document.Document, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := m.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*document.Document{}
	for cur.Next(ctx) {
		var d document.Document
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, cur.Err()
}

func (m *MongoRepo) Delete(ctx context.Context, id string) error {
	res, err := m.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoRepo) ClaimProcessing(ctx context.Context, id string, staleBefore time.Time) (*document.Document, error) {
	filter := bson.M{"_id": id, "extractionStatus": bson.M{"$in": claimable}}
	if !staleBefore.IsZero() {
		filter = bson.M{"_id": id, "$or": bson.A{
			bson.M{"extractionStatus": bson.M{"$in": claimable}},
			bson.M{"extractionStatus": document.StatusProcessing, "updatedAt": bson.M{"$lt": staleBefore.UTC()}},
		}}
	}
	update := bson.M{
		"$set":   bson.M{"extractionStatus": document.StatusProcessing, "updatedAt": m.now().UTC()},
		"$unset": bson.M{"error": ""},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var d document.Document
	err := m.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, m.missOrConflict(ctx, id)
		}
		return nil, err
	}
	return &d, nil
}

func (m *MongoRepo) MarkCompleted(ctx context.Context, id string, text string, patient document.PatientData) error {
	update := bson.M{
		"$set": bson.M{
			"extractionStatus": document.StatusCompleted,
			"extractedText":    text,
			"patientData":      patient,
			"updatedAt":        m.now().UTC(),
		},
		"$unset": bson.M{"error": ""},
	}
	return m.fromProcessing(ctx, id, update)
}

func (m *MongoRepo) MarkFailed(ctx context.Context, id string, reason string) error {
	update := bson.M{
		"$set": bson.M{
			"extractionStatus": document.StatusFailed,
			"error":            reason,
			"updatedAt":        m.now().UTC(),
		},
		"$unset": bson.M{"extractedText": "", "patientData": ""},
	}
	return m.fromProcessing(ctx, id, update)
}

func (m *MongoRepo) Ping(ctx context.Context) error {
	return m.col.Database().Client().Ping(ctx, nil)
}

func (m *MongoRepo) fromProcessing(ctx context.Context, id string, update bson.M) error {
	filter := bson.M{"_id": id, "extractionStatus": document.StatusProcessing}
	res, err := m.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return m.missOrConflict(ctx, id)
	}
	return nil
}

// missOrConflict tells an unknown id apart from a record in the wrong state
// after a filtered write matched nothing.
func (m *MongoRepo) missOrConflict(ctx context.Context, id string) error {
	n, err := m.col.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrInvalidTransition
}
