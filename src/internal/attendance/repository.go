package attendance

import (
	"context"
	"errors"

	"campus-attendance-svc/src/clients"
	"campus-attendance-svc/src/internal/models"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Ledger is the append-only attendance record store.
//
// CheckAndInsertAutomatic is the single atomic primitive the redemption path
// relies on: at most one automatic record may exist per (session, identity),
// and concurrent inserts for the same pair resolve to exactly one winner.
type Ledger interface {
	CheckAndInsertAutomatic(ctx context.Context, rec *Record) (*Record, error)
	Append(ctx context.Context, rec *Record) error
	FindAutomatic(ctx context.Context, sessionID, identity string) (*Record, error)
	Query(ctx context.Context, f Filter) ([]*Record, error)
}

type ledger struct {
	collection *mongo.Collection
}

// NewLedger builds the mongo-backed ledger. The unique partial index on
// (session_id, identity) for source=automatic is what makes
// CheckAndInsertAutomatic all-or-nothing under concurrency.
func NewLedger(ctx context.Context, db *clients.MongoDB, collectionName string) (Ledger, error) {
	collection := db.Database.Collection(collectionName)

	index := mongo.IndexModel{
		Keys: bson.D{
			{Key: "session_id", Value: 1},
			{Key: "identity", Value: 1},
		},
		Options: options.Index().
			SetUnique(true).
			SetPartialFilterExpression(bson.M{"source": SourceAutomatic}),
	}

	if _, err := collection.Indexes().CreateOne(ctx, index); err != nil {
		logrus.WithError(err).Error("Failed to create attendance uniqueness index")
		return nil, models.ErrDatabaseConnection
	}

	return &ledger{collection: collection}, nil
}

// CheckAndInsertAutomatic inserts the record unless an automatic record for
// the same (session, identity) already exists. On conflict it returns the
// existing record together with ErrDuplicateRecord.
func (l *ledger) CheckAndInsertAutomatic(ctx context.Context, rec *Record) (*Record, error) {
	_, err := l.collection.InsertOne(ctx, rec)
	if err == nil {
		return rec, nil
	}

	if mongo.IsDuplicateKeyError(err) {
		existing, findErr := l.FindAutomatic(ctx, rec.SessionID, rec.Identity)
		if findErr != nil {
			return nil, findErr
		}
		return existing, models.ErrDuplicateRecord
	}

	logrus.WithError(err).WithFields(logrus.Fields{
		"session_id": rec.SessionID,
		"identity":   rec.Identity,
	}).Error("Failed to insert automatic attendance record")
	return nil, models.ErrDatabaseInsert
}

func (l *ledger) Append(ctx context.Context, rec *Record) error {
	if _, err := l.collection.InsertOne(ctx, rec); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"session_id": rec.SessionID,
			"identity":   rec.Identity,
			"source":     rec.Source,
		}).Error("Failed to append attendance record")
		return models.ErrDatabaseInsert
	}
	return nil
}

func (l *ledger) FindAutomatic(ctx context.Context, sessionID, identity string) (*Record, error) {
	var rec Record
	filter := bson.M{
		"session_id": sessionID,
		"identity":   identity,
		"source":     SourceAutomatic,
	}

	err := l.collection.FindOne(ctx, filter).Decode(&rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrRecordNotFound
		}
		logrus.WithError(err).Error("Failed to find automatic attendance record")
		return nil, models.ErrDatabaseQuery
	}

	return &rec, nil
}

// Query returns matching records ordered by recorded timestamp ascending,
// ties broken by insertion order (_id).
func (l *ledger) Query(ctx context.Context, f Filter) ([]*Record, error) {
	filter := bson.M{}
	if f.SessionID != "" {
		filter["session_id"] = f.SessionID
	}
	if f.Identity != "" {
		filter["identity"] = f.Identity
	}
	if f.Source != "" {
		filter["source"] = f.Source
	}

	opts := options.Find().SetSort(bson.D{
		{Key: "recorded_at", Value: 1},
		{Key: "_id", Value: 1},
	})

	cursor, err := l.collection.Find(ctx, filter, opts)
	if err != nil {
		logrus.WithError(err).Error("Failed to query attendance records")
		return nil, models.ErrDatabaseQuery
	}
	defer cursor.Close(ctx)

	var records []*Record
	for cursor.Next(ctx) {
		var rec Record
		if err := cursor.Decode(&rec); err != nil {
			logrus.WithError(err).Error("Failed to decode attendance record")
			continue
		}
		records = append(records, &rec)
	}

	if err := cursor.Err(); err != nil {
		logrus.WithError(err).Error("Cursor error")
		return nil, models.ErrDatabaseQuery
	}

	return records, nil
}
