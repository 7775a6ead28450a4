package session

import (
	"context"
	"errors"
	"time"

	"campus-attendance-svc/src/clients"
	"campus-attendance-svc/src/internal/models"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Repository interface {
	Insert(ctx context.Context, s *Session) error
	GetByID(ctx context.Context, sessionID string) (*Session, error)
	FindLiveBySlot(ctx context.Context, instructorID, slotID string, at time.Time) (*Session, error)
	UpdateNonce(ctx context.Context, sessionID, nonce string, rotatedAt time.Time) error
	Revoke(ctx context.Context, sessionID string) error
	ListByInstructor(ctx context.Context, instructorID string) ([]*Session, error)
}

type repository struct {
	collection *mongo.Collection
}

func NewRepository(db *clients.MongoDB, collectionName string) Repository {
	collection := db.Database.Collection(collectionName)
	return &repository{collection: collection}
}

func (r *repository) Insert(ctx context.Context, s *Session) error {
	if _, err := r.collection.InsertOne(ctx, s); err != nil {
		logrus.WithError(err).WithField("session_id", s.SessionID).Error("Failed to insert session")
		return models.ErrDatabaseInsert
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, sessionID string) (*Session, error) {
	var s Session
	filter := bson.M{"session_id": sessionID}

	err := r.collection.FindOne(ctx, filter).Decode(&s)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrSessionNotFound
		}
		logrus.WithError(err).WithField("session_id", sessionID).Error("Failed to get session")
		return nil, models.ErrDatabaseQuery
	}

	return &s, nil
}

func (r *repository) FindLiveBySlot(ctx context.Context, instructorID, slotID string, at time.Time) (*Session, error) {
	var s Session
	filter := bson.M{
		"instructor_id": instructorID,
		"slot_id":       slotID,
		"revoked":       false,
		"created_at":    bson.M{"$lte": at},
		"expires_at":    bson.M{"$gt": at},
	}

	err := r.collection.FindOne(ctx, filter).Decode(&s)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrSessionNotFound
		}
		logrus.WithError(err).WithFields(logrus.Fields{
			"instructor_id": instructorID,
			"slot_id":       slotID,
		}).Error("Failed to find live session for slot")
		return nil, models.ErrDatabaseQuery
	}

	return &s, nil
}

func (r *repository) UpdateNonce(ctx context.Context, sessionID, nonce string, rotatedAt time.Time) error {
	filter := bson.M{"session_id": sessionID}
	update := bson.M{
		"$set": bson.M{
			"nonce":      nonce,
			"rotated_at": rotatedAt,
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		logrus.WithError(err).WithField("session_id", sessionID).Error("Failed to rotate session nonce")
		return models.ErrSessionUpdating
	}
	if result.MatchedCount == 0 {
		return models.ErrSessionNotFound
	}

	return nil
}

func (r *repository) Revoke(ctx context.Context, sessionID string) error {
	filter := bson.M{"session_id": sessionID}
	update := bson.M{"$set": bson.M{"revoked": true}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		logrus.WithError(err).WithField("session_id", sessionID).Error("Failed to revoke session")
		return models.ErrSessionUpdating
	}
	if result.MatchedCount == 0 {
		return models.ErrSessionNotFound
	}

	return nil
}

func (r *repository) ListByInstructor(ctx context.Context, instructorID string) ([]*Session, error) {
	filter := bson.M{"instructor_id": instructorID}
	opts := options.Find().SetSort(bson.M{"created_at": -1})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		logrus.WithError(err).WithField("instructor_id", instructorID).Error("Failed to list sessions")
		return nil, models.ErrDatabaseQuery
	}
	defer cursor.Close(ctx)

	var sessions []*Session
	for cursor.Next(ctx) {
		var s Session
		if err := cursor.Decode(&s); err != nil {
			logrus.WithError(err).Error("Failed to decode session")
			continue
		}
		sessions = append(sessions, &s)
	}

	if err := cursor.Err(); err != nil {
		logrus.WithError(err).Error("Cursor error")
		return nil, models.ErrDatabaseQuery
	}

	return sessions, nil
}
