package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"campus-attendance-svc/src/internal/config"
	"campus-attendance-svc/src/internal/models"
	"campus-attendance-svc/src/internal/session"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	sessionKeyPattern = "attsession:%s"
	rosterKeyPattern  = "roster:%s"
)

type Service interface {
	GetSession(ctx context.Context, sessionID string) (*session.Session, error)
	CacheSession(ctx context.Context, s *session.Session) error
	InvalidateSession(ctx context.Context, sessionID string) error
	GetCourseRoster(ctx context.Context, courseID string) ([]string, error)
	SaveCourseRoster(ctx context.Context, courseID string, members []string) error
}

type cacheService struct {
	client *redis.Client
	cfg    *config.CacheConfig
}

// cachedSession is the redis encoding of a session. The session struct hides
// the rotation nonce from HTTP responses, so the cache carries its own shape
// with the full state.
type cachedSession struct {
	SessionID    string    `json:"session_id"`
	CourseID     string    `json:"course_id"`
	SlotID       string    `json:"slot_id"`
	Venue        string    `json:"venue"`
	InstructorID string    `json:"instructor_id"`
	Nonce        string    `json:"nonce"`
	RotatedAt    time.Time `json:"rotated_at"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	Revoked      bool      `json:"revoked"`
}

func toCachedSession(s *session.Session) *cachedSession {
	return &cachedSession{
		SessionID:    s.SessionID,
		CourseID:     s.CourseID,
		SlotID:       s.SlotID,
		Venue:        s.Venue,
		InstructorID: s.InstructorID,
		Nonce:        s.Nonce,
		RotatedAt:    s.RotatedAt,
		CreatedAt:    s.CreatedAt,
		ExpiresAt:    s.ExpiresAt,
		Revoked:      s.Revoked,
	}
}

func (c *cachedSession) toSession() *session.Session {
	return &session.Session{
		SessionID:    c.SessionID,
		CourseID:     c.CourseID,
		SlotID:       c.SlotID,
		Venue:        c.Venue,
		InstructorID: c.InstructorID,
		Nonce:        c.Nonce,
		RotatedAt:    c.RotatedAt,
		CreatedAt:    c.CreatedAt,
		ExpiresAt:    c.ExpiresAt,
		Revoked:      c.Revoked,
	}
}

func NewCacheService(client *redis.Client, cfg *config.Configuration) Service {
	return &cacheService{
		client: client,
		cfg:    &cfg.Cache,
	}
}

func (c *cacheService) GetSession(ctx context.Context, sessionID string) (*session.Session, error) {
	key := fmt.Sprintf(sessionKeyPattern, sessionID)

	data, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			logrus.WithField("session_id", sessionID).Debug("Session not found in cache")
			return nil, nil // Not an error, just not found
		}
		logrus.WithError(err).WithField("session_id", sessionID).Error("Failed to get session from cache")
		return nil, models.ErrRedisGet
	}

	var cached cachedSession
	if err := json.Unmarshal([]byte(data), &cached); err != nil {
		logrus.WithError(err).WithField("session_id", sessionID).Error("Failed to unmarshal session from cache")
		return nil, models.ErrRedisGet
	}

	return cached.toSession(), nil
}

func (c *cacheService) CacheSession(ctx context.Context, s *session.Session) error {
	key := fmt.Sprintf(sessionKeyPattern, s.SessionID)

	until := time.Until(s.ExpiresAt)
	if until <= 0 {
		logrus.WithField("session_id", s.SessionID).Warn("Session already expired, not caching")
		return nil
	}

	data, err := json.Marshal(toCachedSession(s))
	if err != nil {
		logrus.WithError(err).WithField("session_id", s.SessionID).Error("Failed to marshal session for cache")
		return models.ErrRedisSet
	}

	// Cap the TTL at the session expiry so a closed window never lingers.
	expiration := time.Duration(c.cfg.SessionExpirationMinutes) * time.Minute
	if until < expiration {
		expiration = until
	}

	if err := c.client.Set(ctx, key, data, expiration).Err(); err != nil {
		logrus.WithError(err).WithField("session_id", s.SessionID).Error("Failed to cache session")
		return models.ErrRedisSet
	}

	logrus.WithField("session_id", s.SessionID).Debug("Session cached successfully")
	return nil
}

func (c *cacheService) InvalidateSession(ctx context.Context, sessionID string) error {
	key := fmt.Sprintf(sessionKeyPattern, sessionID)

	if err := c.client.Del(ctx, key).Err(); err != nil {
		logrus.WithError(err).WithField("session_id", sessionID).Error("Failed to invalidate cached session")
		return models.ErrRedisDelete
	}

	return nil
}

func (c *cacheService) GetCourseRoster(ctx context.Context, courseID string) ([]string, error) {
	key := fmt.Sprintf(rosterKeyPattern, courseID)

	data, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			logrus.WithField("course_id", courseID).Debug("Roster not found in cache")
			return nil, nil // Not an error, just not found
		}
		logrus.WithError(err).WithField("course_id", courseID).Error("Failed to get roster from cache")
		return nil, models.ErrRedisGet
	}

	var members []string
	if err := json.Unmarshal([]byte(data), &members); err != nil {
		logrus.WithError(err).WithField("course_id", courseID).Error("Failed to unmarshal roster from cache")
		return nil, models.ErrRedisGet
	}

	return members, nil
}

func (c *cacheService) SaveCourseRoster(ctx context.Context, courseID string, members []string) error {
	key := fmt.Sprintf(rosterKeyPattern, courseID)

	data, err := json.Marshal(members)
	if err != nil {
		logrus.WithError(err).WithField("course_id", courseID).Error("Failed to marshal roster for cache")
		return models.ErrRedisSet
	}

	expiration := time.Duration(c.cfg.RosterExpirationMinutes) * time.Minute
	if err := c.client.Set(ctx, key, data, expiration).Err(); err != nil {
		logrus.WithError(err).WithField("course_id", courseID).Error("Failed to cache roster")
		return models.ErrRedisSet
	}

	return nil
}
