package session

import (
	"context"
	"errors"
	"time"

	"campus-attendance-svc/src/clients"
	"campus-attendance-svc/src/internal/config"
	"campus-attendance-svc/src/internal/models"
	"campus-attendance-svc/src/internal/token"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Cache is the session read cache. A nil result without error means a miss;
// redemption traffic falls back to the repository.
type Cache interface {
	GetSession(ctx context.Context, sessionID string) (*Session, error)
	CacheSession(ctx context.Context, s *Session) error
	InvalidateSession(ctx context.Context, sessionID string) error
}

type Service interface {
	Open(ctx context.Context, instructorID string, req *OpenRequest) (*Session, error)
	Get(ctx context.Context, sessionID string) (*Session, error)
	CurrentToken(ctx context.Context, sessionID string) (string, *Session, error)
	Stop(ctx context.Context, sessionID string) error
	List(ctx context.Context, instructorID string) ([]*Session, error)
}

type service struct {
	repository Repository
	codec      *token.Codec
	cache      Cache
	publisher  clients.Publisher
	cfg        *config.Configuration
	now        func() time.Time
}

func NewService(repository Repository, codec *token.Codec, cache Cache, publisher clients.Publisher, cfg *config.Configuration) Service {
	return &service{
		repository: repository,
		codec:      codec,
		cache:      cache,
		publisher:  publisher,
		cfg:        cfg,
		now:        time.Now,
	}
}

func (s *service) Open(ctx context.Context, instructorID string, req *OpenRequest) (*Session, error) {
	duration := req.DurationMinutes
	if duration <= 0 {
		duration = s.cfg.Attendance.DefaultDurationMinutes
	}
	if duration > s.cfg.Attendance.MaxDurationMinutes {
		return nil, models.ErrInvalidDuration
	}

	now := s.now()

	existing, err := s.repository.FindLiveBySlot(ctx, instructorID, req.SlotID, now)
	if err != nil && !errors.Is(err, models.ErrSessionNotFound) {
		return nil, err
	}
	if existing != nil {
		logrus.WithFields(logrus.Fields{
			"instructor_id": instructorID,
			"slot_id":       req.SlotID,
			"session_id":    existing.SessionID,
		}).Warn("Live session already open for slot")
		return nil, models.ErrScheduleConflict
	}

	sess := &Session{
		SessionID:    uuid.NewString(),
		CourseID:     req.CourseID,
		SlotID:       req.SlotID,
		Venue:        req.Venue,
		InstructorID: instructorID,
		Nonce:        uuid.NewString(),
		RotatedAt:    now,
		CreatedAt:    now,
		ExpiresAt:    now.Add(time.Duration(duration) * time.Minute),
		Revoked:      false,
	}

	if err := s.repository.Insert(ctx, sess); err != nil {
		return nil, models.ErrSessionCreating
	}

	if s.cache != nil {
		s.cache.CacheSession(ctx, sess)
	}

	s.publish(models.AttendanceEvent{
		Action:    models.ActionSessionOpened,
		SessionID: sess.SessionID,
		CourseID:  sess.CourseID,
		Recorder:  instructorID,
		Timestamp: now,
	})

	logrus.WithFields(logrus.Fields{
		"session_id": sess.SessionID,
		"course_id":  sess.CourseID,
		"slot_id":    sess.SlotID,
		"expires_at": sess.ExpiresAt,
	}).Info("Attendance session opened")

	return sess, nil
}

// Get reads through the cache and falls back to the repository. Stopped and
// expired sessions are still returned; liveness is the caller's check.
func (s *service) Get(ctx context.Context, sessionID string) (*Session, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetSession(ctx, sessionID); err == nil && cached != nil {
			return cached, nil
		}
	}

	sess, err := s.repository.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.CacheSession(ctx, sess)
	}

	return sess, nil
}

// CurrentToken mints the payload for the session's current nonce, rotating
// the nonce first when the rotation interval has elapsed. Tokens minted
// before a rotation boundary stop validating.
func (s *service) CurrentToken(ctx context.Context, sessionID string) (string, *Session, error) {
	sess, err := s.repository.GetByID(ctx, sessionID)
	if err != nil {
		return "", nil, err
	}

	now := s.now()
	if !sess.IsLive(now) {
		return "", nil, models.ErrSessionNotLive
	}

	interval := time.Duration(s.cfg.Attendance.RotationIntervalSeconds) * time.Second
	if s.cfg.Attendance.RotationEnabled && now.Sub(sess.RotatedAt) >= interval {
		nonce := uuid.NewString()
		if err := s.repository.UpdateNonce(ctx, sessionID, nonce, now); err != nil {
			return "", nil, err
		}
		sess.Nonce = nonce
		sess.RotatedAt = now

		if s.cache != nil {
			s.cache.CacheSession(ctx, sess)
		}

		logrus.WithField("session_id", sessionID).Debug("Session nonce rotated")
	}

	payload, err := s.codec.Mint(sess.SessionID, sess.Nonce)
	if err != nil {
		return "", nil, err
	}

	return payload, sess, nil
}

// Stop revokes the session. Idempotent; stopping an already stopped session
// is a no-op.
func (s *service) Stop(ctx context.Context, sessionID string) error {
	if err := s.repository.Revoke(ctx, sessionID); err != nil {
		return err
	}

	if s.cache != nil {
		s.cache.InvalidateSession(ctx, sessionID)
	}

	s.publish(models.AttendanceEvent{
		Action:    models.ActionSessionStopped,
		SessionID: sessionID,
		Timestamp: s.now(),
	})

	logrus.WithField("session_id", sessionID).Info("Attendance session stopped")
	return nil
}

func (s *service) List(ctx context.Context, instructorID string) ([]*Session, error) {
	return s.repository.ListByInstructor(ctx, instructorID)
}

func (s *service) publish(event models.AttendanceEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishAttendanceEvent(event); err != nil {
		logrus.WithError(err).WithField("action", event.Action).Warn("Failed to publish session event")
	}
}
