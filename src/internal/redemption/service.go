package redemption

import (
	"context"
	"errors"
	"time"

	"campus-attendance-svc/src/clients"
	"campus-attendance-svc/src/internal/attendance"
	"campus-attendance-svc/src/internal/config"
	"campus-attendance-svc/src/internal/models"
	"campus-attendance-svc/src/internal/roster"
	"campus-attendance-svc/src/internal/session"
	"campus-attendance-svc/src/internal/token"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Reason classifies a rejected redemption. Rejections are routine outcomes,
// not faults; the returned error is reserved for storage problems.
type Reason string

// Rejection reason constants
const (
	ReasonInvalidCode   Reason = "invalid_code"
	ReasonExpired       Reason = "expired"
	ReasonNotEnrolled   Reason = "not_enrolled"
	ReasonAlreadyMarked Reason = "already_marked"
)

// Result is the outcome of one redemption attempt. On AlreadyMarked the
// Record field carries the original automatic record, so callers can show
// when the claimant was first marked.
type Result struct {
	Accepted bool               `json:"accepted"`
	Reason   Reason             `json:"reason,omitempty"`
	Record   *attendance.Record `json:"record,omitempty"`
}

type Validator interface {
	Redeem(ctx context.Context, rawPayload, identity string, at time.Time) (*Result, error)
}

type validator struct {
	codec     *token.Codec
	sessions  session.Service
	ledger    attendance.Ledger
	roster    roster.Provider
	publisher clients.Publisher
	cfg       *config.Configuration
}

func NewValidator(codec *token.Codec, sessions session.Service, ledger attendance.Ledger,
	rosterProvider roster.Provider, publisher clients.Publisher, cfg *config.Configuration) Validator {
	return &validator{
		codec:     codec,
		sessions:  sessions,
		ledger:    ledger,
		roster:    rosterProvider,
		publisher: publisher,
		cfg:       cfg,
	}
}

// Redeem validates one attempt: decode, session lookup, nonce freshness,
// liveness, roster eligibility, then the atomic check-and-insert. An unknown
// session and a tampered payload produce the same rejection so callers get no
// tamper-vs-garbage oracle.
func (v *validator) Redeem(ctx context.Context, rawPayload, identity string, at time.Time) (*Result, error) {
	sessionID, nonce, err := v.codec.Decode(rawPayload)
	if err != nil {
		logrus.WithField("identity", identity).Debug("Redemption payload failed to decode")
		return &Result{Reason: ReasonInvalidCode}, nil
	}

	sess, err := v.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, models.ErrSessionNotFound) {
			return &Result{Reason: ReasonInvalidCode}, nil
		}
		return nil, err
	}

	// A nonce from before the last rotation never validates, even while the
	// session itself is still live.
	if sess.Nonce != nonce {
		logrus.WithFields(logrus.Fields{
			"session_id": sessionID,
			"identity":   identity,
		}).Debug("Stale rotation nonce on redemption attempt")
		return &Result{Reason: ReasonExpired}, nil
	}

	if !sess.IsLive(at) {
		return &Result{Reason: ReasonExpired}, nil
	}

	enrolled, err := v.roster.IsEnrolled(ctx, sess.CourseID, identity)
	if err != nil {
		if errors.Is(err, models.ErrRosterNotFound) {
			return &Result{Reason: ReasonNotEnrolled}, nil
		}
		return nil, models.ErrRosterLookup
	}
	if !enrolled {
		logrus.WithFields(logrus.Fields{
			"session_id": sessionID,
			"course_id":  sess.CourseID,
			"identity":   identity,
		}).Info("Redemption attempt by identity not on roster")
		return &Result{Reason: ReasonNotEnrolled}, nil
	}

	outcome := attendance.OutcomePresent
	grace := time.Duration(v.cfg.Attendance.GracePeriodSeconds) * time.Second
	if at.Sub(sess.CreatedAt) > grace {
		outcome = attendance.OutcomeLate
	}

	rec := &attendance.Record{
		RecordID:   uuid.NewString(),
		SessionID:  sessionID,
		Identity:   identity,
		Outcome:    outcome,
		Source:     attendance.SourceAutomatic,
		RecordedAt: at,
		RecordedBy: identity,
	}

	inserted, err := v.ledger.CheckAndInsertAutomatic(ctx, rec)
	if err != nil {
		if errors.Is(err, models.ErrDuplicateRecord) {
			return &Result{Reason: ReasonAlreadyMarked, Record: inserted}, nil
		}
		return nil, err
	}

	v.publish(models.AttendanceEvent{
		Action:    models.ActionAttendanceMarked,
		SessionID: sessionID,
		CourseID:  sess.CourseID,
		Identity:  identity,
		Outcome:   outcome,
		Source:    attendance.SourceAutomatic,
		Timestamp: at,
	})

	logrus.WithFields(logrus.Fields{
		"session_id": sessionID,
		"identity":   identity,
		"outcome":    outcome,
	}).Info("Redemption accepted")

	return &Result{Accepted: true, Record: inserted}, nil
}

func (v *validator) publish(event models.AttendanceEvent) {
	if v.publisher == nil {
		return
	}
	if err := v.publisher.PublishAttendanceEvent(event); err != nil {
		logrus.WithError(err).Warn("Failed to publish attendance event")
	}
}
