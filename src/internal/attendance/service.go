package attendance

import (
	"context"
	"errors"
	"sort"
	"time"

	"campus-attendance-svc/src/clients"
	"campus-attendance-svc/src/internal/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Service reconciles manual entries with automatic redemptions and serves the
// reporting views. History is never rewritten; the effective state resolves
// each (session, identity) pair to its most recent record.
type Service interface {
	ApplyManual(ctx context.Context, sessionID, identity, outcome, recorder string, at time.Time) (*Record, error)
	History(ctx context.Context, sessionID string) ([]*Record, error)
	EffectiveState(ctx context.Context, sessionID string) ([]*Record, error)
	SessionStats(ctx context.Context, sessionID string) (*Stats, error)
}

type service struct {
	ledger    Ledger
	publisher clients.Publisher
}

func NewService(ledger Ledger, publisher clients.Publisher) Service {
	return &service{
		ledger:    ledger,
		publisher: publisher,
	}
}

// ApplyManual appends a manual record. When an automatic record exists for
// the pair, the new record supersedes it; the automatic record stays visible
// in history.
func (s *service) ApplyManual(ctx context.Context, sessionID, identity, outcome, recorder string, at time.Time) (*Record, error) {
	if !ValidOutcome(outcome) {
		return nil, models.ErrInvalidOutcome
	}

	rec := &Record{
		RecordID:   uuid.NewString(),
		SessionID:  sessionID,
		Identity:   identity,
		Outcome:    outcome,
		Source:     SourceManual,
		RecordedAt: at,
		RecordedBy: recorder,
	}

	automatic, err := s.ledger.FindAutomatic(ctx, sessionID, identity)
	if err != nil && !errors.Is(err, models.ErrRecordNotFound) {
		return nil, err
	}
	if automatic != nil {
		rec.Supersedes = automatic.RecordID
	}

	if err := s.ledger.Append(ctx, rec); err != nil {
		return nil, err
	}

	if s.publisher != nil {
		if perr := s.publisher.PublishAttendanceEvent(models.AttendanceEvent{
			Action:    models.ActionManualOverride,
			SessionID: sessionID,
			Identity:  identity,
			Outcome:   outcome,
			Source:    SourceManual,
			Recorder:  recorder,
			Timestamp: at,
		}); perr != nil {
			logrus.WithError(perr).Warn("Failed to publish manual override event")
		}
	}

	logrus.WithFields(logrus.Fields{
		"session_id": sessionID,
		"identity":   identity,
		"outcome":    outcome,
		"recorder":   recorder,
		"supersedes": rec.Supersedes,
	}).Info("Manual attendance entry recorded")

	return rec, nil
}

func (s *service) History(ctx context.Context, sessionID string) ([]*Record, error) {
	return s.ledger.Query(ctx, Filter{SessionID: sessionID})
}

// EffectiveState resolves each identity to its latest record by recorded
// timestamp. Records arrive sorted ascending with insertion-order ties, so
// the last record seen per identity wins.
func (s *service) EffectiveState(ctx context.Context, sessionID string) ([]*Record, error) {
	history, err := s.ledger.Query(ctx, Filter{SessionID: sessionID})
	if err != nil {
		return nil, err
	}

	latest := make(map[string]*Record)
	for _, rec := range history {
		latest[rec.Identity] = rec
	}

	state := make([]*Record, 0, len(latest))
	for _, rec := range latest {
		state = append(state, rec)
	}
	sort.Slice(state, func(i, j int) bool {
		return state[i].Identity < state[j].Identity
	})

	return state, nil
}

func (s *service) SessionStats(ctx context.Context, sessionID string) (*Stats, error) {
	state, err := s.EffectiveState(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	stats := &Stats{}
	for _, rec := range state {
		stats.Total++
		switch rec.Outcome {
		case OutcomePresent:
			stats.Present++
		case OutcomeLate:
			stats.Late++
		case OutcomeAbsent:
			stats.Absent++
		}
		switch rec.Source {
		case SourceAutomatic:
			stats.Automatic++
		case SourceManual:
			stats.Manual++
		}
	}

	return stats, nil
}
