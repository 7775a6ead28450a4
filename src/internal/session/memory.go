package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"campus-attendance-svc/src/internal/models"
)

// MemoryRepository keeps sessions in process memory. It backs the unit tests
// and cache-less local runs; the mongo repository is the durable variant.
type MemoryRepository struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{sessions: make(map[string]*Session)}
}

func (r *MemoryRepository) Insert(_ context.Context, s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *s
	r.sessions[s.SessionID] = &clone
	return nil
}

func (r *MemoryRepository) GetByID(_ context.Context, sessionID string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, exists := r.sessions[sessionID]
	if !exists {
		return nil, models.ErrSessionNotFound
	}
	clone := *s
	return &clone, nil
}

func (r *MemoryRepository) FindLiveBySlot(_ context.Context, instructorID, slotID string, at time.Time) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.sessions {
		if s.InstructorID == instructorID && s.SlotID == slotID && s.IsLive(at) {
			clone := *s
			return &clone, nil
		}
	}
	return nil, models.ErrSessionNotFound
}

func (r *MemoryRepository) UpdateNonce(_ context.Context, sessionID, nonce string, rotatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, exists := r.sessions[sessionID]
	if !exists {
		return models.ErrSessionNotFound
	}
	s.Nonce = nonce
	s.RotatedAt = rotatedAt
	return nil
}

func (r *MemoryRepository) Revoke(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, exists := r.sessions[sessionID]
	if !exists {
		return models.ErrSessionNotFound
	}
	s.Revoked = true
	return nil
}

func (r *MemoryRepository) ListByInstructor(_ context.Context, instructorID string) ([]*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var sessions []*Session
	for _, s := range r.sessions {
		if s.InstructorID == instructorID {
			clone := *s
			sessions = append(sessions, &clone)
		}
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})

	return sessions, nil
}
