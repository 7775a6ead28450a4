package attendance

import (
	"context"
	"sort"
	"sync"

	"campus-attendance-svc/src/internal/models"
)

// MemoryLedger is the in-process Ledger used by the unit tests and cache-less
// local runs. A single mutex guards the automatic-record uniqueness check and
// the append, giving the same all-or-nothing behavior as the mongo unique
// index.
type MemoryLedger struct {
	mu        sync.Mutex
	records   []*Record
	automatic map[string]*Record // sessionID + "\x00" + identity
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{automatic: make(map[string]*Record)}
}

func pairKey(sessionID, identity string) string {
	return sessionID + "\x00" + identity
}

func (l *MemoryLedger) CheckAndInsertAutomatic(_ context.Context, rec *Record) (*Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := pairKey(rec.SessionID, rec.Identity)
	if existing, exists := l.automatic[key]; exists {
		clone := *existing
		return &clone, models.ErrDuplicateRecord
	}

	clone := *rec
	l.records = append(l.records, &clone)
	l.automatic[key] = &clone

	result := clone
	return &result, nil
}

func (l *MemoryLedger) Append(_ context.Context, rec *Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	clone := *rec
	l.records = append(l.records, &clone)
	if rec.Source == SourceAutomatic {
		l.automatic[pairKey(rec.SessionID, rec.Identity)] = &clone
	}
	return nil
}

func (l *MemoryLedger) FindAutomatic(_ context.Context, sessionID, identity string) (*Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	existing, exists := l.automatic[pairKey(sessionID, identity)]
	if !exists {
		return nil, models.ErrRecordNotFound
	}
	clone := *existing
	return &clone, nil
}

func (l *MemoryLedger) Query(_ context.Context, f Filter) ([]*Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var records []*Record
	for _, rec := range l.records {
		if f.SessionID != "" && rec.SessionID != f.SessionID {
			continue
		}
		if f.Identity != "" && rec.Identity != f.Identity {
			continue
		}
		if f.Source != "" && rec.Source != f.Source {
			continue
		}
		clone := *rec
		records = append(records, &clone)
	}

	// Stable sort keeps insertion order for equal timestamps.
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].RecordedAt.Before(records[j].RecordedAt)
	})

	return records, nil
}
