package attendance

import "time"

// Outcome constants
const (
	OutcomePresent = "present"
	OutcomeLate    = "late"
	OutcomeAbsent  = "absent"
)

// Source constants
const (
	SourceAutomatic = "automatic"
	SourceManual    = "manual"
)

// Record is one append-only ledger entry. Records are never edited; a manual
// correction is a new record whose Supersedes field points at the automatic
// entry it overrides.
type Record struct {
	RecordID   string    `json:"recordId" bson:"record_id"`
	SessionID  string    `json:"sessionId" bson:"session_id"`
	Identity   string    `json:"identity" bson:"identity"`
	Outcome    string    `json:"outcome" bson:"outcome"`
	Source     string    `json:"source" bson:"source"`
	RecordedAt time.Time `json:"recordedAt" bson:"recorded_at"`
	RecordedBy string    `json:"recordedBy" bson:"recorded_by"`
	Supersedes string    `json:"supersedes,omitempty" bson:"supersedes,omitempty"`
}

// Filter narrows ledger queries. Zero fields match everything.
type Filter struct {
	SessionID string
	Identity  string
	Source    string
}

// Stats summarizes a session's effective roster state for reporting.
type Stats struct {
	Present   int64 `json:"present"`
	Late      int64 `json:"late"`
	Absent    int64 `json:"absent"`
	Automatic int64 `json:"automatic"`
	Manual    int64 `json:"manual"`
	Total     int64 `json:"total"`
}

func ValidOutcome(outcome string) bool {
	switch outcome {
	case OutcomePresent, OutcomeLate, OutcomeAbsent:
		return true
	}
	return false
}

// ManualEntryRequest represents an instructor manual override
type ManualEntryRequest struct {
	Identity string `json:"identity" binding:"required"`
	Outcome  string `json:"outcome" binding:"required"`
}
