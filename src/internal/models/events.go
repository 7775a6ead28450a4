package models

import "time"

type AttendanceEvent struct {
	Action    string            `json:"action"`
	SessionID string            `json:"session_id"`
	CourseID  string            `json:"course_id,omitempty"`
	Identity  string            `json:"identity,omitempty"`
	Outcome   string            `json:"outcome,omitempty"`
	Source    string            `json:"source,omitempty"`
	Recorder  string            `json:"recorder,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Event action constants
const (
	ActionSessionOpened    = "session_opened"
	ActionSessionStopped   = "session_stopped"
	ActionAttendanceMarked = "attendance_marked"
	ActionManualOverride   = "manual_override"
)
