package session

import "time"

// Session is a single instructor-opened attendance window. Sessions are never
// deleted; a stopped or expired session stays in storage for audit.
type Session struct {
	SessionID    string    `json:"sessionId" bson:"session_id"`
	CourseID     string    `json:"courseId" bson:"course_id"`
	SlotID       string    `json:"slotId" bson:"slot_id"`
	Venue        string    `json:"venue" bson:"venue"`
	InstructorID string    `json:"instructorId" bson:"instructor_id"`
	Nonce        string    `json:"-" bson:"nonce"`
	RotatedAt    time.Time `json:"-" bson:"rotated_at"`
	CreatedAt    time.Time `json:"createdAt" bson:"created_at"`
	ExpiresAt    time.Time `json:"expiresAt" bson:"expires_at"`
	Revoked      bool      `json:"revoked" bson:"revoked"`
}

// IsLive reports whether the session accepts redemptions at the given time:
// not revoked and within [CreatedAt, ExpiresAt). Expiry is a pure time
// comparison, never a stored transition.
func (s *Session) IsLive(at time.Time) bool {
	if s.Revoked {
		return false
	}
	return !at.Before(s.CreatedAt) && at.Before(s.ExpiresAt)
}

// OpenRequest represents an instructor request to open an attendance window
type OpenRequest struct {
	CourseID        string `json:"courseId" binding:"required"`
	SlotID          string `json:"slotId" binding:"required"`
	Venue           string `json:"venue"`
	DurationMinutes int    `json:"durationMinutes"`
}
