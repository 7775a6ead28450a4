package models

import "errors"

var (
	ErrRedisConnection = errors.New("redis connection error")
	ErrRedisGet        = errors.New("redis get error")
	ErrRedisSet        = errors.New("redis set error")
	ErrRedisDelete     = errors.New("redis delete error")
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionNotLive   = errors.New("session is not live")
	ErrScheduleConflict = errors.New("live session already open for this slot")
	ErrSessionCreating  = errors.New("error creating session")
	ErrSessionUpdating  = errors.New("error updating session")
	ErrInvalidDuration  = errors.New("invalid session duration")
)

var ErrInvalidToken = errors.New("invalid redemption token")

var (
	ErrInvalidOutcome = errors.New("invalid attendance outcome")
	ErrRosterLookup   = errors.New("roster lookup failed")
	ErrRosterNotFound = errors.New("course roster not found")
)

var (
	ErrDatabaseConnection = errors.New("database connection error")
	ErrDatabaseQuery      = errors.New("database query error")
	ErrDatabaseInsert     = errors.New("database insert error")
	ErrRecordNotFound     = errors.New("record not found")
	ErrDuplicateRecord    = errors.New("duplicate record")
)
