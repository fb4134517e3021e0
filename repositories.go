package main

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a singleton row has not been seeded yet
// or a session id is unknown.
var ErrNotFound = errors.New("not found")

type AlarmRepository interface {
	GetAlarm() (Alarm, error)
	SaveAlarm(alarm Alarm) error
	close()
}

type PlaybackRepository interface {
	GetPlaybackState() (PlaybackState, error)
	SavePlaybackState(state PlaybackState) error
	InsertSession(session PlaybackSession) error
	CloseSession(sessionID string, endedAt time.Time) error
	RecentSessions(limit int64) ([]PlaybackSession, error)
	close()
}
