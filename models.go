// this file defines the data structures used throughout
package main

import "time"

// Alarm is the single persisted wake-up schedule. There is exactly one
// row; the scheduler plays the configured station for DurationMin
// minutes starting at Hour:Minute.
type Alarm struct {
	Enabled      bool      `json:"enabled" db:"enabled"`
	Hour         int       `json:"hour" db:"hour"`
	Minute       int       `json:"minute" db:"minute"`
	DurationMin  int       `json:"duration_min" db:"duration_min"`
	WeekdaysOnly bool      `json:"weekdays_only" db:"weekdays_only"`
	StationID    string    `json:"station_id" db:"station_id"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// PlaybackState is the persisted "should the radio be playing" flag.
// It reflects the last requested state, not process health, and is
// replayed at boot so playback survives restarts.
type PlaybackState struct {
	Playing   bool      `json:"playing" db:"playing"`
	StationID string    `json:"station_id" db:"station_id"`
	URL       string    `json:"url" db:"url"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// PlaybackSession records one run of the media-player subprocess.
// EndedAt stays nil while the player is alive.
type PlaybackSession struct {
	SessionID string     `json:"session_id" db:"session_id"`
	StationID string     `json:"station_id" db:"station_id"`
	URL       string     `json:"url" db:"url"`
	Source    string     `json:"source" db:"source"`
	StartedAt time.Time  `json:"started_at" db:"started_at"`
	EndedAt   *time.Time `json:"ended_at" db:"ended_at"`
}

// Sources recorded on a playback session.
const (
	SourceAPI    = "api"
	SourceAlarm  = "alarm"
	SourceResume = "resume"
)

// Station is a named stream preset from the config file.
type Station struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	URL  string `json:"url" yaml:"url"`
}
