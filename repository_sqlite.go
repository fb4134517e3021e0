package main

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

type SQLiteRepository struct {
	db *sqlx.DB
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS alarm (
	   id            INTEGER PRIMARY KEY CHECK (id = 1),
	   enabled       BOOLEAN NOT NULL,
	   hour          INTEGER NOT NULL,
	   minute        INTEGER NOT NULL,
	   duration_min  INTEGER NOT NULL,
	   weekdays_only BOOLEAN NOT NULL,
	   station_id    TEXT NOT NULL,
	   updated_at    TIMESTAMP NOT NULL
	 )`,
	`CREATE TABLE IF NOT EXISTS playback_state (
	   id         INTEGER PRIMARY KEY CHECK (id = 1),
	   playing    BOOLEAN NOT NULL,
	   station_id TEXT NOT NULL,
	   url        TEXT NOT NULL,
	   updated_at TIMESTAMP NOT NULL
	 )`,
	`CREATE TABLE IF NOT EXISTS sessions (
	   session_id TEXT PRIMARY KEY,
	   station_id TEXT NOT NULL,
	   url        TEXT NOT NULL,
	   source     TEXT NOT NULL,
	   started_at TIMESTAMP NOT NULL,
	   ended_at   TIMESTAMP
	 )`,
}

func NewSQLiteRepository(filePath string) (*SQLiteRepository, error) {
	db, err := sqlx.Open("sqlite3", filePath+"?_busy_timeout=5000&_loc=UTC")
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", filePath, err)
	}

	// make sure the required tables exist
	for _, stmt := range sqliteSchema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: bootstrap schema: %w", err)
		}
	}
	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) GetAlarm() (Alarm, error) {
	query := `
	  select enabled, hour, minute, duration_min, weekdays_only, station_id, updated_at
	  from alarm where id = 1;`

	var a Alarm
	err := r.db.Get(&a, query)
	if errors.Is(err, sql.ErrNoRows) {
		return Alarm{}, ErrNotFound
	}
	return a, err
}

func (r *SQLiteRepository) SaveAlarm(alarm Alarm) error {
	query := `
	  insert into alarm (id, enabled, hour, minute, duration_min, weekdays_only, station_id, updated_at)
	  values (1, ?, ?, ?, ?, ?, ?, ?)
	  on conflict(id) do update
	     set enabled = excluded.enabled,
	         hour = excluded.hour,
	         minute = excluded.minute,
	         duration_min = excluded.duration_min,
	         weekdays_only = excluded.weekdays_only,
	         station_id = excluded.station_id,
	         updated_at = excluded.updated_at;`

	_, err := r.db.Exec(query, alarm.Enabled, alarm.Hour, alarm.Minute,
		alarm.DurationMin, alarm.WeekdaysOnly, alarm.StationID, alarm.UpdatedAt)
	return err
}

func (r *SQLiteRepository) GetPlaybackState() (PlaybackState, error) {
	query := `
	  select playing, station_id, url, updated_at
	  from playback_state where id = 1;`

	var s PlaybackState
	err := r.db.Get(&s, query)
	if errors.Is(err, sql.ErrNoRows) {
		return PlaybackState{}, ErrNotFound
	}
	return s, err
}

func (r *SQLiteRepository) SavePlaybackState(state PlaybackState) error {
	query := `
	  insert into playback_state (id, playing, station_id, url, updated_at)
	  values (1, ?, ?, ?, ?)
	  on conflict(id) do update
	     set playing = excluded.playing,
	         station_id = excluded.station_id,
	         url = excluded.url,
	         updated_at = excluded.updated_at;`

	_, err := r.db.Exec(query, state.Playing, state.StationID, state.URL, state.UpdatedAt)
	return err
}

func (r *SQLiteRepository) InsertSession(session PlaybackSession) error {
	query := `
	  insert into sessions (session_id, station_id, url, source, started_at, ended_at)
	  values (?, ?, ?, ?, ?, ?);`

	_, err := r.db.Exec(query, session.SessionID, session.StationID, session.URL,
		session.Source, session.StartedAt, session.EndedAt)
	return err
}

func (r *SQLiteRepository) CloseSession(sessionID string, endedAt time.Time) error {
	query := `update sessions set ended_at = ? where session_id = ? and ended_at is null;`

	res, err := r.db.Exec(query, endedAt, sessionID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) RecentSessions(limit int64) ([]PlaybackSession, error) {
	query := `
	  select session_id, station_id, url, source, started_at, ended_at
	  from sessions
	  order by started_at desc
	  limit ?;`

	sessions := make([]PlaybackSession, 0)
	err := r.db.Select(&sessions, query, limit)
	return sessions, err
}

func (r *SQLiteRepository) close() {
	r.db.Close()
}
