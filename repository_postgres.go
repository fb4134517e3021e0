package main

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type PostgresRepository struct {
	db *sqlx.DB
}

var postgresSchema = []string{
	`create table if not exists alarm (
	   id            integer primary key check (id = 1),
	   enabled       boolean not null,
	   hour          integer not null,
	   minute        integer not null,
	   duration_min  integer not null,
	   weekdays_only boolean not null,
	   station_id    text not null,
	   updated_at    timestamptz not null
	 )`,
	`create table if not exists playback_state (
	   id         integer primary key check (id = 1),
	   playing    boolean not null,
	   station_id text not null,
	   url        text not null,
	   updated_at timestamptz not null
	 )`,
	`create table if not exists sessions (
	   session_id uuid primary key,
	   station_id text not null,
	   url        text not null,
	   source     text not null,
	   started_at timestamptz not null,
	   ended_at   timestamptz
	 )`,
}

func NewPostgresRepository(dbURL string) (*PostgresRepository, error) {
	db, err := sqlx.Connect("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}

	for _, stmt := range postgresSchema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("postgres: bootstrap schema: %w", err)
		}
	}
	return &PostgresRepository{db: db}, nil
}

func (r *PostgresRepository) GetAlarm() (Alarm, error) {
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

func (r *PostgresRepository) SaveAlarm(alarm Alarm) error {
	query := `
	  insert into alarm (id, enabled, hour, minute, duration_min, weekdays_only, station_id, updated_at)
	  values (1, $1, $2, $3, $4, $5, $6, $7)
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

func (r *PostgresRepository) GetPlaybackState() (PlaybackState, error) {
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

func (r *PostgresRepository) SavePlaybackState(state PlaybackState) error {
	query := `
	  insert into playback_state (id, playing, station_id, url, updated_at)
	  values (1, $1, $2, $3, $4)
	  on conflict(id) do update
	     set playing = excluded.playing,
	         station_id = excluded.station_id,
	         url = excluded.url,
	         updated_at = excluded.updated_at;`

	_, err := r.db.Exec(query, state.Playing, state.StationID, state.URL, state.UpdatedAt)
	return err
}

func (r *PostgresRepository) InsertSession(session PlaybackSession) error {
	query := `
	  insert into sessions (session_id, station_id, url, source, started_at, ended_at)
	  values ($1, $2, $3, $4, $5, $6);`

	_, err := r.db.Exec(query, session.SessionID, session.StationID, session.URL,
		session.Source, session.StartedAt, session.EndedAt)
	return err
}

func (r *PostgresRepository) CloseSession(sessionID string, endedAt time.Time) error {
	query := `update sessions set ended_at = $1 where session_id = $2 and ended_at is null;`

	res, err := r.db.Exec(query, endedAt, sessionID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) RecentSessions(limit int64) ([]PlaybackSession, error) {
	query := `
	  select session_id, station_id, url, source, started_at, ended_at
	  from sessions
	  order by started_at desc
	  limit $1;`

	sessions := make([]PlaybackSession, 0)
	err := r.db.Select(&sessions, query, limit)
	return sessions, err
}

func (r *PostgresRepository) close() {
	r.db.Close()
}
