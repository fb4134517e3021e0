package main

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrUnknownStation = errors.New("unknown station")
	ErrInvalidTime    = errors.New("time not valid")
)

// RadioStatus is the live view of playback. Playing reflects process
// health, Requested the persisted flag that survives restarts.
type RadioStatus struct {
	Playing    bool     `json:"playing"`
	Requested  bool     `json:"requested"`
	Station    *Station `json:"station,omitempty"`
	ElapsedSec int64    `json:"elapsed_sec"`
}

// AlarmStatus is the alarm row plus the computed next trigger time.
type AlarmStatus struct {
	Alarm
	NextTrigger *time.Time `json:"next_trigger,omitempty"`
}

type Service interface {
	StartRadio(stationID, source string) (PlaybackSession, error)
	StopRadio() error
	RadioStatus() RadioStatus
	ResumePlayback()

	SetAlarmEnabled(on bool) (Alarm, bool, error)
	SetAlarmTime(hour, minute int) (Alarm, error)
	SetAlarmStation(stationID string) (Alarm, error)
	AlarmStatus() (AlarmStatus, error)

	Stations() []Station
	History(limit int64) ([]PlaybackSession, error)

	close()
}

type ServiceImpl struct {
	alarmRepo AlarmRepository
	playRepo  PlaybackRepository
	stations  *StationList
	player    *Player

	mu      sync.Mutex
	current *PlaybackSession
}

// NewService wires the repositories, station presets, and player
// together, seeding the alarm row on first boot.
func NewService(alarmRepo AlarmRepository, playRepo PlaybackRepository,
	stations *StationList, player *Player, seed Alarm) (*ServiceImpl, error) {

	s := &ServiceImpl{
		alarmRepo: alarmRepo,
		playRepo:  playRepo,
		stations:  stations,
		player:    player,
	}

	if _, err := alarmRepo.GetAlarm(); errors.Is(err, ErrNotFound) {
		if err := alarmRepo.SaveAlarm(seed); err != nil {
			return nil, fmt.Errorf("seed alarm: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("load alarm: %w", err)
	}

	player.SetOnExit(s.handlePlayerExit)
	return s, nil
}

// StartRadio spawns the player for the given station preset and
// records a session. The persisted playing flag is set even when the
// player was already running, so the requested state always wins.
func (s *ServiceImpl) StartRadio(stationID, source string) (PlaybackSession, error) {
	station, ok := s.stations.Get(stationID)
	if !ok {
		return PlaybackSession{}, fmt.Errorf("%w: %q", ErrUnknownStation, stationID)
	}

	// spawn and register under the service lock: the exit watcher also
	// takes it before closing the current session, so a player that
	// dies instantly cannot report its exit between the spawn and the
	// session being registered
	s.mu.Lock()
	if err := s.player.Play(station); err != nil {
		s.mu.Unlock()
		s.persistPlaybackState(true, station)
		return PlaybackSession{}, err
	}

	session := PlaybackSession{
		SessionID: uuid.NewString(),
		StationID: station.ID,
		URL:       station.URL,
		Source:    source,
		StartedAt: time.Now().UTC(),
	}
	if err := s.playRepo.InsertSession(session); err != nil {
		log.Error().Err(err).Msg("service: failed to record session")
	}
	s.current = &session
	s.mu.Unlock()

	s.persistPlaybackState(true, station)
	return session, nil
}

// StopRadio terminates the player and closes the current session. The
// persisted playing flag is cleared even when nothing was running.
func (s *ServiceImpl) StopRadio() error {
	err := s.player.Stop()
	s.persistPlaybackState(false, Station{})
	s.closeCurrentSession()
	return err
}

func (s *ServiceImpl) RadioStatus() RadioStatus {
	status := RadioStatus{Playing: s.player.Playing()}

	if station, startedAt, ok := s.player.Current(); ok {
		st := station
		status.Station = &st
		status.ElapsedSec = int64(time.Since(startedAt).Seconds())
	}

	if state, err := s.playRepo.GetPlaybackState(); err == nil {
		status.Requested = state.Playing
	}
	return status
}

// ResumePlayback replays the persisted playing flag at boot.
func (s *ServiceImpl) ResumePlayback() {
	state, err := s.playRepo.GetPlaybackState()
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Error().Err(err).Msg("service: failed to load playback state")
		}
		return
	}
	if !state.Playing {
		return
	}

	log.Info().Str("station", state.StationID).Msg("service: resuming playback")
	if _, err := s.StartRadio(state.StationID, SourceResume); err != nil {
		// the preset may have been removed since; fall back to the
		// first configured station
		if errors.Is(err, ErrUnknownStation) {
			if _, err := s.StartRadio("", SourceResume); err != nil {
				log.Error().Err(err).Msg("service: resume failed")
			}
			return
		}
		log.Error().Err(err).Msg("service: resume failed")
	}
}

func (s *ServiceImpl) persistPlaybackState(playing bool, station Station) {
	state := PlaybackState{
		Playing:   playing,
		StationID: station.ID,
		URL:       station.URL,
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.playRepo.SavePlaybackState(state); err != nil {
		log.Error().Err(err).Msg("service: failed to persist playback state")
	}
}

func (s *ServiceImpl) closeCurrentSession() {
	s.mu.Lock()
	session := s.current
	s.current = nil
	s.mu.Unlock()

	if session == nil {
		return
	}
	if err := s.playRepo.CloseSession(session.SessionID, time.Now().UTC()); err != nil {
		log.Error().Err(err).Str("session", session.SessionID).
			Msg("service: failed to close session")
	}
}

// handlePlayerExit runs when the subprocess dies without being asked
// to. The session is closed; the persisted flag is left alone so a
// restart brings the stream back.
func (s *ServiceImpl) handlePlayerExit(station Station) {
	s.closeCurrentSession()
}

func (s *ServiceImpl) SetAlarmEnabled(on bool) (Alarm, bool, error) {
	alarm, err := s.alarmRepo.GetAlarm()
	if err != nil {
		return Alarm{}, false, err
	}
	if alarm.Enabled == on {
		return alarm, false, nil
	}

	alarm.Enabled = on
	alarm.UpdatedAt = time.Now().UTC()
	if err := s.alarmRepo.SaveAlarm(alarm); err != nil {
		return Alarm{}, false, err
	}
	return alarm, true, nil
}

func (s *ServiceImpl) SetAlarmTime(hour, minute int) (Alarm, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return Alarm{}, fmt.Errorf("%w: %02d:%02d", ErrInvalidTime, hour, minute)
	}

	alarm, err := s.alarmRepo.GetAlarm()
	if err != nil {
		return Alarm{}, err
	}
	alarm.Hour = hour
	alarm.Minute = minute
	alarm.UpdatedAt = time.Now().UTC()
	if err := s.alarmRepo.SaveAlarm(alarm); err != nil {
		return Alarm{}, err
	}
	return alarm, nil
}

func (s *ServiceImpl) SetAlarmStation(stationID string) (Alarm, error) {
	station, ok := s.stations.Get(stationID)
	if !ok {
		return Alarm{}, fmt.Errorf("%w: %q", ErrUnknownStation, stationID)
	}

	alarm, err := s.alarmRepo.GetAlarm()
	if err != nil {
		return Alarm{}, err
	}
	alarm.StationID = station.ID
	alarm.UpdatedAt = time.Now().UTC()
	if err := s.alarmRepo.SaveAlarm(alarm); err != nil {
		return Alarm{}, err
	}
	return alarm, nil
}

func (s *ServiceImpl) AlarmStatus() (AlarmStatus, error) {
	alarm, err := s.alarmRepo.GetAlarm()
	if err != nil {
		return AlarmStatus{}, err
	}

	status := AlarmStatus{Alarm: alarm}
	if alarm.Enabled {
		next := nextTrigger(alarm, time.Now())
		status.NextTrigger = &next
	}
	return status, nil
}

func (s *ServiceImpl) Stations() []Station {
	return s.stations.All()
}

func (s *ServiceImpl) History(limit int64) ([]PlaybackSession, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.playRepo.RecentSessions(limit)
}

// close kills the player without touching the persisted flag, so the
// stream comes back after a service restart.
func (s *ServiceImpl) close() {
	if err := s.player.Stop(); err == nil {
		s.closeCurrentSession()
	}
	s.alarmRepo.close()
	s.playRepo.close()
}
