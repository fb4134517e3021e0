// this file drives playback from the alarm schedule
package main

import (
	"errors"
	"time"

	"github.com/rs/zerolog/log"
)

const minutesPerDay = 24 * 60

// AlarmScheduler evaluates the alarm once a second and starts or stops
// the radio on decision edges only. The latch means a manual stop
// inside the alarm window sticks: the scheduler will not fight the
// user until the next edge.
type AlarmScheduler struct {
	alarmRepo AlarmRepository
	service   Service

	tickEvery time.Duration
	now       func() time.Time

	lastShouldPlay bool
	ticker         *time.Ticker
	stop           chan struct{}
}

func NewAlarmScheduler(alarmRepo AlarmRepository, service Service) *AlarmScheduler {
	return &AlarmScheduler{
		alarmRepo: alarmRepo,
		service:   service,
		tickEvery: time.Second,
		now:       time.Now,
		stop:      make(chan struct{}),
	}
}

func (s *AlarmScheduler) Start() {
	s.ticker = time.NewTicker(s.tickEvery)
	s.Engine()
}

func (s *AlarmScheduler) Engine() {
	go func() {
		for {
			select {
			case <-s.stop:
				return
			case t := <-s.ticker.C:
				s.tick(t)
			}
		}
	}()
}

func (s *AlarmScheduler) Shutdown() {
	s.ticker.Stop()
	close(s.stop)
}

// tick makes one scheduling decision. A disabled alarm is not
// evaluated at all, so disabling mid-window leaves the radio alone and
// the latch untouched.
func (s *AlarmScheduler) tick(now time.Time) {
	alarm, err := s.alarmRepo.GetAlarm()
	if err != nil {
		log.Error().Err(err).Msg("alarm: failed to load schedule")
		return
	}
	if !alarm.Enabled {
		return
	}

	should := shouldBePlaying(alarm, now)
	if should == s.lastShouldPlay {
		return
	}
	s.lastShouldPlay = should

	if should {
		log.Info().Int("hour", alarm.Hour).Int("minute", alarm.Minute).
			Str("station", alarm.StationID).Msg("alarm: window opened, starting radio")
		if _, err := s.service.StartRadio(alarm.StationID, SourceAlarm); err != nil &&
			!errors.Is(err, ErrAlreadyPlaying) {
			log.Error().Err(err).Msg("alarm: failed to start radio")
		}
		return
	}

	log.Info().Msg("alarm: window closed, stopping radio")
	if err := s.service.StopRadio(); err != nil && !errors.Is(err, ErrNotPlaying) {
		log.Error().Err(err).Msg("alarm: failed to stop radio")
	}
}

// shouldBePlaying reports whether now falls inside the alarm window.
// The window is [HH:MM, HH:MM+duration) at minute resolution and may
// wrap past midnight; the wrapped tail counts against the day the
// alarm fired.
func shouldBePlaying(a Alarm, now time.Time) bool {
	start := a.Hour*60 + a.Minute
	cur := now.Hour()*60 + now.Minute()

	if cur >= start {
		return cur < start+a.DurationMin && weekdayAllowed(a, now.Weekday())
	}
	// possibly in the tail of a window that opened yesterday
	if cur+minutesPerDay < start+a.DurationMin {
		return weekdayAllowed(a, now.AddDate(0, 0, -1).Weekday())
	}
	return false
}

func weekdayAllowed(a Alarm, day time.Weekday) bool {
	if !a.WeekdaysOnly {
		return true
	}
	return day >= time.Monday && day <= time.Friday
}

// nextTrigger returns the next moment the alarm window opens.
func nextTrigger(a Alarm, now time.Time) time.Time {
	t := time.Date(now.Year(), now.Month(), now.Day(),
		a.Hour, a.Minute, 0, 0, now.Location())
	for i := 0; i < 8; i++ {
		if t.After(now) && weekdayAllowed(a, t.Weekday()) {
			return t
		}
		t = t.AddDate(0, 0, 1)
	}
	return t
}
