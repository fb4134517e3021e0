package main

import (
	"testing"
	"time"
)

// mustTime parses "2006-01-02 15:04" in local time.
func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.ParseInLocation("2006-01-02 15:04", s, time.Local)
	if err != nil {
		t.Fatalf("parse time %q: %v", s, err)
	}
	return ts
}

func TestShouldBePlaying(t *testing.T) {
	alarm := Alarm{
		Enabled:      true,
		Hour:         6,
		Minute:       55,
		DurationMin:  60,
		WeekdaysOnly: true,
		StationID:    "drs3",
	}

	// 2026-08-31 is a Monday.
	cases := []struct {
		name string
		now  string
		want bool
	}{
		{"before window", "2026-08-31 06:54", false},
		{"window opens", "2026-08-31 06:55", true},
		{"mid window", "2026-08-31 07:30", true},
		{"last minute", "2026-08-31 07:54", true},
		{"window closed", "2026-08-31 07:55", false},
		{"saturday", "2026-09-05 07:00", false},
		{"sunday", "2026-09-06 07:00", false},
		{"friday", "2026-09-04 07:00", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := shouldBePlaying(alarm, mustTime(t, tc.now))
			if got != tc.want {
				t.Errorf("shouldBePlaying(%s): got %v, want %v", tc.now, got, tc.want)
			}
		})
	}
}

func TestShouldBePlaying_Weekend(t *testing.T) {
	alarm := Alarm{Enabled: true, Hour: 9, Minute: 0, DurationMin: 30}

	// weekdays_only off plays on Saturday too
	if !shouldBePlaying(alarm, mustTime(t, "2026-09-05 09:15")) {
		t.Error("expected playing on saturday with weekdays_only off")
	}
}

func TestShouldBePlaying_MidnightWrap(t *testing.T) {
	// Friday 23:30, 90 minute window: plays into Saturday morning even
	// with weekdays_only, because the alarm fired on a weekday.
	alarm := Alarm{
		Enabled:      true,
		Hour:         23,
		Minute:       30,
		DurationMin:  90,
		WeekdaysOnly: true,
	}

	cases := []struct {
		name string
		now  string
		want bool
	}{
		{"friday before midnight", "2026-09-04 23:45", true},
		{"saturday tail", "2026-09-05 00:30", true},
		{"saturday after tail", "2026-09-05 01:00", false},
		{"saturday own slot", "2026-09-05 23:45", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := shouldBePlaying(alarm, mustTime(t, tc.now))
			if got != tc.want {
				t.Errorf("shouldBePlaying(%s): got %v, want %v", tc.now, got, tc.want)
			}
		})
	}
}

func TestNextTrigger(t *testing.T) {
	alarm := Alarm{Enabled: true, Hour: 6, Minute: 55, WeekdaysOnly: true}

	cases := []struct {
		name string
		now  string
		want string
	}{
		{"monday before alarm", "2026-08-31 05:00", "2026-08-31 06:55"},
		{"monday after alarm", "2026-08-31 08:00", "2026-09-01 06:55"},
		{"friday after alarm skips weekend", "2026-09-04 08:00", "2026-09-07 06:55"},
		{"saturday skips to monday", "2026-09-05 12:00", "2026-09-07 06:55"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := nextTrigger(alarm, mustTime(t, tc.now))
			want := mustTime(t, tc.want)
			if !got.Equal(want) {
				t.Errorf("nextTrigger(%s): got %s, want %s", tc.now, got, want)
			}
		})
	}
}

// --- scheduler edge behavior ------------------------------------------------

type fakeAlarmRepo struct {
	alarm Alarm
	err   error
}

func (f *fakeAlarmRepo) GetAlarm() (Alarm, error) { return f.alarm, f.err }
func (f *fakeAlarmRepo) SaveAlarm(a Alarm) error  { f.alarm = a; return nil }
func (f *fakeAlarmRepo) close()                   {}

type fakeService struct {
	starts  int
	stops   int
	playing bool
}

func (f *fakeService) StartRadio(stationID, source string) (PlaybackSession, error) {
	f.starts++
	if f.playing {
		return PlaybackSession{}, ErrAlreadyPlaying
	}
	f.playing = true
	return PlaybackSession{StationID: stationID, Source: source}, nil
}

func (f *fakeService) StopRadio() error {
	f.stops++
	if !f.playing {
		return ErrNotPlaying
	}
	f.playing = false
	return nil
}

func (f *fakeService) RadioStatus() RadioStatus { return RadioStatus{Playing: f.playing} }
func (f *fakeService) ResumePlayback()          {}

func (f *fakeService) SetAlarmEnabled(on bool) (Alarm, bool, error) { return Alarm{}, false, nil }
func (f *fakeService) SetAlarmTime(hour, minute int) (Alarm, error) { return Alarm{}, nil }
func (f *fakeService) SetAlarmStation(id string) (Alarm, error)     { return Alarm{}, nil }
func (f *fakeService) AlarmStatus() (AlarmStatus, error)            { return AlarmStatus{}, nil }
func (f *fakeService) Stations() []Station                          { return nil }
func (f *fakeService) History(limit int64) ([]PlaybackSession, error) {
	return nil, nil
}
func (f *fakeService) close() {}

func newTestScheduler(repo AlarmRepository, svc Service) *AlarmScheduler {
	return NewAlarmScheduler(repo, svc)
}

func TestSchedulerStartsOnEdgeOnly(t *testing.T) {
	repo := &fakeAlarmRepo{alarm: Alarm{
		Enabled: true, Hour: 6, Minute: 55, DurationMin: 60,
		WeekdaysOnly: true, StationID: "drs3",
	}}
	svc := &fakeService{}
	s := newTestScheduler(repo, svc)

	// three ticks inside the window: exactly one start
	s.tick(mustTime(t, "2026-08-31 06:55"))
	s.tick(mustTime(t, "2026-08-31 06:56"))
	s.tick(mustTime(t, "2026-08-31 07:00"))
	if svc.starts != 1 {
		t.Fatalf("starts: got %d, want 1", svc.starts)
	}
	if !svc.playing {
		t.Fatal("expected radio playing inside window")
	}

	// window closes: exactly one stop
	s.tick(mustTime(t, "2026-08-31 07:55"))
	s.tick(mustTime(t, "2026-08-31 07:56"))
	if svc.stops != 1 {
		t.Fatalf("stops: got %d, want 1", svc.stops)
	}
	if svc.playing {
		t.Fatal("expected radio stopped after window")
	}
}

func TestSchedulerManualStopSticks(t *testing.T) {
	repo := &fakeAlarmRepo{alarm: Alarm{
		Enabled: true, Hour: 7, Minute: 0, DurationMin: 60, StationID: "drs3",
	}}
	svc := &fakeService{}
	s := newTestScheduler(repo, svc)

	s.tick(mustTime(t, "2026-08-31 07:00"))
	if svc.starts != 1 || !svc.playing {
		t.Fatal("expected alarm to start the radio")
	}

	// user stops the radio mid-window; the latch keeps the scheduler
	// from restarting it
	svc.playing = false
	s.tick(mustTime(t, "2026-08-31 07:10"))
	s.tick(mustTime(t, "2026-08-31 07:30"))
	if svc.starts != 1 {
		t.Fatalf("starts after manual stop: got %d, want 1", svc.starts)
	}
}

func TestSchedulerDisabledAlarmDoesNothing(t *testing.T) {
	repo := &fakeAlarmRepo{alarm: Alarm{
		Enabled: false, Hour: 7, Minute: 0, DurationMin: 60, StationID: "drs3",
	}}
	svc := &fakeService{}
	s := newTestScheduler(repo, svc)

	s.tick(mustTime(t, "2026-08-31 07:00"))
	s.tick(mustTime(t, "2026-08-31 07:30"))
	if svc.starts != 0 || svc.stops != 0 {
		t.Fatalf("disabled alarm acted: starts=%d stops=%d", svc.starts, svc.stops)
	}
}

func TestSchedulerDisableMidWindowLeavesRadioAlone(t *testing.T) {
	repo := &fakeAlarmRepo{alarm: Alarm{
		Enabled: true, Hour: 7, Minute: 0, DurationMin: 60, StationID: "drs3",
	}}
	svc := &fakeService{}
	s := newTestScheduler(repo, svc)

	s.tick(mustTime(t, "2026-08-31 07:00"))
	if !svc.playing {
		t.Fatal("expected alarm to start the radio")
	}

	// alarm switched off mid-window: no stop, radio keeps going
	repo.alarm.Enabled = false
	s.tick(mustTime(t, "2026-08-31 07:30"))
	s.tick(mustTime(t, "2026-08-31 08:30"))
	if svc.stops != 0 {
		t.Fatalf("stops after disable: got %d, want 0", svc.stops)
	}
	if !svc.playing {
		t.Fatal("expected radio still playing after disable")
	}
}
