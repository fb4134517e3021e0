package main

import (
	"errors"
	"testing"
	"time"
)

// sleepPlayer builds a Player backed by /usr/bin/sleep; the station
// URL doubles as the sleep duration.
func sleepPlayer() *Player {
	return NewPlayer(PlayerConfig{Command: "sleep", StopGraceSec: 2})
}

func sleepStation(seconds string) Station {
	return Station{ID: "test", Name: "Test", URL: seconds}
}

func TestPlayerPlayStop(t *testing.T) {
	p := sleepPlayer()

	if p.Playing() {
		t.Fatal("fresh player reports playing")
	}
	if err := p.Play(sleepStation("60")); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if !p.Playing() {
		t.Fatal("player not playing after Play")
	}

	station, startedAt, ok := p.Current()
	if !ok || station.ID != "test" {
		t.Fatalf("Current: got %v/%v, want test station", station, ok)
	}
	if startedAt.IsZero() {
		t.Fatal("Current: zero start time")
	}

	if err := p.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if p.Playing() {
		t.Fatal("player still playing after Stop")
	}
}

func TestPlayerPlayTwice(t *testing.T) {
	p := sleepPlayer()
	if err := p.Play(sleepStation("60")); err != nil {
		t.Fatalf("Play: %v", err)
	}
	defer p.Stop()

	if err := p.Play(sleepStation("60")); !errors.Is(err, ErrAlreadyPlaying) {
		t.Fatalf("second Play: got %v, want ErrAlreadyPlaying", err)
	}
}

func TestPlayerStopWhenStopped(t *testing.T) {
	p := sleepPlayer()
	if err := p.Stop(); !errors.Is(err, ErrNotPlaying) {
		t.Fatalf("Stop on idle player: got %v, want ErrNotPlaying", err)
	}
}

func TestPlayerUnexpectedExit(t *testing.T) {
	// "sleep 0" exits on its own almost immediately
	p := sleepPlayer()

	exited := make(chan Station, 1)
	p.SetOnExit(func(st Station) { exited <- st })

	if err := p.Play(sleepStation("0")); err != nil {
		t.Fatalf("Play: %v", err)
	}

	select {
	case st := <-exited:
		if st.ID != "test" {
			t.Errorf("onExit station: got %q, want test", st.ID)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("onExit not called after subprocess death")
	}

	if p.Playing() {
		t.Fatal("player reports playing after subprocess death")
	}
	if err := p.Stop(); !errors.Is(err, ErrNotPlaying) {
		t.Fatalf("Stop after death: got %v, want ErrNotPlaying", err)
	}
}

func TestPlayerStopEscalatesToKill(t *testing.T) {
	// a shell that ignores SIGTERM: Stop has to fall through to
	// SIGKILL after the grace period
	p := NewPlayer(PlayerConfig{
		Command:      "sh",
		Args:         []string{"-c", `trap '' TERM; while true; do sleep 1; done`},
		StopGraceSec: 1,
	})

	if err := p.Play(sleepStation("ignored")); err != nil {
		t.Fatalf("Play: %v", err)
	}
	// give the shell a moment to install the trap
	time.Sleep(300 * time.Millisecond)

	start := time.Now()
	if err := p.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	elapsed := time.Since(start)

	if elapsed < time.Second {
		t.Fatalf("Stop returned in %v, before the grace period — SIGTERM was not ignored", elapsed)
	}
	if elapsed > 5*time.Second {
		t.Fatalf("Stop took %v, SIGKILL escalation did not land", elapsed)
	}
	if p.Playing() {
		t.Fatal("player still playing after kill")
	}
	if err := p.Stop(); !errors.Is(err, ErrNotPlaying) {
		t.Fatalf("second Stop: got %v, want ErrNotPlaying", err)
	}
}

func TestPlayerBadCommand(t *testing.T) {
	p := NewPlayer(PlayerConfig{Command: "definitely-not-a-player", StopGraceSec: 1})
	if err := p.Play(sleepStation("60")); err == nil {
		t.Fatal("Play with missing binary succeeded")
	}
	if p.Playing() {
		t.Fatal("player reports playing after failed spawn")
	}
}
