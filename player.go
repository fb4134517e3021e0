// this file manages the external media-player subprocess
package main

import (
	"errors"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	ErrAlreadyPlaying = errors.New("player already playing")
	ErrNotPlaying     = errors.New("player not playing")
)

// Player supervises at most one media-player subprocess at a time. The
// player binary is treated as opaque: it gets the stream URL as its
// last argument and is expected to keep running until signalled.
type Player struct {
	command   string
	extraArgs []string
	stopGrace time.Duration

	mu        sync.Mutex
	proc      *playerProc
	station   Station
	startedAt time.Time

	// onExit is called when the subprocess dies without Stop being
	// asked for it, after the player state has been cleared.
	onExit func(station Station)
}

type playerProc struct {
	cmd  *exec.Cmd
	done chan struct{}
}

func NewPlayer(cfg PlayerConfig) *Player {
	return &Player{
		command:   cfg.Command,
		extraArgs: cfg.Args,
		stopGrace: cfg.StopGrace(),
	}
}

func (p *Player) SetOnExit(fn func(station Station)) {
	p.mu.Lock()
	p.onExit = fn
	p.mu.Unlock()
}

// Play spawns the player for the given station. Returns
// ErrAlreadyPlaying if a subprocess is already alive.
func (p *Player) Play(station Station) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.proc != nil {
		return ErrAlreadyPlaying
	}

	args := append(append([]string{}, p.extraArgs...), station.URL)
	cmd := exec.Command(p.command, args...)
	if err := cmd.Start(); err != nil {
		return err
	}

	proc := &playerProc{cmd: cmd, done: make(chan struct{})}
	p.proc = proc
	p.station = station
	p.startedAt = time.Now()

	log.Info().Str("station", station.ID).Str("url", station.URL).
		Int("pid", cmd.Process.Pid).Msg("player: started")

	go p.watch(proc, station)
	return nil
}

// watch reaps the subprocess. If it exits while still registered as
// the current process, nobody asked for the stop: clear state and
// notify.
func (p *Player) watch(proc *playerProc, station Station) {
	err := proc.cmd.Wait()
	close(proc.done)

	p.mu.Lock()
	unexpected := p.proc == proc
	if unexpected {
		p.proc = nil
		p.station = Station{}
	}
	onExit := p.onExit
	p.mu.Unlock()

	if !unexpected {
		return
	}

	log.Warn().Err(err).Str("station", station.ID).
		Msg("player: subprocess exited unexpectedly")
	if onExit != nil {
		onExit(station)
	}
}

// Stop terminates the subprocess: SIGTERM first, SIGKILL if it is
// still around after the grace period. Returns ErrNotPlaying if no
// subprocess is alive.
func (p *Player) Stop() error {
	p.mu.Lock()
	proc := p.proc
	station := p.station
	// claim the process before signalling so the watcher treats the
	// exit as requested
	p.proc = nil
	p.station = Station{}
	p.mu.Unlock()

	if proc == nil {
		return ErrNotPlaying
	}

	if err := proc.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		// already gone, the watcher will reap it
		<-proc.done
		return nil
	}

	select {
	case <-proc.done:
	case <-time.After(p.stopGrace):
		log.Warn().Str("station", station.ID).
			Msg("player: subprocess ignored SIGTERM, killing")
		_ = proc.cmd.Process.Kill()
		<-proc.done
	}

	log.Info().Str("station", station.ID).Msg("player: stopped")
	return nil
}

// Playing reports whether a subprocess is currently alive.
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.proc != nil
}

// Current returns the station being played and when playback started.
func (p *Player) Current() (Station, time.Time, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.proc == nil {
		return Station{}, time.Time{}, false
	}
	return p.station, p.startedAt, true
}
