// this file holds the station presets and their hot reload
package main

import (
	"context"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// StationList is the set of configured stream presets. It is swapped
// as a whole when the config file changes, so readers never see a
// half-updated list.
type StationList struct {
	mu       sync.RWMutex
	stations []Station
}

func NewStationList(stations []Station) *StationList {
	l := &StationList{}
	l.Replace(stations)
	return l
}

// All returns a copy of the current presets in config order.
func (l *StationList) All() []Station {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Station, len(l.stations))
	copy(out, l.stations)
	return out
}

// Get looks up a preset by id. An empty id selects the first preset.
func (l *StationList) Get(id string) (Station, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if id == "" && len(l.stations) > 0 {
		return l.stations[0], true
	}
	for _, st := range l.stations {
		if st.ID == id {
			return st, true
		}
	}
	return Station{}, false
}

func (l *StationList) Replace(stations []Station) {
	next := make([]Station, len(stations))
	copy(next, stations)
	l.mu.Lock()
	l.stations = next
	l.mu.Unlock()
}

// WatchConfig monitors the config file and swaps the station presets
// each time it is rewritten. Other config fields need a restart; only
// the presets are safe to change under a live player. Runs until ctx
// is cancelled.
//
// If a reload fails (e.g. invalid YAML), the error is logged and the
// previous presets remain active.
func WatchConfig(ctx context.Context, path string, stations *StationList) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return err
	}

	log.Info().Str("path", path).Msg("config: watching for changes")

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// Editors often save via rename, so catch Create too.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			cfg, err := LoadConfig(path)
			if err != nil {
				log.Error().Err(err).Str("path", path).
					Msg("config: reload failed, keeping previous stations")
				continue
			}

			stations.Replace(cfg.Stations)
			log.Info().Str("path", path).Int("stations", len(cfg.Stations)).
				Msg("config: stations reloaded")

			// Re-add the file in case an atomic save replaced the inode.
			_ = watcher.Add(path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error().Err(err).Msg("config: watcher error")
		}
	}
}
