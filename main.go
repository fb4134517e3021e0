package main

import (
	"context"
	"flag"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", "radio-config.yaml", "path to the config file")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	var (
		alarmRepo AlarmRepository
		playRepo  PlaybackRepository
	)

	log.Info().Str("database", cfg.DatabaseURL).Msg("opening storage")
	u, err := url.Parse(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid database url")
	}
	switch u.Scheme {
	case "sqlite":
		sqlitedb, err := NewSQLiteRepository(u.Host + u.Path)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open sqlite")
		}
		alarmRepo = sqlitedb
		playRepo = sqlitedb

	case "postgres":
		pgdb, err := NewPostgresRepository(cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open postgres")
		}
		alarmRepo = pgdb
		playRepo = pgdb

	default:
		log.Fatal().Str("scheme", u.Scheme).Msg("unsupported database scheme")
	}

	stations := NewStationList(cfg.Stations)
	player := NewPlayer(cfg.Player)

	svc, err := NewService(alarmRepo, playRepo, stations, player, cfg.defaultAlarm())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init service")
	}

	svc.ResumePlayback()

	scheduler := NewAlarmScheduler(alarmRepo, svc)
	scheduler.Start()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go func() {
		if err := WatchConfig(ctx, *configPath, stations); err != nil {
			log.Error().Err(err).Msg("config watcher stopped")
		}
	}()

	echoRouter := NewHTTPRouter(cfg, svc)
	go func() {
		if err := echoRouter.Start(cfg.Listen); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()
	log.Info().Str("listen", cfg.Listen).Msg("radio alarm up")

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := echoRouter.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}

	scheduler.Shutdown()
	svc.close()
}
