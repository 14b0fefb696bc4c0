package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/numguess/internal/config"
	"github.com/robalobadob/numguess/internal/httpserver"
	"github.com/robalobadob/numguess/internal/metrics"
	"github.com/robalobadob/numguess/internal/store"
	"github.com/robalobadob/numguess/internal/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if !cfg.Production() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	profiles, err := config.LoadProfiles(cfg.ProfilesFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load difficulty profiles")
	}

	db, err := store.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("failed to open database")
	}
	defer db.Close()
	if err := store.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	var kv store.KV
	switch strings.ToLower(cfg.StoreBackend) {
	case "redis":
		client, err := store.DialRedis(ctx, store.RedisOptions{
			Addr:       cfg.RedisAddr,
			Password:   cfg.RedisPassword,
			DB:         cfg.RedisDB,
			MaxRetries: cfg.RedisRetries,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer client.Close()
		kv = store.NewRedisKV(client, cfg.RedisNamespace)
	case "memory":
		kv = store.NewMemory()
	default:
		kv = store.NewSQLiteKV(db)
	}
	log.Info().Str("backend", cfg.StoreBackend).Msg("high score store ready")

	m := metrics.New()
	srv := httpserver.New(httpserver.Deps{
		Config:   cfg,
		DB:       db,
		KV:       kv,
		Profiles: profiles,
		Metrics:  m,
	})

	var bot *telegram.Handler
	if cfg.BotToken != "" {
		bot = telegram.NewHandler(telegram.Options{KV: kv, Profiles: profiles, Observer: m})
		b, err := telegram.NewBot(cfg.BotToken, cfg.BotDebug, bot)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to start telegram bot")
		}
		go b.Run(ctx)
	}

	go sweep(ctx, cfg.SessionIdle, func(idle time.Duration) int {
		n := srv.Sweep(idle)
		if bot != nil {
			n += bot.Sessions().Sweep(idle)
		}
		return n
	})

	hs := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := hs.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("http shutdown")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("starting numguess server")
	if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("server stopped")
}

// sweep periodically drops engines idle for longer than idle.
func sweep(ctx context.Context, idle time.Duration, drop func(time.Duration) int) {
	t := time.NewTicker(idle / 4)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := drop(idle); n > 0 {
				log.Debug().Int("dropped", n).Msg("swept idle sessions")
			}
		}
	}
}
