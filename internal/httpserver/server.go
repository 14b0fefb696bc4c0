// internal/httpserver/server.go
//
// HTTP shell for the number-guessing engine.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs, logging).
//   - Public endpoints: "/", "/health", "/metrics", "/profiles".
//   - Game endpoints (optional auth): /game, /game/new, /game/guess, /game/hint, /game/reset.
//   - Daily Challenge endpoints (optional auth): mounted under /daily.
//   - Auth + profile/stat endpoints: /auth/*, /stats/me, /games/mine.
//
// Notes:
//   - Each player (user ID, or anonymous cookie for guests) owns one engine in
//     store.Sessions; the running score lives as long as that engine.
//   - High scores are kept in the KV under "player:<id>:highScore".
//   - Finished games are recorded in the games table; user stats are bumped
//     best-effort.

package httpserver

import (
	"context"
	"database/sql"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/numguess/internal/config"
	"github.com/robalobadob/numguess/internal/game"
	"github.com/robalobadob/numguess/internal/metrics"
	"github.com/robalobadob/numguess/internal/store"
)

// Deps are the collaborators a Server needs.
type Deps struct {
	Config   *config.Config
	DB       *sql.DB // migrated service database; required
	KV       store.KV
	Profiles game.Profiles
	Metrics  *metrics.Metrics
	Now      func() time.Time // defaults to time.Now
	Rand     game.Rand        // defaults to game.CryptoRand
}

// Server bundles router, engines and storage.
type Server struct {
	r        *chi.Mux
	cfg      *config.Config
	db       *sql.DB
	kv       store.KV
	profiles game.Profiles
	metrics  *metrics.Metrics
	sessions *store.Sessions
	daily    *dailyServer
	now      func() time.Time
	rng      game.Rand

	rowsMu sync.Mutex        // guards rows
	rows   map[string]string // player ID → games.id of the current game
}

// New constructs a Server, installs middleware, and registers routes.
func New(d Deps) *Server {
	s := &Server{
		r:        chi.NewRouter(),
		cfg:      d.Config,
		db:       d.DB,
		kv:       d.KV,
		profiles: d.Profiles,
		metrics:  d.Metrics,
		now:      d.Now,
		rng:      d.Rand,
		rows:     make(map[string]string),
	}
	if s.cfg == nil {
		s.cfg = config.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.rng == nil {
		s.rng = game.CryptoRand{}
	}
	if s.profiles == nil {
		s.profiles = game.DefaultProfiles()
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}
	if s.kv == nil {
		s.kv = store.NewMemory()
	}
	s.sessions = store.NewSessions(s.newEngine)

	// --- middleware ---
	s.r.Use(chimw.RequestID)                 // add X-Request-ID
	s.r.Use(chimw.RealIP)                    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(requestLogger)                   // zerolog access log
	s.r.Use(chimw.Recoverer)                 // recover from panics
	s.r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
	s.r.Use(s.corsFromConfig)                // credentials-friendly CORS

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"service":   "numguess",
			"endpoints": []string{"/health", "/profiles", "GET /game", "POST /game/new", "POST /game/guess", "POST /game/hint", "POST /game/reset", "/daily/*", "/auth/*"},
		})
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	s.r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	s.r.Get("/profiles", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.profiles)
	})

	// Game + daily endpoints: optional auth, guests can play
	s.r.Group(func(r chi.Router) {
		r.Use(s.withOptionalAuth())
		s.mountGame(r)
		s.mountDaily(r)
	})

	// Auth + profile/stats
	s.mountAuthRoutes()

	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "path": r.URL.Path})
	})

	return s
}

// Handler exposes the router (used by main and tests).
func (s *Server) Handler() http.Handler { return s.r }

// Sessions exposes the engine registry.
func (s *Server) Sessions() *store.Sessions { return s.sessions }

// Sweep drops regular and daily engines idle for longer than idle.
func (s *Server) Sweep(idle time.Duration) int {
	return s.sessions.Sweep(idle) + s.daily.sweep(idle)
}

// newEngine is the store.EngineFactory for regular play.
func (s *Server) newEngine(ctx context.Context, playerID string) (*game.Engine, error) {
	return game.New(ctx, game.Options{
		Profiles: s.profiles,
		Rand:     s.rng,
		Store:    store.Scoped(s.kv, store.PlayerPrefix("player", playerID)),
		Observer: s.metrics,
	})
}

// ----------------------------- middleware ----------------------------------

// requestLogger writes one zerolog line per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Str("requestId", chimw.GetReqID(r.Context())).
			Msg("http request")
	})
}

// corsFromConfig enables credentialed CORS for a single origin (CLIENT_ORIGIN).
func (s *Server) corsFromConfig(next http.Handler) http.Handler {
	origin := s.cfg.ClientOrigin
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
