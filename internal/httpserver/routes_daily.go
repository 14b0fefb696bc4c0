// internal/httpserver/routes_daily.go
//
// HTTP routes for the "Daily Challenge" mode.
// Exposes three endpoints under /daily:
//   - POST /daily/new         → start (or resume) today's game
//   - POST /daily/guess       → submit a guess for today's game
//   - GET  /daily/leaderboard → top 20 winners for today (or ?date=YYYY-MM-DD)
//
// Everyone plays the same target on a given UTC day: the engine draws from a
// generator seeded by date + salt. Each player gets one finished result per
// day (enforced by the daily_results unique key). Daily points never touch
// the player's high score.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/numguess/internal/daily"
	"github.com/robalobadob/numguess/internal/game"
	"github.com/robalobadob/numguess/internal/store"
)

// dailyServer wraps dependencies for /daily endpoints.
type dailyServer struct {
	srv      *Server
	store    *daily.Store
	salt     string
	sessions *store.Sessions // keyed by playerID|date

	mu     sync.Mutex           // guards starts
	starts map[string]time.Time // session key → first start
}

// mountDaily registers all /daily routes.
func (s *Server) mountDaily(r chi.Router) {
	d := &dailyServer{
		srv:    s,
		store:  daily.NewStore(s.db),
		salt:   s.cfg.DailySalt,
		starts: make(map[string]time.Time),
	}
	d.sessions = store.NewSessions(d.newEngine)
	s.daily = d

	r.Route("/daily", func(r chi.Router) {
		r.Post("/new", d.handleNew)
		r.Post("/guess", d.handleGuess)
		r.Get("/leaderboard", d.handleLeaderboard)
	})
}

// newEngine builds a store-less engine whose first draw is today's target.
func (d *dailyServer) newEngine(ctx context.Context, _ string) (*game.Engine, error) {
	return game.New(ctx, game.Options{
		Profiles: d.srv.profiles,
		Rand:     daily.Rand(d.srv.now(), d.salt),
		Observer: d.srv.metrics,
	})
}

func dailyKey(playerID, date string) string { return playerID + "|" + date }

// -----------------------------------------------------------------------------
// /daily/new

type dailyNewRes struct {
	Date    string        `json:"date"`
	Played  bool          `json:"played"`
	Session *game.Session `json:"session,omitempty"`
	Message string        `json:"message,omitempty"`
}

// handleNew starts today's game, or resumes it if one is in progress.
// Players with a stored result for today get Played=true.
func (d *dailyServer) handleNew(w http.ResponseWriter, r *http.Request) {
	pid, _ := d.srv.player(w, r)
	date := daily.DateKey(d.srv.now())

	played, err := d.store.AlreadyPlayed(r.Context(), pid, date)
	if err != nil {
		log.Error().Err(err).Msg("daily already played")
		writeError(w, http.StatusInternalServerError, "server_error", "")
		return
	}
	if played {
		writeJSON(w, http.StatusOK, dailyNewRes{Date: date, Played: true})
		return
	}

	key := dailyKey(pid, date)
	var sess game.Session
	err = d.sessions.With(r.Context(), key, func(e *game.Engine) error {
		if e.State() == game.StateGuessing {
			sess, _ = e.Snapshot()
			return nil
		}
		sess = e.StartGame(daily.Difficulty)
		d.mu.Lock()
		d.starts[key] = d.srv.now()
		d.mu.Unlock()
		return nil
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dailyNewRes{Date: date, Session: &sess, Message: game.StartMessage(sess)})
}

// -----------------------------------------------------------------------------
// /daily/guess

// handleGuess applies a guess to today's game. Finished games are stored and
// the session is released.
func (d *dailyServer) handleGuess(w http.ResponseWriter, r *http.Request) {
	var req guessReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "")
		return
	}
	pid, _ := d.srv.player(w, r)
	date := daily.DateKey(d.srv.now())
	key := dailyKey(pid, date)

	var res game.Result
	err := d.sessions.Peek(key, func(e *game.Engine) error {
		var err error
		res, err = e.SubmitGuess(r.Context(), rawGuess(req.Guess))
		return err
	})
	if errors.Is(err, store.ErrNoSession) {
		writeError(w, http.StatusConflict, "no_session", "Start today's challenge first.")
		return
	}
	if err != nil {
		writeEngineError(w, err)
		return
	}

	if res.Outcome != game.OutcomeContinue {
		d.finish(r.Context(), key, pid, date, res)
	}
	// daily points stay out of the high score
	res.NewHighScore = false
	writeJSON(w, http.StatusOK, guessRes{Result: res, Message: res.Message()})
}

func (d *dailyServer) finish(ctx context.Context, key, pid, date string, res game.Result) {
	d.mu.Lock()
	started, ok := d.starts[key]
	delete(d.starts, key)
	d.mu.Unlock()

	elapsed := 0
	if ok {
		elapsed = int(d.srv.now().Sub(started).Milliseconds())
	}
	err := d.store.InsertResult(ctx, daily.Result{
		PlayerID:  pid,
		Date:      date,
		Attempts:  res.Session.AttemptsUsed,
		ElapsedMs: elapsed,
		Points:    res.PointsEarned,
		Won:       res.Outcome == game.OutcomeWin,
	})
	if err != nil {
		log.Warn().Err(err).Str("player", pid).Msg("store daily result")
	}
	d.sessions.Drop(key)
}

// -----------------------------------------------------------------------------
// /daily/leaderboard

type lbRes struct {
	Date string        `json:"date"`
	Top  []daily.LBRow `json:"top"`
}

// handleLeaderboard returns the leaderboard for the given date (default today).
func (d *dailyServer) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = daily.DateKey(d.srv.now())
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		writeError(w, http.StatusBadRequest, "bad_date", "date must be YYYY-MM-DD")
		return
	}
	rows, err := d.store.Leaderboard(r.Context(), date, 20)
	if err != nil {
		log.Error().Err(err).Msg("daily leaderboard")
		writeError(w, http.StatusInternalServerError, "server_error", "")
		return
	}
	writeJSON(w, http.StatusOK, lbRes{Date: date, Top: rows})
}

// sweep drops idle daily games along with their start times.
func (d *dailyServer) sweep(idle time.Duration) int {
	n := d.sessions.Sweep(idle)
	if n == 0 {
		return 0
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for key := range d.starts {
		if !d.sessions.Has(key) {
			delete(d.starts, key)
		}
	}
	return n
}
