// internal/httpserver/routes_game.go
//
// Game routes. Every handler resolves the player (user or anonymous cookie),
// takes exclusive access to that player's engine via store.Sessions, and
// renders the resulting snapshot.
//
//   - GET  /game        → current session + score
//   - POST /game/new    → {difficulty} start a game (default easy)
//   - POST /game/guess  → {guess} string or number
//   - POST /game/hint   → spend an attempt for a quarter hint
//   - POST /game/reset  → {difficulty?} restart (current difficulty if omitted)

package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/numguess/internal/game"
)

func (s *Server) mountGame(r chi.Router) {
	r.Get("/game", s.handleState)
	r.Post("/game/new", s.handleNewGame)
	r.Post("/game/guess", s.handleGuess)
	r.Post("/game/hint", s.handleHint)
	r.Post("/game/reset", s.handleReset)
}

// stateRes is returned by every route that does not resolve a guess.
type stateRes struct {
	Session game.Session `json:"session"`
	Score   game.Score   `json:"score"`
	Message string       `json:"message,omitempty"`
}

type newGameReq struct {
	Difficulty string `json:"difficulty"`
}

// handleState returns the player's snapshot (idle if they never played).
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	pid, _ := s.player(w, r)
	var res stateRes
	err := s.sessions.With(r.Context(), pid, func(e *game.Engine) error {
		res.Session, res.Score = e.Snapshot()
		return nil
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleNewGame starts a game at the requested difficulty.
func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req newGameReq
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "")
		return
	}
	d := game.Easy
	if strings.TrimSpace(req.Difficulty) != "" {
		var err error
		if d, err = game.ParseDifficulty(req.Difficulty); err != nil {
			writeError(w, http.StatusBadRequest, "unknown_difficulty", err.Error())
			return
		}
	}
	s.start(w, r, func(e *game.Engine) game.Session { return e.StartGame(d) })
}

// handleReset restarts, optionally switching difficulty.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req newGameReq
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "")
		return
	}
	if strings.TrimSpace(req.Difficulty) == "" {
		s.start(w, r, func(e *game.Engine) game.Session { return e.ResetGame() })
		return
	}
	d, err := game.ParseDifficulty(req.Difficulty)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown_difficulty", err.Error())
		return
	}
	s.start(w, r, func(e *game.Engine) game.Session { return e.NewGame(d) })
}

func (s *Server) start(w http.ResponseWriter, r *http.Request, begin func(e *game.Engine) game.Session) {
	pid, me := s.player(w, r)
	var (
		res       stateRes
		abandoned bool
	)
	err := s.sessions.With(r.Context(), pid, func(e *game.Engine) error {
		abandoned = e.State() == game.StateGuessing
		res.Session = begin(e)
		_, res.Score = e.Snapshot()
		res.Message = game.StartMessage(res.Session)
		return nil
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	s.recordStart(r.Context(), pid, me, res.Session.Difficulty, abandoned)
	writeJSON(w, http.StatusOK, res)
}

type guessReq struct {
	Guess json.RawMessage `json:"guess"`
}

type guessRes struct {
	game.Result
	Message string `json:"message"`
}

// handleGuess applies a guess and records finished games.
func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request) {
	var req guessReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "")
		return
	}
	pid, me := s.player(w, r)

	var res game.Result
	err := s.sessions.With(r.Context(), pid, func(e *game.Engine) error {
		var err error
		res, err = e.SubmitGuess(r.Context(), rawGuess(req.Guess))
		return err
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if res.Outcome != game.OutcomeContinue {
		s.recordFinish(r.Context(), pid, me, res)
	}
	writeJSON(w, http.StatusOK, guessRes{Result: res, Message: res.Message()})
}

type hintRes struct {
	Hint    game.Hint    `json:"hint"`
	Message string       `json:"message"`
	Session game.Session `json:"session"`
	Score   game.Score   `json:"score"`
}

// handleHint trades an attempt for the target's quarter.
func (s *Server) handleHint(w http.ResponseWriter, r *http.Request) {
	pid, _ := s.player(w, r)
	var res hintRes
	err := s.sessions.With(r.Context(), pid, func(e *game.Engine) error {
		h, err := e.GiveHint()
		if err != nil {
			return err
		}
		res.Hint, res.Message = h, h.String()
		res.Session, res.Score = e.Snapshot()
		return nil
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// rawGuess accepts `"42"`, `42` or nothing; anything else goes to the engine
// verbatim and is rejected there as not a number.
func rawGuess(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return string(raw)
}

// decodeOptional decodes a JSON body if there is one.
func decodeOptional(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	return json.NewDecoder(r.Body).Decode(v)
}

// ------------------------------ history -------------------------------------

// recordStart inserts a games row for the new game, closing an abandoned one.
func (s *Server) recordStart(ctx context.Context, pid string, me *authUser, d game.Difficulty, abandoned bool) {
	if s.db == nil {
		return
	}
	now := s.now().UTC().Format(time.RFC3339)

	s.rowsMu.Lock()
	prev := s.rows[pid]
	id := genID()
	s.rows[pid] = id
	s.rowsMu.Unlock()

	if abandoned && prev != "" {
		if _, err := s.db.ExecContext(ctx, `UPDATE games SET status='abandoned', finished_at=? WHERE id=? AND status='playing'`, now, prev); err != nil {
			log.Warn().Err(err).Str("gameId", prev).Msg("abandon game row")
		}
	}

	var err error
	if me != nil {
		_, err = s.db.ExecContext(ctx, `INSERT INTO games (id, user_id, difficulty, status, started_at)
		                                VALUES (?,?,?,?,?)`, id, me.ID, string(d), "playing", now)
	} else {
		_, err = s.db.ExecContext(ctx, `INSERT INTO games (id, anonymous_id, difficulty, status, started_at)
		                                VALUES (?,?,?,?,?)`, id, pid, string(d), "playing", now)
	}
	if err != nil {
		log.Warn().Err(err).Str("gameId", id).Msg("insert game row")
	}
}

// recordFinish closes the games row and bumps user stats (best effort).
func (s *Server) recordFinish(ctx context.Context, pid string, me *authUser, res game.Result) {
	if s.db == nil {
		return
	}
	s.rowsMu.Lock()
	id := s.rows[pid]
	delete(s.rows, pid)
	s.rowsMu.Unlock()

	status := string(game.StateLost)
	if res.Outcome == game.OutcomeWin {
		status = string(game.StateWon)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		log.Warn().Err(err).Msg("begin finish tx")
		return
	}
	defer func() { _ = tx.Rollback() }()

	if id != "" {
		if _, err := tx.ExecContext(ctx, `UPDATE games SET status=?, attempts=?, points=?, finished_at=? WHERE id=?`,
			status, res.Session.AttemptsUsed, res.PointsEarned, s.now().UTC().Format(time.RFC3339), id); err != nil {
			log.Warn().Err(err).Str("gameId", id).Msg("finish game row")
		}
	}
	if me != nil {
		if err := bumpStats(ctx, tx, me.ID, res.Outcome == game.OutcomeWin, res.Score.High); err != nil {
			log.Warn().Err(err).Str("user", me.ID).Msg("bump stats")
		}
	}
	if err := tx.Commit(); err != nil {
		log.Warn().Err(err).Msg("commit finish tx")
	}
}
