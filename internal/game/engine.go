// internal/game/engine.go
//
// Core engine for a number-guessing session.
// Responsibilities:
//   - Start games by drawing a target uniformly from the tier's range.
//   - Validate and apply guesses (integer, in range, game active).
//   - Resolve each guess: win → loss (budget exhausted) → higher/lower.
//   - Keep the running score and the high score, signalling the persistence
//     collaborator whenever a new high score is reached.
//   - Trade one attempt for a quarter-of-range hint.
//
// Policy (one variant, applied consistently):
//   - points on a win = PointValue * (MaxAttempts - AttemptsUsed + 1)
//   - duplicate guesses are accepted and cost an attempt
//   - wrong guesses carry no penalty
//   - the running score accumulates across games of the same engine
//
// An Engine is owned by a single caller and is not safe for concurrent use.
package game

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// HighScoreKey is the persistence key the high score is stored under.
const HighScoreKey = "highScore"

// Persistence is the key-value collaborator that keeps the high score.
type Persistence interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

// Observer receives engine events. Used for metrics.
type Observer interface {
	GameStarted(d Difficulty)
	GuessAccepted(d Difficulty)
	HintGiven(d Difficulty)
	GameFinished(d Difficulty, o Outcome, points int)
	Rejected(reason string)
}

type nopObserver struct{}

func (nopObserver) GameStarted(Difficulty)                {}
func (nopObserver) GuessAccepted(Difficulty)              {}
func (nopObserver) HintGiven(Difficulty)                  {}
func (nopObserver) GameFinished(Difficulty, Outcome, int) {}
func (nopObserver) Rejected(string)                       {}

// Options configures a new Engine. Zero values fall back to defaults:
// DefaultProfiles, CryptoRand, no persistence, HighScoreKey.
type Options struct {
	Profiles Profiles
	Rand     Rand
	Store    Persistence
	Key      string
	Observer Observer
}

// Engine owns one player's session and score.
type Engine struct {
	profiles Profiles
	rng      Rand
	store    Persistence
	key      string
	obs      Observer

	difficulty Difficulty
	target     int
	used       int
	guesses    []int
	hints      int
	state      State

	score Score
}

// New builds an engine and reads the persisted high score once.
// A failing or empty store leaves the high score at zero.
func New(ctx context.Context, opts Options) (*Engine, error) {
	e := &Engine{
		profiles: opts.Profiles,
		rng:      opts.Rand,
		store:    opts.Store,
		key:      opts.Key,
		obs:      opts.Observer,
		state:    StateIdle,
	}
	if e.profiles == nil {
		e.profiles = DefaultProfiles()
	}
	if err := e.profiles.Validate(); err != nil {
		return nil, err
	}
	for _, d := range []Difficulty{Easy, Medium, Hard} {
		if _, ok := e.profiles[d]; !ok {
			return nil, fmt.Errorf("missing profile for %s", d)
		}
	}
	if e.rng == nil {
		e.rng = CryptoRand{}
	}
	if e.key == "" {
		e.key = HighScoreKey
	}
	if e.obs == nil {
		e.obs = nopObserver{}
	}
	e.score.High = e.loadHighScore(ctx)
	return e, nil
}

// StartGame begins a fresh game at difficulty d, superseding any current one.
// d must be a configured difficulty; anything else is a programming error.
func (e *Engine) StartGame(d Difficulty) Session {
	p, ok := e.profiles[d]
	if !ok {
		panic(fmt.Sprintf("game: unknown difficulty %q", d))
	}
	e.difficulty = d
	e.target = between(e.rng, p.Min, p.Max)
	e.used = 0
	e.guesses = []int{}
	e.hints = 0
	e.state = StateGuessing
	e.obs.GameStarted(d)
	return e.session()
}

// NewGame is StartGame under the name the shells use.
func (e *Engine) NewGame(d Difficulty) Session { return e.StartGame(d) }

// ResetGame restarts with the current difficulty (easy if none was chosen).
func (e *Engine) ResetGame() Session {
	d := e.difficulty
	if d == "" {
		d = Easy
	}
	return e.StartGame(d)
}

// SubmitGuess parses raw and applies it as a guess.
func (e *Engine) SubmitGuess(ctx context.Context, raw string) (Result, error) {
	if e.state != StateGuessing {
		return Result{}, e.fail(reject(ErrNotActive, "Please start a new game first!"))
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		p := e.profiles[e.difficulty]
		return Result{}, e.fail(reject(ErrNotANumber,
			fmt.Sprintf("Please enter a valid number between %d and %d", p.Min, p.Max)))
	}
	return e.Guess(ctx, n)
}

// Guess applies an already-parsed guess.
//
// Resolution order:
//   - exact match → win (regardless of attempts left)
//   - budget exhausted → loss
//   - otherwise continue with a higher/lower direction
func (e *Engine) Guess(ctx context.Context, n int) (Result, error) {
	if e.state != StateGuessing {
		return Result{}, e.fail(reject(ErrNotActive, "Please start a new game first!"))
	}
	p := e.profiles[e.difficulty]
	if n < p.Min || n > p.Max {
		return Result{}, e.fail(reject(ErrOutOfRange,
			fmt.Sprintf("Please enter a valid number between %d and %d", p.Min, p.Max)))
	}

	e.used++
	e.guesses = append(e.guesses, n)
	e.obs.GuessAccepted(e.difficulty)

	res := Result{Guess: n}
	switch {
	case n == e.target:
		e.state = StateWon
		res.Outcome = OutcomeWin
		res.PointsEarned = p.PointValue * (p.MaxAttempts - e.used + 1)
		res.NewHighScore = e.addPoints(ctx, res.PointsEarned)
		res.Target = e.target
		e.obs.GameFinished(e.difficulty, OutcomeWin, res.PointsEarned)
	case e.used >= p.MaxAttempts:
		e.state = StateLost
		res.Outcome = OutcomeLoss
		res.Target = e.target
		e.obs.GameFinished(e.difficulty, OutcomeLoss, 0)
	default:
		res.Outcome = OutcomeContinue
		if n < e.target {
			res.Direction = Higher
		} else {
			res.Direction = Lower
		}
	}
	res.Session = e.session()
	res.Score = e.score
	return res, nil
}

// GiveHint spends one attempt to learn which quarter of the range holds the
// target. At least two attempts must remain so a hint can never end the game.
func (e *Engine) GiveHint() (Hint, error) {
	if e.state != StateGuessing {
		return Hint{}, e.fail(reject(ErrNotActive, "Please start a new game first!"))
	}
	p := e.profiles[e.difficulty]
	if p.MaxAttempts-e.used <= 1 {
		return Hint{}, e.fail(reject(ErrHintUnavailable, "Not enough attempts left for a hint."))
	}
	e.used++
	e.hints++
	e.obs.HintGiven(e.difficulty)
	return quarterOf(p.Min, p.Max, e.target), nil
}

// Snapshot returns copies of the session and the score.
func (e *Engine) Snapshot() (Session, Score) { return e.session(), e.score }

// State reports the session state.
func (e *Engine) State() State { return e.state }

// Difficulty reports the difficulty of the current or last game.
func (e *Engine) Difficulty() Difficulty { return e.difficulty }

// RaiseHighScore lifts the in-memory high score to n when n is higher, for a
// score the caller has already persisted elsewhere. The session is untouched.
func (e *Engine) RaiseHighScore(n int) bool {
	if n <= e.score.High {
		return false
	}
	e.score.High = n
	return true
}

// Profiles returns a copy of the configured tiers.
func (e *Engine) Profiles() Profiles {
	out := make(Profiles, len(e.profiles))
	for d, p := range e.profiles {
		out[d] = p
	}
	return out
}

func (e *Engine) session() Session {
	s := Session{
		Difficulty:   e.difficulty,
		Target:       e.target,
		AttemptsUsed: e.used,
		Guesses:      slices.Clone(e.guesses),
		HintsUsed:    e.hints,
		State:        e.state,
	}
	if s.Guesses == nil {
		s.Guesses = []int{}
	}
	if p, ok := e.profiles[e.difficulty]; ok {
		s.Min, s.Max, s.MaxAttempts = p.Min, p.Max, p.MaxAttempts
		s.AttemptsRemaining = p.MaxAttempts - e.used
	}
	return s
}

// addPoints credits a win and reports whether it set a new high score.
func (e *Engine) addPoints(ctx context.Context, points int) bool {
	e.score.Current += points
	if e.score.Current <= e.score.High {
		return false
	}
	e.score.High = e.score.Current
	if e.store != nil {
		if err := e.store.Set(ctx, e.key, strconv.Itoa(e.score.High)); err != nil {
			log.Warn().Err(err).Str("key", e.key).Msg("persist high score; keeping it in memory")
		}
	}
	return true
}

func (e *Engine) loadHighScore(ctx context.Context) int {
	if e.store == nil {
		return 0
	}
	v, ok, err := e.store.Get(ctx, e.key)
	if err != nil {
		log.Warn().Err(err).Str("key", e.key).Msg("load high score; starting from zero")
		return 0
	}
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		log.Warn().Str("key", e.key).Str("value", v).Msg("ignoring malformed high score")
		return 0
	}
	return n
}

func (e *Engine) fail(err error) error {
	if ve, ok := err.(*ValidationError); ok {
		e.obs.Rejected(ve.Reason())
	}
	return err
}

// quarterOf splits [lo, hi] into four buckets and returns the one holding t.
// Narrow ranges can leave a bucket empty; the target's bucket never is.
func quarterOf(lo, hi, t int) Hint {
	size := hi - lo + 1
	start := lo
	for q := 1; q <= 4; q++ {
		end := lo + q*size/4 - 1
		if t <= end {
			return Hint{Quarter: q, Low: start, High: end}
		}
		start = end + 1
	}
	return Hint{Quarter: 4, Low: start, High: hi}
}
