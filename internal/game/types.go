// internal/game/types.go
//
// Core type definitions for the number-guessing engine.
// Defines:
//   - Difficulty / Profile: the configured tiers (range, attempts, points).
//   - State: the session state machine (idle → guessing → won/lost).
//   - Session / Score: snapshots handed to the UI shells.
//   - Result / Hint: what a guess or a hint request returns.

package game

import (
	"fmt"
	"strings"
)

// Difficulty names a configured tier.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// ParseDifficulty normalises user input into a Difficulty.
// Shells call it before StartGame, which treats unknown keys as a bug.
func ParseDifficulty(s string) (Difficulty, error) {
	switch d := Difficulty(strings.ToLower(strings.TrimSpace(s))); d {
	case Easy, Medium, Hard:
		return d, nil
	default:
		return "", fmt.Errorf("unknown difficulty %q", s)
	}
}

// Profile fixes the guess range, attempt budget and point value of a tier.
type Profile struct {
	Min         int `yaml:"min" json:"min"`
	Max         int `yaml:"max" json:"max"`
	MaxAttempts int `yaml:"maxAttempts" json:"maxAttempts"`
	PointValue  int `yaml:"pointValue" json:"pointValue"`
}

// Validate checks that a profile describes a playable range.
func (p Profile) Validate() error {
	if p.Min > p.Max {
		return fmt.Errorf("min %d greater than max %d", p.Min, p.Max)
	}
	if p.MaxAttempts < 1 {
		return fmt.Errorf("maxAttempts must be positive, got %d", p.MaxAttempts)
	}
	if p.PointValue < 0 {
		return fmt.Errorf("pointValue must not be negative, got %d", p.PointValue)
	}
	return nil
}

// Profiles maps every difficulty to its profile.
type Profiles map[Difficulty]Profile

// DefaultProfiles returns the built-in tiers.
func DefaultProfiles() Profiles {
	return Profiles{
		Easy:   {Min: 1, Max: 10, MaxAttempts: 5, PointValue: 1},
		Medium: {Min: 1, Max: 50, MaxAttempts: 7, PointValue: 2},
		Hard:   {Min: 1, Max: 100, MaxAttempts: 10, PointValue: 3},
	}
}

// Validate checks every profile.
func (ps Profiles) Validate() error {
	if len(ps) == 0 {
		return fmt.Errorf("no difficulty profiles configured")
	}
	for d, p := range ps {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("profile %s: %w", d, err)
		}
	}
	return nil
}

// State is the coarse session state.
type State string

const (
	StateIdle     State = "idle"
	StateGuessing State = "guessing"
	StateWon      State = "won"
	StateLost     State = "lost"
)

// Outcome is the resolution of a single accepted guess.
type Outcome string

const (
	OutcomeContinue Outcome = "continue"
	OutcomeWin      Outcome = "win"
	OutcomeLoss     Outcome = "loss"
)

// Direction tells the player where to look next.
type Direction string

const (
	Higher Direction = "higher"
	Lower  Direction = "lower"
)

// Session is a copy of the current game's state.
type Session struct {
	Difficulty        Difficulty `json:"difficulty"`
	Min               int        `json:"min"`
	Max               int        `json:"max"`
	MaxAttempts       int        `json:"maxAttempts"`
	Target            int        `json:"-"` // never rendered while playing
	AttemptsUsed      int        `json:"attemptsUsed"`
	AttemptsRemaining int        `json:"attemptsRemaining"`
	Guesses           []int      `json:"guesses"`
	HintsUsed         int        `json:"hintsUsed"`
	State             State      `json:"state"`
}

// Active reports whether the session accepts guesses.
func (s Session) Active() bool { return s.State == StateGuessing }

// Score holds the running score and the best score seen so far.
type Score struct {
	Current int `json:"current"`
	High    int `json:"high"`
}

// Result describes what an accepted guess did.
type Result struct {
	Guess        int       `json:"guess"`
	Outcome      Outcome   `json:"outcome"`
	Direction    Direction `json:"direction,omitempty"` // set only on OutcomeContinue
	PointsEarned int       `json:"pointsEarned"`
	NewHighScore bool      `json:"newHighScore"`
	Target       int       `json:"target,omitempty"` // revealed once the game is over
	Session      Session   `json:"session"`
	Score        Score     `json:"score"`
}

// Hint reports which quarter of the range holds the target.
type Hint struct {
	Quarter int `json:"quarter"` // 1..4
	Low     int `json:"low"`
	High    int `json:"high"`
}

func (h Hint) String() string {
	names := [...]string{"first", "second", "third", "fourth"}
	name := "unknown"
	if h.Quarter >= 1 && h.Quarter <= 4 {
		name = names[h.Quarter-1]
	}
	return fmt.Sprintf("The number is in the %s quarter (%d-%d).", name, h.Low, h.High)
}
