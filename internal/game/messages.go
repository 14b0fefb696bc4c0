package game

import "fmt"

// StartMessage is the text shown when a game begins.
func StartMessage(s Session) string {
	return fmt.Sprintf("New game started! Guess a number between %d and %d", s.Min, s.Max)
}

// Message renders a guess result for the player.
func (r Result) Message() string {
	switch r.Outcome {
	case OutcomeWin:
		msg := fmt.Sprintf("Correct! The number was %d. You earned %d points!", r.Target, r.PointsEarned)
		if r.NewHighScore {
			msg += " New high score!"
		}
		return msg
	case OutcomeLoss:
		return fmt.Sprintf("Game Over! The number was %d.", r.Target)
	default:
		return fmt.Sprintf("Wrong! Try a %s number.", r.Direction)
	}
}
