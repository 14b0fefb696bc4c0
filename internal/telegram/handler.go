// internal/telegram/handler.go
//
// Chat command dispatch, independent of the Telegram API so it can be tested
// directly. Each chat owns one engine; its high score lives in the KV under
// "tg:<chatID>:highScore".
//
// Commands:
//   /start          welcome + difficulty picker
//   /new [tier]     start a game (picker when tier is omitted)
//   /reset          restart at the current difficulty
//   /hint           trade an attempt for the target's quarter
//   /score          current and high score
//   /help           command list
//   <number>        a guess

package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/numguess/internal/game"
	"github.com/robalobadob/numguess/internal/store"
)

// Reply is what the bot sends back for one incoming message.
type Reply struct {
	Text string
	// Picker asks the transport to attach the difficulty keyboard.
	Picker bool
}

// Handler turns chat text into engine calls.
type Handler struct {
	sessions *store.Sessions
}

// Options configures a Handler. Nil fields get the engine defaults.
type Options struct {
	KV       store.KV
	Profiles game.Profiles
	Rand     game.Rand
	Observer game.Observer
}

// NewHandler builds a Handler with one lazily created engine per chat.
func NewHandler(o Options) *Handler {
	if o.KV == nil {
		o.KV = store.NewMemory()
	}
	if o.Profiles == nil {
		o.Profiles = game.DefaultProfiles()
	}
	h := &Handler{}
	h.sessions = store.NewSessions(func(ctx context.Context, chatKey string) (*game.Engine, error) {
		return game.New(ctx, game.Options{
			Profiles: o.Profiles,
			Rand:     o.Rand,
			Store:    store.Scoped(o.KV, store.PlayerPrefix("tg", chatKey)),
			Observer: o.Observer,
		})
	})
	return h
}

// Sessions exposes the per-chat engines so the caller can sweep them.
func (h *Handler) Sessions() *store.Sessions { return h.sessions }

const helpText = `Guess the secret number!

/new easy|medium|hard - start a game
/reset - restart at the same difficulty
/hint - spend an attempt to learn which quarter the number is in
/score - show your score
/help - this message

Send a plain number to guess.`

// Handle processes one message from chatID.
func (h *Handler) Handle(ctx context.Context, chatID int64, text string) Reply {
	cmd, arg := splitCommand(text)
	key := strconv.FormatInt(chatID, 10)

	switch cmd {
	case "/start":
		return Reply{Text: "Welcome to Number Guess!\n\n" + helpText, Picker: true}
	case "/help":
		return Reply{Text: helpText}
	case "/new":
		if arg == "" {
			return Reply{Text: "Pick a difficulty:", Picker: true}
		}
		d, err := game.ParseDifficulty(arg)
		if err != nil {
			return Reply{Text: fmt.Sprintf("Unknown difficulty %q. Choose easy, medium or hard.", arg), Picker: true}
		}
		return h.with(ctx, key, func(e *game.Engine) (string, error) {
			return h.startText(e.NewGame(d)), nil
		})
	case "/reset":
		return h.with(ctx, key, func(e *game.Engine) (string, error) {
			return h.startText(e.ResetGame()), nil
		})
	case "/hint":
		return h.with(ctx, key, func(e *game.Engine) (string, error) {
			hint, err := e.GiveHint()
			if err != nil {
				return "", err
			}
			s, _ := e.Snapshot()
			return fmt.Sprintf("%s (%d attempts left)", hint, s.AttemptsRemaining), nil
		})
	case "/score":
		return h.with(ctx, key, func(e *game.Engine) (string, error) {
			_, sc := e.Snapshot()
			return fmt.Sprintf("Score: %d | High score: %d", sc.Current, sc.High), nil
		})
	case "":
		return h.with(ctx, key, func(e *game.Engine) (string, error) {
			res, err := e.SubmitGuess(ctx, text)
			if err != nil {
				return "", err
			}
			if res.Outcome == game.OutcomeContinue {
				return fmt.Sprintf("%s %d attempts left.", res.Message(), res.Session.AttemptsRemaining), nil
			}
			return res.Message() + "\nSend /new to play again.", nil
		})
	default:
		return Reply{Text: "Unknown command. Send /help for the list."}
	}
}

func (h *Handler) startText(s game.Session) string {
	return fmt.Sprintf("%s. You have %d attempts.", game.StartMessage(s), s.MaxAttempts)
}

// with runs fn on the chat's engine and renders rejections as chat text.
func (h *Handler) with(ctx context.Context, key string, fn func(e *game.Engine) (string, error)) Reply {
	var text string
	err := h.sessions.With(ctx, key, func(e *game.Engine) error {
		var err error
		text, err = fn(e)
		return err
	})
	var ve *game.ValidationError
	switch {
	case err == nil:
		return Reply{Text: text}
	case errors.As(err, &ve):
		return Reply{Text: ve.Msg, Picker: errors.Is(err, game.ErrNotActive)}
	default:
		log.Error().Err(err).Str("chat", key).Msg("telegram handler")
		return Reply{Text: "Something went wrong, please try again."}
	}
}

// splitCommand returns ("/cmd", "arg") for commands (dropping any @botname
// suffix) and ("", "") for plain text.
func splitCommand(text string) (string, string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", ""
	}
	cmd, arg, _ := strings.Cut(text, " ")
	cmd, _, _ = strings.Cut(cmd, "@")
	return strings.ToLower(cmd), strings.TrimSpace(arg)
}
