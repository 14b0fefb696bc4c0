package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/numguess/internal/game"
)

const callbackPrefix = "difficulty:"

// Bot long-polls Telegram and feeds messages to a Handler.
type Bot struct {
	api     *tgbotapi.BotAPI
	handler *Handler
}

// NewBot connects to the Bot API with token.
func NewBot(token string, debug bool, h *Handler) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}
	api.Debug = debug
	log.Info().Str("bot", api.Self.UserName).Msg("telegram bot authorized")
	return &Bot{api: api, handler: h}, nil
}

// Run polls for updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			switch {
			case update.CallbackQuery != nil:
				b.handleCallback(ctx, update.CallbackQuery)
			case update.Message != nil:
				b.handleMessage(ctx, update.Message)
			}
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, m *tgbotapi.Message) {
	log.Debug().Int64("chat", m.Chat.ID).Str("text", m.Text).Msg("telegram message")
	b.send(m.Chat.ID, b.handler.Handle(ctx, m.Chat.ID, m.Text))
}

// handleCallback treats a picker button as "/new <tier>".
func (b *Bot) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(q.ID, "")); err != nil {
		log.Warn().Err(err).Msg("answer callback")
	}
	if q.Message == nil || !strings.HasPrefix(q.Data, callbackPrefix) {
		return
	}
	tier := strings.TrimPrefix(q.Data, callbackPrefix)
	b.send(q.Message.Chat.ID, b.handler.Handle(ctx, q.Message.Chat.ID, "/new "+tier))
}

func (b *Bot) send(chatID int64, r Reply) {
	msg := tgbotapi.NewMessage(chatID, r.Text)
	if r.Picker {
		msg.ReplyMarkup = pickerKeyboard()
	}
	if _, err := b.api.Send(msg); err != nil {
		log.Warn().Err(err).Int64("chat", chatID).Msg("send telegram message")
	}
}

func pickerKeyboard() tgbotapi.InlineKeyboardMarkup {
	var row []tgbotapi.InlineKeyboardButton
	for _, d := range []game.Difficulty{game.Easy, game.Medium, game.Hard} {
		label := strings.ToUpper(string(d[:1])) + string(d[1:])
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, callbackPrefix+string(d)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}
