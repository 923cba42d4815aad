package bot

import (
	"context"
	"errors"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"weathertracker/internal/auth"
	"weathertracker/internal/weather"
	"weathertracker/pkg/logger"
)

// Bot completes pending logins over Telegram. A user opens the bot with
// "/start <token>" (the deep-link Telegram produces for t.me/<bot>?start=<token>)
// and receives back the callback URL carrying their fresh authorization
// token. The bot is the trusted caller of the confirm step and holds the
// shared service secret.
type Bot struct {
	api    *tgbotapi.BotAPI
	auth   *auth.Service
	secret string
	log    *zap.SugaredLogger
}

// New creates the login bot.
func New(token string, authSvc *auth.Service, secret string) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	return &Bot{
		api:    api,
		auth:   authSvc,
		secret: secret,
		log:    logger.Get().With("component", "bot"),
	}, nil
}

// Run long-polls Telegram until the context is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := b.api.GetUpdatesChan(u)
	b.log.Infow("telegram bot started", "username", b.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update := <-updates:
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message == nil || !update.Message.IsCommand() {
		return
	}
	if update.Message.Command() != "start" {
		return
	}

	chatID := update.Message.Chat.ID

	token := strings.TrimSpace(update.Message.CommandArguments())
	if token == "" {
		b.reply(chatID, "Open the login link from the application, or send /start <login token>.")
		return
	}

	callback, err := b.auth.Confirm(ctx, token, update.Message.From.ID, b.secret)
	if err != nil {
		if errors.Is(err, weather.ErrNotFound) {
			b.reply(chatID, "This login token is unknown or already used. Request a new login from the application.")
			return
		}
		b.log.Errorw("login confirmation failed", "error", err)
		b.reply(chatID, "Login failed, please try again later.")
		return
	}

	b.reply(chatID, "You are logged in. Continue here: "+callback)
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Warnw("failed to send telegram reply", "error", err)
	}
}
