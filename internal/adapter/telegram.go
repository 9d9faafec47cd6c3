package adapter

import (
	"context"
	"log/slog"
	"sync"

	"github.com/harunnryd/shukan/internal/errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type TelegramAdapter struct {
	token       string
	chatID      int64
	apiEndpoint string

	mu  sync.RWMutex
	bot *tgbotapi.BotAPI
}

func NewTelegramAdapter(token string, chatID int64) *TelegramAdapter {
	return &TelegramAdapter{
		token:       token,
		chatID:      chatID,
		apiEndpoint: tgbotapi.APIEndpoint,
	}
}

func (t *TelegramAdapter) Name() string {
	return "telegram"
}

func (t *TelegramAdapter) Start(ctx context.Context) error {
	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(t.token, t.apiEndpoint)
	if err != nil {
		return errors.Wrap(err, "failed to init telegram bot")
	}

	t.mu.Lock()
	t.bot = bot
	t.mu.Unlock()

	slog.Info("Telegram notifier started", "user", bot.Self.UserName, "chat_id", t.chatID)
	return nil
}

func (t *TelegramAdapter) client() (*tgbotapi.BotAPI, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.bot == nil {
		return nil, errors.Transient("Telegram bot not initialized")
	}
	return t.bot, nil
}

// Send posts content to the configured chat.
func (t *TelegramAdapter) Send(ctx context.Context, content string) error {
	bot, err := t.client()
	if err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(t.chatID, content)
	if _, err := bot.Send(msg); err != nil {
		return errors.Wrap(err, "failed to send telegram message")
	}

	slog.Debug("Telegram message sent", "chat_id", t.chatID)
	return nil
}

func (t *TelegramAdapter) Health(ctx context.Context) error {
	bot, err := t.client()
	if err != nil {
		return err
	}

	if _, err := bot.GetMe(); err != nil {
		return errors.Transient("Telegram connection failed: " + err.Error())
	}
	return nil
}
