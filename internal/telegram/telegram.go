// Package telegram provides the messaging transport for the bot.
//
// It wraps the Telegram Bot API behind a small Service interface so flow and
// dispatcher code can be tested against a mock transport.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Service defines the message delivery abstraction consumed by the dispatcher.
type Service interface {
	// SendMessage sends a text message to a chat with an optional inline keyboard.
	SendMessage(ctx context.Context, chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) error

	// AnswerCallback acknowledges a callback query so the client stops its spinner.
	AnswerCallback(ctx context.Context, callbackID string) error
}

// Opts holds configuration options for the bot service.
type Opts struct {
	Token string
	Debug bool
}

// Option configures the bot service.
type Option func(*Opts)

// WithToken sets the bot API token.
func WithToken(token string) Option {
	return func(o *Opts) { o.Token = token }
}

// WithDebug enables verbose Bot API logging.
func WithDebug(debug bool) Option {
	return func(o *Opts) { o.Debug = debug }
}

// botAPI is the subset of tgbotapi.BotAPI the service uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// BotService implements Service on the Telegram Bot API.
type BotService struct {
	bot botAPI
}

// NewBotService creates a Telegram-backed messaging service. The token comes
// from options or the TELEGRAM_BOT_TOKEN environment variable.
func NewBotService(opts ...Option) (*BotService, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Token == "" {
		cfg.Token = os.Getenv("TELEGRAM_BOT_TOKEN")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN not set")
	}

	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		slog.Error("Telegram bot authorization failed", "error", err)
		return nil, fmt.Errorf("telegram authorization failed: %w", err)
	}
	bot.Debug = cfg.Debug
	slog.Info("Telegram bot authorized", "username", bot.Self.UserName)
	return &BotService{bot: bot}, nil
}

// SendMessage sends a text message to a chat with an optional inline keyboard.
func (s *BotService) SendMessage(ctx context.Context, chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if keyboard != nil {
		msg.ReplyMarkup = *keyboard
	}
	if _, err := s.bot.Send(msg); err != nil {
		slog.Error("Telegram SendMessage failed", "error", err, "chatID", chatID)
		return fmt.Errorf("failed to send message to chat %d: %w", chatID, err)
	}
	slog.Debug("Telegram SendMessage succeeded", "chatID", chatID, "has_keyboard", keyboard != nil)
	return nil
}

// AnswerCallback acknowledges a callback query.
func (s *BotService) AnswerCallback(ctx context.Context, callbackID string) error {
	if _, err := s.bot.Request(tgbotapi.NewCallback(callbackID, "")); err != nil {
		slog.Error("Telegram AnswerCallback failed", "error", err, "callbackID", callbackID)
		return fmt.Errorf("failed to answer callback %s: %w", callbackID, err)
	}
	return nil
}
