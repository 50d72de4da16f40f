package telegram

import (
	"context"
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// fakeBotAPI records chattables passed to the underlying client.
type fakeBotAPI struct {
	sent    []tgbotapi.Chattable
	sendErr error
	reqErr  error
}

func (f *fakeBotAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.sendErr != nil {
		return tgbotapi.Message{}, f.sendErr
	}
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeBotAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	if f.reqErr != nil {
		return nil, f.reqErr
	}
	f.sent = append(f.sent, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func TestSendMessagePlainText(t *testing.T) {
	fake := &fakeBotAPI{}
	svc := &BotService{bot: fake}

	if err := svc.SendMessage(context.Background(), 42, "hello", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fake.sent) != 1 {
		t.Fatalf("expected 1 sent message, got %d", len(fake.sent))
	}
	msg, ok := fake.sent[0].(tgbotapi.MessageConfig)
	if !ok {
		t.Fatalf("expected MessageConfig, got %T", fake.sent[0])
	}
	if msg.ChatID != 42 || msg.Text != "hello" {
		t.Errorf("unexpected message: %+v", msg)
	}
	if msg.ReplyMarkup != nil {
		t.Error("expected no keyboard on plain message")
	}
}

func TestSendMessageWithKeyboard(t *testing.T) {
	fake := &fakeBotAPI{}
	svc := &BotService{bot: fake}

	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Go", "go")),
	)
	if err := svc.SendMessage(context.Background(), 42, "pick", &kb); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	msg := fake.sent[0].(tgbotapi.MessageConfig)
	markup, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if !ok {
		t.Fatalf("expected InlineKeyboardMarkup, got %T", msg.ReplyMarkup)
	}
	if len(markup.InlineKeyboard) != 1 || markup.InlineKeyboard[0][0].Text != "Go" {
		t.Errorf("unexpected keyboard: %+v", markup)
	}
}

func TestSendMessageError(t *testing.T) {
	fake := &fakeBotAPI{sendErr: errors.New("network down")}
	svc := &BotService{bot: fake}
	if err := svc.SendMessage(context.Background(), 42, "hello", nil); err == nil {
		t.Error("expected error when send fails")
	}
}

func TestAnswerCallback(t *testing.T) {
	fake := &fakeBotAPI{}
	svc := &BotService{bot: fake}
	if err := svc.AnswerCallback(context.Background(), "cb-123"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fake.sent) != 1 {
		t.Fatalf("expected 1 request, got %d", len(fake.sent))
	}
}

func TestNewBotServiceRequiresToken(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	if _, err := NewBotService(); err == nil {
		t.Error("expected error when token is not set")
	}
}
