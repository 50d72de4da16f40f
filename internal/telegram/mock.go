package telegram

import (
	"context"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// SentMessage captures one SendMessage call for assertions.
type SentMessage struct {
	ChatID   int64
	Text     string
	Keyboard *tgbotapi.InlineKeyboardMarkup
}

// MockService is an in-memory Service implementation for tests.
type MockService struct {
	mu      sync.Mutex
	sent    []SentMessage
	acked   []string
	SendErr error
}

// NewMockService creates an empty mock transport.
func NewMockService() *MockService {
	return &MockService{}
}

// SendMessage records the outgoing message.
func (m *MockService) SendMessage(ctx context.Context, chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SendErr != nil {
		return m.SendErr
	}
	m.sent = append(m.sent, SentMessage{ChatID: chatID, Text: text, Keyboard: keyboard})
	return nil
}

// AnswerCallback records the acknowledged callback ID.
func (m *MockService) AnswerCallback(ctx context.Context, callbackID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acked = append(m.acked, callbackID)
	return nil
}

// Sent returns a copy of all recorded messages.
func (m *MockService) Sent() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentMessage(nil), m.sent...)
}

// LastSent returns the most recent message, or a zero value if none were sent.
func (m *MockService) LastSent() SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return SentMessage{}
	}
	return m.sent[len(m.sent)-1]
}

// Acked returns a copy of all acknowledged callback IDs.
func (m *MockService) Acked() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.acked...)
}
