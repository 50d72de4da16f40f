package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// webhookHandler receives Telegram update callbacks. It always replies 200
// with an ok envelope: Telegram retries non-2xx responses, so even an
// undecodable payload is logged and acknowledged rather than redelivered
// forever.
func (s *Server) webhookHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		slog.Warn("Server dropping undecodable update", "error", err)
		writeOK(w)
		return
	}

	s.dispatch(r, update)
	writeOK(w)
}

// dispatch routes one update to the flow dispatcher.
func (s *Server) dispatch(r *http.Request, update tgbotapi.Update) {
	ctx := r.Context()

	switch {
	case update.CallbackQuery != nil:
		cb := update.CallbackQuery
		if cb.Message == nil || cb.Message.Chat == nil {
			slog.Warn("Server dropping callback without chat", "updateID", update.UpdateID)
			return
		}
		chatID := cb.Message.Chat.ID
		if err := s.handler.HandleCallback(ctx, chatID, cb.ID, cb.Data); err != nil {
			slog.Error("Server callback handling failed", "error", err, "chatID", chatID)
		}

	case update.Message != nil:
		msg := update.Message
		if msg.Chat == nil || msg.Text == "" {
			slog.Debug("Server dropping non-text message", "updateID", update.UpdateID)
			return
		}
		if err := s.handler.HandleText(ctx, msg.Chat.ID, msg.Text); err != nil {
			slog.Error("Server text handling failed", "error", err, "chatID", msg.Chat.ID)
		}

	default:
		slog.Debug("Server ignoring unsupported update", "updateID", update.UpdateID)
	}
}
