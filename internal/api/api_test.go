package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/yahahealth/yaha/internal/testutil"
)

type recordedCallback struct {
	ChatID     int64
	CallbackID string
	Token      string
}

type recordedText struct {
	ChatID int64
	Text   string
}

type mockHandler struct {
	mu        sync.Mutex
	callbacks []recordedCallback
	texts     []recordedText
	err       error
}

func (m *mockHandler) HandleCallback(ctx context.Context, chatID int64, callbackID, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, recordedCallback{chatID, callbackID, token})
	return m.err
}

func (m *mockHandler) HandleText(ctx context.Context, chatID int64, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.texts = append(m.texts, recordedText{chatID, text})
	return m.err
}

func newTestServer(h *mockHandler) *Server {
	return NewServer(h)
}

func postWebhook(t *testing.T, s *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook/telegram", strings.NewReader(body))
	w := httptest.NewRecorder()
	s.webhookHandler(w, req)
	return w
}

func TestWebhookRoutesTextMessage(t *testing.T) {
	h := &mockHandler{}
	s := newTestServer(h)

	w := postWebhook(t, s, `{"update_id":1,"message":{"message_id":10,"chat":{"id":42},"text":"ran 5k"}}`)
	testutil.AssertHTTPStatus(t, http.StatusOK, w.Code, "text update")
	if len(h.texts) != 1 || h.texts[0].ChatID != 42 || h.texts[0].Text != "ran 5k" {
		t.Errorf("text not routed: %+v", h.texts)
	}
	testutil.AssertJSONResponse(t, w, "ok")
}

func TestWebhookRoutesCallbackQuery(t *testing.T) {
	h := &mockHandler{}
	s := newTestServer(h)

	w := postWebhook(t, s, `{"update_id":2,"callback_query":{"id":"cb99","data":"log_food","message":{"message_id":11,"chat":{"id":42}}}}`)
	testutil.AssertHTTPStatus(t, http.StatusOK, w.Code, "callback update")
	if len(h.callbacks) != 1 {
		t.Fatalf("callback not routed: %+v", h.callbacks)
	}
	got := h.callbacks[0]
	if got.ChatID != 42 || got.CallbackID != "cb99" || got.Token != "log_food" {
		t.Errorf("wrong callback routing: %+v", got)
	}
}

func TestWebhookAcknowledgesBadPayload(t *testing.T) {
	h := &mockHandler{}
	s := newTestServer(h)

	// Telegram redelivers non-2xx responses, so a permanently malformed
	// update must still be acknowledged or it would loop forever.
	w := postWebhook(t, s, `{not json`)
	testutil.AssertHTTPStatus(t, http.StatusOK, w.Code, "bad payload")
	testutil.AssertJSONResponse(t, w, "ok")
	if len(h.texts)+len(h.callbacks) != 0 {
		t.Error("bad payload must not reach the handler")
	}
}

func TestWebhookRejectsWrongMethod(t *testing.T) {
	s := newTestServer(&mockHandler{})

	req := httptest.NewRequest(http.MethodGet, "/webhook/telegram", nil)
	w := httptest.NewRecorder()
	s.webhookHandler(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", w.Code)
	}
}

func TestWebhookIgnoresNonTextUpdates(t *testing.T) {
	h := &mockHandler{}
	s := newTestServer(h)

	// A photo message carries no text; an edited message carries no message.
	for _, body := range []string{
		`{"update_id":3,"message":{"message_id":12,"chat":{"id":42}}}`,
		`{"update_id":4,"edited_message":{"message_id":13,"chat":{"id":42},"text":"edited"}}`,
	} {
		w := postWebhook(t, s, body)
		if w.Code != http.StatusOK {
			t.Errorf("ignored updates still get 200, got %d for %s", w.Code, body)
		}
	}
	if len(h.texts)+len(h.callbacks) != 0 {
		t.Errorf("non-text updates must not reach the handler: %+v %+v", h.texts, h.callbacks)
	}
}

func TestWebhookSwallowsHandlerErrors(t *testing.T) {
	h := &mockHandler{err: errors.New("downstream broken")}
	s := newTestServer(h)

	w := postWebhook(t, s, `{"update_id":5,"message":{"message_id":14,"chat":{"id":42},"text":"hi"}}`)
	if w.Code != http.StatusOK {
		t.Errorf("handler failures must not trigger Telegram retries, got %d", w.Code)
	}
}

func TestHealthHandler(t *testing.T) {
	s := newTestServer(&mockHandler{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.healthHandler(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/health", nil)
	w = httptest.NewRecorder()
	s.healthHandler(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", w.Code)
	}
}
