package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/yahahealth/yaha/internal/models"
	"github.com/yahahealth/yaha/internal/parser"
	"github.com/yahahealth/yaha/internal/session"
	"github.com/yahahealth/yaha/internal/store"
	"github.com/yahahealth/yaha/internal/telegram"
)

const (
	replyStaleButton  = "That button looks like it's from an earlier conversation. Let's start fresh."
	replySaved        = "Saved ✅"
	replySaveFailed   = "I couldn't save that just now. Give it another try in a moment."
	replyFallbackHint = "I track food, sleep and exercise. Pick one below, or just tell me things like \"ran 5k\" or \"slept 7 hours\"."
)

// DispatcherOpts holds configuration for the dispatcher.
type DispatcherOpts struct {
	Clock func() time.Time
}

// DispatcherOption configures the dispatcher.
type DispatcherOption func(*DispatcherOpts)

// WithClock overrides the time source (for tests).
func WithClock(clock func() time.Time) DispatcherOption {
	return func(o *DispatcherOpts) { o.Clock = clock }
}

// Dispatcher routes incoming Telegram updates to the right flow handler and
// owns everything the handlers do not: session persistence, confirm-time
// inserts, the free-text fallback and the shadow log.
type Dispatcher struct {
	sessions   session.Store
	records    store.Store
	msg        telegram.Service
	classifier *parser.Parser
	flows      map[models.FlowType]Handler
	now        func() time.Time
}

// NewDispatcher wires the dispatcher. classifier may be nil when free-text
// parsing is disabled.
func NewDispatcher(sessions session.Store, records store.Store, msg telegram.Service, classifier *parser.Parser, handlers []Handler, opts ...DispatcherOption) *Dispatcher {
	cfg := DispatcherOpts{Clock: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	flows := make(map[models.FlowType]Handler, len(handlers))
	for _, h := range handlers {
		flows[h.Type()] = h
	}
	return &Dispatcher{
		sessions:   sessions,
		records:    records,
		msg:        msg,
		classifier: classifier,
		flows:      flows,
		now:        cfg.Clock,
	}
}

// HandleCallback processes one inline-keyboard press.
func (d *Dispatcher) HandleCallback(ctx context.Context, chatID int64, callbackID, token string) error {
	if err := d.msg.AnswerCallback(ctx, callbackID); err != nil {
		slog.Warn("Dispatcher failed to ack callback", "error", err, "chatID", chatID)
	}
	slog.Debug("Dispatcher handling callback", "chatID", chatID, "token", token)

	switch token {
	case TokenMainMenu:
		return d.msg.SendMessage(ctx, chatID, MainMenuText, MainMenu())
	case TokenLogFood, TokenStartFood:
		return d.startFlow(ctx, chatID, models.FlowFood)
	case TokenLogSleep, TokenStartSleep:
		return d.startFlow(ctx, chatID, models.FlowSleep)
	case TokenLogExercise, TokenStartExercise:
		return d.startFlow(ctx, chatID, models.FlowExercise)
	case TokenViewDay:
		return d.viewDay(ctx, chatID)
	}

	h := d.handlerForToken(token)
	if h == nil {
		slog.Warn("Dispatcher received unroutable callback", "chatID", chatID, "token", token)
		return d.msg.SendMessage(ctx, chatID, replyStaleButton+"\n\n"+MainMenuText, MainMenu())
	}

	st, err := d.sessions.Get(ctx, chatID)
	if err != nil {
		slog.Error("Dispatcher failed to load session", "error", err, "chatID", chatID)
		return d.msg.SendMessage(ctx, chatID, replySaveFailed, nil)
	}

	// A flow token only means something inside its own live flow. Anything
	// else is a press on a stale keyboard; in particular a stale confirm
	// must never produce a second insert.
	if st == nil || st.Flow != h.Type() {
		return d.msg.SendMessage(ctx, chatID, replyStaleButton+"\n\n"+MainMenuText, MainMenu())
	}

	if st.Step == models.StepPreview && token == h.ConfirmToken() {
		return d.confirm(ctx, chatID, h, st)
	}

	return d.deliver(ctx, chatID, h.HandleCallback(ctx, chatID, token, st))
}

// HandleText processes one plain text message.
func (d *Dispatcher) HandleText(ctx context.Context, chatID int64, text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	slog.Debug("Dispatcher handling text", "chatID", chatID)

	switch normalizeCommand(trimmed) {
	case "start", "menu", "help":
		return d.msg.SendMessage(ctx, chatID, MainMenuText, MainMenu())
	case "cancel":
		if err := d.sessions.Clear(ctx, chatID); err != nil {
			slog.Error("Dispatcher failed to clear session", "error", err, "chatID", chatID)
		}
		return d.msg.SendMessage(ctx, chatID, "Cancelled. Nothing was saved.\n\n"+MainMenuText, MainMenu())
	case "food":
		return d.startFlow(ctx, chatID, models.FlowFood)
	case "sleep":
		return d.startFlow(ctx, chatID, models.FlowSleep)
	case "exercise":
		return d.startFlow(ctx, chatID, models.FlowExercise)
	case "day":
		return d.viewDay(ctx, chatID)
	}

	st, err := d.sessions.Get(ctx, chatID)
	if err != nil {
		slog.Error("Dispatcher failed to load session", "error", err, "chatID", chatID)
		return d.msg.SendMessage(ctx, chatID, replySaveFailed, nil)
	}

	if st != nil {
		h := d.flows[st.Flow]
		if h == nil {
			slog.Error("Dispatcher found session for unregistered flow", "chatID", chatID, "flow", st.Flow)
			if err := d.sessions.Clear(ctx, chatID); err != nil {
				slog.Error("Dispatcher failed to clear session", "error", err, "chatID", chatID)
			}
			return d.msg.SendMessage(ctx, chatID, replyLostTrack+"\n\n"+MainMenuText, MainMenu())
		}
		return d.deliver(ctx, chatID, h.HandleText(ctx, chatID, trimmed, st))
	}

	return d.fallback(ctx, chatID, trimmed)
}

// startFlow begins a flow, overwriting any in-progress one. Starting over is
// what a user reaching for a start command mid-flow almost always wants.
func (d *Dispatcher) startFlow(ctx context.Context, chatID int64, flow models.FlowType) error {
	h := d.flows[flow]
	if h == nil {
		return fmt.Errorf("no handler registered for flow %q", flow)
	}
	return d.deliver(ctx, chatID, h.Start(chatID))
}

// confirm performs the single insert that completes a flow. The session is
// cleared whether the insert succeeds or not, so a later tap on the same
// confirm button reads as stale rather than a second insert.
func (d *Dispatcher) confirm(ctx context.Context, chatID int64, h Handler, st *models.ConversationState) error {
	rec := h.BuildRecord(st, chatID, d.now())
	insertErr := d.records.Insert(ctx, h.Container(), rec)
	if err := d.sessions.Clear(ctx, chatID); err != nil {
		slog.Error("Dispatcher failed to clear session after confirm", "error", err, "chatID", chatID)
	}
	if insertErr != nil {
		slog.Error("Dispatcher insert failed", "error", insertErr, "chatID", chatID, "container", h.Container())
		return d.msg.SendMessage(ctx, chatID, replySaveFailed+"\n\n"+insertErr.Error(), MainMenu())
	}
	slog.Info("Dispatcher saved record", "chatID", chatID, "container", h.Container())
	return d.msg.SendMessage(ctx, chatID, replySaved+"\n\n"+MainMenuText, MainMenu())
}

// deliver persists the handler's next state and sends its reply.
func (d *Dispatcher) deliver(ctx context.Context, chatID int64, r Reply) error {
	if r.Next != nil {
		if err := d.sessions.Set(ctx, chatID, r.Next); err != nil {
			slog.Error("Dispatcher failed to persist session", "error", err, "chatID", chatID)
			return d.msg.SendMessage(ctx, chatID, replySaveFailed, nil)
		}
	} else {
		if err := d.sessions.Clear(ctx, chatID); err != nil {
			slog.Error("Dispatcher failed to clear session", "error", err, "chatID", chatID)
		}
	}
	return d.msg.SendMessage(ctx, chatID, r.Text, r.Keyboard)
}

// fallback classifies free text from a chat with no active flow. Every
// attempt lands in the shadow log regardless of outcome.
func (d *Dispatcher) fallback(ctx context.Context, chatID int64, text string) error {
	parsed, err := d.classifier.Parse(ctx, text)
	if err != nil {
		if !errors.Is(err, parser.ErrDisabled) {
			slog.Error("Dispatcher fallback parse failed", "error", err, "chatID", chatID)
		}
		d.shadowLog(ctx, models.Entry{ChatID: chatID, RawText: text, Error: err.Error()})
		return d.msg.SendMessage(ctx, chatID, replyFallbackHint, MainMenu())
	}

	entry := models.Entry{
		ChatID:    chatID,
		RawText:   text,
		Parsed:    parsed.MarshalData(),
		Container: parsed.Container,
	}

	switch parsed.Container {
	case models.ContainerIgnore:
		d.shadowLog(ctx, entry)
		return d.msg.SendMessage(ctx, chatID, "👋 "+MainMenuText, MainMenu())
	case models.ContainerUnknown:
		d.shadowLog(ctx, entry)
		return d.msg.SendMessage(ctx, chatID, replyFallbackHint, MainMenu())
	}

	rec := models.Record(parsed.Data)
	rec.Stamp(chatID, d.now())
	if err := d.records.Insert(ctx, parsed.Container, rec); err != nil {
		slog.Error("Dispatcher fallback insert failed", "error", err, "chatID", chatID, "container", parsed.Container)
		entry.Error = err.Error()
		d.shadowLog(ctx, entry)
		return d.msg.SendMessage(ctx, chatID, replySaveFailed, nil)
	}
	d.shadowLog(ctx, entry)
	slog.Info("Dispatcher saved fallback record", "chatID", chatID, "container", parsed.Container)
	return d.msg.SendMessage(ctx, chatID, parser.BuildReply(parsed), nil)
}

// shadowLog writes an entries row. Failures are logged and swallowed so the
// shadow log can never break the reply path.
func (d *Dispatcher) shadowLog(ctx context.Context, entry models.Entry) {
	if err := d.records.LogEntry(ctx, entry); err != nil {
		slog.Error("Dispatcher failed to write shadow log", "error", err, "chatID", entry.ChatID)
	}
}

// viewDay renders today's saved records across all containers.
func (d *Dispatcher) viewDay(ctx context.Context, chatID int64) error {
	date := d.now().UTC().Format("2006-01-02")
	var b strings.Builder
	fmt.Fprintf(&b, "📅 Your log for %s:\n", date)
	total := 0

	sections := []struct {
		container models.Container
		title     string
		line      func(models.Record) string
	}{
		{models.ContainerFood, "🍽 Food", foodLine},
		{models.ContainerSleep, "😴 Sleep", sleepLine},
		{models.ContainerExercise, "🏃 Exercise", exerciseLine},
	}
	for _, sec := range sections {
		recs, err := d.records.SelectDay(ctx, sec.container, chatID, date)
		if err != nil {
			slog.Error("Dispatcher day query failed", "error", err, "chatID", chatID, "container", sec.container)
			continue
		}
		if len(recs) == 0 {
			continue
		}
		b.WriteString("\n" + sec.title + "\n")
		for _, r := range recs {
			b.WriteString("• " + sec.line(r) + "\n")
			total++
		}
	}

	if total == 0 {
		return d.msg.SendMessage(ctx, chatID, "Nothing logged yet today. "+MainMenuText, MainMenu())
	}
	return d.msg.SendMessage(ctx, chatID, b.String(), MainMenu())
}

func foodLine(r models.Record) string {
	line, _ := r["meal_name"].(string)
	if line == "" {
		line = "meal"
	}
	if mt, ok := r["meal_type"].(string); ok && mt != "" {
		line += " (" + mt + ")"
	}
	if kcal, ok := recordNumber(r, "calories"); ok {
		line += fmt.Sprintf(", %g kcal", kcal)
	}
	return line
}

func sleepLine(r models.Record) string {
	line := "sleep"
	if hrs, ok := recordNumber(r, "duration_hr"); ok {
		line = fmt.Sprintf("%g h", hrs)
	}
	if score, ok := recordNumber(r, "sleep_score"); ok {
		line += fmt.Sprintf(", quality %g/5", score)
	}
	return line
}

func exerciseLine(r models.Record) string {
	line, _ := r["workout_type"].(string)
	if line == "" {
		line = "workout"
	}
	if mins, ok := recordNumber(r, "duration_min"); ok {
		line += fmt.Sprintf(", %g min", mins)
	}
	if km, ok := recordNumber(r, "distance_km"); ok {
		line += fmt.Sprintf(", %g km", km)
	}
	return line
}

func recordNumber(r models.Record, key string) (float64, bool) {
	switch v := r[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// handlerForToken routes a callback token by its flow prefix.
func (d *Dispatcher) handlerForToken(token string) Handler {
	for _, h := range d.flows {
		if strings.HasPrefix(token, h.Prefix()) {
			return h
		}
	}
	return nil
}

// normalizeCommand collapses command aliases ("/food", "log food", "add
// food") to a single verb, or returns "" when the text is not a command.
func normalizeCommand(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	s = strings.TrimPrefix(s, "/")
	if i := strings.Index(s, "@"); i > 0 && !strings.Contains(s, " ") {
		s = s[:i] // strip bot mention suffix, e.g. /food@yaha_bot
	}
	switch s {
	case "start", "menu", "help", "cancel", "day", "food", "sleep", "exercise":
		return s
	case "today":
		return "day"
	case "log food", "add food", "log meal", "add meal":
		return "food"
	case "log sleep", "add sleep":
		return "sleep"
	case "log exercise", "add exercise", "log workout", "add workout":
		return "exercise"
	}
	return ""
}
