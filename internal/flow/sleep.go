package flow

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/yahahealth/yaha/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sleep flow callback tokens.
const (
	tokenSleepQualityPrefix = "sleep_q_"
	tokenSleepEnergyPrefix  = "sleep_e_"
	tokenSleepEnergySkip    = "sleep_e_skip"
	tokenSleepWindowSkip    = "sleep_window_skip"
	tokenSleepHRSkip        = "sleep_hr_skip"
	tokenSleepConfirm       = "sleep_confirm"
	tokenSleepEdit          = "sleep_edit"
	tokenSleepCancel        = "sleep_cancel"
)

// SleepFlow walks a user through logging last night's sleep: quality score,
// duration, energy, optional sleep window, resting heart rate and notes.
type SleepFlow struct {
	norm *Normalizer
}

// NewSleepFlow creates the sleep wizard.
func NewSleepFlow(norm *Normalizer) *SleepFlow {
	return &SleepFlow{norm: norm}
}

func (f *SleepFlow) Type() models.FlowType       { return models.FlowSleep }
func (f *SleepFlow) Prefix() string              { return "sleep_" }
func (f *SleepFlow) ConfirmToken() string        { return tokenSleepConfirm }
func (f *SleepFlow) Container() models.Container { return models.ContainerSleep }

// Start begins a fresh sleep flow.
func (f *SleepFlow) Start(chatID int64) Reply {
	st := newState(models.FlowSleep, models.StepSleepQuality)
	return Reply{
		Text:     "😴 How would you rate last night's sleep? (0-100)",
		Keyboard: sleepQualityKeyboard(),
		Next:     st,
	}
}

// Scores are on a 0-100 scale with bucket buttons for quick answers; typed
// text accepts any value in range.
func sleepQualityKeyboard() *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Terrible (0-40)", tokenSleepQualityPrefix+"20"),
			tgbotapi.NewInlineKeyboardButtonData("Okay (40-70)", tokenSleepQualityPrefix+"55"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Good (70-85)", tokenSleepQualityPrefix+"80"),
			tgbotapi.NewInlineKeyboardButtonData("Great (85-100)", tokenSleepQualityPrefix+"95"),
		),
	)
	return &kb
}

func sleepEnergyKeyboard() *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Very low (0-30)", tokenSleepEnergyPrefix+"20"),
			tgbotapi.NewInlineKeyboardButtonData("Okay (30-60)", tokenSleepEnergyPrefix+"45"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Good (60-80)", tokenSleepEnergyPrefix+"70"),
			tgbotapi.NewInlineKeyboardButtonData("Great (80-100)", tokenSleepEnergyPrefix+"90"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⏭ Skip", tokenSleepEnergySkip),
		),
	)
	return &kb
}

// HandleCallback processes button presses during the sleep flow.
func (f *SleepFlow) HandleCallback(ctx context.Context, chatID int64, token string, st *models.ConversationState) Reply {
	if st == nil || st.Sleep == nil {
		return Reply{Text: replyLostTrack}
	}

	if token == tokenSleepCancel {
		return Reply{Text: "Cancelled. Nothing was saved."}
	}

	switch st.Step {
	case models.StepSleepQuality:
		if score, ok := parseSleepScoreToken(token, tokenSleepQualityPrefix); ok {
			st.Sleep.SleepScore = &score
			return f.askDuration(st)
		}

	case models.StepSleepEnergy:
		if token == tokenSleepEnergySkip {
			return f.askSleepStart(st)
		}
		if score, ok := parseSleepScoreToken(token, tokenSleepEnergyPrefix); ok {
			st.Sleep.EnergyScore = &score
			return f.askSleepStart(st)
		}

	case models.StepSleepStart:
		if token == tokenSleepWindowSkip {
			// Skipping the window skips both clock questions.
			return f.askRestingHR(st)
		}

	case models.StepSleepRestingHR:
		if token == tokenSleepHRSkip {
			return f.askNotes(st)
		}

	case models.StepPreview:
		if token == tokenSleepEdit {
			return Reply{
				Text:     "✏️ Let's go over it again. How would you rate last night's sleep? (0-100)",
				Keyboard: sleepQualityKeyboard(),
				Next:     advance(st, models.StepSleepQuality),
			}
		}
	}

	return Reply{Text: replyNotUnderstood, Next: st}
}

// HandleText processes free text during the sleep flow.
func (f *SleepFlow) HandleText(ctx context.Context, chatID int64, text string, st *models.ConversationState) Reply {
	if st == nil || st.Sleep == nil {
		return Reply{Text: replyLostTrack}
	}

	switch st.Step {
	case models.StepSleepQuality:
		if score, ok := parseSleepScore(text); ok {
			st.Sleep.SleepScore = &score
			return f.askDuration(st)
		}
		return Reply{
			Text:     "Please pick a sleep quality between 0 and 100.",
			Keyboard: sleepQualityKeyboard(),
			Next:     st,
		}

	case models.StepSleepDuration:
		v, skipped, ok := f.norm.normalizeNumber(ctx, text, KindDuration)
		if !ok || skipped {
			// Duration is required; a skip here is re-prompted.
			return Reply{Text: "I need the hours you slept, like 7.5 or \"about 6 hours\".", Next: st}
		}
		st.Sleep.DurationHr = v
		return f.askEnergy(st)

	case models.StepSleepEnergy:
		if isSkipWord(text) {
			return f.askSleepStart(st)
		}
		if score, ok := parseSleepScore(text); ok {
			st.Sleep.EnergyScore = &score
			return f.askSleepStart(st)
		}
		return Reply{
			Text:     "A score between 0 and 100, or skip.",
			Keyboard: sleepEnergyKeyboard(),
			Next:     st,
		}

	case models.StepSleepStart:
		clock, skipped, ok := f.norm.normalizeClock(ctx, text)
		if !ok {
			return Reply{Text: "What time did you go to bed? Like 23:15 or \"around 11pm\". Or skip.", Next: st}
		}
		if skipped {
			return f.askRestingHR(st)
		}
		st.Sleep.SleepStart = clock
		return Reply{
			Text: "⏰ And what time did you wake up?",
			Next: advance(st, models.StepSleepEnd),
		}

	case models.StepSleepEnd:
		clock, skipped, ok := f.norm.normalizeClock(ctx, text)
		if !ok {
			return Reply{Text: "What time did you wake up? Like 07:00 or \"around 7am\".", Next: st}
		}
		if skipped {
			// Half a window is useless, drop the start too.
			st.Sleep.SleepStart = nil
			return f.askRestingHR(st)
		}
		st.Sleep.SleepEnd = clock
		return f.askRestingHR(st)

	case models.StepSleepRestingHR:
		v, skipped, ok := f.norm.normalizeNumber(ctx, text, KindNumber)
		if !ok {
			return Reply{Text: "Resting heart rate in bpm, like 52. Or skip.", Next: st}
		}
		if !skipped {
			hr := int(*v)
			st.Sleep.RestingHR = &hr
		}
		return f.askNotes(st)

	case models.StepSleepNotes:
		if !isSkipWord(text) && strings.TrimSpace(text) != "" {
			notes := strings.TrimSpace(text)
			st.Sleep.Notes = &notes
		}
		return f.preview(st)

	case models.StepPreview:
		return Reply{Text: replyNotUnderstood, Next: st}
	}

	return Reply{Text: replyLostTrack}
}

func (f *SleepFlow) askDuration(st *models.ConversationState) Reply {
	return Reply{
		Text: "🕐 How many hours did you sleep?",
		Next: advance(st, models.StepSleepDuration),
	}
}

func (f *SleepFlow) askEnergy(st *models.ConversationState) Reply {
	return Reply{
		Text:     "⚡ How's your energy this morning? (0-100)",
		Keyboard: sleepEnergyKeyboard(),
		Next:     advance(st, models.StepSleepEnergy),
	}
}

func (f *SleepFlow) askSleepStart(st *models.ConversationState) Reply {
	return Reply{
		Text:     "🛏 What time did you go to bed? (like 23:15)",
		Keyboard: skipKeyboard(tokenSleepWindowSkip),
		Next:     advance(st, models.StepSleepStart),
	}
}

func (f *SleepFlow) askRestingHR(st *models.ConversationState) Reply {
	return Reply{
		Text:     "❤️ Resting heart rate this morning? (bpm)",
		Keyboard: skipKeyboard(tokenSleepHRSkip),
		Next:     advance(st, models.StepSleepRestingHR),
	}
}

func (f *SleepFlow) askNotes(st *models.ConversationState) Reply {
	return Reply{
		Text: "📝 Anything to note about your sleep? (or say \"skip\")",
		Next: advance(st, models.StepSleepNotes),
	}
}

// preview renders the accumulated sleep record and moves to the confirm step.
func (f *SleepFlow) preview(st *models.ConversationState) Reply {
	d := st.Sleep
	var b strings.Builder
	b.WriteString("😴 Here's your sleep log:\n")
	fmt.Fprintf(&b, "Quality: %s\n", fmtScore100(d.SleepScore))
	fmt.Fprintf(&b, "Duration: %s\n", fmtFloat(d.DurationHr, "h"))
	fmt.Fprintf(&b, "Energy: %s\n", fmtScore100(d.EnergyScore))
	fmt.Fprintf(&b, "Bedtime: %s\n", fmtString(d.SleepStart))
	fmt.Fprintf(&b, "Wake-up: %s\n", fmtString(d.SleepEnd))
	fmt.Fprintf(&b, "Resting HR: %s\n", fmtInt(d.RestingHR, "bpm"))
	fmt.Fprintf(&b, "Notes: %s\n", fmtString(d.Notes))
	b.WriteString("\nSave this entry?")
	return Reply{
		Text:     b.String(),
		Keyboard: confirmKeyboard("sleep"),
		Next:     advance(st, models.StepPreview),
	}
}

// BuildRecord assembles the sleep table row, resolving the clock window
// against the current date.
func (f *SleepFlow) BuildRecord(st *models.ConversationState, chatID int64, now time.Time) models.Record {
	r := st.Sleep.Record(now)
	r.Stamp(chatID, now)
	return r
}

// parseScoreToken extracts a 1..5 score from tokens like "ex_i_4".
func parseScoreToken(token, prefix string) (int, bool) {
	rest, ok := strings.CutPrefix(token, prefix)
	if !ok {
		return 0, false
	}
	return parseScoreText(rest)
}

// parseScoreText parses a bare 1..5 score.
func parseScoreText(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 || n > 5 {
		return 0, false
	}
	return n, true
}

// parseSleepScoreToken extracts a 0..100 score from tokens like "sleep_q_85".
func parseSleepScoreToken(token, prefix string) (int, bool) {
	rest, ok := strings.CutPrefix(token, prefix)
	if !ok {
		return 0, false
	}
	return parseSleepScore(rest)
}

// parseSleepScore parses a bare 0..100 score.
func parseSleepScore(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 || n > 100 {
		return 0, false
	}
	return n, true
}
