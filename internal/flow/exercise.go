package flow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yahahealth/yaha/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Exercise flow callback tokens.
const (
	tokenExTypePrefix      = "ex_type_"
	tokenExIntensityPrefix = "ex_i_"
	tokenExSkipDuration    = "ex_skip_duration"
	tokenExSkipDistance    = "ex_skip_distance"
	tokenExSkipCalories    = "ex_skip_calories"
	tokenExSkipAvgHR       = "ex_skip_avg_hr"
	tokenExSkipMaxHR       = "ex_skip_max_hr"
	tokenExSkipIntensity   = "ex_skip_intensity"
	tokenExSkipTags        = "ex_skip_tags"
	tokenExConfirm         = "ex_confirm"
	tokenExEdit            = "ex_edit"
	tokenExCancel          = "ex_cancel"
)

var exerciseTypes = map[string]string{
	"run":      "Run",
	"cycling":  "Cycling",
	"swim":     "Swim",
	"strength": "Strength",
	"walk":     "Walk",
	"yoga":     "Yoga",
}

// ExerciseFlow walks a user through logging a workout: type, duration and
// stats, optional intensity, tags and notes.
type ExerciseFlow struct {
	norm *Normalizer
}

// NewExerciseFlow creates the exercise wizard.
func NewExerciseFlow(norm *Normalizer) *ExerciseFlow {
	return &ExerciseFlow{norm: norm}
}

func (f *ExerciseFlow) Type() models.FlowType       { return models.FlowExercise }
func (f *ExerciseFlow) Prefix() string              { return "ex_" }
func (f *ExerciseFlow) ConfirmToken() string        { return tokenExConfirm }
func (f *ExerciseFlow) Container() models.Container { return models.ContainerExercise }

// Start begins a fresh exercise flow.
func (f *ExerciseFlow) Start(chatID int64) Reply {
	st := newState(models.FlowExercise, models.StepExerciseType)
	return Reply{
		Text:     "🏃 What kind of workout was it? Pick one or just type it.",
		Keyboard: exerciseTypeKeyboard(),
		Next:     st,
	}
}

func exerciseTypeKeyboard() *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🏃 Run", tokenExTypePrefix+"run"),
			tgbotapi.NewInlineKeyboardButtonData("🚴 Cycling", tokenExTypePrefix+"cycling"),
			tgbotapi.NewInlineKeyboardButtonData("🏊 Swim", tokenExTypePrefix+"swim"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🏋️ Strength", tokenExTypePrefix+"strength"),
			tgbotapi.NewInlineKeyboardButtonData("🚶 Walk", tokenExTypePrefix+"walk"),
			tgbotapi.NewInlineKeyboardButtonData("🧘 Yoga", tokenExTypePrefix+"yoga"),
		),
	)
	return &kb
}

func exerciseIntensityKeyboard() *tgbotapi.InlineKeyboardMarkup {
	row := make([]tgbotapi.InlineKeyboardButton, 0, 5)
	for i := 1; i <= 5; i++ {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(
			fmt.Sprintf("%d", i), fmt.Sprintf("%s%d", tokenExIntensityPrefix, i)))
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(row...),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⏭ Skip", tokenExSkipIntensity),
		),
	)
	return &kb
}

// HandleCallback processes button presses during the exercise flow.
func (f *ExerciseFlow) HandleCallback(ctx context.Context, chatID int64, token string, st *models.ConversationState) Reply {
	if st == nil || st.Exercise == nil {
		return Reply{Text: replyLostTrack}
	}

	if token == tokenExCancel {
		return Reply{Text: "Cancelled. Nothing was saved."}
	}

	switch st.Step {
	case models.StepExerciseType:
		if key, ok := strings.CutPrefix(token, tokenExTypePrefix); ok {
			if label, known := exerciseTypes[key]; known {
				st.Exercise.WorkoutType = label
				return f.askDuration(st)
			}
		}

	case models.StepExerciseDuration:
		if token == tokenExSkipDuration {
			return f.askDistance(st)
		}

	case models.StepExerciseDistance:
		if token == tokenExSkipDistance {
			return f.askCalories(st)
		}

	case models.StepExerciseCalories:
		if token == tokenExSkipCalories {
			return f.askAvgHR(st)
		}

	case models.StepExerciseAvgHR:
		if token == tokenExSkipAvgHR {
			return f.askMaxHR(st)
		}

	case models.StepExerciseMaxHR:
		if token == tokenExSkipMaxHR {
			return f.askIntensity(st)
		}

	case models.StepExerciseIntensity:
		if token == tokenExSkipIntensity {
			return f.askTags(st)
		}
		if score, ok := parseScoreToken(token, tokenExIntensityPrefix); ok {
			st.Exercise.Intensity = &score
			return f.askTags(st)
		}

	case models.StepExerciseTags:
		if token == tokenExSkipTags {
			return f.askNotes(st)
		}

	case models.StepPreview:
		if token == tokenExEdit {
			return Reply{
				Text:     "✏️ Let's go over it again. What kind of workout was it?",
				Keyboard: exerciseTypeKeyboard(),
				Next:     advance(st, models.StepExerciseType),
			}
		}
	}

	return Reply{Text: replyNotUnderstood, Next: st}
}

// HandleText processes free text during the exercise flow.
func (f *ExerciseFlow) HandleText(ctx context.Context, chatID int64, text string, st *models.ConversationState) Reply {
	if st == nil || st.Exercise == nil {
		return Reply{Text: replyLostTrack}
	}

	switch st.Step {
	case models.StepExerciseType:
		if strings.TrimSpace(text) == "" || isSkipWord(text) {
			return Reply{
				Text:     "I need to know what kind of workout it was.",
				Keyboard: exerciseTypeKeyboard(),
				Next:     st,
			}
		}
		st.Exercise.WorkoutType = strings.TrimSpace(text)
		return f.askDuration(st)

	case models.StepExerciseDuration:
		v, skipped, ok := f.norm.normalizeNumber(ctx, text, KindDuration)
		if !ok {
			return Reply{Text: "How long was the workout in minutes? Like 45. Or skip.", Next: st}
		}
		if !skipped {
			st.Exercise.DurationMin = v
		}
		return f.askDistance(st)

	case models.StepExerciseDistance:
		return f.handleDistance(ctx, text, st)

	case models.StepExerciseCalories:
		v, skipped, ok := f.norm.normalizeNumber(ctx, text, KindNumber)
		if !ok {
			return Reply{Text: "Calories burned, like 320. Or skip.", Next: st}
		}
		if !skipped {
			st.Exercise.Calories = v
		}
		return f.askAvgHR(st)

	case models.StepExerciseAvgHR:
		return f.handleHeartRate(ctx, text, st, &st.Exercise.AvgHR, f.askMaxHR,
			"Average heart rate in bpm, like 132. Or skip.")

	case models.StepExerciseMaxHR:
		return f.handleHeartRate(ctx, text, st, &st.Exercise.MaxHR, f.askIntensity,
			"Max heart rate in bpm, like 171. Or skip.")

	case models.StepExerciseIntensity:
		if isSkipWord(text) {
			return f.askTags(st)
		}
		if score, ok := parseScoreText(text); ok {
			st.Exercise.Intensity = &score
			return f.askTags(st)
		}
		return Reply{
			Text:     "Intensity from 1 to 5, or skip.",
			Keyboard: exerciseIntensityKeyboard(),
			Next:     st,
		}

	case models.StepExerciseTags:
		if !isSkipWord(text) && strings.TrimSpace(text) != "" {
			tags := strings.TrimSpace(text)
			st.Exercise.Tags = &tags
		}
		return f.askNotes(st)

	case models.StepExerciseNotes:
		if !isSkipWord(text) && strings.TrimSpace(text) != "" {
			notes := strings.TrimSpace(text)
			st.Exercise.Notes = &notes
		}
		return f.preview(st)

	case models.StepPreview:
		return Reply{Text: replyNotUnderstood, Next: st}
	}

	return Reply{Text: replyLostTrack}
}

// handleDistance accepts a bare distance or a stats dump ("10k in 52 min,
// 480 kcal"), filling whatever the normalizer extracted.
func (f *ExerciseFlow) handleDistance(ctx context.Context, text string, st *models.ConversationState) Reply {
	ex, err := f.norm.Normalize(ctx, text, KindExerciseStats, st.Exercise.Record())
	if err == nil {
		if ex.Skip {
			return f.askCalories(st)
		}
		got := false
		if ex.Distance != nil {
			st.Exercise.DistanceKm = ex.Distance
			got = true
		}
		if ex.Calories != nil {
			st.Exercise.Calories = ex.Calories
			got = true
		}
		if ex.HeartRate != nil {
			st.Exercise.AvgHR = ex.HeartRate
			got = true
		}
		if got {
			return f.nextStatStep(st)
		}
	}
	if v, ok := parseNumber(text); ok {
		st.Exercise.DistanceKm = &v
		return f.nextStatStep(st)
	}
	return Reply{Text: "Distance in km, like 5.2. Or skip.", Next: st}
}

// nextStatStep moves to the first stat question whose field is still unset.
func (f *ExerciseFlow) nextStatStep(st *models.ConversationState) Reply {
	if st.Exercise.Calories == nil {
		return f.askCalories(st)
	}
	if st.Exercise.AvgHR == nil {
		return f.askAvgHR(st)
	}
	if st.Exercise.MaxHR == nil {
		return f.askMaxHR(st)
	}
	return f.askIntensity(st)
}

func (f *ExerciseFlow) handleHeartRate(ctx context.Context, text string, st *models.ConversationState, field **int, next func(*models.ConversationState) Reply, reprompt string) Reply {
	v, skipped, ok := f.norm.normalizeNumber(ctx, text, KindNumber)
	if !ok {
		return Reply{Text: reprompt, Next: st}
	}
	if !skipped {
		hr := int(*v)
		*field = &hr
	}
	return next(st)
}

func (f *ExerciseFlow) askDuration(st *models.ConversationState) Reply {
	return Reply{
		Text:     "⏱ How long did it take, in minutes?",
		Keyboard: skipKeyboard(tokenExSkipDuration),
		Next:     advance(st, models.StepExerciseDuration),
	}
}

func (f *ExerciseFlow) askDistance(st *models.ConversationState) Reply {
	return Reply{
		Text:     "📏 Distance in km? You can also dump stats like \"10k, 480 kcal, avg 152\".",
		Keyboard: skipKeyboard(tokenExSkipDistance),
		Next:     advance(st, models.StepExerciseDistance),
	}
}

func (f *ExerciseFlow) askCalories(st *models.ConversationState) Reply {
	return Reply{
		Text:     "🔥 Calories burned?",
		Keyboard: skipKeyboard(tokenExSkipCalories),
		Next:     advance(st, models.StepExerciseCalories),
	}
}

func (f *ExerciseFlow) askAvgHR(st *models.ConversationState) Reply {
	return Reply{
		Text:     "❤️ Average heart rate? (bpm)",
		Keyboard: skipKeyboard(tokenExSkipAvgHR),
		Next:     advance(st, models.StepExerciseAvgHR),
	}
}

func (f *ExerciseFlow) askMaxHR(st *models.ConversationState) Reply {
	return Reply{
		Text:     "💓 Max heart rate? (bpm)",
		Keyboard: skipKeyboard(tokenExSkipMaxHR),
		Next:     advance(st, models.StepExerciseMaxHR),
	}
}

func (f *ExerciseFlow) askIntensity(st *models.ConversationState) Reply {
	return Reply{
		Text:     "💪 How intense did it feel? (1 = easy, 5 = all out)",
		Keyboard: exerciseIntensityKeyboard(),
		Next:     advance(st, models.StepExerciseIntensity),
	}
}

func (f *ExerciseFlow) askTags(st *models.ConversationState) Reply {
	return Reply{
		Text:     "🏷 Any tags? (like \"intervals, morning\")",
		Keyboard: skipKeyboard(tokenExSkipTags),
		Next:     advance(st, models.StepExerciseTags),
	}
}

func (f *ExerciseFlow) askNotes(st *models.ConversationState) Reply {
	return Reply{
		Text: "📝 Anything to note about the workout? (or say \"skip\")",
		Next: advance(st, models.StepExerciseNotes),
	}
}

// preview renders the accumulated workout and moves to the confirm step.
func (f *ExerciseFlow) preview(st *models.ConversationState) Reply {
	d := st.Exercise
	var b strings.Builder
	b.WriteString("🏃 Here's your workout:\n")
	fmt.Fprintf(&b, "Type: %s\n", d.WorkoutType)
	fmt.Fprintf(&b, "Duration: %s\n", fmtFloat(d.DurationMin, "min"))
	fmt.Fprintf(&b, "Distance: %s\n", fmtFloat(d.DistanceKm, "km"))
	fmt.Fprintf(&b, "Calories: %s\n", fmtFloat(d.Calories, "kcal"))
	fmt.Fprintf(&b, "Avg HR: %s\n", fmtInt(d.AvgHR, "bpm"))
	fmt.Fprintf(&b, "Max HR: %s\n", fmtInt(d.MaxHR, "bpm"))
	fmt.Fprintf(&b, "Intensity: %s\n", fmtScore(d.Intensity))
	fmt.Fprintf(&b, "Tags: %s\n", fmtString(d.Tags))
	fmt.Fprintf(&b, "Notes: %s\n", fmtString(d.Notes))
	b.WriteString("\nSave this entry?")
	return Reply{
		Text:     b.String(),
		Keyboard: confirmKeyboard("ex"),
		Next:     advance(st, models.StepPreview),
	}
}

// BuildRecord assembles the exercise table row.
func (f *ExerciseFlow) BuildRecord(st *models.ConversationState, chatID int64, now time.Time) models.Record {
	r := st.Exercise.Record()
	r.Stamp(chatID, now)
	return r
}
