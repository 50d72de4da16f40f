package flow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yahahealth/yaha/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Food flow callback tokens.
const (
	tokenFoodMealTypePrefix = "food_mealtype_"
	tokenFoodMealTypeSkip   = "food_mealtype_skip"
	tokenFoodMacrosYes      = "food_macros_yes"
	tokenFoodMacrosNo       = "food_macros_no"
	tokenFoodNotesYes       = "food_notes_yes"
	tokenFoodNotesNo        = "food_notes_no"
	tokenFoodConfirm        = "food_confirm"
	tokenFoodEdit           = "food_edit"
	tokenFoodCancel         = "food_cancel"
)

var foodMealTypes = []string{"breakfast", "lunch", "dinner", "snack"}

// FoodFlow walks a user through logging a meal: meal type, description,
// optional macros, optional notes, then preview.
type FoodFlow struct {
	norm *Normalizer
}

// NewFoodFlow creates the food wizard.
func NewFoodFlow(norm *Normalizer) *FoodFlow {
	return &FoodFlow{norm: norm}
}

func (f *FoodFlow) Type() models.FlowType       { return models.FlowFood }
func (f *FoodFlow) Prefix() string              { return "food_" }
func (f *FoodFlow) ConfirmToken() string        { return tokenFoodConfirm }
func (f *FoodFlow) Container() models.Container { return models.ContainerFood }

// Start begins a fresh food flow.
func (f *FoodFlow) Start(chatID int64) Reply {
	st := newState(models.FlowFood, models.StepFoodMealType)
	return Reply{
		Text:     "🍽 What kind of meal is this?",
		Keyboard: foodMealTypeKeyboard(),
		Next:     st,
	}
}

func foodMealTypeKeyboard() *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🌅 Breakfast", tokenFoodMealTypePrefix+"breakfast"),
			tgbotapi.NewInlineKeyboardButtonData("🌞 Lunch", tokenFoodMealTypePrefix+"lunch"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🌙 Dinner", tokenFoodMealTypePrefix+"dinner"),
			tgbotapi.NewInlineKeyboardButtonData("🍿 Snack", tokenFoodMealTypePrefix+"snack"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⏭ Skip", tokenFoodMealTypeSkip),
		),
	)
	return &kb
}

// HandleCallback processes button presses during the food flow.
func (f *FoodFlow) HandleCallback(ctx context.Context, chatID int64, token string, st *models.ConversationState) Reply {
	if st == nil || st.Food == nil {
		return Reply{Text: replyLostTrack}
	}

	if token == tokenFoodCancel {
		return Reply{Text: "Cancelled. Nothing was saved."}
	}

	switch st.Step {
	case models.StepFoodMealType:
		if token == tokenFoodMealTypeSkip {
			return f.askDescription(st)
		}
		if mealType, ok := strings.CutPrefix(token, tokenFoodMealTypePrefix); ok {
			for _, known := range foodMealTypes {
				if mealType == known {
					st.Food.MealType = &mealType
					return f.askDescription(st)
				}
			}
		}

	case models.StepFoodMacroChoice:
		switch token {
		case tokenFoodMacrosYes:
			return Reply{
				Text: "🔥 How many calories? (or say \"skip\")",
				Next: advance(st, models.StepFoodCalories),
			}
		case tokenFoodMacrosNo:
			return f.askNotesChoice(st)
		}

	case models.StepFoodNotesChoice:
		switch token {
		case tokenFoodNotesYes:
			return Reply{
				Text: "📝 Go ahead, add your note.",
				Next: advance(st, models.StepFoodNotes),
			}
		case tokenFoodNotesNo:
			return f.preview(st)
		}

	case models.StepPreview:
		if token == tokenFoodEdit {
			return Reply{
				Text:     "✏️ Let's go over it again. What kind of meal is this?",
				Keyboard: foodMealTypeKeyboard(),
				Next:     advance(st, models.StepFoodMealType),
			}
		}
	}

	return Reply{Text: replyNotUnderstood, Next: st}
}

// HandleText processes free text during the food flow.
func (f *FoodFlow) HandleText(ctx context.Context, chatID int64, text string, st *models.ConversationState) Reply {
	if st == nil || st.Food == nil {
		return Reply{Text: replyLostTrack}
	}

	switch st.Step {
	case models.StepFoodMealType:
		// Typing at the meal-type prompt is treated as the description.
		if strings.TrimSpace(text) == "" || isSkipWord(text) {
			return Reply{
				Text:     "Please pick a meal type, or just describe what you ate.",
				Keyboard: foodMealTypeKeyboard(),
				Next:     st,
			}
		}
		st.Food.MealName = strings.TrimSpace(text)
		return f.askMacrosChoice(st)

	case models.StepFoodDescription:
		if strings.TrimSpace(text) == "" || isSkipWord(text) {
			return Reply{Text: "I need at least a short description of the meal.", Next: st}
		}
		st.Food.MealName = strings.TrimSpace(text)
		return f.askMacrosChoice(st)

	case models.StepFoodCalories:
		return f.handleCalories(ctx, text, st)

	case models.StepFoodProtein:
		return f.handleMacro(ctx, text, st, &st.Food.ProteinG, models.StepFoodProtein)

	case models.StepFoodCarbs:
		return f.handleMacro(ctx, text, st, &st.Food.CarbsG, models.StepFoodCarbs)

	case models.StepFoodFat:
		return f.handleMacro(ctx, text, st, &st.Food.FatG, models.StepFoodFat)

	case models.StepFoodFiber:
		return f.handleMacro(ctx, text, st, &st.Food.FiberG, models.StepFoodFiber)

	case models.StepFoodNotes:
		if !isSkipWord(text) && strings.TrimSpace(text) != "" {
			notes := strings.TrimSpace(text)
			st.Food.Notes = &notes
		}
		return f.preview(st)

	case models.StepFoodMacroChoice, models.StepFoodNotesChoice, models.StepPreview:
		return Reply{Text: replyNotUnderstood, Next: st}
	}

	return Reply{Text: replyLostTrack}
}

func (f *FoodFlow) askDescription(st *models.ConversationState) Reply {
	return Reply{
		Text: "🥗 What did you eat?",
		Next: advance(st, models.StepFoodDescription),
	}
}

func (f *FoodFlow) askMacrosChoice(st *models.ConversationState) Reply {
	return Reply{
		Text:     "Do you want to add calories and macros?",
		Keyboard: yesNoKeyboard("Yes", tokenFoodMacrosYes, "No", tokenFoodMacrosNo),
		Next:     advance(st, models.StepFoodMacroChoice),
	}
}

func (f *FoodFlow) askNotesChoice(st *models.ConversationState) Reply {
	return Reply{
		Text:     "Anything to note about this meal?",
		Keyboard: yesNoKeyboard("Yes", tokenFoodNotesYes, "No", tokenFoodNotesNo),
		Next:     advance(st, models.StepFoodNotesChoice),
	}
}

// handleCalories accepts either a bare number or a full macro description
// ("650 kcal, 40g protein"), filling every field the normalizer extracted
// and skipping the corresponding prompts.
func (f *FoodFlow) handleCalories(ctx context.Context, text string, st *models.ConversationState) Reply {
	ex, err := f.norm.Normalize(ctx, text, KindMacros, st.Food.Record())
	if err == nil {
		if ex.Skip {
			return f.nextMacroStep(st)
		}
		got := false
		if ex.Calories != nil {
			st.Food.Calories = ex.Calories
			got = true
		}
		if ex.Protein != nil {
			st.Food.ProteinG = ex.Protein
			got = true
		}
		if ex.Carbs != nil {
			st.Food.CarbsG = ex.Carbs
			got = true
		}
		if ex.Fat != nil {
			st.Food.FatG = ex.Fat
			got = true
		}
		if ex.Fiber != nil {
			st.Food.FiberG = ex.Fiber
			got = true
		}
		if got {
			return f.nextMacroStep(st)
		}
	}
	if v, ok := parseNumber(text); ok {
		st.Food.Calories = &v
		return f.nextMacroStep(st)
	}
	return Reply{Text: "I couldn't read a calorie count there. Try a number, or say \"skip\".", Next: st}
}

func (f *FoodFlow) handleMacro(ctx context.Context, text string, st *models.ConversationState, field **float64, step models.Step) Reply {
	v, skipped, ok := f.norm.normalizeNumber(ctx, text, KindNumber)
	if !ok {
		return Reply{Text: "I couldn't read a number there. Try again, or say \"skip\".", Next: st}
	}
	if !skipped {
		*field = v
	}
	return f.nextMacroStepAfter(st, step)
}

// nextMacroStep advances to the first macro field not yet filled, or to the
// notes choice when every remaining field already has a value.
func (f *FoodFlow) nextMacroStep(st *models.ConversationState) Reply {
	return f.nextMacroStepAfter(st, models.StepFoodCalories)
}

func (f *FoodFlow) nextMacroStepAfter(st *models.ConversationState, after models.Step) Reply {
	order := []struct {
		step   models.Step
		filled bool
		prompt string
	}{
		{models.StepFoodCalories, st.Food.Calories != nil, "🔥 How many calories? (or say \"skip\")"},
		{models.StepFoodProtein, st.Food.ProteinG != nil, "💪 Protein in grams? (or say \"skip\")"},
		{models.StepFoodCarbs, st.Food.CarbsG != nil, "🍞 Carbs in grams? (or say \"skip\")"},
		{models.StepFoodFat, st.Food.FatG != nil, "🥑 Fat in grams? (or say \"skip\")"},
		{models.StepFoodFiber, st.Food.FiberG != nil, "🌾 Fiber in grams? (or say \"skip\")"},
	}
	passed := false
	for _, entry := range order {
		if !passed {
			if entry.step == after {
				passed = true
			}
			continue
		}
		if !entry.filled {
			return Reply{Text: entry.prompt, Next: advance(st, entry.step)}
		}
	}
	return f.askNotesChoice(st)
}

// preview renders the accumulated meal and moves to the confirm step.
func (f *FoodFlow) preview(st *models.ConversationState) Reply {
	d := st.Food
	var b strings.Builder
	b.WriteString("🍽 Here's your meal:\n")
	fmt.Fprintf(&b, "Meal: %s\n", d.MealName)
	fmt.Fprintf(&b, "Type: %s\n", fmtString(d.MealType))
	fmt.Fprintf(&b, "Calories: %s\n", fmtFloat(d.Calories, "kcal"))
	fmt.Fprintf(&b, "Protein: %s\n", fmtFloat(d.ProteinG, "g"))
	fmt.Fprintf(&b, "Carbs: %s\n", fmtFloat(d.CarbsG, "g"))
	fmt.Fprintf(&b, "Fat: %s\n", fmtFloat(d.FatG, "g"))
	fmt.Fprintf(&b, "Fiber: %s\n", fmtFloat(d.FiberG, "g"))
	fmt.Fprintf(&b, "Notes: %s\n", fmtString(d.Notes))
	b.WriteString("\nSave this entry?")
	return Reply{
		Text:     b.String(),
		Keyboard: confirmKeyboard("food"),
		Next:     advance(st, models.StepPreview),
	}
}

// BuildRecord assembles the food table row.
func (f *FoodFlow) BuildRecord(st *models.ConversationState, chatID int64, now time.Time) models.Record {
	r := st.Food.Record()
	r.Stamp(chatID, now)
	return r
}
