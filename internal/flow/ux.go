package flow

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Callback tokens shared across flows.
const (
	TokenMainMenu    = "main_menu"
	TokenLogFood     = "log_food"
	TokenLogSleep    = "log_sleep"
	TokenLogExercise = "log_exercise"
	TokenViewDay     = "view_day"

	// Legacy aliases kept for old inline keyboards still in chat history.
	TokenStartFood     = "start_food"
	TokenStartSleep    = "start_sleep"
	TokenStartExercise = "start_exercise"
)

// MainMenuText is the greeting shown with the main menu keyboard.
const MainMenuText = "What would you like to log?"

// MainMenu builds the four-button top-level keyboard.
func MainMenu() *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🍽 Food", TokenLogFood),
			tgbotapi.NewInlineKeyboardButtonData("😴 Sleep", TokenLogSleep),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🏃 Exercise", TokenLogExercise),
			tgbotapi.NewInlineKeyboardButtonData("📅 Today", TokenViewDay),
		),
	)
	return &kb
}

// confirmKeyboard builds the preview keyboard for a flow, e.g. food_confirm,
// food_edit, food_cancel.
func confirmKeyboard(prefix string) *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Save", prefix+"_confirm"),
			tgbotapi.NewInlineKeyboardButtonData("✏️ Edit", prefix+"_edit"),
			tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", prefix+"_cancel"),
		),
	)
	return &kb
}

// skipKeyboard offers a single skip button carrying the given token.
func skipKeyboard(token string) *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⏭ Skip", token),
		),
	)
	return &kb
}

// yesNoKeyboard offers a yes/no pair with the given tokens.
func yesNoKeyboard(yesLabel, yesToken, noLabel, noToken string) *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(yesLabel, yesToken),
			tgbotapi.NewInlineKeyboardButtonData(noLabel, noToken),
		),
	)
	return &kb
}

// Preview formatting. Absent optional fields render as a dash so the user
// can see at a glance what was skipped.

const previewDash = "—"

func fmtString(v *string) string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return previewDash
	}
	return *v
}

func fmtFloat(v *float64, unit string) string {
	if v == nil {
		return previewDash
	}
	s := fmt.Sprintf("%g", *v)
	if unit != "" {
		s += " " + unit
	}
	return s
}

func fmtInt(v *int, unit string) string {
	if v == nil {
		return previewDash
	}
	s := fmt.Sprintf("%d", *v)
	if unit != "" {
		s += " " + unit
	}
	return s
}

func fmtScore(v *int) string {
	if v == nil {
		return previewDash
	}
	return fmt.Sprintf("%d/5", *v)
}

func fmtScore100(v *int) string {
	if v == nil {
		return previewDash
	}
	return fmt.Sprintf("%d/100", *v)
}
