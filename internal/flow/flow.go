// Package flow implements the guided logging wizards and their dispatcher.
//
// Each flow is a linear sequence of steps driven by inline-keyboard callbacks
// and free text, ending in a preview/confirm/edit/cancel protocol. Handlers
// are pure with respect to storage: they receive the current conversation
// state and return a Reply; the dispatcher owns persistence and sending.
package flow

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/yahahealth/yaha/internal/models"
)

// Reply is the return contract of every flow handler call. Next is the state
// to persist; a nil Next means the flow is terminal and the dispatcher must
// clear the chat's state.
type Reply struct {
	Text     string
	Keyboard *tgbotapi.InlineKeyboardMarkup
	Next     *models.ConversationState
}

// Handler is the uniform shape shared by the three flows.
type Handler interface {
	// Type identifies the flow.
	Type() models.FlowType

	// Prefix is the callback token prefix owned by this flow (e.g. "food_").
	Prefix() string

	// ConfirmToken is the callback token that completes the flow at preview.
	ConfirmToken() string

	// Container is the table completed records are inserted into.
	Container() models.Container

	// Start begins a fresh flow for the chat.
	Start(chatID int64) Reply

	// HandleCallback processes an inline button press while the flow is active.
	HandleCallback(ctx context.Context, chatID int64, token string, st *models.ConversationState) Reply

	// HandleText processes free text while the flow is active.
	HandleText(ctx context.Context, chatID int64, text string, st *models.ConversationState) Reply

	// BuildRecord assembles the persistence record from a completed state,
	// stamped with the chat ID and the current UTC date.
	BuildRecord(st *models.ConversationState, chatID int64, now time.Time) models.Record
}

const (
	replyNotUnderstood = "I didn't understand that option. Please continue or cancel."
	replyLostTrack     = "I'm not sure where we are. Let's cancel and start again."
)

func newState(flow models.FlowType, step models.Step) *models.ConversationState {
	now := time.Now().UTC()
	st := &models.ConversationState{Flow: flow, Step: step, CreatedAt: now, UpdatedAt: now}
	switch flow {
	case models.FlowFood:
		st.Food = &models.FoodData{}
	case models.FlowSleep:
		st.Sleep = &models.SleepData{}
	case models.FlowExercise:
		st.Exercise = &models.ExerciseData{}
	}
	return st
}

func advance(st *models.ConversationState, step models.Step) *models.ConversationState {
	st.Step = step
	st.UpdatedAt = time.Now().UTC()
	return st
}
