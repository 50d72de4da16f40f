// Package parser classifies free-form messages into health records.
//
// It backs the fallback path for users who type "ran 5k this morning"
// instead of walking a guided flow. A single LLM call both picks the
// container and extracts its fields.
package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/yahahealth/yaha/internal/models"
)

// ErrDisabled is returned when no LLM client is configured.
var ErrDisabled = fmt.Errorf("free-text parsing is disabled: no LLM client configured")

// generator is the minimal LLM surface the parser needs.
type generator interface {
	GenerateJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Parsed is the classification result for one message.
type Parsed struct {
	// Container is the table the message belongs to, or ContainerUnknown /
	// ContainerIgnore when nothing should be stored.
	Container models.Container `json:"container"`

	// Data holds the extracted fields, keyed by column name.
	Data models.Record `json:"data"`

	// Issues lists soft problems the model flagged (ambiguous units,
	// guessed fields). They are surfaced to the user, not fatal.
	Issues []string `json:"issues"`
}

const classifySystemPrompt = `You are the message classifier for a personal health tracking bot.
The user logs three kinds of records: food, sleep and exercise.
You MUST respond with pure JSON only. No markdown, no prose.

Respond with:
{
  "container": "food" | "sleep" | "exercise" | "unknown" | "ignore",
  "data": { ... },
  "issues": [ "..." ]
}

Containers and their data fields:
- "food": meal_name (string, required), meal_type (breakfast|lunch|dinner|snack),
  calories, protein_g, carbs_g, fat_g, fiber_g (numbers), notes (string)
- "sleep": sleep_score (1-5), duration_hr (number, hours), energy_score (1-5),
  sleep_start, sleep_end ("HH:MM" 24h), resting_hr (number), notes (string)
- "exercise": workout_type (string, required), duration_min, distance_km,
  calories (numbers), avg_hr, max_hr (numbers), intensity (1-5),
  tags (string), notes (string)

Rules:
- "ignore" is for greetings, thanks and chit-chat that stores nothing.
- "unknown" is for messages that look like a log attempt you cannot place.
- Only include fields the user actually stated. Never invent values.
- Distances in miles must be converted to km; note the conversion in issues.
- If the required field for the chosen container is missing, use "unknown".`

// Parser turns free text into a Parsed classification.
type Parser struct {
	client generator
}

// New creates a parser. client may be nil when no OpenAI key is configured;
// Parse then returns ErrDisabled.
func New(client generator) *Parser {
	return &Parser{client: client}
}

// Parse classifies one message. A nil receiver or missing client returns
// ErrDisabled so callers can fall back to the menu.
func (p *Parser) Parse(ctx context.Context, text string) (Parsed, error) {
	if p == nil || p.client == nil {
		return Parsed{}, ErrDisabled
	}

	raw, err := p.client.GenerateJSON(ctx, classifySystemPrompt, strings.TrimSpace(text))
	if err != nil {
		slog.Error("Parser classification call failed", "error", err)
		return Parsed{}, fmt.Errorf("failed to classify message: %w", err)
	}

	var parsed Parsed
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		slog.Error("Parser received malformed output", "error", err)
		return Parsed{}, fmt.Errorf("failed to decode classification: %w", err)
	}

	switch parsed.Container {
	case models.ContainerFood, models.ContainerSleep, models.ContainerExercise:
		if err := validateRequired(parsed); err != nil {
			slog.Debug("Parser demoting classification", "container", parsed.Container, "reason", err)
			parsed.Container = models.ContainerUnknown
			parsed.Data = nil
		}
	case models.ContainerUnknown, models.ContainerIgnore:
		parsed.Data = nil
	default:
		slog.Debug("Parser returned unexpected container", "container", parsed.Container)
		parsed.Container = models.ContainerUnknown
		parsed.Data = nil
	}

	return parsed, nil
}

// validateRequired checks the per-container required field.
func validateRequired(p Parsed) error {
	required := map[models.Container]string{
		models.ContainerFood:     "meal_name",
		models.ContainerSleep:    "duration_hr",
		models.ContainerExercise: "workout_type",
	}
	field := required[p.Container]
	v, ok := p.Data[field]
	if !ok || v == nil {
		return fmt.Errorf("missing required field %q", field)
	}
	if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
		return fmt.Errorf("missing required field %q", field)
	}
	return nil
}

// MarshalData renders the extracted fields as a JSON blob for the shadow log.
func (p Parsed) MarshalData() string {
	if len(p.Data) == 0 {
		return ""
	}
	b, err := json.Marshal(p.Data)
	if err != nil {
		return ""
	}
	return string(b)
}

// BuildReply renders a saved fallback record as a short confirmation.
func BuildReply(p Parsed) string {
	var b strings.Builder
	switch p.Container {
	case models.ContainerFood:
		b.WriteString("🍽 Logged your meal")
		if name, ok := p.Data["meal_name"].(string); ok && name != "" {
			fmt.Fprintf(&b, ": %s", name)
		}
	case models.ContainerSleep:
		b.WriteString("😴 Logged your sleep")
		if hrs, ok := asNumber(p.Data["duration_hr"]); ok {
			fmt.Fprintf(&b, ": %g hours", hrs)
		}
	case models.ContainerExercise:
		b.WriteString("🏃 Logged your workout")
		if wt, ok := p.Data["workout_type"].(string); ok && wt != "" {
			fmt.Fprintf(&b, ": %s", wt)
		}
	default:
		return "Got it."
	}
	b.WriteString(" ✅")
	if n := len(p.Data); n > 1 {
		fmt.Fprintf(&b, "\n%d fields captured.", n)
	}
	for _, issue := range p.Issues {
		fmt.Fprintf(&b, "\n⚠️ %s", issue)
	}
	return b.String()
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
