// Package flow implements the guided logging wizards and their dispatcher.
//
// This file wraps the LLM call used mid-flow to coerce loosely-formatted
// free text into typed values. Every failure mode collapses into a Miss so
// callers always have a defined fallback path (naive parsing, then re-prompt).
package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/yahahealth/yaha/internal/models"
)

// Kind names the expected shape of a normalized value.
type Kind string

// Normalization kinds.
const (
	KindNumber        Kind = "number"
	KindDuration      Kind = "duration"
	KindTime          Kind = "time"
	KindMacros        Kind = "macros"
	KindExerciseStats Kind = "exercise_stats"
)

// Extraction is the normalized result. Skip means the user declined the
// field; otherwise the pointer matching the requested kind is set when the
// model could extract a value.
type Extraction struct {
	Skip      bool     `json:"-"`
	Number    *float64 `json:"number"`
	Duration  *float64 `json:"duration"`
	Time      *string  `json:"time"`
	Calories  *float64 `json:"calories"`
	Protein   *float64 `json:"protein"`
	Carbs     *float64 `json:"carbs"`
	Fat       *float64 `json:"fat"`
	Fiber     *float64 `json:"fiber"`
	Distance  *float64 `json:"distance"`
	HeartRate *int     `json:"heart_rate"`
}

// MissReason distinguishes why normalization produced no value.
type MissReason string

// Miss reasons.
const (
	MissDisabled    MissReason = "disabled"    // no LLM client configured
	MissUnreachable MissReason = "unreachable" // the collaborator call failed
	MissMalformed   MissReason = "malformed"   // the collaborator returned unparseable content
)

// Miss is the error returned when normalization yields nothing. Callers fall
// back to naive parsing in every case; the reason exists for observability.
type Miss struct {
	Reason MissReason
	Err    error
}

func (m *Miss) Error() string {
	if m.Err != nil {
		return fmt.Sprintf("normalization miss (%s): %v", m.Reason, m.Err)
	}
	return fmt.Sprintf("normalization miss (%s)", m.Reason)
}

func (m *Miss) Unwrap() error { return m.Err }

// jsonGenerator is the minimal LLM surface the normalizer needs.
type jsonGenerator interface {
	GenerateJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

const normalizeSystemPrompt = `You are a data normalization engine for a health tracking bot.
Your only job is to extract structured fields from messy natural language.
You MUST respond with pure JSON only. No markdown, no prose.

Supported contexts and expected JSON shapes:

1) "number": extract a single numeric value.
   Return: { "number": <number_or_null> }

2) "duration": sleep durations are hours (possibly decimal), exercise
   durations are minutes. Understand "around 6 hours", "about 45 min", "1h15".
   Return: { "duration": <number_or_null> }

3) "time": a time of day in 24h "HH:MM" format. Understand 6am, 11pm,
   midnight, 23:00, 6:00. If you can infer the hour but not minutes, assume :00.
   Return: { "time": "HH:MM" or null }

4) "macros": extract calories and optionally macros.
   Return: { "calories": n, "protein": n, "carbs": n, "fat": n, "fiber": n }
   with null for anything missing.

5) "exercise_stats": extract distance (km), calories and heart rate where present.
   Return: { "distance": n, "calories": n, "heart_rate": n } with null for missing.

Rules:
- If input is ambiguous or data is missing, use null for that field.
- Never invent extra fields beyond the expected JSON for the given context.`

// Normalizer converts loosely-formatted free text into typed values for a
// specific expected field kind. A nil client disables LLM calls; skip
// detection still works and everything else is a Miss.
type Normalizer struct {
	client jsonGenerator
}

// NewNormalizer creates a normalizer. client may be nil when no OpenAI key
// is configured.
func NewNormalizer(client jsonGenerator) *Normalizer {
	return &Normalizer{client: client}
}

// Normalize coerces text into the requested kind. Empty input and explicit
// skip synonyms short-circuit to a Skip extraction without touching the LLM.
func (n *Normalizer) Normalize(ctx context.Context, text string, kind Kind, existing models.Record) (Extraction, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || isSkipWord(trimmed) {
		return Extraction{Skip: true}, nil
	}

	if n == nil || n.client == nil {
		return Extraction{}, &Miss{Reason: MissDisabled}
	}

	payload, err := json.Marshal(map[string]any{
		"input_text":     trimmed,
		"target_context": string(kind),
		"existing_data":  existing,
	})
	if err != nil {
		return Extraction{}, &Miss{Reason: MissMalformed, Err: err}
	}

	raw, err := n.client.GenerateJSON(ctx, normalizeSystemPrompt, string(payload))
	if err != nil {
		slog.Error("Normalizer collaborator call failed", "error", err, "kind", kind)
		return Extraction{}, &Miss{Reason: MissUnreachable, Err: err}
	}

	var ex Extraction
	if err := json.Unmarshal([]byte(raw), &ex); err != nil {
		slog.Error("Normalizer received malformed output", "error", err, "kind", kind)
		return Extraction{}, &Miss{Reason: MissMalformed, Err: err}
	}

	// Time strings get one final shape check so callers never see garbage.
	if ex.Time != nil {
		if clock, ok := parseClock(*ex.Time); ok {
			ex.Time = &clock
		} else {
			ex.Time = nil
		}
	}

	slog.Debug("Normalizer succeeded", "kind", kind)
	return ex, nil
}

// normalizeNumber runs normalization for a plain numeric field and falls
// back to direct parsing. The second return is false when no value could be
// obtained and the caller should re-prompt.
func (n *Normalizer) normalizeNumber(ctx context.Context, text string, kind Kind) (*float64, bool, bool) {
	ex, err := n.Normalize(ctx, text, kind, nil)
	if err == nil {
		if ex.Skip {
			return nil, true, true
		}
		if kind == KindDuration && ex.Duration != nil {
			return ex.Duration, false, true
		}
		if ex.Number != nil {
			return ex.Number, false, true
		}
	}
	if v, ok := parseNumber(text); ok {
		return &v, false, true
	}
	return nil, false, false
}

// normalizeClock runs normalization for a time-of-day field and falls back
// to direct HH:MM parsing.
func (n *Normalizer) normalizeClock(ctx context.Context, text string) (*string, bool, bool) {
	ex, err := n.Normalize(ctx, text, KindTime, nil)
	if err == nil {
		if ex.Skip {
			return nil, true, true
		}
		if ex.Time != nil {
			return ex.Time, false, true
		}
	}
	if clock, ok := parseClock(text); ok {
		return &clock, false, true
	}
	return nil, false, false
}
