// Package models defines conversation state structures for guided logging flows.
package models

import "time"

// ConversationState is the per-chat record of an in-progress logging flow.
// Exactly one of Food, Sleep or Exercise is non-nil, matching Flow.
type ConversationState struct {
	Flow      FlowType      `json:"flow"`
	Step      Step          `json:"step"`
	Food      *FoodData     `json:"food,omitempty"`
	Sleep     *SleepData    `json:"sleep,omitempty"`
	Exercise  *ExerciseData `json:"exercise,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// FoodData accumulates a meal record. MealName is the only required field;
// nil pointers mean the field was skipped.
type FoodData struct {
	MealName string   `json:"meal_name"`
	MealType *string  `json:"meal_type,omitempty"`
	Calories *float64 `json:"calories,omitempty"`
	ProteinG *float64 `json:"protein_g,omitempty"`
	CarbsG   *float64 `json:"carbs_g,omitempty"`
	FatG     *float64 `json:"fat_g,omitempty"`
	FiberG   *float64 `json:"fiber_g,omitempty"`
	Notes    *string  `json:"notes,omitempty"`
}

// SleepData accumulates a sleep record. SleepScore and DurationHr are
// required before the flow may reach preview.
type SleepData struct {
	SleepScore  *int     `json:"sleep_score,omitempty"`
	DurationHr  *float64 `json:"duration_hr,omitempty"`
	EnergyScore *int     `json:"energy_score,omitempty"`
	SleepStart  *string  `json:"sleep_start,omitempty"` // "HH:MM", 24h
	SleepEnd    *string  `json:"sleep_end,omitempty"`   // "HH:MM", 24h
	RestingHR   *int     `json:"resting_hr,omitempty"`
	Notes       *string  `json:"notes,omitempty"`
}

// ExerciseData accumulates a workout record. WorkoutType is required.
type ExerciseData struct {
	WorkoutType string   `json:"workout_type"`
	DurationMin *float64 `json:"duration_min,omitempty"`
	DistanceKm  *float64 `json:"distance_km,omitempty"`
	Calories    *float64 `json:"calories,omitempty"`
	AvgHR       *int     `json:"avg_hr,omitempty"`
	MaxHR       *int     `json:"max_hr,omitempty"`
	Intensity   *int     `json:"intensity,omitempty"`
	Tags        *string  `json:"tags,omitempty"`
	Notes       *string  `json:"notes,omitempty"`
}

// Record is a flat field map ready for insertion into a container table.
type Record map[string]any

// Stamp adds the chat identifier and log date to a record.
func (r Record) Stamp(chatID int64, now time.Time) {
	r["chat_id"] = chatID
	r["date"] = now.UTC().Format("2006-01-02")
}

// Record flattens the accumulated meal data. Nil fields are omitted so the
// store writes NULL columns.
func (d *FoodData) Record() Record {
	r := Record{"meal_name": d.MealName}
	putString(r, "meal_type", d.MealType)
	putFloat(r, "calories", d.Calories)
	putFloat(r, "protein_g", d.ProteinG)
	putFloat(r, "carbs_g", d.CarbsG)
	putFloat(r, "fat_g", d.FatG)
	putFloat(r, "fiber_g", d.FiberG)
	putString(r, "notes", d.Notes)
	return r
}

// Record flattens the accumulated sleep data. Start and end clock times are
// resolved against now's UTC date; a start later than the end is treated as
// belonging to the previous day (a cross-midnight sleep window).
func (d *SleepData) Record(now time.Time) Record {
	r := Record{}
	putInt(r, "sleep_score", d.SleepScore)
	putFloat(r, "duration_hr", d.DurationHr)
	putInt(r, "energy_score", d.EnergyScore)
	putInt(r, "resting_hr", d.RestingHR)
	putString(r, "notes", d.Notes)

	if d.SleepStart != nil && d.SleepEnd != nil {
		start, end := resolveSleepWindow(now, *d.SleepStart, *d.SleepEnd)
		r["sleep_start"] = start.Format(time.RFC3339)
		r["sleep_end"] = end.Format(time.RFC3339)
	} else {
		putString(r, "sleep_start", d.SleepStart)
		putString(r, "sleep_end", d.SleepEnd)
	}
	return r
}

// Record flattens the accumulated workout data.
func (d *ExerciseData) Record() Record {
	r := Record{"workout_type": d.WorkoutType}
	putFloat(r, "duration_min", d.DurationMin)
	putFloat(r, "distance_km", d.DistanceKm)
	putFloat(r, "calories", d.Calories)
	putInt(r, "avg_hr", d.AvgHR)
	putInt(r, "max_hr", d.MaxHR)
	putInt(r, "intensity", d.Intensity)
	putString(r, "tags", d.Tags)
	putString(r, "notes", d.Notes)
	return r
}

// resolveSleepWindow anchors "HH:MM" clock times on now's UTC date. When the
// start clock is after the end clock the sleeper crossed midnight, so the
// start is shifted back one calendar day.
func resolveSleepWindow(now time.Time, startClock, endClock string) (time.Time, time.Time) {
	day := now.UTC().Truncate(24 * time.Hour)
	start := atClock(day, startClock)
	end := atClock(day, endClock)
	if !start.Before(end) {
		start = start.AddDate(0, 0, -1)
	}
	return start, end
}

func atClock(day time.Time, clock string) time.Time {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return day
	}
	return day.Add(time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute)
}

func putString(r Record, key string, v *string) {
	if v != nil {
		r[key] = *v
	}
}

func putFloat(r Record, key string, v *float64) {
	if v != nil {
		r[key] = *v
	}
}

func putInt(r Record, key string, v *int) {
	if v != nil {
		r[key] = *v
	}
}
