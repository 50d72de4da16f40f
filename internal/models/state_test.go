package models

import (
	"strings"
	"testing"
	"time"
)

func TestRecordStamp(t *testing.T) {
	r := Record{"meal_name": "toast"}
	// Late evening in a western timezone is already the next day in UTC.
	loc := time.FixedZone("UTC-5", -5*3600)
	r.Stamp(42, time.Date(2026, 3, 14, 22, 30, 0, 0, loc))

	if r["chat_id"] != int64(42) {
		t.Errorf("chat_id not stamped: %v", r)
	}
	if r["date"] != "2026-03-15" {
		t.Errorf("date must be the UTC day, got %v", r["date"])
	}
}

func TestFoodDataRecordOmitsNilFields(t *testing.T) {
	calories := 650.0
	d := FoodData{MealName: "ramen", Calories: &calories}

	r := d.Record()
	if r["meal_name"] != "ramen" || r["calories"] != 650.0 {
		t.Errorf("wrong record: %v", r)
	}
	for _, key := range []string{"meal_type", "protein_g", "carbs_g", "fat_g", "fiber_g", "notes"} {
		if _, present := r[key]; present {
			t.Errorf("nil field %q should be absent: %v", key, r)
		}
	}
}

func TestSleepDataRecordCrossMidnightWindow(t *testing.T) {
	start, end := "23:30", "07:00"
	hrs := 7.5
	d := SleepData{DurationHr: &hrs, SleepStart: &start, SleepEnd: &end}

	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	r := d.Record(now)

	if got := r["sleep_start"].(string); !strings.HasPrefix(got, "2026-03-13T23:30") {
		t.Errorf("bedtime after midnight wake-up must shift back a day, got %q", got)
	}
	if got := r["sleep_end"].(string); !strings.HasPrefix(got, "2026-03-14T07:00") {
		t.Errorf("wake-up resolved wrong: %q", got)
	}
}

func TestSleepDataRecordSameDayWindow(t *testing.T) {
	start, end := "01:15", "09:00"
	hrs := 7.75
	d := SleepData{DurationHr: &hrs, SleepStart: &start, SleepEnd: &end}

	r := d.Record(time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC))

	if got := r["sleep_start"].(string); !strings.HasPrefix(got, "2026-03-14T01:15") {
		t.Errorf("same-day bedtime must not shift, got %q", got)
	}
}

func TestSleepDataRecordHalfWindowPassesThrough(t *testing.T) {
	start := "23:30"
	hrs := 6.0
	d := SleepData{DurationHr: &hrs, SleepStart: &start}

	r := d.Record(time.Now())
	if r["sleep_start"] != "23:30" {
		t.Errorf("lone clock value should pass through unresolved, got %v", r["sleep_start"])
	}
	if _, present := r["sleep_end"]; present {
		t.Errorf("absent end must stay absent: %v", r)
	}
}
