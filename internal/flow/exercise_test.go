package flow

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/yahahealth/yaha/internal/models"
)

func TestExerciseFlowFullPath(t *testing.T) {
	ctx := context.Background()
	f := NewExerciseFlow(NewNormalizer(nil))

	r := f.Start(42)
	if r.Next == nil || r.Next.Step != models.StepExerciseType {
		t.Fatalf("Start should land on workout type, got %+v", r.Next)
	}

	st := r.Next
	r = f.HandleCallback(ctx, 42, "ex_type_run", st)
	if r.Next.Step != models.StepExerciseDuration {
		t.Fatalf("expected duration step, got %q", r.Next.Step)
	}
	if st.Exercise.WorkoutType != "Run" {
		t.Errorf("workout type not recorded: %q", st.Exercise.WorkoutType)
	}

	r = f.HandleText(ctx, 42, "52", r.Next)
	if r.Next.Step != models.StepExerciseDistance {
		t.Fatalf("expected distance step, got %q", r.Next.Step)
	}

	r = f.HandleText(ctx, 42, "10", r.Next)
	if r.Next.Step != models.StepExerciseCalories {
		t.Fatalf("expected calories step, got %q", r.Next.Step)
	}
	r = f.HandleText(ctx, 42, "480", r.Next)
	r = f.HandleText(ctx, 42, "152", r.Next)
	r = f.HandleText(ctx, 42, "171", r.Next)
	if r.Next.Step != models.StepExerciseIntensity {
		t.Fatalf("expected intensity step, got %q", r.Next.Step)
	}

	r = f.HandleCallback(ctx, 42, "ex_i_4", r.Next)
	if r.Next.Step != models.StepExerciseTags {
		t.Fatalf("expected tags step, got %q", r.Next.Step)
	}
	r = f.HandleText(ctx, 42, "intervals, morning", r.Next)
	r = f.HandleText(ctx, 42, "felt strong", r.Next)
	if r.Next.Step != models.StepPreview {
		t.Fatalf("expected preview, got %q", r.Next.Step)
	}
	if !strings.Contains(r.Text, "Run") || !strings.Contains(r.Text, "10 km") {
		t.Errorf("preview missing entered values:\n%s", r.Text)
	}

	now := time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)
	rec := f.BuildRecord(r.Next, 42, now)
	if rec["chat_id"] != int64(42) || rec["date"] != "2026-03-14" {
		t.Errorf("record not stamped: %v", rec)
	}
	if rec["workout_type"] != "Run" || rec["distance_km"] != 10.0 || rec["avg_hr"] != 152 || rec["intensity"] != 4 {
		t.Errorf("record missing fields: %v", rec)
	}
}

func TestExerciseFlowTypeIsRequired(t *testing.T) {
	ctx := context.Background()
	f := NewExerciseFlow(NewNormalizer(nil))

	st := f.Start(7).Next
	r := f.HandleText(ctx, 7, "skip", st)
	if r.Next.Step != models.StepExerciseType {
		t.Errorf("workout type is required, flow advanced to %q", r.Next.Step)
	}
	r = f.HandleText(ctx, 7, "bouldering", r.Next)
	if r.Next.Step != models.StepExerciseDuration {
		t.Fatalf("typed workout type rejected, at %q", r.Next.Step)
	}
	if r.Next.Exercise.WorkoutType != "bouldering" {
		t.Errorf("typed workout type not recorded: %q", r.Next.Exercise.WorkoutType)
	}
}

func TestExerciseFlowAllOptionalSkipsReachPreview(t *testing.T) {
	ctx := context.Background()
	f := NewExerciseFlow(NewNormalizer(nil))

	st := f.Start(7).Next
	r := f.HandleCallback(ctx, 7, "ex_type_yoga", st)
	r = f.HandleCallback(ctx, 7, "ex_skip_duration", r.Next)
	r = f.HandleCallback(ctx, 7, "ex_skip_distance", r.Next)
	r = f.HandleCallback(ctx, 7, "ex_skip_calories", r.Next)
	r = f.HandleCallback(ctx, 7, "ex_skip_avg_hr", r.Next)
	r = f.HandleCallback(ctx, 7, "ex_skip_max_hr", r.Next)
	r = f.HandleCallback(ctx, 7, "ex_skip_intensity", r.Next)
	r = f.HandleCallback(ctx, 7, "ex_skip_tags", r.Next)
	r = f.HandleText(ctx, 7, "skip", r.Next)
	if r.Next.Step != models.StepPreview {
		t.Fatalf("expected preview after skipping everything optional, got %q", r.Next.Step)
	}

	rec := f.BuildRecord(r.Next, 7, time.Now())
	if len(rec) != 3 { // workout_type plus the chat_id and date stamps
		t.Errorf("expected a minimal record, got %v", rec)
	}
}

func TestExerciseFlowStatsDumpFillsFields(t *testing.T) {
	ctx := context.Background()
	gen := &stubGenerator{resp: `{"distance": 10.2, "calories": 480, "heart_rate": 152}`}
	f := NewExerciseFlow(NewNormalizer(gen))

	st := f.Start(7).Next
	r := f.HandleCallback(ctx, 7, "ex_type_run", st)
	r = f.HandleText(ctx, 7, "45", r.Next)
	r = f.HandleText(ctx, 7, "10.2k in total, 480 kcal, avg 152", r.Next)

	// Calories and avg HR came with the dump, so the next open question is max HR.
	if r.Next.Step != models.StepExerciseMaxHR {
		t.Fatalf("expected jump past filled stats, got %q", r.Next.Step)
	}
	d := r.Next.Exercise
	if d.DistanceKm == nil || *d.DistanceKm != 10.2 || d.Calories == nil || *d.Calories != 480 {
		t.Errorf("stats dump not applied: %+v", d)
	}
	if d.AvgHR == nil || *d.AvgHR != 152 {
		t.Errorf("heart rate not applied: %v", d.AvgHR)
	}
}

func TestExerciseFlowEditPreservesData(t *testing.T) {
	ctx := context.Background()
	f := NewExerciseFlow(NewNormalizer(nil))

	st := f.Start(7).Next
	r := f.HandleCallback(ctx, 7, "ex_type_walk", st)
	r = f.HandleText(ctx, 7, "30", r.Next)
	r = f.HandleCallback(ctx, 7, "ex_skip_distance", r.Next)
	r = f.HandleCallback(ctx, 7, "ex_skip_calories", r.Next)
	r = f.HandleCallback(ctx, 7, "ex_skip_avg_hr", r.Next)
	r = f.HandleCallback(ctx, 7, "ex_skip_max_hr", r.Next)
	r = f.HandleCallback(ctx, 7, "ex_skip_intensity", r.Next)
	r = f.HandleCallback(ctx, 7, "ex_skip_tags", r.Next)
	r = f.HandleText(ctx, 7, "skip", r.Next)

	r = f.HandleCallback(ctx, 7, "ex_edit", r.Next)
	if r.Next.Step != models.StepExerciseType {
		t.Fatalf("edit should restart the question sequence, got %q", r.Next.Step)
	}
	if r.Next.Exercise.DurationMin == nil || *r.Next.Exercise.DurationMin != 30 {
		t.Errorf("edit should preserve entered data, got %+v", r.Next.Exercise)
	}
}

func TestExerciseFlowCancelIsTerminal(t *testing.T) {
	ctx := context.Background()
	f := NewExerciseFlow(NewNormalizer(nil))

	st := f.Start(7).Next
	r := f.HandleCallback(ctx, 7, "ex_cancel", st)
	if r.Next != nil {
		t.Errorf("cancel should be terminal, got next state %+v", r.Next)
	}
}
