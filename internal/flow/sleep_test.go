package flow

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/yahahealth/yaha/internal/models"
)

func TestSleepFlowFullPath(t *testing.T) {
	ctx := context.Background()
	f := NewSleepFlow(NewNormalizer(nil))

	r := f.Start(42)
	if r.Next == nil || r.Next.Step != models.StepSleepQuality {
		t.Fatalf("Start should land on quality, got %+v", r.Next)
	}

	st := r.Next
	r = f.HandleCallback(ctx, 42, "sleep_q_80", st)
	if r.Next.Step != models.StepSleepDuration {
		t.Fatalf("expected duration step, got %q", r.Next.Step)
	}
	if st.Sleep.SleepScore == nil || *st.Sleep.SleepScore != 80 {
		t.Errorf("quality not recorded: %v", st.Sleep.SleepScore)
	}

	r = f.HandleText(ctx, 42, "7,5", r.Next)
	if r.Next.Step != models.StepSleepEnergy {
		t.Fatalf("expected energy step, got %q", r.Next.Step)
	}
	if *st.Sleep.DurationHr != 7.5 {
		t.Errorf("duration not recorded: %v", st.Sleep.DurationHr)
	}

	r = f.HandleCallback(ctx, 42, "sleep_e_70", r.Next)
	if r.Next.Step != models.StepSleepStart {
		t.Fatalf("expected bedtime step, got %q", r.Next.Step)
	}

	r = f.HandleText(ctx, 42, "23:30", r.Next)
	if r.Next.Step != models.StepSleepEnd {
		t.Fatalf("expected wake-up step, got %q", r.Next.Step)
	}
	r = f.HandleText(ctx, 42, "07:00", r.Next)
	if r.Next.Step != models.StepSleepRestingHR {
		t.Fatalf("expected resting HR step, got %q", r.Next.Step)
	}

	r = f.HandleText(ctx, 42, "52", r.Next)
	r = f.HandleText(ctx, 42, "woke up once", r.Next)
	if r.Next.Step != models.StepPreview {
		t.Fatalf("expected preview, got %q", r.Next.Step)
	}
	if !strings.Contains(r.Text, "80/100") || !strings.Contains(r.Text, "7.5") {
		t.Errorf("preview missing entered values:\n%s", r.Text)
	}

	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	rec := f.BuildRecord(r.Next, 42, now)
	if rec["date"] != "2026-03-14" || rec["chat_id"] != int64(42) {
		t.Errorf("record not stamped: %v", rec)
	}
	// 23:30 is after 07:00, so bedtime belongs to the previous day.
	if start := rec["sleep_start"].(string); !strings.HasPrefix(start, "2026-03-13T23:30") {
		t.Errorf("cross-midnight start not shifted back: %v", start)
	}
	if end := rec["sleep_end"].(string); !strings.HasPrefix(end, "2026-03-14T07:00") {
		t.Errorf("wake-up resolved wrong: %v", end)
	}
	if rec["resting_hr"] != 52 {
		t.Errorf("resting HR missing: %v", rec)
	}
}

func TestSleepFlowDurationIsRequired(t *testing.T) {
	ctx := context.Background()
	f := NewSleepFlow(NewNormalizer(nil))

	st := f.Start(7).Next
	r := f.HandleCallback(ctx, 7, "sleep_q_20", st)
	r = f.HandleText(ctx, 7, "skip", r.Next)
	if r.Next.Step != models.StepSleepDuration {
		t.Errorf("duration is required, flow advanced to %q", r.Next.Step)
	}
	r = f.HandleText(ctx, 7, "not sure", r.Next)
	if r.Next.Step != models.StepSleepDuration {
		t.Errorf("unparseable duration accepted, flow advanced to %q", r.Next.Step)
	}
}

func TestSleepFlowSkipWindowSkipsBothClocks(t *testing.T) {
	ctx := context.Background()
	f := NewSleepFlow(NewNormalizer(nil))

	st := f.Start(7).Next
	r := f.HandleCallback(ctx, 7, "sleep_q_95", st)
	r = f.HandleText(ctx, 7, "8", r.Next)
	r = f.HandleCallback(ctx, 7, "sleep_e_skip", r.Next)
	r = f.HandleCallback(ctx, 7, "sleep_window_skip", r.Next)
	if r.Next.Step != models.StepSleepRestingHR {
		t.Fatalf("window skip should jump to resting HR, got %q", r.Next.Step)
	}

	r = f.HandleCallback(ctx, 7, "sleep_hr_skip", r.Next)
	r = f.HandleText(ctx, 7, "skip", r.Next)
	if r.Next.Step != models.StepPreview {
		t.Fatalf("expected preview, got %q", r.Next.Step)
	}

	rec := f.BuildRecord(r.Next, 7, time.Now())
	for _, key := range []string{"energy_score", "sleep_start", "sleep_end", "resting_hr", "notes"} {
		if _, present := rec[key]; present {
			t.Errorf("field %q should be absent, record: %v", key, rec)
		}
	}
}

func TestSleepFlowSkippingWakeUpDropsBedtime(t *testing.T) {
	ctx := context.Background()
	f := NewSleepFlow(NewNormalizer(nil))

	st := f.Start(7).Next
	r := f.HandleCallback(ctx, 7, "sleep_q_55", st)
	r = f.HandleText(ctx, 7, "6", r.Next)
	r = f.HandleCallback(ctx, 7, "sleep_e_skip", r.Next)
	r = f.HandleText(ctx, 7, "23:00", r.Next)
	r = f.HandleText(ctx, 7, "skip", r.Next)
	if r.Next.Step != models.StepSleepRestingHR {
		t.Fatalf("expected resting HR after wake-up skip, got %q", r.Next.Step)
	}
	if r.Next.Sleep.SleepStart != nil {
		t.Error("half a sleep window should be dropped")
	}
}

func TestSleepFlowQualityTextEntry(t *testing.T) {
	ctx := context.Background()
	f := NewSleepFlow(NewNormalizer(nil))

	st := f.Start(7).Next
	r := f.HandleText(ctx, 7, "120", st)
	if r.Next.Step != models.StepSleepQuality {
		t.Errorf("out-of-range score accepted, advanced to %q", r.Next.Step)
	}
	r = f.HandleText(ctx, 7, "85", r.Next)
	if r.Next.Step != models.StepSleepDuration {
		t.Errorf("expected duration step, got %q", r.Next.Step)
	}
	if *r.Next.Sleep.SleepScore != 85 {
		t.Errorf("typed quality not recorded: %v", r.Next.Sleep.SleepScore)
	}

	r = f.HandleText(ctx, 7, "7.5", r.Next)
	r = f.HandleText(ctx, 7, "70", r.Next)
	if r.Next.Step != models.StepSleepStart {
		t.Fatalf("typed energy should advance to bedtime, got %q", r.Next.Step)
	}
	if *r.Next.Sleep.EnergyScore != 70 {
		t.Errorf("typed energy not recorded: %v", r.Next.Sleep.EnergyScore)
	}
}
