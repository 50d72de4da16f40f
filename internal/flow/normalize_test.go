package flow

import (
	"context"
	"errors"
	"testing"
)

// stubGenerator is a canned jsonGenerator for tests.
type stubGenerator struct {
	resp       string
	err        error
	calls      int
	lastSystem string
	lastUser   string
}

func (s *stubGenerator) GenerateJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	s.calls++
	s.lastSystem = systemPrompt
	s.lastUser = userPrompt
	return s.resp, s.err
}

func TestNormalizeSkipSynonymsShortCircuit(t *testing.T) {
	gen := &stubGenerator{resp: `{"number": 5}`}
	n := NewNormalizer(gen)

	for _, input := range []string{"skip", "SKIP", " no ", "none", "pass", ""} {
		ex, err := n.Normalize(context.Background(), input, KindNumber, nil)
		if err != nil {
			t.Fatalf("Normalize(%q) error: %v", input, err)
		}
		if !ex.Skip {
			t.Errorf("Normalize(%q) expected Skip", input)
		}
	}
	if gen.calls != 0 {
		t.Errorf("expected no generator calls for skip synonyms, got %d", gen.calls)
	}
}

func TestNormalizeWithoutClientIsDisabledMiss(t *testing.T) {
	n := NewNormalizer(nil)

	_, err := n.Normalize(context.Background(), "around 6 hours", KindDuration, nil)
	var miss *Miss
	if !errors.As(err, &miss) {
		t.Fatalf("expected Miss, got %v", err)
	}
	if miss.Reason != MissDisabled {
		t.Errorf("expected reason %q, got %q", MissDisabled, miss.Reason)
	}
}

func TestNormalizeExtractsNumber(t *testing.T) {
	gen := &stubGenerator{resp: `{"number": 42.5}`}
	n := NewNormalizer(gen)

	ex, err := n.Normalize(context.Background(), "around forty two and a half", KindNumber, nil)
	if err != nil {
		t.Fatalf("Normalize error: %v", err)
	}
	if ex.Skip {
		t.Fatal("unexpected Skip")
	}
	if ex.Number == nil || *ex.Number != 42.5 {
		t.Errorf("expected number 42.5, got %v", ex.Number)
	}
	if gen.calls != 1 {
		t.Errorf("expected 1 generator call, got %d", gen.calls)
	}
}

func TestNormalizeGeneratorFailureIsUnreachableMiss(t *testing.T) {
	gen := &stubGenerator{err: errors.New("connection refused")}
	n := NewNormalizer(gen)

	_, err := n.Normalize(context.Background(), "6 hours", KindDuration, nil)
	var miss *Miss
	if !errors.As(err, &miss) {
		t.Fatalf("expected Miss, got %v", err)
	}
	if miss.Reason != MissUnreachable {
		t.Errorf("expected reason %q, got %q", MissUnreachable, miss.Reason)
	}
}

func TestNormalizeMalformedOutputIsMalformedMiss(t *testing.T) {
	gen := &stubGenerator{resp: "Sure! The number is 5."}
	n := NewNormalizer(gen)

	_, err := n.Normalize(context.Background(), "five", KindNumber, nil)
	var miss *Miss
	if !errors.As(err, &miss) {
		t.Fatalf("expected Miss, got %v", err)
	}
	if miss.Reason != MissMalformed {
		t.Errorf("expected reason %q, got %q", MissMalformed, miss.Reason)
	}
}

func TestNormalizeCanonicalizesTime(t *testing.T) {
	gen := &stubGenerator{resp: `{"time": "6:5"}`}
	n := NewNormalizer(gen)

	ex, err := n.Normalize(context.Background(), "five past six", KindTime, nil)
	if err != nil {
		t.Fatalf("Normalize error: %v", err)
	}
	if ex.Time == nil || *ex.Time != "06:05" {
		t.Errorf("expected canonical 06:05, got %v", ex.Time)
	}
}

func TestNormalizeDropsGarbageTime(t *testing.T) {
	gen := &stubGenerator{resp: `{"time": "late evening"}`}
	n := NewNormalizer(gen)

	ex, err := n.Normalize(context.Background(), "late evening", KindTime, nil)
	if err != nil {
		t.Fatalf("Normalize error: %v", err)
	}
	if ex.Time != nil {
		t.Errorf("expected nil time for garbage output, got %q", *ex.Time)
	}
}

func TestNormalizeNumberFallsBackToDirectParse(t *testing.T) {
	n := NewNormalizer(nil)

	v, skipped, ok := n.normalizeNumber(context.Background(), "7,5", KindDuration)
	if !ok || skipped {
		t.Fatalf("expected direct parse to succeed, ok=%v skipped=%v", ok, skipped)
	}
	if *v != 7.5 {
		t.Errorf("expected 7.5, got %g", *v)
	}

	_, _, ok = n.normalizeNumber(context.Background(), "a lot", KindNumber)
	if ok {
		t.Error("expected unparseable input to report not ok")
	}
}

func TestNormalizeClockFallsBackToDirectParse(t *testing.T) {
	n := NewNormalizer(nil)

	clock, skipped, ok := n.normalizeClock(context.Background(), "23:15")
	if !ok || skipped {
		t.Fatalf("expected direct parse to succeed, ok=%v skipped=%v", ok, skipped)
	}
	if *clock != "23:15" {
		t.Errorf("expected 23:15, got %q", *clock)
	}
}
