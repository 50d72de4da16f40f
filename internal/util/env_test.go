package util

import (
	"testing"
	"time"
)

func TestParseBoolEnv(t *testing.T) {
	cases := []struct {
		value    string
		def      bool
		expected bool
	}{
		{"", true, true},
		{"", false, false},
		{"true", false, true},
		{"1", false, true},
		{"YES", false, true},
		{"on", false, true},
		{"false", true, false},
		{"0", true, false},
		{"No", true, false},
		{"off", true, false},
		{"garbage", true, true},
		{"garbage", false, false},
	}

	for _, tc := range cases {
		t.Setenv("TEST_BOOL_ENV", tc.value)
		if got := ParseBoolEnv("TEST_BOOL_ENV", tc.def); got != tc.expected {
			t.Errorf("ParseBoolEnv(%q, %v) = %v, want %v", tc.value, tc.def, got, tc.expected)
		}
	}
}

func TestParseDurationEnv(t *testing.T) {
	t.Setenv("TEST_DUR_ENV", "45m")
	if got := ParseDurationEnv("TEST_DUR_ENV", time.Minute); got != 45*time.Minute {
		t.Errorf("expected 45m, got %v", got)
	}

	t.Setenv("TEST_DUR_ENV", "not-a-duration")
	if got := ParseDurationEnv("TEST_DUR_ENV", time.Minute); got != time.Minute {
		t.Errorf("expected default on invalid value, got %v", got)
	}

	t.Setenv("TEST_DUR_ENV", "")
	if got := ParseDurationEnv("TEST_DUR_ENV", 2*time.Hour); got != 2*time.Hour {
		t.Errorf("expected default on empty value, got %v", got)
	}
}
