package flow

import (
	"strconv"
	"strings"
)

// parseNumber parses a decimal value, accepting both comma and point as the
// decimal separator.
func parseNumber(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// parseClock validates an "HH:MM" 24h clock time and returns it in canonical
// zero-padded form.
func parseClock(s string) (string, bool) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return "", false
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", false
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", false
	}
	return twoDigits(hour) + ":" + twoDigits(minute), true
}

func twoDigits(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

// isSkipWord reports whether the text is an explicit skip synonym.
func isSkipWord(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "skip", "no", "none", "pass":
		return true
	}
	return false
}
