package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseClock converts an "HH:MM" string to minutes since midnight.
// Returns -1 when the value is empty or malformed so callers can treat
// bad time data as a skippable record instead of an abort.
func ParseClock(value string) int {
	parts := strings.SplitN(strings.TrimSpace(value), ":", 2)
	if len(parts) != 2 {
		return -1
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return -1
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return -1
	}
	return h*60 + m
}

// FormatClock renders minutes since midnight as "HH:MM", clamped to a
// single day.
func FormatClock(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	minutes %= 24 * 60
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// AddMinutes shifts an "HH:MM" value, clamping at the end of the day.
func AddMinutes(value string, delta int) string {
	m := ParseClock(value)
	if m < 0 {
		return value
	}
	m += delta
	if m > 23*60+59 {
		m = 23*60 + 59
	}
	return FormatClock(m)
}

func AbsInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
