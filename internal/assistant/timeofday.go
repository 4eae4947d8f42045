package assistant

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// ErrVagueTime is returned for expressions like "morning" or "after lunch".
	ErrVagueTime = errors.New("assistant: vague time of day")
	// ErrInvalidTime is returned when no clock time can be read.
	ErrInvalidTime = errors.New("assistant: invalid time of day")
)

var (
	vagueTimeRe = regexp.MustCompile(`\b(morning|evening|afternoon|night|tonight|noon|midnight|before|after|just past|around|early|late)\b`)
	clock12Re   = regexp.MustCompile(`^(\d{1,2})(?:\s*([:.])\s*(\d{1,2}))?\s*([ap])\.?\s*m\.?$`)
	clock24Re   = regexp.MustCompile(`^(\d{1,2})[:.](\d{2})$`)
)

// NormalizeTime canonicalizes a clock time to "H:MM AM" form. Already
// canonical input is returned unchanged.
func NormalizeTime(raw string) (string, error) {
	s := strings.ToLower(strings.Join(strings.Fields(raw), " "))
	if s == "" {
		return "", ErrInvalidTime
	}
	if vagueTimeRe.MatchString(s) {
		return "", ErrVagueTime
	}

	if m := clock12Re.FindStringSubmatch(s); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute := 0
		if m[3] != "" {
			minute, _ = strconv.Atoi(m[3])
		}
		if hour < 1 || hour > 12 || minute > 59 {
			return "", ErrInvalidTime
		}
		suffix := "AM"
		if m[4] == "p" {
			suffix = "PM"
		}
		return fmt.Sprintf("%d:%02d %s", hour, minute, suffix), nil
	}

	if m := clock24Re.FindStringSubmatch(s); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		if hour > 23 || minute > 59 {
			return "", ErrInvalidTime
		}
		return formatClock(hour*60 + minute), nil
	}
	return "", ErrInvalidTime
}

// ClockMinutes returns minutes after midnight for a time NormalizeTime accepts.
func ClockMinutes(raw string) (int, error) {
	canonical, err := NormalizeTime(raw)
	if err != nil {
		return 0, err
	}
	var hour, minute int
	var suffix string
	if _, err := fmt.Sscanf(canonical, "%d:%d %s", &hour, &minute, &suffix); err != nil {
		return 0, ErrInvalidTime
	}
	hour %= 12
	if suffix == "PM" {
		hour += 12
	}
	return hour*60 + minute, nil
}

func formatClock(minutes int) string {
	hour, minute := minutes/60, minutes%60
	suffix := "AM"
	if hour >= 12 {
		suffix = "PM"
	}
	hour %= 12
	if hour == 0 {
		hour = 12
	}
	return fmt.Sprintf("%d:%02d %s", hour, minute, suffix)
}
