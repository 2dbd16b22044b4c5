package timeutil

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// MinutesPerDay is the number of minutes in a day
	MinutesPerDay = 24 * 60
	// SlotLabelSeparator separates the two halves of a slot label
	SlotLabelSeparator = " - "
)

// ErrInvalidTime is returned when a value is not a valid wall-clock time
var ErrInvalidTime = errors.New("invalid time")

// Normalize validates an HH:MM (or H:MM) value and returns it zero-padded.
// Stored times are always normalized so string and minute ordering agree.
func Normalize(t string) (string, error) {
	h, m, err := parse24(t)
	if err != nil {
		return "", err
	}
	return format24(h, m), nil
}

// ToMinutes converts an HH:MM value to minutes since midnight
func ToMinutes(t string) (int, error) {
	h, m, err := parse24(t)
	if err != nil {
		return 0, err
	}
	return h*60 + m, nil
}

// FromMinutes renders minutes since midnight as HH:MM.
// Values outside a day are clamped to 00:00 and 23:59.
func FromMinutes(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	if minutes >= MinutesPerDay {
		minutes = MinutesPerDay - 1
	}
	return format24(minutes/60, minutes%60)
}

// To12Hour converts HH:MM to "H:MM AM|PM". Empty or unparsable input yields "".
func To12Hour(time24 string) string {
	if time24 == "" {
		return ""
	}
	h, m, err := parse24(time24)
	if err != nil {
		return ""
	}
	period := "AM"
	if h >= 12 {
		period = "PM"
	}
	hour := h % 12
	if hour == 0 {
		hour = 12
	}
	return fmt.Sprintf("%d:%02d %s", hour, m, period)
}

// To24Hour converts "H:MM AM|PM" back to zero-padded HH:MM
func To24Hour(label string) (string, error) {
	fields := strings.Fields(strings.TrimSpace(label))
	if len(fields) != 2 {
		return "", fmt.Errorf("%w: %q", ErrInvalidTime, label)
	}
	h, m, err := splitClock(fields[0])
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidTime, label)
	}
	if h < 1 || h > 12 {
		return "", fmt.Errorf("%w: %q", ErrInvalidTime, label)
	}

	switch strings.ToUpper(fields[1]) {
	case "AM":
		if h == 12 {
			h = 0
		}
	case "PM":
		if h < 12 {
			h += 12
		}
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidTime, label)
	}
	return format24(h, m), nil
}

// Compare orders two normalized times. It returns -1, 0 or 1.
func Compare(a, b string) int {
	return strings.Compare(a, b)
}

// Before reports whether a is strictly earlier than b
func Before(a, b string) bool {
	return Compare(a, b) < 0
}

// SlotLabel renders the human-readable label for a slot, e.g. "9:00 AM - 10:00 AM"
func SlotLabel(start, end string) string {
	return To12Hour(start) + SlotLabelSeparator + To12Hour(end)
}

// ParseSlotLabel decodes a slot label into its 24h start and end
func ParseSlotLabel(label string) (string, string, error) {
	parts := strings.Split(label, SlotLabelSeparator)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("%w: slot label %q", ErrInvalidTime, label)
	}
	start, err := To24Hour(parts[0])
	if err != nil {
		return "", "", err
	}
	end, err := To24Hour(parts[1])
	if err != nil {
		return "", "", err
	}
	return start, end, nil
}

func parse24(t string) (int, int, error) {
	h, m, err := splitClock(strings.TrimSpace(t))
	if err != nil || h > 23 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, t)
	}
	return h, m, nil
}

// splitClock parses "H:MM" or "HH:MM" without range-checking the hour
func splitClock(s string) (int, int, error) {
	hourStr, minStr, ok := strings.Cut(s, ":")
	if !ok || len(hourStr) == 0 || len(hourStr) > 2 || len(minStr) != 2 {
		return 0, 0, ErrInvalidTime
	}
	// Atoi alone would accept a leading sign
	if !allDigits(hourStr) || !allDigits(minStr) {
		return 0, 0, ErrInvalidTime
	}
	h, err := strconv.Atoi(hourStr)
	if err != nil {
		return 0, 0, ErrInvalidTime
	}
	m, err := strconv.Atoi(minStr)
	if err != nil || m > 59 {
		return 0, 0, ErrInvalidTime
	}
	return h, m, nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func format24(h, m int) string {
	return fmt.Sprintf("%02d:%02d", h, m)
}
