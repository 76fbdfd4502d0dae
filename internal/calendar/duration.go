package calendar

import (
	"fmt"
	"strings"
	"time"
)

// ParseDuration parses an RFC 5545 DURATION value to time.Duration.
// Calendar units are exact here: 1 day = 24 hours, 1 week = 7 days.
// Supported formats:
//   - PT8H -> 8 hours
//   - P1D -> 24 hours
//   - P1W -> 168 hours
//   - P2DT3H30M -> 2 days + 3.5 hours
//   - -PT15M -> minus 15 minutes
func ParseDuration(value string) (time.Duration, error) {
	duration := strings.ToUpper(strings.TrimSpace(value))
	if duration == "" {
		return 0, fmt.Errorf("empty duration")
	}

	sign := time.Duration(1)
	switch duration[0] {
	case '+':
		duration = duration[1:]
	case '-':
		sign = -1
		duration = duration[1:]
	}

	if !strings.HasPrefix(duration, "P") {
		return 0, fmt.Errorf("invalid duration %q: must start with P", value)
	}
	duration = duration[1:]

	// Split by 'T' to separate date and time parts
	datePart, timePart, hasTime := strings.Cut(duration, "T")
	if datePart == "" && timePart == "" {
		return 0, fmt.Errorf("invalid duration %q: no components", value)
	}
	if hasTime && timePart == "" {
		return 0, fmt.Errorf("invalid duration %q: empty time part", value)
	}

	total, err := sumUnits(datePart, map[byte]time.Duration{
		'W': 7 * 24 * time.Hour,
		'D': 24 * time.Hour,
	})
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", value, err)
	}

	timeTotal, err := sumUnits(timePart, map[byte]time.Duration{
		'H': time.Hour,
		'M': time.Minute,
		'S': time.Second,
	})
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", value, err)
	}

	return sign * (total + timeTotal), nil
}

// sumUnits adds up "<n><unit>" groups such as "3H30M"
func sumUnits(part string, units map[byte]time.Duration) (time.Duration, error) {
	var total time.Duration
	n, digits := 0, 0

	for i := 0; i < len(part); i++ {
		c := part[i]
		if c >= '0' && c <= '9' {
			n = n*10 + int(c-'0')
			digits++
			continue
		}

		unit, ok := units[c]
		if !ok {
			return 0, fmt.Errorf("unexpected %q", c)
		}
		if digits == 0 {
			return 0, fmt.Errorf("missing number before %q", c)
		}
		total += time.Duration(n) * unit
		n, digits = 0, 0
	}

	if digits > 0 {
		return 0, fmt.Errorf("number without unit")
	}
	return total, nil
}
