package dateutil

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// TargetHelp describes the accepted target date formats
	TargetHelp = `Date format must be one of: "YYYYmmDD", "YYYYmmDDHHMMss", "today" or UNIX timestamp (milliseconds). Leave empty to use the current time`

	dateLayout     = "20060102"
	dateTimeLayout = "20060102150405"
	todayKeyword   = "today"
)

// EndOfDay returns the last whole second of the day (23:59:59) for the given date
func EndOfDay(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), 23, 59, 59, 0, date.Location())
}

// ISOWeekday returns the ISO 8601 weekday number: Monday = 1 ... Sunday = 7
func ISOWeekday(date time.Time) int {
	weekday := int(date.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday = 7
	}
	return weekday
}

// IsWeekend returns true if the date is Saturday or Sunday
func IsWeekend(date time.Time) bool {
	weekday := date.Weekday()
	return weekday == time.Saturday || weekday == time.Sunday
}

// ParseTarget parses a target date argument relative to now.
// Wall-clock forms are interpreted in now's location.
//
// Supported formats:
//   - "" -> now
//   - "today" -> today at 23:59:59
//   - "20241225" -> 2024-12-25 23:59:59
//   - "20241225143000" -> 2024-12-25 14:30:00
//   - "1735111800000" -> UNIX timestamp in milliseconds
func ParseTarget(value string, now time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	loc := now.Location()

	switch {
	case value == "":
		return now, nil
	case strings.EqualFold(value, todayKeyword):
		return EndOfDay(now), nil
	}

	digitsOnly := isDigits(value)

	if digitsOnly && len(value) == len(dateLayout) {
		date, err := time.ParseInLocation(dateLayout, value, loc)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date %q: %s", value, TargetHelp)
		}
		return EndOfDay(date), nil
	}

	if digitsOnly && len(value) == len(dateTimeLayout) {
		date, err := time.ParseInLocation(dateTimeLayout, value, loc)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date %q: %s", value, TargetHelp)
		}
		return date, nil
	}

	millis, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %s", value, TargetHelp)
	}

	return time.UnixMilli(millis).In(loc), nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
