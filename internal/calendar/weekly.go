package calendar

import (
	"fmt"
	"strconv"
	"strings"
)

// WeekdaySet is a set of ISO weekday numbers, Monday = 1 ... Sunday = 7.
// The zero value is the empty set, meaning no custom rule is configured.
type WeekdaySet uint8

// InvalidPatternError reports a malformed weekly workday pattern
type InvalidPatternError struct {
	Pattern string
	Token   string
	Reason  string
}

func (e *InvalidPatternError) Error() string {
	return fmt.Sprintf("invalid workday pattern %q: token %q %s (expected forms like \"1-5\", \"1,3,5\" or \"1,3-5\", numbers 1-7 only)",
		e.Pattern, e.Token, e.Reason)
}

// ParseWeekdays parses a pattern such as "1-5", "1,3,5" or "1,3-5".
// An empty pattern yields the empty set and no error.
func ParseWeekdays(pattern string) (WeekdaySet, error) {
	if strings.TrimSpace(pattern) == "" {
		return 0, nil
	}

	var set WeekdaySet
	for _, raw := range strings.Split(pattern, ",") {
		token := strings.TrimSpace(raw)
		fail := func(reason string) (WeekdaySet, error) {
			return 0, &InvalidPatternError{Pattern: pattern, Token: token, Reason: reason}
		}

		if token == "" {
			return fail("is empty")
		}

		lo, hi, isRange := strings.Cut(token, "-")
		from, err := weekdayNumber(lo)
		if err != nil {
			return fail(err.Error())
		}
		to := from
		if isRange {
			to, err = weekdayNumber(hi)
			if err != nil {
				return fail(err.Error())
			}
			if from > to {
				return fail("is a descending range")
			}
		}

		for d := from; d <= to; d++ {
			set |= 1 << d
		}
	}

	return set, nil
}

func weekdayNumber(s string) (int, error) {
	s = strings.TrimSpace(s)
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("is not a number")
	}
	if n < 1 || n > 7 {
		return 0, fmt.Errorf("is out of range")
	}
	return n, nil
}

// Contains reports whether the ISO weekday d is in the set
func (s WeekdaySet) Contains(d int) bool {
	if d < 1 || d > 7 {
		return false
	}
	return s&(1<<d) != 0
}

// Empty reports whether no weekday is set
func (s WeekdaySet) Empty() bool {
	return s == 0
}

// Days returns the members in ascending order
func (s WeekdaySet) Days() []int {
	days := make([]int, 0, 7)
	for d := 1; d <= 7; d++ {
		if s.Contains(d) {
			days = append(days, d)
		}
	}
	return days
}

// String renders the set as a comma separated list, e.g. "1,3,4,5"
func (s WeekdaySet) String() string {
	parts := make([]string, 0, 7)
	for _, d := range s.Days() {
		parts = append(parts, strconv.Itoa(d))
	}
	return strings.Join(parts, ",")
}
