package calendar

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	_ "time/tzdata" // TZID lookups must not depend on host zoneinfo

	"github.com/teambition/rrule-go"

	"github.com/username/choliday/internal/ics"
)

const (
	propSummary     = "SUMMARY"
	propDescription = "DESCRIPTION"
	propUID         = "UID"
	propStatus      = "STATUS"
	propDtStart     = "DTSTART"
	propDtEnd       = "DTEND"
	propDuration    = "DURATION"
	propRRule       = "RRULE"
	propRDate       = "RDATE"
	propExDate      = "EXDATE"

	dateLayout      = "20060102"
	localTimeLayout = "20060102T150405"
	utcTimeLayout   = "20060102T150405Z"
)

// ErrCancelled marks an event with STATUS:CANCELLED; such events are skipped
var ErrCancelled = errors.New("event is cancelled")

// NormalizationError reports a single event that could not be normalized
type NormalizationError struct {
	UID      string
	Property string
	Err      error
}

func (e *NormalizationError) Error() string {
	if e.UID != "" {
		return fmt.Sprintf("event %q: %s: %v", e.UID, e.Property, e.Err)
	}
	return fmt.Sprintf("event: %s: %v", e.Property, e.Err)
}

func (e *NormalizationError) Unwrap() error {
	return e.Err
}

// Normalize converts a raw VEVENT into an Event with UTC start and end.
// loc is the calendar's declared timezone; it applies to all-day dates and
// to floating date-times without a TZID parameter.
func Normalize(raw ics.RawEvent, loc *time.Location) (Event, error) {
	if loc == nil {
		loc = time.Local
	}

	ev := Event{
		UID:         raw.Value(propUID),
		Title:       raw.Value(propSummary),
		Description: raw.Value(propDescription),
	}

	fail := func(prop string, err error) (Event, error) {
		return Event{}, &NormalizationError{UID: ev.UID, Property: prop, Err: err}
	}

	if strings.EqualFold(strings.TrimSpace(raw.Value(propStatus)), "CANCELLED") {
		return Event{}, ErrCancelled
	}

	startProp, ok := raw.Get(propDtStart)
	if !ok {
		return fail(propDtStart, errors.New("missing"))
	}
	start, allDay, err := parseDateValue(startProp, loc)
	if err != nil {
		return fail(propDtStart, err)
	}
	ev.AllDay = allDay

	var end time.Time
	if endProp, ok := raw.Get(propDtEnd); ok {
		end, _, err = parseDateValue(endProp, loc)
		if err != nil {
			return fail(propDtEnd, err)
		}
	} else if durProp, ok := raw.Get(propDuration); ok {
		d, err := ParseDuration(durProp.Value)
		if err != nil {
			return fail(propDuration, err)
		}
		end = addDuration(start, d, allDay)
	} else if allDay {
		end = start.AddDate(0, 0, 1)
	} else {
		end = start
	}

	if end.Before(start) {
		return fail(propDtEnd, fmt.Errorf("end %s is before start %s",
			end.Format(time.RFC3339), start.Format(time.RFC3339)))
	}

	_, hasRRule := raw.Get(propRRule)
	_, hasRDate := raw.Get(propRDate)
	if hasRRule || hasRDate {
		set, prop, err := buildRecurrence(raw, start, loc)
		if err != nil {
			return fail(prop, err)
		}
		ev.recurrence = set
		ev.span = end.Sub(start)
		ev.spanDays = int(math.Round(ev.span.Hours() / 24))
	}

	ev.Start = start.UTC()
	ev.End = end.UTC()
	return ev, nil
}

// parseDateValue parses DATE and DATE-TIME values:
//   - 20250101 (all-day, midnight in loc)
//   - 20250101T090000 (floating, in the TZID zone or loc)
//   - 20250101T090000Z (UTC)
func parseDateValue(p ics.Property, loc *time.Location) (t time.Time, allDay bool, err error) {
	value := strings.ToUpper(strings.TrimSpace(p.Value))
	if value == "" {
		return time.Time{}, false, errors.New("empty value")
	}

	if strings.EqualFold(p.Param("VALUE"), "DATE") || len(value) == len(dateLayout) {
		t, err = time.ParseInLocation(dateLayout, value, loc)
		if err != nil {
			return time.Time{}, false, fmt.Errorf("invalid date %q", p.Value)
		}
		return t, true, nil
	}

	if strings.HasSuffix(value, "Z") {
		t, err = time.Parse(utcTimeLayout, value)
		if err != nil {
			return time.Time{}, false, fmt.Errorf("invalid UTC date-time %q", p.Value)
		}
		return t, false, nil
	}

	zone := loc
	if tzid := p.Param("TZID"); tzid != "" {
		zone, err = loadZone(tzid)
		if err != nil {
			return time.Time{}, false, err
		}
	}

	t, err = time.ParseInLocation(localTimeLayout, value, zone)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid date-time %q", p.Value)
	}
	return t, false, nil
}

// loadZone resolves a TZID such as "Europe/Berlin". Some producers prefix
// the IANA name with a vendor path ("/mozilla.org/20050126_1/Europe/Berlin").
func loadZone(tzid string) (*time.Location, error) {
	name := strings.TrimSpace(tzid)
	if loc, err := time.LoadLocation(name); err == nil {
		return loc, nil
	}

	if strings.HasPrefix(name, "/") {
		parts := strings.Split(strings.TrimPrefix(name, "/"), "/")
		for i := 1; i < len(parts); i++ {
			if loc, err := time.LoadLocation(strings.Join(parts[i:], "/")); err == nil {
				return loc, nil
			}
		}
	}

	return nil, fmt.Errorf("unknown timezone %q", tzid)
}

// addDuration applies a DURATION to start. Whole days on all-day events
// step by calendar days so DST transitions keep midnight boundaries.
func addDuration(start time.Time, d time.Duration, allDay bool) time.Time {
	const day = 24 * time.Hour
	if allDay && d%day == 0 {
		return start.AddDate(0, 0, int(d/day))
	}
	return start.Add(d)
}

// buildRecurrence builds the occurrence set of an RRULE and/or RDATE event.
// Without RRULE, DTSTART itself is the first occurrence. prop names the
// property that failed.
func buildRecurrence(raw ics.RawEvent, start time.Time, loc *time.Location) (*rrule.Set, string, error) {
	set := &rrule.Set{}

	if rruleProp, ok := raw.Get(propRRule); ok {
		// A DATE-form UNTIL is a local date in the DTSTART zone
		opt, err := rrule.StrToROptionInLocation(rruleProp.Value, start.Location())
		if err != nil {
			return nil, propRRule, fmt.Errorf("invalid RRULE %q: %w", rruleProp.Value, err)
		}
		opt.Dtstart = start

		r, err := rrule.NewRRule(*opt)
		if err != nil {
			return nil, propRRule, fmt.Errorf("invalid RRULE %q: %w", rruleProp.Value, err)
		}
		set.RRule(r)
	} else {
		set.RDate(start)
	}

	for _, p := range raw.All(propRDate) {
		times, err := parseDateList(p, loc)
		if err != nil {
			return nil, propRDate, err
		}
		for _, t := range times {
			set.RDate(t)
		}
	}

	for _, p := range raw.All(propExDate) {
		times, err := parseDateList(p, loc)
		if err != nil {
			return nil, propExDate, err
		}
		for _, t := range times {
			set.ExDate(t)
		}
	}

	return set, "", nil
}

// parseDateList parses comma separated EXDATE/RDATE values sharing the
// property's parameters
func parseDateList(p ics.Property, loc *time.Location) ([]time.Time, error) {
	var out []time.Time
	for _, part := range strings.Split(p.Value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		t, _, err := parseDateValue(ics.Property{Value: part, Params: p.Params}, loc)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}
