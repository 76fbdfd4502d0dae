package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	ical "github.com/arran4/golang-ical"
)

const propertyXWRTimezone = "X-WR-TIMEZONE"

// ErrEmptyBody is returned when a source produced no calendar data
var ErrEmptyBody = errors.New("empty ICS body")

// ErrNotCalendar is returned when a payload carries no VCALENDAR object
var ErrNotCalendar = errors.New("payload is not an iCalendar document")

// Property is a single iCalendar content line of a VEVENT
type Property struct {
	Value  string
	Params map[string][]string
}

// Param returns the first value of the named parameter or ""
func (p Property) Param(name string) string {
	for key, values := range p.Params {
		if strings.EqualFold(key, name) && len(values) > 0 {
			return strings.Trim(values[0], `"`)
		}
	}
	return ""
}

// RawEvent holds the properties of one VEVENT keyed by upper-case name.
// A property that occurs several times (EXDATE, RDATE) keeps every occurrence.
type RawEvent map[string][]Property

// Get returns the first occurrence of the named property
func (e RawEvent) Get(name string) (Property, bool) {
	props := e[strings.ToUpper(name)]
	if len(props) == 0 {
		return Property{}, false
	}
	return props[0], true
}

// Value returns the value of the first occurrence of the named property or ""
func (e RawEvent) Value(name string) string {
	p, _ := e.Get(name)
	return p.Value
}

// All returns every occurrence of the named property
func (e RawEvent) All(name string) []Property {
	return e[strings.ToUpper(name)]
}

// Document is a parsed VCALENDAR
type Document struct {
	// TimeZone is the calendar's declared timezone (X-WR-TIMEZONE), may be empty
	TimeZone string
	Events   []RawEvent
}

// Parse parses a single ICS payload into raw VEVENT property maps.
// Events keep the order in which they appear in the payload.
func Parse(body []byte) (*Document, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, ErrEmptyBody
	}
	if !bytes.Contains(bytes.ToUpper(body), []byte("BEGIN:VCALENDAR")) {
		return nil, ErrNotCalendar
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse calendar: %w", err)
	}

	doc := &Document{}

	for _, prop := range cal.CalendarProperties {
		if strings.EqualFold(prop.IANAToken, propertyXWRTimezone) {
			doc.TimeZone = strings.TrimSpace(prop.Value)
		}
	}

	vevents := cal.Events()
	doc.Events = make([]RawEvent, 0, len(vevents))

	for _, ve := range vevents {
		raw := make(RawEvent, len(ve.Properties))
		for _, prop := range ve.Properties {
			name := strings.ToUpper(prop.IANAToken)
			raw[name] = append(raw[name], Property{
				Value:  prop.Value,
				Params: prop.ICalParameters,
			})
		}
		doc.Events = append(doc.Events, raw)
	}

	return doc, nil
}
