package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

// Verdict is the final answer for a target instant
type Verdict int

const (
	Workday Verdict = iota + 1
	RestDay
)

// String implements fmt.Stringer
func (v Verdict) String() string {
	switch v {
	case Workday:
		return "workday"
	case RestDay:
		return "restday"
	default:
		return "unknown"
	}
}

// IsWorkday reports whether the verdict is Workday
func (v Verdict) IsWorkday() bool {
	return v == Workday
}

// ExitCode maps the verdict to the process exit status: 0 = workday, 1 = rest day
func (v Verdict) ExitCode() int {
	if v == Workday {
		return 0
	}
	return 1
}

// MarshalYAML renders the verdict by name
func (v Verdict) MarshalYAML() (interface{}, error) {
	return v.String(), nil
}

// Classification is the keyword match result for one event
type Classification int

const (
	Neither Classification = iota
	Work
	Rest
	Both
)

// String implements fmt.Stringer
func (c Classification) String() string {
	switch c {
	case Work:
		return "work"
	case Rest:
		return "rest"
	case Both:
		return "both"
	default:
		return "neither"
	}
}

// MarshalYAML renders the classification by name
func (c Classification) MarshalYAML() (interface{}, error) {
	return c.String(), nil
}

// Priority resolves simultaneous work and rest matches. The zero value
// is not a strategy; NewEngine replaces it with WorkOverRest.
type Priority int

const (
	WorkOverRest Priority = iota + 1
	RestOverWork
	KeepCurrent
	UseLatest
)

var priorityNames = map[Priority]string{
	WorkOverRest: "WorkOverRest",
	RestOverWork: "RestOverWork",
	KeepCurrent:  "KeepCurrent",
	UseLatest:    "UseLatest",
}

// Valid reports whether p names a strategy
func (p Priority) Valid() bool {
	_, ok := priorityNames[p]
	return ok
}

// String implements fmt.Stringer
func (p Priority) String() string {
	if name, ok := priorityNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Priority(%d)", int(p))
}

// ParsePriority parses a strategy name. Matching ignores case,
// underscores and dashes, so "use_latest" and "UseLatest" are equal.
func ParsePriority(name string) (Priority, error) {
	normalized := strings.NewReplacer("_", "", "-", "", " ", "").Replace(name)
	for p, pname := range priorityNames {
		if strings.EqualFold(normalized, pname) {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown priority %q: must be one of WorkOverRest, RestOverWork, KeepCurrent, UseLatest", name)
}

// Tier names recorded on a Decision
const (
	TierEvent   = "event"
	TierWeekly  = "weekly"
	TierDefault = "default"
)

// Event is one normalized calendar occurrence
type Event struct {
	UID         string    `yaml:"uid,omitempty"`
	Title       string    `yaml:"title"`
	Description string    `yaml:"description,omitempty"`
	Start       time.Time `yaml:"start"`
	End         time.Time `yaml:"end"`
	AllDay      bool      `yaml:"all_day"`

	SourceIndex   int `yaml:"source"`
	SequenceIndex int `yaml:"sequence"`

	// recurrence is set for RRULE/RDATE events; Start/End then describe
	// the first occurrence.
	recurrence *rrule.Set
	spanDays   int
	span       time.Duration
}

// Recurring reports whether the event repeats
func (e Event) Recurring() bool {
	return e.recurrence != nil
}

// Covers reports whether the event covers t. The interval is half-open,
// [Start, End); a zero-length event covers exactly its start instant.
func (e Event) Covers(t time.Time) bool {
	if e.recurrence == nil {
		return covers(e.Start, e.End, t)
	}

	// The latest occurrence starting at or before t ends last among all
	// candidates, so it alone decides coverage.
	occStart := e.recurrence.Before(t, true)
	if occStart.IsZero() {
		return false
	}

	var occEnd time.Time
	if e.AllDay {
		occEnd = occStart.AddDate(0, 0, e.spanDays)
	} else {
		occEnd = occStart.Add(e.span)
	}
	return covers(occStart, occEnd, t)
}

func covers(start, end, t time.Time) bool {
	if start.Equal(end) {
		return t.Equal(start)
	}
	return !t.Before(start) && t.Before(end)
}

// before orders events by (SourceIndex, SequenceIndex)
func (e Event) before(other Event) bool {
	if e.SourceIndex != other.SourceIndex {
		return e.SourceIndex < other.SourceIndex
	}
	return e.SequenceIndex < other.SequenceIndex
}

// Classified pairs an event with its keyword classification
type Classified struct {
	Event Event          `yaml:"event"`
	Class Classification `yaml:"class"`
}

// SourceReport summarises what one calendar source contributed
type SourceReport struct {
	Index   int    `yaml:"index"`
	URI     string `yaml:"uri"`
	Events  int    `yaml:"events"`
	Dropped int    `yaml:"dropped"`
	Error   string `yaml:"error,omitempty"`
}

// Decision is the engine's answer for a target instant together with
// the evidence that produced it
type Decision struct {
	Target  time.Time      `yaml:"target"`
	Verdict Verdict        `yaml:"verdict"`
	Tier    string         `yaml:"tier"`
	Weekday int            `yaml:"weekday"`
	Matches []Classified   `yaml:"matches,omitempty"`
	Sources []SourceReport `yaml:"sources,omitempty"`
}

// Settings is the validated configuration consumed by the engine
type Settings struct {
	Workdays     WeekdaySet
	WorkKeywords []string
	RestKeywords []string
	Priority     Priority
	// Location is used for floating times, all-day events without a
	// declared timezone and weekday computation. Defaults to time.Local.
	Location *time.Location
	// Strict makes any calendar source failure fatal
	Strict bool
}
