package calendar

import (
	"sort"
	"time"

	"github.com/username/choliday/pkg/dateutil"
)

// Tier is one level of the decision chain. A tier either answers
// (ok = true) or defers to the next tier.
type Tier interface {
	Name() string
	Decide(target time.Time, events []Event) (verdict Verdict, matches []Classified, ok bool)
}

// EventTier answers from calendar events covering the target instant
type EventTier struct {
	matcher  *Matcher
	priority Priority
}

// NewEventTier creates a new EventTier
func NewEventTier(matcher *Matcher, priority Priority) *EventTier {
	return &EventTier{
		matcher:  matcher,
		priority: priority,
	}
}

// Name implements Tier
func (et *EventTier) Name() string {
	return TierEvent
}

// Decide selects events covering target, classifies and resolves them
func (et *EventTier) Decide(target time.Time, events []Event) (Verdict, []Classified, bool) {
	covering := make([]Classified, 0)
	for _, ev := range events {
		if !ev.Covers(target) {
			continue
		}
		covering = append(covering, Classified{
			Event: ev,
			Class: et.matcher.Classify(ev),
		})
	}

	sort.SliceStable(covering, func(i, j int) bool {
		return covering[i].Event.before(covering[j].Event)
	})

	verdict, ok := Resolve(et.priority, covering)
	return verdict, covering, ok
}

// WeeklyTier answers from the configured workday pattern
type WeeklyTier struct {
	workdays WeekdaySet
	loc      *time.Location
}

// NewWeeklyTier creates a new WeeklyTier
func NewWeeklyTier(workdays WeekdaySet, loc *time.Location) *WeeklyTier {
	return &WeeklyTier{
		workdays: workdays,
		loc:      loc,
	}
}

// Name implements Tier
func (wt *WeeklyTier) Name() string {
	return TierWeekly
}

// Decide reports Workday when the target's weekday is in the pattern.
// An empty pattern defers.
func (wt *WeeklyTier) Decide(target time.Time, _ []Event) (Verdict, []Classified, bool) {
	if wt.workdays.Empty() {
		return 0, nil, false
	}
	if wt.workdays.Contains(dateutil.ISOWeekday(target.In(wt.loc))) {
		return Workday, nil, true
	}
	return RestDay, nil, true
}

// WeekendTier is the hardcoded default: Saturday and Sunday are rest days
type WeekendTier struct {
	loc *time.Location
}

// NewWeekendTier creates a new WeekendTier
func NewWeekendTier(loc *time.Location) *WeekendTier {
	return &WeekendTier{loc: loc}
}

// Name implements Tier
func (dt *WeekendTier) Name() string {
	return TierDefault
}

// Decide always answers
func (dt *WeekendTier) Decide(target time.Time, _ []Event) (Verdict, []Classified, bool) {
	if dateutil.IsWeekend(target.In(dt.loc)) {
		return RestDay, nil, true
	}
	return Workday, nil, true
}
