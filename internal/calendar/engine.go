package calendar

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/username/choliday/internal/ics"
	"github.com/username/choliday/internal/source"
	"github.com/username/choliday/pkg/dateutil"
)

// Engine decides workday or rest day with a strict fallback chain:
// Primary: calendar events (keyword match + priority)
// Secondary: weekly workday pattern, when configured
// Fallback: Saturday and Sunday are rest days
type Engine struct {
	settings Settings
	tiers    []Tier
	fallback Tier
	logger   *zap.Logger
}

// NewEngine creates a new Engine from validated settings
func NewEngine(settings Settings, logger *zap.Logger) *Engine {
	if settings.Location == nil {
		settings.Location = time.Local
	}
	if !settings.Priority.Valid() {
		settings.Priority = WorkOverRest
	}

	tiers := []Tier{
		NewEventTier(NewMatcher(settings.WorkKeywords, settings.RestKeywords), settings.Priority),
	}
	if !settings.Workdays.Empty() {
		tiers = append(tiers, NewWeeklyTier(settings.Workdays, settings.Location))
	}

	return &Engine{
		settings: settings,
		tiers:    tiers,
		fallback: NewWeekendTier(settings.Location),
		logger:   logger,
	}
}

// Decide returns the verdict for target over an already materialized event
// list. It is a pure function of its inputs and the engine settings.
func (e *Engine) Decide(target time.Time, events []Event) *Decision {
	local := target.In(e.settings.Location)
	decision := &Decision{
		Target:  local,
		Weekday: dateutil.ISOWeekday(local),
	}

	for _, tier := range e.tiers {
		verdict, matches, ok := tier.Decide(target, events)
		if len(matches) > 0 {
			decision.Matches = matches
		}
		if !ok {
			e.logger.Debug("Tier produced no verdict, falling back",
				zap.String("tier", tier.Name()),
				zap.Int("covering_events", len(matches)))
			continue
		}

		decision.Verdict = verdict
		decision.Tier = tier.Name()
		return decision
	}

	verdict, _, _ := e.fallback.Decide(target, events)
	decision.Verdict = verdict
	decision.Tier = e.fallback.Name()
	return decision
}

// Ingest parses and normalizes fetched sources into one event list ordered
// by (SourceIndex, SequenceIndex). Malformed events are dropped; failed
// sources contribute nothing unless strict mode is on, in which case any
// source failure is returned as an error.
func (e *Engine) Ingest(fetched []source.Result) ([]Event, []SourceReport, error) {
	results := append([]source.Result(nil), fetched...)
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Source.Index < results[j].Source.Index
	})

	var (
		events  []Event
		errs    error
		failed  int
		reports = make([]SourceReport, 0, len(results))
	)

	for _, res := range results {
		report := SourceReport{
			Index: res.Source.Index,
			URI:   source.Redact(res.Source.URI),
		}

		evs, dropped, err := e.ingestOne(res)
		report.Events = len(evs)
		report.Dropped = dropped
		if err != nil {
			failed++
			report.Error = err.Error()
			errs = multierr.Append(errs, err)
		}

		events = append(events, evs...)
		reports = append(reports, report)
	}

	if errs != nil && e.settings.Strict {
		return nil, reports, fmt.Errorf("strict source check failed: %w", errs)
	}

	if failed > 0 && failed == len(results) {
		e.logger.Warn("All calendar sources failed, deciding without events",
			zap.Int("sources", failed))
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].before(events[j])
	})

	return events, reports, nil
}

func (e *Engine) ingestOne(res source.Result) ([]Event, int, error) {
	if res.Err != nil {
		return nil, 0, res.Err
	}

	doc, err := ics.Parse(res.Body)
	if err != nil {
		fetchErr := &source.FetchError{Source: res.Source, Err: err}
		e.logger.Warn("Calendar source is not valid iCalendar",
			zap.Int("source", res.Source.Index),
			zap.String("uri", source.Redact(res.Source.URI)),
			zap.Error(err))
		return nil, 0, fetchErr
	}

	loc := e.settings.Location
	if doc.TimeZone != "" {
		zone, err := loadZone(doc.TimeZone)
		if err != nil {
			e.logger.Warn("Ignoring unknown calendar timezone",
				zap.Int("source", res.Source.Index),
				zap.String("timezone", doc.TimeZone))
		} else {
			loc = zone
		}
	}

	events := make([]Event, 0, len(doc.Events))
	dropped := 0

	for i, raw := range doc.Events {
		ev, err := Normalize(raw, loc)
		if errors.Is(err, ErrCancelled) {
			e.logger.Debug("Skipping cancelled event",
				zap.Int("source", res.Source.Index),
				zap.Int("sequence", i),
				zap.String("uid", raw.Value(propUID)))
			continue
		}
		if err != nil {
			dropped++
			e.logger.Warn("Skipping malformed event",
				zap.Int("source", res.Source.Index),
				zap.Int("sequence", i),
				zap.Error(err))
			continue
		}

		ev.SourceIndex = res.Source.Index
		ev.SequenceIndex = i
		events = append(events, ev)
	}

	e.logger.Debug("Calendar source parsed",
		zap.Int("source", res.Source.Index),
		zap.Int("events", len(events)),
		zap.Int("dropped", dropped))

	return events, dropped, nil
}

// Evaluate is the single entry point: ingest fetched sources, then decide
func (e *Engine) Evaluate(target time.Time, fetched []source.Result) (*Decision, error) {
	events, reports, err := e.Ingest(fetched)
	if err != nil {
		return nil, err
	}

	decision := e.Decide(target, events)
	decision.Sources = reports

	e.logger.Info("Decision made",
		zap.Time("target", decision.Target),
		zap.Stringer("verdict", decision.Verdict),
		zap.String("tier", decision.Tier),
		zap.Int("events", len(events)),
		zap.Int("matches", len(decision.Matches)))

	return decision, nil
}
