package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/username/choliday/internal/calendar"
)

const namespace = "choliday"

var tiers = []string{calendar.TierEvent, calendar.TierWeekly, calendar.TierDefault}

// Recorder keeps the gauges of one decision run on a private registry.
// A run is one-shot, so the registry is written to a node_exporter
// textfile instead of being served.
type Recorder struct {
	registry *prometheus.Registry

	workday       prometheus.Gauge
	decisionTier  *prometheus.GaugeVec
	sourceEvents  *prometheus.GaugeVec
	sourceUp      *prometheus.GaugeVec
	eventsDropped prometheus.Counter
	lastRun       prometheus.Gauge
}

// NewRecorder creates a Recorder with all collectors registered
func NewRecorder() *Recorder {
	r := &Recorder{registry: prometheus.NewRegistry()}

	r.workday = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "workday",
		Help:      "1 when the last decision was a workday, 0 for a rest day",
	})
	r.decisionTier = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "decision_tier",
		Help:      "1 for the tier that produced the last decision",
	}, []string{"tier"})
	r.sourceEvents = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "source_events",
		Help:      "Events normalized from each calendar source",
	}, []string{"source"})
	r.sourceUp = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "source_up",
		Help:      "1 when the calendar source was fetched and parsed",
	}, []string{"source"})
	r.eventsDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_dropped_total",
		Help:      "Malformed events skipped during normalization",
	})
	r.lastRun = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix timestamp of the last decision",
	})

	r.registry.MustRegister(
		r.workday, r.decisionTier, r.sourceEvents,
		r.sourceUp, r.eventsDropped, r.lastRun,
	)
	return r
}

// Observe records one decision
func (r *Recorder) Observe(decision *calendar.Decision, now time.Time) {
	if decision.Verdict.IsWorkday() {
		r.workday.Set(1)
	} else {
		r.workday.Set(0)
	}

	for _, tier := range tiers {
		value := 0.0
		if tier == decision.Tier {
			value = 1
		}
		r.decisionTier.WithLabelValues(tier).Set(value)
	}

	for _, src := range decision.Sources {
		label := strconv.Itoa(src.Index)
		r.sourceEvents.WithLabelValues(label).Set(float64(src.Events))
		if src.Error == "" {
			r.sourceUp.WithLabelValues(label).Set(1)
		} else {
			r.sourceUp.WithLabelValues(label).Set(0)
		}
		r.eventsDropped.Add(float64(src.Dropped))
	}

	r.lastRun.Set(float64(now.Unix()))
}

// WriteTextfile writes the registry in the text exposition format.
// The file is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
