// Package report provides TimelineProcessor sinks: a structured-log
// reporter, an in-memory aggregator, and a fan-out combinator.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bnema/lagmon/internal/event"
	"github.com/bnema/lagmon/internal/latency"
	"github.com/bnema/lagmon/internal/logger"
)

// LogReporter logs each completed timeline.
type LogReporter struct{}

func NewLogReporter() *LogReporter {
	return &LogReporter{}
}

func (r *LogReporter) ProcessTimeline(timeline *latency.EventTimeline) {
	sources := make([]string, len(timeline.Sources))
	for i, s := range timeline.Sources {
		sources[i] = s.String()
	}
	log := logger.With(
		"action", timeline.ActionType.String(),
		"sources", strings.Join(sources, ","),
		"vendor", fmt.Sprintf("%04x", timeline.Vendor),
		"product", fmt.Sprintf("%04x", timeline.Product),
		"read_latency", time.Duration(timeline.ReadTime-timeline.EventTime),
	)
	if len(timeline.ConnectionTimelines) == 0 {
		log.Info("event timeline (no completion data)")
		return
	}
	for token, ct := range timeline.ConnectionTimelines {
		keyvals := []interface{}{"token", token}
		if ct.HasDispatchTimeline() {
			keyvals = append(keyvals,
				"deliver", time.Duration(ct.DeliveryTime-timeline.EventTime),
				"consume", time.Duration(ct.ConsumeTime-timeline.EventTime),
				"finish", time.Duration(ct.FinishTime-timeline.EventTime),
			)
		}
		if ct.HasGraphicsTimeline() {
			keyvals = append(keyvals,
				"gpu_completed", time.Duration(ct.Graphics[latency.GPUCompletedTime]-timeline.EventTime),
				"present", time.Duration(ct.Graphics[latency.PresentTime]-timeline.EventTime),
			)
		}
		log.Info("event timeline", keyvals...)
	}
}

// ActionStats aggregates end-to-end latency for one action type.
type ActionStats struct {
	Count int64
	Min   time.Duration
	Max   time.Duration
	Sum   time.Duration
}

// Mean returns the average latency, or zero with no observations.
func (s ActionStats) Mean() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.Sum / time.Duration(s.Count)
}

func (s *ActionStats) observe(d time.Duration) {
	if s.Count == 0 || d < s.Min {
		s.Min = d
	}
	if d > s.Max {
		s.Max = d
	}
	s.Count++
	s.Sum += d
}

// Stats aggregates end-to-end latency (event time to present, falling back
// to finish) per action type. Like the tracker it assumes serialized
// access.
type Stats struct {
	perAction map[event.ActionType]*ActionStats
}

func NewStats() *Stats {
	return &Stats{perAction: make(map[event.ActionType]*ActionStats)}
}

func (s *Stats) ProcessTimeline(timeline *latency.EventTimeline) {
	for _, ct := range timeline.ConnectionTimelines {
		var end int64
		switch {
		case ct.HasGraphicsTimeline():
			end = ct.Graphics[latency.PresentTime]
		case ct.HasDispatchTimeline():
			end = ct.FinishTime
		default:
			continue
		}
		stats, ok := s.perAction[timeline.ActionType]
		if !ok {
			stats = &ActionStats{}
			s.perAction[timeline.ActionType] = stats
		}
		stats.observe(time.Duration(end - timeline.EventTime))
	}
}

// Snapshot returns a copy of the aggregates.
func (s *Stats) Snapshot() map[event.ActionType]ActionStats {
	out := make(map[event.ActionType]ActionStats, len(s.perAction))
	for k, v := range s.perAction {
		out[k] = *v
	}
	return out
}

// String renders the aggregates one action per line, sorted by action name.
func (s *Stats) String() string {
	type row struct {
		name  string
		stats ActionStats
	}
	rows := make([]row, 0, len(s.perAction))
	for action, stats := range s.perAction {
		rows = append(rows, row{name: action.String(), stats: *stats})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].name < rows[j].name })

	var b strings.Builder
	for _, r := range rows {
		fmt.Fprintf(&b, "%-18s count=%-6d min=%-10s mean=%-10s max=%s\n",
			r.name, r.stats.Count, r.stats.Min, r.stats.Mean(), r.stats.Max)
	}
	return b.String()
}

// Multi fans each timeline out to several processors in order.
type Multi []latency.TimelineProcessor

func (m Multi) ProcessTimeline(timeline *latency.EventTimeline) {
	for _, p := range m {
		p.ProcessTimeline(timeline)
	}
}
