package latency

import (
	"fmt"
	"time"

	"github.com/bnema/lagmon/internal/device"
	"github.com/bnema/lagmon/internal/event"
	"github.com/bnema/lagmon/internal/logger"
	"github.com/google/uuid"
)

// TimelineProcessor receives each completed timeline exactly once, after
// which the tracker forgets the event.
type TimelineProcessor interface {
	ProcessTimeline(timeline *EventTimeline)
}

// DefaultDispatchTimeout is the unmultiplied dispatch timeout. Events older
// than this (scaled by the host's timeout multiplier) are considered mature:
// downstream reporters have almost certainly abandoned them, so waiting
// longer buys nothing.
const DefaultDispatchTimeout = 5 * time.Second

// Tracker correlates dispatched input events with the completion signals
// that arrive later, out of order, from untrusted reporters.
//
// Tracker is owned by a single goroutine and performs no locking. The
// pipeline package provides the serialization boundary for callers on other
// goroutines.
type Tracker struct {
	processor TimelineProcessor
	maturity  time.Duration

	// timelines and pending are kept in sync manually: every id in
	// timelines has exactly one (eventTime, id) entry in pending, and vice
	// versa. Desynchronization is a programmer error and panics.
	timelines map[event.EventID]*EventTimeline
	pending   pendingIndex

	devices *device.Registry
}

// NewTracker creates a tracker reporting to processor. A nil processor is a
// programmer error.
func NewTracker(processor TimelineProcessor, maturityThreshold time.Duration) *Tracker {
	if processor == nil {
		panic("latency: NewTracker called with nil processor")
	}
	if maturityThreshold <= 0 {
		maturityThreshold = DefaultDispatchTimeout
	}
	return &Tracker{
		processor: processor,
		maturity:  maturityThreshold,
		timelines: make(map[event.EventID]*EventTimeline),
		devices:   device.NewRegistry(),
	}
}

// SetInputDevices replaces the known device list. Device lists refresh
// asynchronously from event delivery, so events may briefly reference
// devices the tracker does not know about yet.
func (t *Tracker) SetInputDevices(devices []device.Device) {
	t.devices.SetDevices(devices)
}

// TrackNotifyMotion begins tracking a dispatched motion event.
func (t *Tracker) TrackNotifyMotion(args event.NotifyMotionArgs) {
	sources := event.SourcesForMotion(args)
	t.trackListener(args.ID, args.EventTime, args.ReadTime, args.DeviceID, sources,
		args.Action, event.TypeMotion)
}

// TrackNotifyKey begins tracking a dispatched key event.
func (t *Tracker) TrackNotifyKey(args event.NotifyKeyArgs) {
	keyboardType := t.devices.KeyboardType(args.DeviceID)
	sources := []event.UsageSource{event.SourceForKey(keyboardType, args)}
	t.trackListener(args.ID, args.EventTime, args.ReadTime, args.DeviceID, sources,
		args.Action, event.TypeKey)
}

func (t *Tracker) trackListener(id event.EventID, eventTime, readTime int64,
	deviceID event.DeviceID, sources []event.UsageSource, action int32,
	eventType event.EventType) {
	t.ReportAndPruneMatureRecords(eventTime)

	if _, ok := t.timelines[id]; ok {
		// Event ids are randomly generated upstream, so two events can
		// collide. Drop both: the reporters cannot be told apart, and
		// misattributing their timing data is worse than losing two
		// records.
		logger.Error("duplicate event id, dropping both records", "id", id)
		delete(t.timelines, id)
		t.pending.eraseByID(id)
		return
	}

	dev, ok := t.devices.Find(deviceID)
	if !ok {
		// The device list refreshes asynchronously, so an unknown device is
		// a race with that refresh, not a fault.
		logger.Error("could not find device identity, dropping tracking call",
			"device_id", deviceID, "id", id)
		return
	}

	actionType := event.ClassifyAction(eventType, action)

	t.timelines[id] = newEventTimeline(eventTime, readTime,
		dev.Identity.Vendor, dev.Identity.Product, sources, actionType)
	t.pending.insert(eventTime, id)
}

// TrackFinishedEvent records the dispatch sub-timeline a connection reports
// for an event. Unknown ids are a silent no-op: the event may have been
// pruned, discarded as a duplicate, or the reporter may simply be lying.
func (t *Tracker) TrackFinishedEvent(id event.EventID, connectionToken uuid.UUID,
	deliveryTime, consumeTime, finishTime int64) {
	timeline, ok := t.timelines[id]
	if !ok {
		return
	}

	ct, ok := timeline.ConnectionTimelines[connectionToken]
	if !ok {
		// Most likely case: the finish signal is this connection's first.
		ct = &ConnectionTimeline{}
		timeline.ConnectionTimelines[connectionToken] = ct
	}
	if !ct.SetDispatchTimeline(deliveryTime, consumeTime, finishTime) {
		// Unreliable data from this reporter. Remove its entire entry
		// rather than keep a half-trusted record; other connections and the
		// event itself are unaffected.
		logger.Error("inconsistent dispatch timeline, dropping connection entry",
			"id", id, "token", connectionToken)
		delete(timeline.ConnectionTimelines, connectionToken)
	}
}

// TrackGraphicsLatency records the graphics sub-timeline a connection
// reports for an event. Unknown ids are a silent no-op.
func (t *Tracker) TrackGraphicsLatency(id event.EventID, connectionToken uuid.UUID,
	graphics GraphicsTimeline) {
	timeline, ok := t.timelines[id]
	if !ok {
		return
	}

	ct, ok := timeline.ConnectionTimelines[connectionToken]
	if !ok {
		ct = &ConnectionTimeline{}
		timeline.ConnectionTimelines[connectionToken] = ct
	}
	if !ct.SetGraphicsTimeline(graphics) {
		logger.Error("inconsistent graphics timeline, dropping connection entry",
			"id", id, "token", connectionToken)
		delete(timeline.ConnectionTimelines, connectionToken)
	}
}

// ReportAndPruneMatureRecords reports and erases every pending event older
// than the maturity threshold relative to now.
//
// Callers on the dispatch path pass the newest eventTime as "now" instead
// of reading the clock; that time is already in hand and tracking happens
// soon after the event occurs. An event inserted with an out-of-order
// (older) eventTime is still found in order by the index, but using
// eventTime as "now" can delay its pruning slightly. Accepted imprecision.
func (t *Tracker) ReportAndPruneMatureRecords(now int64) {
	for {
		oldest, ok := t.pending.oldest()
		if !ok {
			return
		}
		age := time.Duration(now - oldest.eventTime)
		if age <= t.maturity {
			// The index is time-ordered: if the oldest entry is immature,
			// so is everything behind it.
			return
		}
		timeline, ok := t.timelines[oldest.id]
		if !ok {
			panic(fmt.Sprintf("latency: event %d is in the pending index but has no timeline", oldest.id))
		}
		t.processor.ProcessTimeline(timeline)
		delete(t.timelines, oldest.id)
		t.pending.popOldest()
	}
}

// NumPending returns the number of events still awaiting completion data.
func (t *Tracker) NumPending() int {
	return len(t.timelines)
}

// Dump returns a debug description of the tracker's state.
func (t *Tracker) Dump(prefix string) string {
	return fmt.Sprintf("%sTracker:\n%s  timelines = %d\n%s  pending index = %d\n",
		prefix, prefix, len(t.timelines), prefix, t.pending.len())
}
