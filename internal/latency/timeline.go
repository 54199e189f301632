// Package latency tracks in-flight input events from dispatch through their
// asynchronous completion signals and reports a finished timeline per event.
package latency

import (
	"github.com/bnema/lagmon/internal/event"
	"github.com/google/uuid"
)

// GraphicsTimelinePoint indexes into a GraphicsTimeline.
type GraphicsTimelinePoint int

const (
	// GPUCompletedTime is when the GPU finished rendering the frame that
	// consumed the event.
	GPUCompletedTime GraphicsTimelinePoint = iota
	// PresentTime is when that frame was presented on screen.
	PresentTime

	// GraphicsTimelineSize is the number of points in a GraphicsTimeline.
	GraphicsTimelineSize
)

// GraphicsTimeline holds the graphics completion timestamps reported by one
// connection, in nanoseconds.
type GraphicsTimeline [GraphicsTimelineSize]int64

func (g GraphicsTimeline) valid() bool {
	return g[GPUCompletedTime] <= g[PresentTime]
}

// ConnectionTimeline accumulates the completion data one connection reports
// for one event. Each sub-timeline may be set at most once; a second or
// inconsistent set fails, which signals unreliable data from the reporter.
type ConnectionTimeline struct {
	DeliveryTime int64
	ConsumeTime  int64
	FinishTime   int64
	Graphics     GraphicsTimeline

	hasDispatch bool
	hasGraphics bool
}

// SetDispatchTimeline records delivery, consume and finish times. It fails
// if a dispatch timeline was already set or the timestamps are not
// monotonic.
func (ct *ConnectionTimeline) SetDispatchTimeline(deliveryTime, consumeTime, finishTime int64) bool {
	if ct.hasDispatch {
		return false
	}
	if deliveryTime > consumeTime || consumeTime > finishTime {
		return false
	}
	ct.DeliveryTime = deliveryTime
	ct.ConsumeTime = consumeTime
	ct.FinishTime = finishTime
	ct.hasDispatch = true
	return true
}

// SetGraphicsTimeline records the graphics completion timestamps. It fails
// if a graphics timeline was already set or the timestamps are not ordered.
func (ct *ConnectionTimeline) SetGraphicsTimeline(graphics GraphicsTimeline) bool {
	if ct.hasGraphics {
		return false
	}
	if !graphics.valid() {
		return false
	}
	ct.Graphics = graphics
	ct.hasGraphics = true
	return true
}

// HasDispatchTimeline reports whether the dispatch sub-timeline was set.
func (ct *ConnectionTimeline) HasDispatchTimeline() bool { return ct.hasDispatch }

// HasGraphicsTimeline reports whether the graphics sub-timeline was set.
func (ct *ConnectionTimeline) HasGraphicsTimeline() bool { return ct.hasGraphics }

// IsComplete reports whether both sub-timelines were set.
func (ct *ConnectionTimeline) IsComplete() bool { return ct.hasDispatch && ct.hasGraphics }

// EventTimeline is the full record of one input event's journey from
// creation to final disposition across all receiving connections. Identity
// fields are fixed at creation; only ConnectionTimelines grows or is
// amended afterwards.
type EventTimeline struct {
	EventTime int64
	ReadTime  int64

	Vendor  uint16
	Product uint16

	Sources    []event.UsageSource
	ActionType event.ActionType

	ConnectionTimelines map[uuid.UUID]*ConnectionTimeline
}

func newEventTimeline(eventTime, readTime int64, vendor, product uint16,
	sources []event.UsageSource, actionType event.ActionType) *EventTimeline {
	return &EventTimeline{
		EventTime:           eventTime,
		ReadTime:            readTime,
		Vendor:              vendor,
		Product:             product,
		Sources:             sources,
		ActionType:          actionType,
		ConnectionTimelines: make(map[uuid.UUID]*ConnectionTimeline),
	}
}
