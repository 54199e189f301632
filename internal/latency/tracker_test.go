package latency

import (
	"testing"
	"time"

	"github.com/bnema/lagmon/internal/device"
	"github.com/bnema/lagmon/internal/event"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMaturity = 5 * time.Second

var (
	tokenA = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	tokenB = uuid.MustParse("22222222-2222-2222-2222-222222222222")
)

// collectingProcessor records reported timelines in order.
type collectingProcessor struct {
	timelines []*EventTimeline
}

func (c *collectingProcessor) ProcessTimeline(timeline *EventTimeline) {
	c.timelines = append(c.timelines, timeline)
}

func testDevices() []device.Device {
	return []device.Device{
		{
			ID:       1,
			Identity: device.Identity{Name: "test touchscreen", Vendor: 0x18d1, Product: 0x5026},
			Sources:  event.SourceTouchscreen,
		},
		{
			ID:           2,
			Identity:     device.Identity{Name: "test keyboard", Vendor: 0x046d, Product: 0xc31c},
			KeyboardType: event.KeyboardTypeAlphabetic,
			Sources:      event.SourceKeyboard,
		},
	}
}

func newTestTracker(t *testing.T) (*Tracker, *collectingProcessor) {
	t.Helper()
	proc := &collectingProcessor{}
	tracker := NewTracker(proc, testMaturity)
	tracker.SetInputDevices(testDevices())
	return tracker, proc
}

func motionArgs(id event.EventID, eventTime int64) event.NotifyMotionArgs {
	return event.NotifyMotionArgs{
		ID:        id,
		EventTime: eventTime,
		ReadTime:  eventTime + int64(time.Millisecond),
		DeviceID:  1,
		Source:    event.SourceTouchscreen,
		Action:    event.MotionActionDown,
		PointerProperties: []event.PointerProperties{
			{ID: 0, ToolType: event.ToolFinger},
		},
	}
}

func ns(d time.Duration) int64 { return int64(d) }

func TestTrackerReportsMatureEvent(t *testing.T) {
	tracker, proc := newTestTracker(t)

	tracker.TrackNotifyMotion(motionArgs(1, ns(10*time.Millisecond)))
	assert.Empty(t, proc.timelines)

	tracker.ReportAndPruneMatureRecords(ns(10*time.Millisecond) + int64(testMaturity) + 1)

	require.Len(t, proc.timelines, 1)
	timeline := proc.timelines[0]
	assert.Equal(t, ns(10*time.Millisecond), timeline.EventTime)
	assert.Equal(t, ns(11*time.Millisecond), timeline.ReadTime)
	assert.Equal(t, uint16(0x18d1), timeline.Vendor)
	assert.Equal(t, uint16(0x5026), timeline.Product)
	assert.Equal(t, event.ActionMotionDown, timeline.ActionType)
	assert.Equal(t, []event.UsageSource{event.UsageTouchscreen}, timeline.Sources)
	assert.Equal(t, 0, tracker.NumPending())
}

func TestTrackerReportsExactlyOnce(t *testing.T) {
	tracker, proc := newTestTracker(t)

	tracker.TrackNotifyMotion(motionArgs(1, ns(10*time.Millisecond)))
	now := ns(10*time.Millisecond) + int64(testMaturity) + 1
	tracker.ReportAndPruneMatureRecords(now)
	tracker.ReportAndPruneMatureRecords(now + int64(time.Hour))

	assert.Len(t, proc.timelines, 1)
}

func TestTrackerImmatureEventNotReported(t *testing.T) {
	tracker, proc := newTestTracker(t)

	tracker.TrackNotifyMotion(motionArgs(1, ns(10*time.Millisecond)))
	tracker.ReportAndPruneMatureRecords(ns(10*time.Millisecond) + int64(testMaturity))

	assert.Empty(t, proc.timelines)
	assert.Equal(t, 1, tracker.NumPending())
}

func TestTrackerDuplicateIDDropsBoth(t *testing.T) {
	tracker, proc := newTestTracker(t)

	tracker.TrackNotifyMotion(motionArgs(1, ns(10*time.Millisecond)))
	tracker.TrackNotifyMotion(motionArgs(1, ns(12*time.Millisecond)))
	assert.Equal(t, 0, tracker.NumPending())

	// Neither record is ever reported.
	tracker.ReportAndPruneMatureRecords(ns(time.Hour))
	assert.Empty(t, proc.timelines)
}

func TestTrackerUnknownDeviceDropped(t *testing.T) {
	tracker, proc := newTestTracker(t)

	args := motionArgs(1, ns(10*time.Millisecond))
	args.DeviceID = 99
	tracker.TrackNotifyMotion(args)

	assert.Equal(t, 0, tracker.NumPending())
	tracker.ReportAndPruneMatureRecords(ns(time.Hour))
	assert.Empty(t, proc.timelines)
}

func TestTrackerKeyEventUsesKeyboardType(t *testing.T) {
	tracker, proc := newTestTracker(t)

	tracker.TrackNotifyKey(event.NotifyKeyArgs{
		ID:        1,
		EventTime: ns(10 * time.Millisecond),
		ReadTime:  ns(11 * time.Millisecond),
		DeviceID:  2,
		Source:    event.SourceKeyboard,
		Action:    event.KeyActionDown,
	})
	tracker.ReportAndPruneMatureRecords(ns(time.Hour))

	require.Len(t, proc.timelines, 1)
	assert.Equal(t, event.ActionKey, proc.timelines[0].ActionType)
	assert.Equal(t, []event.UsageSource{event.UsageKeyboard}, proc.timelines[0].Sources)
}

func TestTrackerFinishedEventUnknownIDIsNoop(t *testing.T) {
	tracker, proc := newTestTracker(t)

	tracker.TrackFinishedEvent(42, tokenA, 10, 20, 30)
	tracker.TrackGraphicsLatency(42, tokenA, GraphicsTimeline{10, 20})

	assert.Equal(t, 0, tracker.NumPending())
	tracker.ReportAndPruneMatureRecords(ns(time.Hour))
	assert.Empty(t, proc.timelines)
}

func TestTrackerCompletionSignalsMerge(t *testing.T) {
	tracker, proc := newTestTracker(t)

	tracker.TrackNotifyMotion(motionArgs(1, ns(10*time.Millisecond)))
	tracker.TrackFinishedEvent(1, tokenA,
		ns(12*time.Millisecond), ns(14*time.Millisecond), ns(16*time.Millisecond))
	tracker.TrackGraphicsLatency(1, tokenA,
		GraphicsTimeline{ns(18 * time.Millisecond), ns(20 * time.Millisecond)})

	tracker.ReportAndPruneMatureRecords(ns(time.Hour))

	require.Len(t, proc.timelines, 1)
	ct := proc.timelines[0].ConnectionTimelines[tokenA]
	require.NotNil(t, ct)
	assert.True(t, ct.IsComplete())
	assert.Equal(t, ns(14*time.Millisecond), ct.ConsumeTime)
	assert.Equal(t, ns(20*time.Millisecond), ct.Graphics[PresentTime])
}

func TestTrackerGraphicsBeforeFinished(t *testing.T) {
	tracker, proc := newTestTracker(t)

	tracker.TrackNotifyMotion(motionArgs(1, ns(10*time.Millisecond)))
	tracker.TrackGraphicsLatency(1, tokenA,
		GraphicsTimeline{ns(18 * time.Millisecond), ns(20 * time.Millisecond)})
	tracker.TrackFinishedEvent(1, tokenA,
		ns(12*time.Millisecond), ns(14*time.Millisecond), ns(16*time.Millisecond))

	tracker.ReportAndPruneMatureRecords(ns(time.Hour))

	require.Len(t, proc.timelines, 1)
	ct := proc.timelines[0].ConnectionTimelines[tokenA]
	require.NotNil(t, ct)
	assert.True(t, ct.IsComplete())
}

func TestTrackerInconsistentDataDropsConnectionOnly(t *testing.T) {
	tracker, proc := newTestTracker(t)

	tracker.TrackNotifyMotion(motionArgs(1, ns(10*time.Millisecond)))
	tracker.TrackFinishedEvent(1, tokenA,
		ns(12*time.Millisecond), ns(14*time.Millisecond), ns(16*time.Millisecond))
	tracker.TrackFinishedEvent(1, tokenB,
		ns(12*time.Millisecond), ns(14*time.Millisecond), ns(16*time.Millisecond))

	// Second dispatch timeline for tokenA marks that reporter unreliable.
	tracker.TrackFinishedEvent(1, tokenA,
		ns(13*time.Millisecond), ns(15*time.Millisecond), ns(17*time.Millisecond))

	tracker.ReportAndPruneMatureRecords(ns(time.Hour))

	require.Len(t, proc.timelines, 1)
	timeline := proc.timelines[0]
	assert.NotContains(t, timeline.ConnectionTimelines, tokenA)
	assert.Contains(t, timeline.ConnectionTimelines, tokenB)
}

func TestTrackerPruneOnTrackListener(t *testing.T) {
	tracker, proc := newTestTracker(t)

	tracker.TrackNotifyMotion(motionArgs(1, ns(10*time.Millisecond)))
	// Tracking a much later event prunes the mature one using its eventTime
	// as "now".
	tracker.TrackNotifyMotion(motionArgs(2, ns(10*time.Millisecond)+int64(testMaturity)+1))

	require.Len(t, proc.timelines, 1)
	assert.Equal(t, ns(10*time.Millisecond), proc.timelines[0].EventTime)
	assert.Equal(t, 1, tracker.NumPending())
}

func TestTrackerDeviceListRefresh(t *testing.T) {
	tracker, proc := newTestTracker(t)

	tracker.SetInputDevices([]device.Device{
		{ID: 7, Identity: device.Identity{Name: "new mouse", Vendor: 0xbeef, Product: 0xcafe}, Sources: event.SourceMouse},
	})

	// Old device ids no longer resolve after the wholesale replace.
	tracker.TrackNotifyMotion(motionArgs(1, ns(10*time.Millisecond)))
	assert.Equal(t, 0, tracker.NumPending())

	args := motionArgs(2, ns(10*time.Millisecond))
	args.DeviceID = 7
	args.Source = event.SourceMouse
	tracker.TrackNotifyMotion(args)
	tracker.ReportAndPruneMatureRecords(ns(time.Hour))

	require.Len(t, proc.timelines, 1)
	assert.Equal(t, uint16(0xbeef), proc.timelines[0].Vendor)
}

func TestTrackerNilProcessorPanics(t *testing.T) {
	assert.Panics(t, func() { NewTracker(nil, testMaturity) })
}

func TestTrackerDump(t *testing.T) {
	tracker, _ := newTestTracker(t)
	tracker.TrackNotifyMotion(motionArgs(1, ns(10*time.Millisecond)))

	dump := tracker.Dump("  ")
	assert.Contains(t, dump, "timelines = 1")
	assert.Contains(t, dump, "pending index = 1")
}
