package resample

import (
	"testing"
	"time"

	"github.com/bnema/lagmon/internal/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const epsilon = 0.001

// pt builds a single-finger pointer at the given coordinates.
func pt(id int32, x, y float32) event.Pointer {
	return event.Pointer{
		Properties: event.PointerProperties{ID: id, ToolType: event.ToolFinger},
		Coords:     event.PointerCoords{X: x, Y: y},
	}
}

func sampleAt(at time.Duration, pointers ...event.Pointer) event.Sample {
	return event.Sample{EventTime: int64(at), Pointers: pointers}
}

func motionEvent(deviceID event.DeviceID, samples ...event.Sample) *event.MotionEvent {
	return &event.MotionEvent{
		ID:       1,
		DeviceID: deviceID,
		Source:   event.SourceTouchscreen,
		Action:   event.MotionActionMove,
		Samples:  samples,
	}
}

func TestInterpolation(t *testing.T) {
	r := NewLinearResampler()

	ev := motionEvent(0, sampleAt(10*time.Millisecond, pt(0, 1, 1)))
	future := sampleAt(15*time.Millisecond, pt(0, 2, 2))

	r.ResampleMotionEvent(int64(11*time.Millisecond), ev, &future)

	require.Len(t, ev.Samples, 2, "resampling appends exactly one sample")
	resampled := ev.LatestSample()
	assert.Equal(t, int64(11*time.Millisecond), resampled.EventTime)
	require.Len(t, resampled.Pointers, 1)
	assert.InDelta(t, 1.2, resampled.Pointers[0].Coords.X, epsilon)
	assert.InDelta(t, 1.2, resampled.Pointers[0].Coords.Y, epsilon)
	assert.True(t, resampled.Pointers[0].Coords.Resampled)

	// Original sample untouched.
	assert.InDelta(t, 1.0, ev.Samples[0].Pointers[0].Coords.X, epsilon)
	assert.False(t, ev.Samples[0].Pointers[0].Coords.Resampled)
}

func TestInterpolationDeltaTooSmall(t *testing.T) {
	r := NewLinearResampler()

	ev := motionEvent(0, sampleAt(10*time.Millisecond, pt(0, 1, 1)))
	future := sampleAt(11*time.Millisecond, pt(0, 2, 2)) // 1ms < MinDelta

	r.ResampleMotionEvent(int64(10500*time.Microsecond), ev, &future)

	assert.Len(t, ev.Samples, 1, "event must be unmodified")
}

func TestExtrapolationWithinEvent(t *testing.T) {
	r := NewLinearResampler()

	ev := motionEvent(0,
		sampleAt(5*time.Millisecond, pt(0, 1, 1)),
		sampleAt(10*time.Millisecond, pt(0, 2, 2)),
	)

	r.ResampleMotionEvent(int64(11*time.Millisecond), ev, nil)

	require.Len(t, ev.Samples, 3)
	resampled := ev.LatestSample()
	assert.Equal(t, int64(11*time.Millisecond), resampled.EventTime)
	assert.InDelta(t, 2.2, resampled.Pointers[0].Coords.X, epsilon)
	assert.InDelta(t, 2.2, resampled.Pointers[0].Coords.Y, epsilon)
	assert.True(t, resampled.Pointers[0].Coords.Resampled)
}

func TestExtrapolationAcrossEvents(t *testing.T) {
	r := NewLinearResampler()

	first := motionEvent(0, sampleAt(5*time.Millisecond, pt(0, 1, 1)))
	r.ResampleMotionEvent(int64(6*time.Millisecond), first, nil)
	assert.Len(t, first.Samples, 1, "single cold sample cannot extrapolate")

	second := motionEvent(0, sampleAt(10*time.Millisecond, pt(0, 2, 2)))
	r.ResampleMotionEvent(int64(11*time.Millisecond), second, nil)

	require.Len(t, second.Samples, 2, "previous event's sample enables extrapolation")
	assert.InDelta(t, 2.2, second.LatestSample().Pointers[0].Coords.X, epsilon)
}

func TestSingleSampleNoFutureUnmodified(t *testing.T) {
	r := NewLinearResampler()

	ev := motionEvent(0, sampleAt(10*time.Millisecond, pt(0, 1, 1)))
	r.ResampleMotionEvent(int64(11*time.Millisecond), ev, nil)

	assert.Len(t, ev.Samples, 1)
}

func TestExtrapolationDeltaTooSmall(t *testing.T) {
	r := NewLinearResampler()

	ev := motionEvent(0,
		sampleAt(10*time.Millisecond, pt(0, 1, 1)),
		sampleAt(11*time.Millisecond, pt(0, 2, 2)), // 1ms < MinDelta
	)

	r.ResampleMotionEvent(int64(29*time.Millisecond), ev, nil)

	assert.Len(t, ev.Samples, 2, "event must be unmodified")
}

func TestExtrapolationDeltaTooLarge(t *testing.T) {
	r := NewLinearResampler()

	ev := motionEvent(0,
		sampleAt(10*time.Millisecond, pt(0, 1, 1)),
		sampleAt(40*time.Millisecond, pt(0, 2, 2)), // 30ms > MaxDelta
	)

	r.ResampleMotionEvent(int64(42*time.Millisecond), ev, nil)

	assert.Len(t, ev.Samples, 2, "event must be unmodified")
}

func TestExtrapolationTooFarRejected(t *testing.T) {
	r := NewLinearResampler()

	ev := motionEvent(0,
		sampleAt(5*time.Millisecond, pt(0, 1, 1)),
		sampleAt(10*time.Millisecond, pt(0, 2, 2)),
	)

	// Farthest allowed prediction is min(delta/2, MaxPrediction) = 2.5ms
	// past the latest sample; 18ms past is far beyond it.
	r.ResampleMotionEvent(int64(28*time.Millisecond), ev, nil)

	assert.Len(t, ev.Samples, 2, "event must be unmodified")
}

func TestDeviceSwitchColdStart(t *testing.T) {
	r := NewLinearResampler()

	first := motionEvent(1, sampleAt(5*time.Millisecond, pt(0, 1, 1)))
	r.ResampleMotionEvent(int64(6*time.Millisecond), first, nil)

	// Device changed: the previous device's sample must not feed
	// extrapolation.
	second := motionEvent(2, sampleAt(10*time.Millisecond, pt(0, 2, 2)))
	r.ResampleMotionEvent(int64(11*time.Millisecond), second, nil)

	assert.Len(t, second.Samples, 1, "cross-device extrapolation must not happen")
}

func TestSameDeviceKeepsState(t *testing.T) {
	r := NewLinearResampler()

	first := motionEvent(1, sampleAt(5*time.Millisecond, pt(0, 1, 1)))
	r.ResampleMotionEvent(int64(6*time.Millisecond), first, nil)

	second := motionEvent(1, sampleAt(10*time.Millisecond, pt(0, 2, 2)))
	r.ResampleMotionEvent(int64(11*time.Millisecond), second, nil)

	assert.Len(t, second.Samples, 2)
}

func TestInterpolationPointerMismatchSkipsPointer(t *testing.T) {
	r := NewLinearResampler()

	ev := motionEvent(0, sampleAt(10*time.Millisecond, pt(0, 1, 1), pt(1, 5, 5)))
	// The future sample only carries pointer 0; pointer 1 went up.
	future := sampleAt(15*time.Millisecond, pt(0, 2, 2))

	r.ResampleMotionEvent(int64(11*time.Millisecond), ev, &future)

	require.Len(t, ev.Samples, 2)
	resampled := ev.LatestSample()
	require.Len(t, resampled.Pointers, 2)

	p0, ok := resampled.PointerByID(0)
	require.True(t, ok)
	assert.InDelta(t, 1.2, p0.Coords.X, epsilon)
	assert.True(t, p0.Coords.Resampled)

	// Pointer 1 keeps its raw coordinates and is not marked resampled.
	p1, ok := resampled.PointerByID(1)
	require.True(t, ok)
	assert.InDelta(t, 5.0, p1.Coords.X, epsilon)
	assert.False(t, p1.Coords.Resampled)
}

func TestNonCoordinateFieldsPreserved(t *testing.T) {
	r := NewLinearResampler()

	ev := motionEvent(3, sampleAt(10*time.Millisecond, pt(0, 1, 1)))
	ev.Action = event.MotionActionMove
	ev.DownTime = int64(2 * time.Millisecond)
	future := sampleAt(15*time.Millisecond, pt(0, 2, 2))

	r.ResampleMotionEvent(int64(11*time.Millisecond), ev, &future)

	assert.Equal(t, event.EventID(1), ev.ID)
	assert.Equal(t, event.DeviceID(3), ev.DeviceID)
	assert.Equal(t, event.SourceTouchscreen, ev.Source)
	assert.Equal(t, event.MotionActionMove, ev.Action)
	assert.Equal(t, int64(2*time.Millisecond), ev.DownTime)
}

func TestEmptyEventIgnored(t *testing.T) {
	r := NewLinearResampler()

	ev := motionEvent(0)
	r.ResampleMotionEvent(int64(11*time.Millisecond), ev, nil)
	assert.Empty(t, ev.Samples)

	r.ResampleMotionEvent(int64(11*time.Millisecond), nil, nil) // no panic
}

func TestBatchedEventUsesOwnSamples(t *testing.T) {
	r := NewLinearResampler()

	// A single batched event carrying two samples extrapolates without any
	// prior event.
	ev := motionEvent(0,
		sampleAt(4*time.Millisecond, pt(0, 0, 0)),
		sampleAt(12*time.Millisecond, pt(0, 4, 4)),
	)

	r.ResampleMotionEvent(int64(14*time.Millisecond), ev, nil)

	require.Len(t, ev.Samples, 3)
	// alpha = (14-4)/8 = 1.25 -> 0 + 1.25*4 = 5
	assert.InDelta(t, 5.0, ev.LatestSample().Pointers[0].Coords.X, epsilon)
}
