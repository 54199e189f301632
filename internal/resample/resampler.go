// Package resample synthesizes extra motion samples to align input delivery
// with display refresh timing. Given a motion event and an optional
// already-arrived future sample, it appends one sample at a target time via
// linear interpolation or bounded extrapolation.
package resample

import (
	"time"

	"github.com/bnema/lagmon/internal/event"
	"github.com/bnema/lagmon/internal/logger"
)

// LatencyOffset is how far behind the frame time resampling targets.
// Sampling slightly in the past keeps most resampling in interpolation
// territory once the next device sample arrives.
const LatencyOffset = 5 * time.Millisecond

// Tuning bounds when resampling is allowed.
type Tuning struct {
	// MinDelta is the minimum spacing between the two reference samples.
	// Closer references make the division numerically unstable.
	MinDelta time.Duration

	// MaxDelta is the maximum reference spacing for extrapolation. Samples
	// that far apart mean the stream paused, and projecting across a pause
	// produces artifacts.
	MaxDelta time.Duration

	// MaxPrediction caps how far past the latest sample extrapolation may
	// reach, together with half the reference delta.
	MaxPrediction time.Duration
}

// DefaultTuning matches the display pipeline's expectations at 60-240Hz.
var DefaultTuning = Tuning{
	MinDelta:      2 * time.Millisecond,
	MaxDelta:      20 * time.Millisecond,
	MaxPrediction: 8 * time.Millisecond,
}

// Resampler synthesizes additional samples for motion events. If resampling
// occurs, exactly one sample is appended to the event and nothing else is
// modified; if it does not, the event is untouched. Skipping is a normal
// outcome, not an error.
type Resampler interface {
	ResampleMotionEvent(resampleTime int64, motionEvent *event.MotionEvent, futureSample *event.Sample)
}

// LinearResampler resamples by linear interpolation between the event's
// latest sample and a future sample, or by linear extrapolation from the
// two most recent samples. It keeps the last two raw samples seen for the
// current device stream so extrapolation can reference the previous event.
//
// LinearResampler is owned by one consumer goroutine and performs no
// locking.
type LinearResampler struct {
	tuning Tuning

	// previousDeviceID detects device switches between consecutive events.
	// Carrying samples across a switch would extrapolate one device's
	// motion from another's.
	previousDeviceID *event.DeviceID

	latest sampleRing
}

// NewLinearResampler creates a resampler with the default tuning.
func NewLinearResampler() *LinearResampler {
	return NewLinearResamplerWithTuning(DefaultTuning)
}

// NewLinearResamplerWithTuning creates a resampler with explicit bounds.
func NewLinearResamplerWithTuning(tuning Tuning) *LinearResampler {
	if tuning.MinDelta <= 0 {
		tuning.MinDelta = DefaultTuning.MinDelta
	}
	if tuning.MaxDelta <= 0 {
		tuning.MaxDelta = DefaultTuning.MaxDelta
	}
	if tuning.MaxPrediction <= 0 {
		tuning.MaxPrediction = DefaultTuning.MaxPrediction
	}
	return &LinearResampler{tuning: tuning}
}

// ResampleMotionEvent tries to append a sample at resampleTime. With a
// future sample it interpolates; without one it extrapolates from the two
// most recent samples, which may span the previous event of the same
// device.
func (r *LinearResampler) ResampleMotionEvent(resampleTime int64,
	motionEvent *event.MotionEvent, futureSample *event.Sample) {
	if motionEvent == nil || len(motionEvent.Samples) == 0 {
		return
	}

	if r.previousDeviceID != nil && *r.previousDeviceID != motionEvent.DeviceID {
		// Device switch: cold start, no cross-device extrapolation.
		r.latest.clear()
	}
	id := motionEvent.DeviceID
	r.previousDeviceID = &id

	r.updateLatestSamples(motionEvent)

	var resampled *event.Sample
	if futureSample != nil {
		resampled = r.attemptInterpolation(resampleTime, futureSample)
	} else {
		resampled = r.attemptExtrapolation(resampleTime)
	}
	if resampled != nil {
		motionEvent.AddSample(*resampled)
	}
}

// updateLatestSamples pushes the event's samples into the two-sample
// history. Synthesized samples never enter the history; only raw samples
// do, and this runs before any sample is appended.
func (r *LinearResampler) updateLatestSamples(motionEvent *event.MotionEvent) {
	for i := range motionEvent.Samples {
		r.latest.pushBack(motionEvent.Samples[i])
	}
}

func (r *LinearResampler) attemptInterpolation(resampleTime int64, futureSample *event.Sample) *event.Sample {
	past := r.latest.back()
	delta := time.Duration(futureSample.EventTime - past.EventTime)
	if delta < r.tuning.MinDelta {
		if logger.IsDebug() {
			logger.Debug("not resampled, reference delta too small", "delta", delta)
		}
		return nil
	}

	alpha := float32(resampleTime-past.EventTime) / float32(delta)
	return &event.Sample{
		EventTime: resampleTime,
		Pointers:  resamplePointers(past.Pointers, futureSample, alpha),
	}
}

func (r *LinearResampler) attemptExtrapolation(resampleTime int64) *event.Sample {
	if r.latest.size() < 2 {
		if logger.IsDebug() {
			logger.Debug("not resampled, not enough data")
		}
		return nil
	}

	past := r.latest.front()
	present := r.latest.back()
	delta := time.Duration(present.EventTime - past.EventTime)
	if delta < r.tuning.MinDelta {
		if logger.IsDebug() {
			logger.Debug("not resampled, reference delta too small", "delta", delta)
		}
		return nil
	}
	if delta > r.tuning.MaxDelta {
		if logger.IsDebug() {
			logger.Debug("not resampled, reference delta too large", "delta", delta)
		}
		return nil
	}

	// The farthest future time extrapolation may reach. Requests beyond it
	// are rejected as unreliable.
	farthestPrediction := present.EventTime + int64(min(delta/2, r.tuning.MaxPrediction))
	if resampleTime > farthestPrediction {
		if logger.IsDebug() {
			logger.Debug("not resampled, target too far in the future",
				"requested", time.Duration(resampleTime-present.EventTime),
				"allowed", time.Duration(farthestPrediction-present.EventTime))
		}
		return nil
	}

	// The pointer set comes from the newest sample; coordinates project
	// along the past->present line, so the lerp runs from present back
	// toward past with the complementary fraction.
	alpha := float32(resampleTime-past.EventTime) / float32(delta)
	return &event.Sample{
		EventTime: resampleTime,
		Pointers:  resamplePointers(present.Pointers, past, 1-alpha),
	}
}

// resamplePointers lerps each base pointer toward its id-matched counterpart
// in other. A pointer with no counterpart keeps its base coordinates and is
// not marked resampled; only that pointer is skipped, never the whole event.
func resamplePointers(base []event.Pointer, other *event.Sample, alpha float32) []event.Pointer {
	out := make([]event.Pointer, len(base))
	for i, p := range base {
		out[i] = p
		match, ok := other.PointerByID(p.Properties.ID)
		if !ok {
			continue
		}
		out[i].Coords = event.PointerCoords{
			X:         lerp(p.Coords.X, match.Coords.X, alpha),
			Y:         lerp(p.Coords.Y, match.Coords.Y, alpha),
			Pressure:  p.Coords.Pressure,
			Resampled: true,
		}
	}
	return out
}

func lerp(a, b, alpha float32) float32 {
	return a + alpha*(b-a)
}
