// Package pipeline is the serialization boundary in front of the latency
// tracker. Completion signals originate on arbitrary goroutines from
// untrusted reporters; the pipeline funnels them through a single buffered
// channel into the one goroutine that owns the tracker, so the tracker
// itself never locks.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/bnema/lagmon/internal/device"
	"github.com/bnema/lagmon/internal/event"
	"github.com/bnema/lagmon/internal/latency"
	"github.com/bnema/lagmon/internal/logger"
	"github.com/bnema/lagmon/internal/resample"
	"github.com/google/uuid"
)

type message interface {
	apply(t *latency.Tracker)
}

type notifyMotionMsg struct{ args event.NotifyMotionArgs }

func (m notifyMotionMsg) apply(t *latency.Tracker) { t.TrackNotifyMotion(m.args) }

type notifyKeyMsg struct{ args event.NotifyKeyArgs }

func (m notifyKeyMsg) apply(t *latency.Tracker) { t.TrackNotifyKey(m.args) }

type finishedEventMsg struct {
	id                                    event.EventID
	token                                 uuid.UUID
	deliveryTime, consumeTime, finishTime int64
}

func (m finishedEventMsg) apply(t *latency.Tracker) {
	t.TrackFinishedEvent(m.id, m.token, m.deliveryTime, m.consumeTime, m.finishTime)
}

type graphicsLatencyMsg struct {
	id       event.EventID
	token    uuid.UUID
	graphics latency.GraphicsTimeline
}

func (m graphicsLatencyMsg) apply(t *latency.Tracker) {
	t.TrackGraphicsLatency(m.id, m.token, m.graphics)
}

type setDevicesMsg struct{ devices []device.Device }

func (m setDevicesMsg) apply(t *latency.Tracker) { t.SetInputDevices(m.devices) }

type pruneMsg struct {
	now  int64
	done chan struct{}
}

func (m pruneMsg) apply(t *latency.Tracker) {
	t.ReportAndPruneMatureRecords(m.now)
	if m.done != nil {
		close(m.done)
	}
}

// Pipeline owns the tracker goroutine and the resampler for the consumer
// side of the stream.
type Pipeline struct {
	mu      sync.Mutex
	msgs    chan message
	ctx     context.Context
	cancel  context.CancelFunc
	stopped chan struct{}

	tracker       *latency.Tracker
	resampler     resample.Resampler
	latencyOffset time.Duration
}

// Options configure a Pipeline.
type Options struct {
	MaturityThreshold time.Duration
	ResampleTuning    resample.Tuning
	LatencyOffset     time.Duration
	QueueSize         int
}

// New creates a pipeline reporting completed timelines to processor.
func New(processor latency.TimelineProcessor, opts Options) *Pipeline {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1000
	}
	if opts.LatencyOffset <= 0 {
		opts.LatencyOffset = resample.LatencyOffset
	}
	tuning := opts.ResampleTuning
	if tuning == (resample.Tuning{}) {
		tuning = resample.DefaultTuning
	}
	return &Pipeline{
		msgs:          make(chan message, opts.QueueSize),
		tracker:       latency.NewTracker(processor, opts.MaturityThreshold),
		resampler:     resample.NewLinearResamplerWithTuning(tuning),
		latencyOffset: opts.LatencyOffset,
	}
}

// Start launches the tracker goroutine.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return nil
	}
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.stopped = make(chan struct{})
	go p.run()

	logger.Debug("latency pipeline started")
	return nil
}

// Stop drains queued messages and stops the tracker goroutine.
func (p *Pipeline) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel == nil {
		return nil
	}
	p.cancel()
	close(p.msgs)
	<-p.stopped
	p.cancel = nil

	logger.Debug("latency pipeline stopped")
	return nil
}

func (p *Pipeline) run() {
	defer close(p.stopped)
	for msg := range p.msgs {
		msg.apply(p.tracker)
	}
}

// send enqueues a message, dropping it when the queue is full. Completion
// signals are advisory metrics data; blocking a reporter on them is never
// worth it.
func (p *Pipeline) send(msg message) {
	select {
	case p.msgs <- msg:
	default:
		logger.Warn("latency pipeline queue full, dropping message")
	}
}

// NotifyMotion tracks a dispatched motion event.
func (p *Pipeline) NotifyMotion(args event.NotifyMotionArgs) {
	p.send(notifyMotionMsg{args: args})
}

// NotifyKey tracks a dispatched key event.
func (p *Pipeline) NotifyKey(args event.NotifyKeyArgs) {
	p.send(notifyKeyMsg{args: args})
}

// FinishedEvent forwards a connection's dispatch completion signal.
func (p *Pipeline) FinishedEvent(id event.EventID, token uuid.UUID,
	deliveryTime, consumeTime, finishTime int64) {
	p.send(finishedEventMsg{
		id: id, token: token,
		deliveryTime: deliveryTime, consumeTime: consumeTime, finishTime: finishTime,
	})
}

// GraphicsLatency forwards a connection's graphics completion signal.
func (p *Pipeline) GraphicsLatency(id event.EventID, token uuid.UUID,
	graphics latency.GraphicsTimeline) {
	p.send(graphicsLatencyMsg{id: id, token: token, graphics: graphics})
}

// SetInputDevices replaces the tracker's device list.
func (p *Pipeline) SetInputDevices(devices []device.Device) {
	p.send(setDevicesMsg{devices: devices})
}

// Prune forces a report-and-prune pass at the given time and waits for it to
// complete. Replay and shutdown use it to flush mature records
// deterministically.
func (p *Pipeline) Prune(now int64) {
	done := make(chan struct{})
	select {
	case p.msgs <- pruneMsg{now: now, done: done}:
		<-done
	default:
		logger.Warn("latency pipeline queue full, dropping prune request")
	}
}

// ResampleForFrame resamples a motion event for the frame at frameTime,
// targeting the frame time minus the latency offset. It must be called from
// the single goroutine consuming the motion stream; the resampler is not
// the tracker goroutine's property and does not go through the queue.
func (p *Pipeline) ResampleForFrame(frameTime int64, motionEvent *event.MotionEvent,
	futureSample *event.Sample) {
	resampleTime := frameTime - int64(p.latencyOffset)
	p.resampler.ResampleMotionEvent(resampleTime, motionEvent, futureSample)
}
