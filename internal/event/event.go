// Package event defines the input event model shared by the latency tracker
// and the motion resampler: device and event identifiers, pointer samples,
// raw action codes and the closed action taxonomy used for reporting.
package event

// DeviceID identifies an input device within the current session.
type DeviceID int32

// EventID identifies a single input event. IDs are assigned upstream and are
// not globally unique; collisions are possible and handled by the tracker.
type EventID int32

// EventType distinguishes the two tracked event classes.
type EventType int

const (
	TypeUnknown EventType = iota
	TypeMotion
	TypeKey
)

func (t EventType) String() string {
	switch t {
	case TypeMotion:
		return "motion"
	case TypeKey:
		return "key"
	default:
		return "unknown"
	}
}

// Raw motion action codes, compatible with the upstream reader's encoding.
// The low byte carries the action, the upper bytes carry the pointer index
// for pointer-indexed actions.
const (
	MotionActionDown      int32 = 0
	MotionActionUp        int32 = 1
	MotionActionMove      int32 = 2
	MotionActionHoverMove int32 = 7
	MotionActionScroll    int32 = 8

	motionActionMask int32 = 0xff
)

// Raw key action codes.
const (
	KeyActionDown int32 = 0
	KeyActionUp   int32 = 1
)

// MotionActionMasked strips the pointer index from a raw motion action code.
func MotionActionMasked(action int32) int32 {
	return action & motionActionMask
}

// ActionType is the closed taxonomy events are classified into for
// reporting. Unrecognized raw codes classify as ActionUnknown, never an
// error.
type ActionType int

const (
	ActionUnknown ActionType = iota
	ActionMotionDown
	ActionMotionMove
	ActionMotionUp
	ActionMotionHoverMove
	ActionMotionScroll
	ActionKey
)

func (a ActionType) String() string {
	switch a {
	case ActionMotionDown:
		return "motion_down"
	case ActionMotionMove:
		return "motion_move"
	case ActionMotionUp:
		return "motion_up"
	case ActionMotionHoverMove:
		return "motion_hover_move"
	case ActionMotionScroll:
		return "motion_scroll"
	case ActionKey:
		return "key"
	default:
		return "unknown"
	}
}

// ClassifyAction maps a raw action code to the closed taxonomy.
func ClassifyAction(eventType EventType, action int32) ActionType {
	switch eventType {
	case TypeMotion:
		switch MotionActionMasked(action) {
		case MotionActionDown:
			return ActionMotionDown
		case MotionActionMove:
			return ActionMotionMove
		case MotionActionUp:
			return ActionMotionUp
		case MotionActionHoverMove:
			return ActionMotionHoverMove
		case MotionActionScroll:
			return ActionMotionScroll
		default:
			return ActionUnknown
		}
	case TypeKey:
		switch action {
		case KeyActionDown, KeyActionUp:
			return ActionKey
		default:
			return ActionUnknown
		}
	default:
		return ActionUnknown
	}
}

// ToolType describes what is touching the device for one pointer.
type ToolType int

const (
	ToolUnknown ToolType = iota
	ToolFinger
	ToolStylus
	ToolMouse
	ToolEraser
	ToolPalm
)

// PointerProperties are the per-pointer fields that stay fixed for the
// pointer's lifetime within a gesture.
type PointerProperties struct {
	ID       int32
	ToolType ToolType
}

// PointerCoords are the per-pointer, per-sample coordinate values.
// Resampled marks coordinates synthesized by the resampler rather than
// reported by the device.
type PointerCoords struct {
	X         float32
	Y         float32
	Pressure  float32
	Resampled bool
}

// Pointer pairs one pointer's properties with its coordinates in a sample.
type Pointer struct {
	Properties PointerProperties
	Coords     PointerCoords
}

// Sample is one time-stamped set of pointer coordinates. EventTime is in
// nanoseconds on the upstream reader's monotonic clock.
type Sample struct {
	EventTime int64
	Pointers  []Pointer
}

// PointerByID returns the pointer with the given id, if present.
func (s *Sample) PointerByID(id int32) (Pointer, bool) {
	for _, p := range s.Pointers {
		if p.Properties.ID == id {
			return p, true
		}
	}
	return Pointer{}, false
}

// MotionEvent is a motion event with its sample history. Samples are ordered
// oldest first; the last sample is the event's current state. A batched
// event carries more than one sample.
type MotionEvent struct {
	ID       EventID
	DeviceID DeviceID
	Source   uint32
	Action   int32
	DownTime int64
	Samples  []Sample
}

// HistorySize returns the number of historical samples, i.e. all samples
// except the current one.
func (e *MotionEvent) HistorySize() int {
	if len(e.Samples) == 0 {
		return 0
	}
	return len(e.Samples) - 1
}

// LatestSample returns the event's newest sample, or nil for a malformed
// event with no samples.
func (e *MotionEvent) LatestSample() *Sample {
	if len(e.Samples) == 0 {
		return nil
	}
	return &e.Samples[len(e.Samples)-1]
}

// EventTime returns the newest sample's time.
func (e *MotionEvent) EventTime() int64 {
	s := e.LatestSample()
	if s == nil {
		return 0
	}
	return s.EventTime
}

// AddSample appends a sample to the event's history, making it the current
// sample.
func (e *MotionEvent) AddSample(s Sample) {
	e.Samples = append(e.Samples, s)
}

// ActionMasked returns the event's action code with the pointer index
// stripped.
func (e *MotionEvent) ActionMasked() int32 {
	return MotionActionMasked(e.Action)
}

// KeyboardType mirrors the device registry's keyboard classification.
type KeyboardType int32

const (
	KeyboardTypeNone KeyboardType = iota
	KeyboardTypeNonAlphabetic
	KeyboardTypeAlphabetic
)

// NotifyMotionArgs carries the fields of a dispatched motion event that the
// latency tracker consumes. Times are nanoseconds: EventTime is when the
// device produced the event, ReadTime is when the reader picked it up.
type NotifyMotionArgs struct {
	ID                EventID
	EventTime         int64
	ReadTime          int64
	DeviceID          DeviceID
	Source            uint32
	Action            int32
	PointerProperties []PointerProperties
}

// NotifyKeyArgs carries the fields of a dispatched key event that the
// latency tracker consumes.
type NotifyKeyArgs struct {
	ID        EventID
	EventTime int64
	ReadTime  int64
	DeviceID  DeviceID
	Source    uint32
	Action    int32
	KeyCode   int32
}
