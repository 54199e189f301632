package event

// Input source class bits, compatible with the upstream reader's encoding.
const (
	SourceKeyboard      uint32 = 0x00000101
	SourceDpad          uint32 = 0x00000201
	SourceTouchscreen   uint32 = 0x00001002
	SourceMouse         uint32 = 0x00002002
	SourceStylus        uint32 = 0x00004002
	SourceTouchpad      uint32 = 0x00100008
	SourceRotaryEncoder uint32 = 0x00400000
	SourceJoystick      uint32 = 0x01000010
)

// UsageSource tags how a device was being used when it produced an event.
// One event can carry several tags (e.g. a stylus touching a touchscreen).
type UsageSource int

const (
	UsageUnknown UsageSource = iota
	UsageButtons
	UsageKeyboard
	UsageDpad
	UsageTouchscreen
	UsageStylus
	UsageMouse
	UsageTouchpad
	UsageRotaryEncoder
	UsageJoystick
)

func (u UsageSource) String() string {
	switch u {
	case UsageButtons:
		return "buttons"
	case UsageKeyboard:
		return "keyboard"
	case UsageDpad:
		return "dpad"
	case UsageTouchscreen:
		return "touchscreen"
	case UsageStylus:
		return "stylus"
	case UsageMouse:
		return "mouse"
	case UsageTouchpad:
		return "touchpad"
	case UsageRotaryEncoder:
		return "rotary_encoder"
	case UsageJoystick:
		return "joystick"
	default:
		return "unknown"
	}
}

func sourceMatches(source, test uint32) bool {
	return source&test == test
}

// SourcesForMotion classifies a motion event into usage-source tags from its
// source class and per-pointer tool types. Returns at least one tag;
// unclassifiable events get UsageUnknown.
func SourcesForMotion(args NotifyMotionArgs) []UsageSource {
	var sources []UsageSource
	add := func(u UsageSource) {
		for _, existing := range sources {
			if existing == u {
				return
			}
		}
		sources = append(sources, u)
	}

	if sourceMatches(args.Source, SourceTouchscreen) {
		for _, p := range args.PointerProperties {
			switch p.ToolType {
			case ToolStylus, ToolEraser:
				add(UsageStylus)
			default:
				add(UsageTouchscreen)
			}
		}
		if len(args.PointerProperties) == 0 {
			add(UsageTouchscreen)
		}
	}
	if sourceMatches(args.Source, SourceMouse) {
		add(UsageMouse)
	}
	if sourceMatches(args.Source, SourceTouchpad) {
		add(UsageTouchpad)
	}
	if sourceMatches(args.Source, SourceStylus) && !sourceMatches(args.Source, SourceTouchscreen) {
		add(UsageStylus)
	}
	if sourceMatches(args.Source, SourceRotaryEncoder) {
		add(UsageRotaryEncoder)
	}
	if sourceMatches(args.Source, SourceJoystick) {
		add(UsageJoystick)
	}

	if len(sources) == 0 {
		sources = append(sources, UsageUnknown)
	}
	return sources
}

// SourceForKey classifies a key event from the producing device's keyboard
// type. Keys from devices without a full keyboard (volume rockers, headset
// buttons) count as button usage.
func SourceForKey(keyboardType KeyboardType, args NotifyKeyArgs) UsageSource {
	if sourceMatches(args.Source, SourceDpad) && keyboardType == KeyboardTypeNone {
		return UsageDpad
	}
	switch keyboardType {
	case KeyboardTypeAlphabetic:
		return UsageKeyboard
	case KeyboardTypeNonAlphabetic, KeyboardTypeNone:
		return UsageButtons
	default:
		return UsageUnknown
	}
}
