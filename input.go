package griddeck

// TouchEventType identifies the gesture decoded from a touchscreen report.
type TouchEventType int

const (
	// TouchShort is a short tap.
	TouchShort TouchEventType = iota + 1
	// TouchLong is a long press.
	TouchLong
	// TouchDrag is a drag; the event carries both endpoints.
	TouchDrag
)

// String returns the gesture name.
func (t TouchEventType) String() string {
	switch t {
	case TouchShort:
		return "short"
	case TouchLong:
		return "long"
	case TouchDrag:
		return "drag"
	}
	return "unknown"
}

// TouchEvent is one decoded touchscreen gesture. EndX and EndY are only
// meaningful for drags.
type TouchEvent struct {
	Type TouchEventType
	X    int
	Y    int
	EndX int
	EndY int
}

// DialState is the decoded state of one rotary dial. Delta is the rotation
// since the previous read; positive values are clockwise.
type DialState struct {
	Pressed bool
	Delta   int
}

// InputState is one decoded snapshot of every control on a deck. Keys
// covers the physical keys followed by any touch keys. Touch events are
// delivered once, in the order they were decoded.
type InputState struct {
	Keys  []bool
	Dials []DialState
	Touch []TouchEvent
}
