// Package gesture turns raw accessibility interaction notifications into
// typed gesture records: single-point touch events and correlated swipes.
package gesture

import "strings"

// Kind identifies the interaction type carried by a notification.
type Kind int

const (
	KindUnknown Kind = iota
	KindClick
	KindLongClick
	KindScroll
	KindFocus
	KindSelect
	KindTextChange
	KindGestureStart
	KindGestureEnd
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindClick:
		return "click"
	case KindLongClick:
		return "long_click"
	case KindScroll:
		return "scroll"
	case KindFocus:
		return "focus"
	case KindSelect:
		return "select"
	case KindTextChange:
		return "text_change"
	case KindGestureStart:
		return "gesture_start"
	case KindGestureEnd:
		return "gesture_end"
	default:
		return "unknown"
	}
}

// androidAliases maps raw Android AccessibilityEvent type names, which some
// bridges forward verbatim, onto wire kinds.
var androidAliases = map[string]Kind{
	"TYPE_VIEW_CLICKED":            KindClick,
	"TYPE_VIEW_LONG_CLICKED":       KindLongClick,
	"TYPE_VIEW_SCROLLED":           KindScroll,
	"TYPE_VIEW_FOCUSED":            KindFocus,
	"TYPE_VIEW_SELECTED":           KindSelect,
	"TYPE_VIEW_TEXT_CHANGED":       KindTextChange,
	"TYPE_GESTURE_DETECTION_START": KindGestureStart,
	"TYPE_GESTURE_DETECTION_END":   KindGestureEnd,
}

// ParseKind resolves a wire name to a Kind. It accepts the canonical
// lowercase names and the Android TYPE_* aliases. Returns false for
// anything else.
func ParseKind(s string) (Kind, bool) {
	if k, ok := androidAliases[s]; ok {
		return k, true
	}
	switch strings.ToLower(s) {
	case "click":
		return KindClick, true
	case "long_click":
		return KindLongClick, true
	case "scroll":
		return KindScroll, true
	case "focus":
		return KindFocus, true
	case "select":
		return KindSelect, true
	case "text_change":
		return KindTextChange, true
	case "gesture_start":
		return KindGestureStart, true
	case "gesture_end":
		return KindGestureEnd, true
	}
	return KindUnknown, false
}

// Direction is the dominant axis of a swipe's displacement.
type Direction int

const (
	DirectionUp Direction = iota
	DirectionDown
	DirectionLeft
	DirectionRight
)

// String returns the display name of the direction.
func (d Direction) String() string {
	switch d {
	case DirectionUp:
		return "up"
	case DirectionDown:
		return "down"
	case DirectionLeft:
		return "left"
	case DirectionRight:
		return "right"
	default:
		return "unknown"
	}
}

// Bounds is a screen-space rectangle in pixels.
type Bounds struct {
	Left, Top, Right, Bottom float64
}

// Empty reports whether the rectangle encloses no area. Upstream sources
// legitimately emit empty rectangles; the classifier drops them silently.
func (b Bounds) Empty() bool {
	return b.Left >= b.Right || b.Top >= b.Bottom
}

// CenterX returns the horizontal center of the rectangle.
func (b Bounds) CenterX() float64 { return (b.Left + b.Right) / 2 }

// CenterY returns the vertical center of the rectangle.
func (b Bounds) CenterY() float64 { return (b.Top + b.Bottom) / 2 }

// Notification is a raw interaction signal from the bridge: what happened
// and where on screen.
type Notification struct {
	Kind   Kind
	Bounds Bounds
}

// Record is a classified gesture: either a TouchEvent or a SwipeEvent.
// Records are immutable once created and ordered by Time for display.
type Record interface {
	// Time returns the record's timestamp in monotonic milliseconds.
	Time() int64

	record()
}

// TouchEvent is a single-point gesture at the notification's center.
type TouchEvent struct {
	Kind      Kind
	X, Y      float64
	Timestamp int64
}

// Time returns the event's timestamp in milliseconds.
func (e TouchEvent) Time() int64 { return e.Timestamp }

func (TouchEvent) record() {}

// SwipeEvent is a two-point gesture produced by correlating a pair of
// scroll notifications. Timestamp is the end time; Velocity is in
// pixels per second and is 0 for zero-duration swipes.
type SwipeEvent struct {
	StartX, StartY float64
	EndX, EndY     float64
	DurationMs     int64
	Velocity       float64
	Direction      Direction
	Timestamp      int64
}

// Time returns the swipe's end timestamp in milliseconds.
func (e SwipeEvent) Time() int64 { return e.Timestamp }

func (SwipeEvent) record() {}
