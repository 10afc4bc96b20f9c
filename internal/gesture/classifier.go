package gesture

import "math"

// Clock supplies monotonic millisecond timestamps for classification.
type Clock interface {
	NowMillis() int64
}

// pendingSwipe holds the first half of a scroll pair until the second
// arrives.
type pendingSwipe struct {
	startX, startY float64
	startTime      int64
}

// Classifier turns notifications into gesture records. Direct kinds map
// one-to-one to a TouchEvent at the notification's center; scroll kinds go
// through two-phase swipe correlation.
//
// A Classifier is not safe for concurrent use: its correlation state has a
// single owner, and callers must serialize Classify.
type Classifier struct {
	clock    Clock
	maxGapMs int64
	pending  *pendingSwipe
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithSwipeMaxGap discards a pending scroll older than maxGapMs when the
// next scroll arrives, restarting correlation from the newer one. Zero (the
// default) disables the timeout: any two consecutive scrolls pair, however
// far apart.
func WithSwipeMaxGap(maxGapMs int64) Option {
	return func(c *Classifier) {
		c.maxGapMs = maxGapMs
	}
}

// NewClassifier creates a Classifier stamping records with the given clock.
func NewClassifier(clock Clock, opts ...Option) *Classifier {
	c := &Classifier{clock: clock}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify processes one notification and returns the resulting record, or
// nil when the notification produces nothing. Nothing is produced for an
// empty rectangle (dropped silently), an unrecognized kind, or the first
// scroll of a pair.
func (c *Classifier) Classify(n Notification) Record {
	if n.Bounds.Empty() {
		return nil
	}

	now := c.clock.NowMillis()

	switch n.Kind {
	case KindScroll:
		return c.correlateScroll(n.Bounds, now)
	case KindClick, KindLongClick, KindFocus, KindSelect, KindTextChange,
		KindGestureStart, KindGestureEnd:
		return TouchEvent{
			Kind:      n.Kind,
			X:         n.Bounds.CenterX(),
			Y:         n.Bounds.CenterY(),
			Timestamp: now,
		}
	default:
		return nil
	}
}

// correlateScroll advances the swipe state machine. The first scroll records
// a pending start and emits nothing; the next scroll completes the pair and
// resets the state, so scrolls alternate pending/idle indefinitely.
func (c *Classifier) correlateScroll(b Bounds, now int64) Record {
	x, y := b.CenterX(), b.CenterY()

	if c.pending != nil && c.maxGapMs > 0 && now-c.pending.startTime > c.maxGapMs {
		c.pending = nil
	}

	if c.pending == nil {
		c.pending = &pendingSwipe{startX: x, startY: y, startTime: now}
		return nil
	}

	start := c.pending
	c.pending = nil

	dx := x - start.startX
	dy := y - start.startY
	distance := math.Sqrt(dx*dx + dy*dy)
	durationMs := now - start.startTime

	var velocity float64
	if durationMs > 0 {
		velocity = distance / float64(durationMs) * 1000
	}

	return SwipeEvent{
		StartX:     start.startX,
		StartY:     start.startY,
		EndX:       x,
		EndY:       y,
		DurationMs: durationMs,
		Velocity:   velocity,
		Direction:  swipeDirection(dx, dy),
		Timestamp:  now,
	}
}

// swipeDirection picks the dominant axis of displacement. Ties between the
// axes resolve to the vertical branch.
func swipeDirection(dx, dy float64) Direction {
	if math.Abs(dx) > math.Abs(dy) {
		if dx > 0 {
			return DirectionRight
		}
		return DirectionLeft
	}
	if dy > 0 {
		return DirectionDown
	}
	return DirectionUp
}
