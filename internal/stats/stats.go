// Package stats provides aggregate statistics computation over gesture
// timeline snapshots. All functions are pure computations with no side
// effects.
package stats

import (
	"math"

	"github.com/nixlim/touchtop/internal/gesture"
)

// Summary is the aggregate view of one timeline snapshot.
type Summary struct {
	Total   int
	Touches int
	Swipes  int

	// ByKind counts touch records per gesture kind.
	ByKind map[gesture.Kind]int

	// ByDirection counts swipe records per direction.
	ByDirection map[gesture.Direction]int

	// AvgVelocity and PeakVelocity are in pixels per second across all
	// swipes, including zero-duration swipes whose velocity is 0.
	AvgVelocity  float64
	PeakVelocity float64

	// AvgDistance is the mean swipe displacement in pixels.
	AvgDistance float64

	// LastMinute counts records stamped within the trailing 60 seconds
	// of nowMillis.
	LastMinute int
}

// Compute aggregates a timeline snapshot. nowMillis anchors the trailing
// one-minute activity window.
func Compute(entries []gesture.Record, nowMillis int64) Summary {
	s := Summary{
		ByKind:      make(map[gesture.Kind]int),
		ByDirection: make(map[gesture.Direction]int),
	}

	var velocitySum, distanceSum float64
	cutoff := nowMillis - 60_000

	for _, rec := range entries {
		s.Total++
		if rec.Time() >= cutoff {
			s.LastMinute++
		}

		switch e := rec.(type) {
		case gesture.TouchEvent:
			s.Touches++
			s.ByKind[e.Kind]++
		case gesture.SwipeEvent:
			s.Swipes++
			s.ByDirection[e.Direction]++
			velocitySum += e.Velocity
			if e.Velocity > s.PeakVelocity {
				s.PeakVelocity = e.Velocity
			}
			distanceSum += math.Hypot(e.EndX-e.StartX, e.EndY-e.StartY)
		}
	}

	if s.Swipes > 0 {
		s.AvgVelocity = velocitySum / float64(s.Swipes)
		s.AvgDistance = distanceSum / float64(s.Swipes)
	}
	return s
}
