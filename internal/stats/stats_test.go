package stats

import (
	"math"
	"testing"

	"github.com/nixlim/touchtop/internal/gesture"
)

func TestStatsCompute_Empty(t *testing.T) {
	s := Compute(nil, 1000)

	if s.Total != 0 || s.Touches != 0 || s.Swipes != 0 {
		t.Errorf("expected zero counts, got %+v", s)
	}
	if s.AvgVelocity != 0 || s.PeakVelocity != 0 || s.AvgDistance != 0 {
		t.Errorf("expected zero aggregates, got %+v", s)
	}
	if s.ByKind == nil || s.ByDirection == nil {
		t.Error("expected initialized maps for an empty snapshot")
	}
}

func TestStatsCompute_CountsByKindAndDirection(t *testing.T) {
	entries := []gesture.Record{
		gesture.TouchEvent{Kind: gesture.KindClick, Timestamp: 100},
		gesture.TouchEvent{Kind: gesture.KindClick, Timestamp: 200},
		gesture.TouchEvent{Kind: gesture.KindFocus, Timestamp: 300},
		gesture.SwipeEvent{Direction: gesture.DirectionRight, Velocity: 500, Timestamp: 400},
		gesture.SwipeEvent{Direction: gesture.DirectionRight, Velocity: 300, Timestamp: 500},
		gesture.SwipeEvent{Direction: gesture.DirectionUp, Velocity: 100, Timestamp: 600},
	}

	s := Compute(entries, 1000)

	if s.Total != 6 {
		t.Errorf("Total = %d, want 6", s.Total)
	}
	if s.Touches != 3 {
		t.Errorf("Touches = %d, want 3", s.Touches)
	}
	if s.Swipes != 3 {
		t.Errorf("Swipes = %d, want 3", s.Swipes)
	}
	if s.ByKind[gesture.KindClick] != 2 {
		t.Errorf("ByKind[click] = %d, want 2", s.ByKind[gesture.KindClick])
	}
	if s.ByKind[gesture.KindFocus] != 1 {
		t.Errorf("ByKind[focus] = %d, want 1", s.ByKind[gesture.KindFocus])
	}
	if s.ByDirection[gesture.DirectionRight] != 2 {
		t.Errorf("ByDirection[right] = %d, want 2", s.ByDirection[gesture.DirectionRight])
	}
	if s.ByDirection[gesture.DirectionUp] != 1 {
		t.Errorf("ByDirection[up] = %d, want 1", s.ByDirection[gesture.DirectionUp])
	}
}

func TestStatsCompute_VelocityAggregates(t *testing.T) {
	entries := []gesture.Record{
		gesture.SwipeEvent{Direction: gesture.DirectionRight, Velocity: 600, Timestamp: 100},
		gesture.SwipeEvent{Direction: gesture.DirectionLeft, Velocity: 200, Timestamp: 200},
		// Zero-duration swipe: velocity 0 still counts toward the average.
		gesture.SwipeEvent{Direction: gesture.DirectionDown, Velocity: 0, Timestamp: 300},
	}

	s := Compute(entries, 1000)

	want := (600.0 + 200.0 + 0.0) / 3.0
	if math.Abs(s.AvgVelocity-want) > 1e-9 {
		t.Errorf("AvgVelocity = %f, want %f", s.AvgVelocity, want)
	}
	if s.PeakVelocity != 600 {
		t.Errorf("PeakVelocity = %f, want 600", s.PeakVelocity)
	}
}

func TestStatsCompute_AvgDistance(t *testing.T) {
	entries := []gesture.Record{
		gesture.SwipeEvent{StartX: 0, StartY: 0, EndX: 30, EndY: 40, Direction: gesture.DirectionDown, Timestamp: 100},
		gesture.SwipeEvent{StartX: 10, StartY: 0, EndX: 110, EndY: 0, Direction: gesture.DirectionRight, Timestamp: 200},
	}

	s := Compute(entries, 1000)

	// Displacements are 50 (3-4-5 triangle) and 100.
	if math.Abs(s.AvgDistance-75) > 1e-9 {
		t.Errorf("AvgDistance = %f, want 75", s.AvgDistance)
	}
}

func TestStatsCompute_LastMinuteWindow(t *testing.T) {
	now := int64(120_000)
	entries := []gesture.Record{
		gesture.TouchEvent{Kind: gesture.KindClick, Timestamp: 10_000},  // outside
		gesture.TouchEvent{Kind: gesture.KindClick, Timestamp: 60_000},  // boundary, inside
		gesture.TouchEvent{Kind: gesture.KindClick, Timestamp: 119_000}, // inside
	}

	s := Compute(entries, now)

	if s.LastMinute != 2 {
		t.Errorf("LastMinute = %d, want 2", s.LastMinute)
	}
	if s.Total != 3 {
		t.Errorf("Total = %d, want 3", s.Total)
	}
}
