package tui

import "github.com/nixlim/touchtop/internal/gesture"

// filterStop is one position in the kind-filter cycle.
type filterStop struct {
	label  string
	all    bool
	touch  bool
	swipes bool
	kind   gesture.Kind
}

// filterStops is the cycling order for the timeline kind filter: everything
// first, then the two record classes, then each touch kind.
var filterStops = []filterStop{
	{label: "all", all: true},
	{label: "touches", touch: true},
	{label: "swipes", swipes: true},
	{label: "click", kind: gesture.KindClick},
	{label: "long_click", kind: gesture.KindLongClick},
	{label: "scroll", kind: gesture.KindScroll},
	{label: "focus", kind: gesture.KindFocus},
	{label: "select", kind: gesture.KindSelect},
	{label: "text_change", kind: gesture.KindTextChange},
}

// KindFilter selects which records the timeline panel shows. The zero
// value shows everything.
type KindFilter struct {
	pos int
}

// Next advances the filter to the next stop, wrapping to "all".
func (f *KindFilter) Next() {
	f.pos = (f.pos + 1) % len(filterStops)
}

// Active reports whether the filter excludes anything.
func (f KindFilter) Active() bool {
	return !filterStops[f.pos].all
}

// Label returns the display name of the current stop.
func (f KindFilter) Label() string {
	return filterStops[f.pos].label
}

// Matches reports whether the record passes the current stop.
func (f KindFilter) Matches(rec gesture.Record) bool {
	stop := filterStops[f.pos]
	if stop.all {
		return true
	}

	switch e := rec.(type) {
	case gesture.SwipeEvent:
		return stop.swipes
	case gesture.TouchEvent:
		if stop.swipes {
			return false
		}
		return stop.touch || e.Kind == stop.kind
	}
	return false
}
