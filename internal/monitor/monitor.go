// Package monitor assembles one device's gesture pipeline (classifier,
// bounded timeline, overlay controller) behind the narrow facade the
// display layer consumes.
package monitor

import (
	"sync"

	"github.com/nixlim/touchtop/internal/gesture"
	"github.com/nixlim/touchtop/internal/overlay"
	"github.com/nixlim/touchtop/internal/timeline"
)

// Monitor routes notifications through classification into the timeline and
// re-evaluates overlay visibility on every one. The classifier's correlation
// state has a single owner, so OnNotification serializes behind one mutex;
// the read-side methods go straight to their self-locked components.
type Monitor struct {
	mu         sync.Mutex
	classifier *gesture.Classifier
	log        *timeline.Log
	controller *overlay.Controller
}

// New wires a Monitor from its parts.
func New(classifier *gesture.Classifier, log *timeline.Log, controller *overlay.Controller) *Monitor {
	return &Monitor{
		classifier: classifier,
		log:        log,
		controller: controller,
	}
}

// OnNotification is the pipeline entry point. The classifier's output, if
// any, lands in the timeline; the overlay controller re-polls orientation
// regardless, so notifications the classifier drops still drive visibility.
func (m *Monitor) OnNotification(kind gesture.Kind, bounds gesture.Bounds) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec := m.classifier.Classify(gesture.Notification{Kind: kind, Bounds: bounds}); rec != nil {
		m.log.Append(rec)
	}
	m.controller.Refresh()
}

// Timeline returns the merged gesture history, newest first.
func (m *Monitor) Timeline() []gesture.Record {
	return m.log.Snapshot()
}

// ClearLog empties the gesture history.
func (m *Monitor) ClearLog() {
	m.log.Clear()
}

// LogLen returns the number of records currently retained.
func (m *Monitor) LogLen() int {
	return m.log.Len()
}

// CurrentRate returns the overlay's last published refresh rate.
func (m *Monitor) CurrentRate() int {
	return m.controller.CurrentRate()
}

// OverlayState returns the overlay's visibility state.
func (m *Monitor) OverlayState() overlay.State {
	return m.controller.State()
}

// HandleDrag forwards a pointer drag on the overlay surface.
func (m *Monitor) HandleDrag(pointerX, pointerY int) {
	m.controller.HandleDrag(pointerX, pointerY)
}

// Shutdown stops the overlay and its sampler.
func (m *Monitor) Shutdown() {
	m.controller.Shutdown()
}
