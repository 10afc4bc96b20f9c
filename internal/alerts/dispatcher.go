package alerts

import (
	"fmt"
	"sync"
	"time"
)

// DefaultDedupWindow is how long a fired alert suppresses repeats of
// the same rule for the same device. Bridges re-send permission state
// with every batch, so without a window a revoked device would raise a
// notification per export.
const DefaultDedupWindow = 30 * time.Second

// Dispatcher turns device lifecycle events into alerts and forwards
// them to a Notifier. Duplicate alerts inside the dedup window are
// dropped. Safe for concurrent use.
type Dispatcher struct {
	notifier Notifier
	window   time.Duration
	now      func() time.Time

	mu        sync.Mutex
	lastFired map[string]time.Time
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDedupWindow overrides the duplicate-suppression interval.
// A zero or negative window disables suppression.
func WithDedupWindow(window time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		d.window = window
	}
}

// WithTimeSource overrides the dispatcher's wall clock.
func WithTimeSource(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) {
		d.now = now
	}
}

// NewDispatcher creates a dispatcher that forwards alerts to notifier.
func NewDispatcher(notifier Notifier, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		notifier:  notifier,
		window:    DefaultDedupWindow,
		now:       time.Now,
		lastFired: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// PermissionRevoked reports that a device withdrew its overlay
// permission while being monitored. The rate overlay for that device
// stays hidden until the permission is granted again.
func (d *Dispatcher) PermissionRevoked(deviceID string) {
	d.fire(Alert{
		Rule:     RulePermissionRevoked,
		Severity: SeverityCritical,
		Message:  "Overlay permission revoked; the rate overlay stays hidden until it is granted again.",
		DeviceID: deviceID,
	})
}

// DeviceEvicted reports that the registry dropped a device to make
// room for a newer one. Its gesture history is gone.
func (d *Dispatcher) DeviceEvicted(deviceID string) {
	d.fire(Alert{
		Rule:     RuleDeviceEvicted,
		Severity: SeverityWarning,
		Message:  fmt.Sprintf("Dropped from tracking to make room for a newer device; history for %s was discarded.", truncateDeviceID(deviceID)),
		DeviceID: deviceID,
	})
}

// fire stamps the alert and forwards it unless a duplicate fired
// within the dedup window.
func (d *Dispatcher) fire(a Alert) {
	a.FiredAt = d.now()
	if !d.shouldFire(a) {
		return
	}
	d.notifier.Notify(a)
}

// shouldFire reports whether the alert's key is outside the dedup
// window, recording the firing time when it is.
func (d *Dispatcher) shouldFire(a Alert) bool {
	if d.window <= 0 {
		return true
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	key := a.alertKey()
	if last, ok := d.lastFired[key]; ok && a.FiredAt.Sub(last) < d.window {
		return false
	}
	d.lastFired[key] = a.FiredAt
	return true
}
