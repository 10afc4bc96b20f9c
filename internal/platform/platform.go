// Package platform implements the device-side collaborators the gesture
// pipeline polls: a millisecond clock and a per-device state cache holding
// the last orientation and overlay-permission values reported by the bridge.
package platform

import (
	"sync"
	"time"
)

// Display rotations as reported by the bridge, in degrees.
const (
	RotationPortrait         = 0
	RotationLandscape        = 90
	RotationPortraitFlipped  = 180
	RotationLandscapeFlipped = 270
)

// IsLandscape reports whether the rotation is one of the two landscape ones.
func IsLandscape(rotation int) bool {
	return rotation == RotationLandscape || rotation == RotationLandscapeFlipped
}

// ValidRotation reports whether the value is one of the four display rotations.
func ValidRotation(rotation int) bool {
	switch rotation {
	case RotationPortrait, RotationLandscape, RotationPortraitFlipped, RotationLandscapeFlipped:
		return true
	}
	return false
}

// SystemClock reads the wall clock in milliseconds.
type SystemClock struct{}

// NowMillis returns the current Unix time in milliseconds.
func (SystemClock) NowMillis() int64 {
	return time.Now().UnixMilli()
}

// DeviceState caches the most recent device state reported by the bridge.
// The pipeline polls it on every notification, so a rotation that arrives
// between notifications takes effect on the next one, not immediately.
// All methods are safe for concurrent use.
type DeviceState struct {
	mu                sync.RWMutex
	rotation          int
	overlayPermission bool
	updatedAtMillis   int64
}

// NewDeviceState returns a DeviceState reporting portrait orientation.
// Overlay permission starts granted; it is revoked only when the bridge
// reports it revoked, so bridges that never export the permission gauge
// still get an overlay.
func NewDeviceState() *DeviceState {
	return &DeviceState{overlayPermission: true}
}

// Orientation returns the last reported display rotation in degrees.
func (d *DeviceState) Orientation() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.rotation
}

// HasOverlayPermission returns the last reported overlay-permission state.
func (d *DeviceState) HasOverlayPermission() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.overlayPermission
}

// SetOrientation records a reported rotation. Values that are not one of
// the four display rotations are ignored.
func (d *DeviceState) SetOrientation(rotation int, atMillis int64) {
	if !ValidRotation(rotation) {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rotation = rotation
	d.updatedAtMillis = atMillis
}

// SetOverlayPermission records a reported overlay-permission state.
func (d *DeviceState) SetOverlayPermission(granted bool, atMillis int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.overlayPermission = granted
	d.updatedAtMillis = atMillis
}

// UpdatedAtMillis returns the timestamp of the last state update, or 0 if
// the bridge has not reported state yet.
func (d *DeviceState) UpdatedAtMillis() int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.updatedAtMillis
}
