// Package alerts raises desktop notifications for device lifecycle
// events that matter even when the dashboard is not in the foreground:
// a device withdrawing its overlay permission, or a device being
// dropped from tracking to make room for a newer one.
package alerts

import "time"

// Alert rule name constants.
const (
	RulePermissionRevoked = "PermissionRevoked"
	RuleDeviceEvicted     = "DeviceEvicted"
)

// Alert severity constants.
const (
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Alert represents one device lifecycle event worth surfacing outside
// the dashboard.
type Alert struct {
	Rule     string // PermissionRevoked, DeviceEvicted
	Severity string // warning, critical
	Message  string
	DeviceID string
	FiredAt  time.Time
}

// alertKey returns a deduplication key for this alert, combining the
// rule name and device ID. Two alerts with the same key within the
// dedup window are considered duplicates.
func (a Alert) alertKey() string {
	return a.Rule + ":" + a.DeviceID
}

// Notifier sends alert notifications via platform-specific mechanisms.
type Notifier interface {
	// Notify sends an alert notification. Implementations must be non-blocking.
	Notify(alert Alert)
}
