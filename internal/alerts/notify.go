package alerts

import "fmt"

// NopNotifier discards every alert. Used when system notifications are
// disabled.
type NopNotifier struct{}

// Notify implements Notifier.
func (NopNotifier) Notify(Alert) {}

// notificationTitle builds the title line shared by the platform
// notifiers.
func notificationTitle(alert Alert) string {
	return fmt.Sprintf("touchtop: %s", alert.Rule)
}

// truncateDeviceID shortens a device ID for display in notifications.
// Emulator serials fit; long network addresses get clipped.
func truncateDeviceID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:16] + "..."
}
