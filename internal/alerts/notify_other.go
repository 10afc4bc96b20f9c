//go:build !darwin && !linux

package alerts

// NewPlatformNotifier returns a no-op notifier on platforms without a
// native notification command.
func NewPlatformNotifier(enabled bool) Notifier {
	return NopNotifier{}
}
