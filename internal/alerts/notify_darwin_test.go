//go:build darwin

package alerts

import (
	"testing"
	"time"
)

func TestAlertNotification_OSAScript(t *testing.T) {
	// Exercise the notifier interface and AppleScript string escaping.
	// We don't actually run osascript in tests to avoid UI popups.
	notifier := NewOSAScriptNotifier(false) // disabled = no-op

	alert := Alert{
		Rule:     RulePermissionRevoked,
		Severity: SeverityCritical,
		Message:  `Overlay permission revoked with "special" chars`,
		DeviceID: "emulator-5554-extra-long-serial",
		FiredAt:  time.Now(),
	}

	// Should not panic even with special characters.
	notifier.Notify(alert)

	escaped := escapeAppleScript(`He said "hello" and \n stuff`)
	expected := `He said \"hello\" and \\n stuff`
	if escaped != expected {
		t.Errorf("escapeAppleScript: expected %q, got %q", expected, escaped)
	}

	if !NewOSAScriptNotifier(true).enabled {
		t.Error("expected notifier to be enabled")
	}
	if NewOSAScriptNotifier(false).enabled {
		t.Error("expected notifier to be disabled")
	}
}
