package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/nixlim/touchtop/internal/device"
	"github.com/nixlim/touchtop/internal/overlay"
)

// renderDeviceListPanel renders the device list panel with columns for
// Device, Model, Last Seen, Rotation, Overlay, FPS, Events.
func (m Model) renderDeviceListPanel(w, h int) string {
	devs := m.getDevices()

	contentW := w - 4
	if contentW < 16 {
		contentW = 16
	}

	contentH := h - 4 // borders + title
	if contentH < 2 {
		contentH = 2
	}

	var lines []string

	// Title.
	title := panelTitleStyle.Render("Devices")
	if m.selectedDevice != "" {
		title += dimStyle.Render(" [" + truncateID(m.selectedDevice, 12) + "]")
	} else {
		title += dimStyle.Render(" [auto]")
	}
	lines = append(lines, title)

	if len(devs) == 0 {
		lines = append(lines, "")
		lines = append(lines, dimStyle.Render("No devices connected"))
		content := strings.Join(lines, "\n")
		return renderBorderedPanelStyled(content, w, h, m.panelStyle(FocusDevices))
	}

	// Build header row.
	header := formatDeviceHeader(contentW)
	lines = append(lines, dimStyle.Render(header))
	lines = append(lines, dimStyle.Render(strings.Repeat("─", min(contentW, len(header)))))

	for i, d := range devs {
		line := formatDeviceRow(&d, contentW)
		if i == m.deviceCursor {
			line = selectedStyle.Render(line)
		} else if time.Since(d.ConnectedAt) < 10*time.Second {
			line = newBadgeStyle.Render("NEW ") + line
		}
		lines = append(lines, line)
	}

	// Scroll viewport: keep header lines fixed, scroll data lines, and
	// follow the cursor.
	headerCount := 3 // title + column header + separator
	if len(lines) > headerCount {
		dataLines := lines[headerCount:]
		visibleRows := contentH - headerCount
		if visibleRows > 0 && len(dataLines) > visibleRows {
			offset := m.deviceCursor - visibleRows + 1
			if offset < 0 {
				offset = 0
			}
			maxOffset := len(dataLines) - visibleRows
			if offset > maxOffset {
				offset = maxOffset
			}
			end := offset + visibleRows
			if end > len(dataLines) {
				end = len(dataLines)
			}
			lines = append(lines[:headerCount], dataLines[offset:end]...)
		}
	} else if len(lines) > contentH {
		lines = lines[:contentH]
	}

	content := strings.Join(lines, "\n")
	return renderBorderedPanelStyled(content, w, h, m.panelStyle(FocusDevices))
}

// formatDeviceHeader returns the column header string.
func formatDeviceHeader(maxW int) string {
	if maxW >= 90 {
		return fmt.Sprintf("%-14s %-12s %-7s %4s %-8s %5s %7s",
			"Device", "Model", "Seen", "Rot", "Overlay", "FPS", "Events")
	}
	if maxW >= 60 {
		return fmt.Sprintf("%-14s %-7s %4s %-8s %7s",
			"Device", "Seen", "Rot", "Overlay", "Events")
	}
	return fmt.Sprintf("%-12s %-7s %7s",
		"Device", "Seen", "Events")
}

// formatDeviceRow formats a single device row based on available width.
func formatDeviceRow(d *device.Summary, maxW int) string {
	name := truncateStr(d.Name, 14)
	model := truncateStr(d.Model, 12)
	seen := formatLastSeen(d.LastSeenAt)
	rot := fmt.Sprintf("%d", d.Rotation)
	ovl := overlayLabel(d)
	fps := "-"
	if d.OverlayState == overlay.Visible {
		fps = fmt.Sprintf("%d", d.Rate)
	}
	events := formatNumber(int64(d.TimelineLen))

	if maxW >= 90 {
		return fmt.Sprintf("%-14s %-12s %-7s %4s %-8s %5s %7s",
			name, model, seen, rot, ovl, fps, events)
	}
	if maxW >= 60 {
		return fmt.Sprintf("%-14s %-7s %4s %-8s %7s",
			name, seen, rot, ovl, events)
	}
	return fmt.Sprintf("%-12s %-7s %7s",
		truncateStr(d.Name, 12), seen, events)
}

// formatLastSeen formats the time since the device's last traffic.
func formatLastSeen(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return formatDuration(time.Since(t))
}

// overlayLabel returns a styled label for the device's overlay status.
func overlayLabel(d *device.Summary) string {
	if !d.OverlayPermission {
		return deniedStyle.Render("no-perm")
	}
	if d.OverlayState == overlay.Visible {
		return activeStyle.Render("visible")
	}
	return dimStyle.Render("hidden")
}

// truncateStr truncates a string to maxLen characters.
func truncateStr(s string, maxLen int) string {
	if s == "" {
		return "-"
	}
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-1] + "."
}

// formatDuration formats a duration into a human-readable short form.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
