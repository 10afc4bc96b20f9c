package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/nixlim/touchtop/internal/gesture"
)

// recordIcons maps gesture kinds to two-character icons.
var recordIcons = map[gesture.Kind]string{
	gesture.KindClick:        "CL",
	gesture.KindLongClick:    "LC",
	gesture.KindScroll:       "SC",
	gesture.KindFocus:        "FO",
	gesture.KindSelect:       "SE",
	gesture.KindTextChange:   "TX",
	gesture.KindGestureStart: "G<",
	gesture.KindGestureEnd:   "G>",
}

// recordStyles maps gesture kinds to lipgloss styles.
var recordStyles = map[gesture.Kind]lipgloss.Style{
	gesture.KindClick:        lipgloss.NewStyle().Foreground(lipgloss.Color("117")), // light blue
	gesture.KindLongClick:    lipgloss.NewStyle().Foreground(lipgloss.Color("183")), // light purple
	gesture.KindScroll:       lipgloss.NewStyle().Foreground(lipgloss.Color("222")), // light yellow
	gesture.KindFocus:        lipgloss.NewStyle().Foreground(lipgloss.Color("114")), // light green
	gesture.KindSelect:       lipgloss.NewStyle().Foreground(lipgloss.Color("150")), // pale green
	gesture.KindTextChange:   lipgloss.NewStyle().Foreground(lipgloss.Color("219")), // pink
	gesture.KindGestureStart: lipgloss.NewStyle().Foreground(lipgloss.Color("245")), // grey
	gesture.KindGestureEnd:   lipgloss.NewStyle().Foreground(lipgloss.Color("245")), // grey
}

var swipeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")) // orange

const swipeIcon = "~>"

// renderTimelinePanel renders the scrolling gesture timeline panel.
func (m Model) renderTimelinePanel(w, h int) string {
	records := m.getTimeline()

	contentW := w - 4
	if contentW < 20 {
		contentW = 20
	}

	contentH := h - 4 // borders + title
	if contentH < 1 {
		contentH = 1
	}

	var lines []string

	title := panelTitleStyle.Render("Timeline")
	if id := m.displayedDevice(); id != "" {
		title += dimStyle.Render(" " + truncateID(id, 12))
	}
	if m.kindFilter.Active() {
		title += dimStyle.Render(" [" + m.kindFilter.Label() + "]")
	}
	lines = append(lines, title)

	if len(records) == 0 {
		lines = append(lines, "")
		lines = append(lines, dimStyle.Render("No gestures yet"))
		content := strings.Join(lines, "\n")
		return renderBorderedPanelStyled(content, w, h, m.panelStyle(FocusTimeline))
	}

	if m.kindFilter.Active() {
		filtered := records[:0:0]
		for _, rec := range records {
			if m.kindFilter.Matches(rec) {
				filtered = append(filtered, rec)
			}
		}
		records = filtered
		if len(records) == 0 {
			lines = append(lines, "")
			lines = append(lines, warnStyle.Render("No gestures match filter"))
			content := strings.Join(lines, "\n")
			return renderBorderedPanelStyled(content, w, h, m.panelStyle(FocusTimeline))
		}
	}

	// Records arrive newest-first. Follow mode pins the viewport to the
	// top; manual scrolling moves toward older records.
	visibleLines := contentH - 1 // minus title
	if visibleLines < 1 {
		visibleLines = 1
	}

	startIdx := 0
	if !m.autoScroll {
		startIdx = m.timelineScrollPos
		if startIdx > len(records)-visibleLines {
			startIdx = len(records) - visibleLines
		}
		if startIdx < 0 {
			startIdx = 0
		}
	}

	endIdx := startIdx + visibleLines
	if endIdx > len(records) {
		endIdx = len(records)
	}

	// Scroll indicator replaces one content line when scrolled back.
	if startIdx > 0 && visibleLines > 1 {
		lines = append(lines, dimStyle.Render(formatScrollPos(startIdx, endIdx, len(records))))
		endIdx--
		if endIdx < startIdx {
			endIdx = startIdx
		}
	}

	for _, rec := range records[startIdx:endIdx] {
		lines = append(lines, renderTimelineLine(rec, contentW))
	}

	content := strings.Join(lines, "\n")
	return renderBorderedPanelStyled(content, w, h, m.panelStyle(FocusTimeline))
}

// formatScrollPos formats a scroll position indicator like "[10-20/100]".
func formatScrollPos(start, end, total int) string {
	return fmt.Sprintf("[%d-%d/%d]", start+1, end, total)
}

// renderTimelineLine formats a single record line with timestamp prefix,
// icon, and description.
func renderTimelineLine(rec gesture.Record, maxW int) string {
	ts := time.UnixMilli(rec.Time()).Format("15:04:05")

	icon := swipeIcon
	style := swipeStyle
	if t, ok := rec.(gesture.TouchEvent); ok {
		icon = recordIcons[t.Kind]
		if icon == "" {
			icon = "??"
		}
		if s, ok := recordStyles[t.Kind]; ok {
			style = s
		} else {
			style = dimStyle
		}
	}

	body := describeRecord(rec)
	line := dimStyle.Render(ts) + " " + style.Render(icon) + " " + body

	if lipgloss.Width(line) > maxW {
		// Truncate the plain body rather than the styled line so ANSI
		// sequences stay balanced.
		overflow := lipgloss.Width(line) - maxW + 3
		if overflow < len(body) {
			body = body[:len(body)-overflow] + "..."
		} else {
			body = "..."
		}
		line = dimStyle.Render(ts) + " " + style.Render(icon) + " " + body
	}
	return line
}

// describeRecord returns a one-line human-readable description of a record.
func describeRecord(rec gesture.Record) string {
	switch e := rec.(type) {
	case gesture.TouchEvent:
		return describeTouch(e)
	case gesture.SwipeEvent:
		return describeSwipe(e)
	default:
		return "unknown record"
	}
}

// describeTouch formats a touch event like "click (540,1200)".
func describeTouch(e gesture.TouchEvent) string {
	return fmt.Sprintf("%s (%.0f,%.0f)", e.Kind, e.X, e.Y)
}

// describeSwipe formats a swipe event like "swipe ↑ 420px 1250px/s 300ms".
func describeSwipe(e gesture.SwipeEvent) string {
	dist := math.Hypot(e.EndX-e.StartX, e.EndY-e.StartY)
	return fmt.Sprintf("swipe %s %.0fpx %.0fpx/s %dms",
		directionArrow(e.Direction), dist, e.Velocity, e.DurationMs)
}

// directionArrow maps a swipe direction to its arrow glyph.
func directionArrow(d gesture.Direction) string {
	switch d {
	case gesture.DirectionUp:
		return "↑"
	case gesture.DirectionDown:
		return "↓"
	case gesture.DirectionLeft:
		return "←"
	case gesture.DirectionRight:
		return "→"
	default:
		return "?"
	}
}
