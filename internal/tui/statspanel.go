package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/nixlim/touchtop/internal/gesture"
	"github.com/nixlim/touchtop/internal/stats"
)

// barKindOrder fixes the display order of gesture kinds in the stats panel.
var barKindOrder = []gesture.Kind{
	gesture.KindClick,
	gesture.KindLongClick,
	gesture.KindScroll,
	gesture.KindFocus,
	gesture.KindSelect,
	gesture.KindTextChange,
	gesture.KindGestureStart,
	gesture.KindGestureEnd,
}

// renderStatsPanel renders aggregate gesture statistics for the displayed
// device's timeline.
func (m Model) renderStatsPanel(w, h int) string {
	summary := stats.Compute(m.getTimeline(), time.Now().UnixMilli())

	contentW := w - 4
	if contentW < 20 {
		contentW = 20
	}

	contentH := h - 4 // borders + title
	if contentH < 1 {
		contentH = 1
	}

	var lines []string

	title := panelTitleStyle.Render("Gestures")
	if id := m.displayedDevice(); id != "" {
		title += dimStyle.Render(" " + truncateID(id, 12))
	}
	lines = append(lines, title)

	if summary.Total == 0 {
		lines = append(lines, "")
		lines = append(lines, dimStyle.Render("No activity"))
		return renderBorderedPanel(strings.Join(lines, "\n"), w, h)
	}

	lines = append(lines, fmt.Sprintf("Total %s  Touch %s  Swipe %s  Last min %d",
		formatNumber(int64(summary.Total)),
		formatNumber(int64(summary.Touches)),
		formatNumber(int64(summary.Swipes)),
		summary.LastMinute))

	if summary.Swipes > 0 {
		lines = append(lines, fmt.Sprintf("Avg %.0fpx/s  Peak %.0fpx/s  Dist %.0fpx",
			summary.AvgVelocity, summary.PeakVelocity, summary.AvgDistance))
		lines = append(lines, renderDirections(summary.ByDirection))
	}

	lines = append(lines, renderKindBars(summary, contentW, contentH-(len(lines)-1))...)

	if len(lines) > contentH+1 {
		lines = lines[:contentH+1]
	}

	return renderBorderedPanel(strings.Join(lines, "\n"), w, h)
}

// renderDirections formats swipe direction counts on one line.
func renderDirections(byDir map[gesture.Direction]int) string {
	return fmt.Sprintf("↑ %d  ↓ %d  ← %d  → %d",
		byDir[gesture.DirectionUp],
		byDir[gesture.DirectionDown],
		byDir[gesture.DirectionLeft],
		byDir[gesture.DirectionRight])
}

// renderKindBars renders per-kind count bars scaled to the most frequent
// kind, limited to maxLines.
func renderKindBars(summary stats.Summary, contentW, maxLines int) []string {
	if maxLines <= 0 {
		return nil
	}

	maxCount := 0
	for _, count := range summary.ByKind {
		if count > maxCount {
			maxCount = count
		}
	}
	if maxCount == 0 {
		return nil
	}

	barW := contentW - 20
	if barW < 6 {
		barW = 6
	}
	if barW > 20 {
		barW = 20
	}

	var lines []string
	for _, kind := range barKindOrder {
		count := summary.ByKind[kind]
		if count == 0 {
			continue
		}
		ratio := float64(count) / float64(maxCount)
		lines = append(lines, fmt.Sprintf("%-12s %s %d",
			truncateStr(kind.String(), 12), renderRatioBar(ratio, barW), count))
		if len(lines) >= maxLines {
			break
		}
	}
	return lines
}

// renderRatioBar renders a colored progress bar for the given ratio.
func renderRatioBar(ratio float64, width int) string {
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}

	filled := int(ratio * float64(width))
	if filled > width {
		filled = width
	}

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)

	switch {
	case ratio >= 0.8:
		return gaugeRedStyle.Render(bar)
	case ratio >= 0.5:
		return gaugeYellowStyle.Render(bar)
	default:
		return gaugeGreenStyle.Render(bar)
	}
}
