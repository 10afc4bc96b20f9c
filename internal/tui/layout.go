package tui

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type panelDimensions struct {
	deviceListW, deviceListH int
	timelineW, timelineH     int
	statsW, statsH           int
	headerH, footerH         int
}

const (
	minWidth  = 40
	minHeight = 10

	headerHeight = 1
	footerHeight = 1

	statsMinHeight = 8

	statsMaxHeight = 12
)

func computeDimensions(totalW, totalH int) panelDimensions {
	if totalW < minWidth {
		totalW = minWidth
	}
	if totalH < minHeight {
		totalH = minHeight
	}

	d := panelDimensions{
		headerH: headerHeight,
		footerH: footerHeight,
	}

	usableH := totalH - headerHeight - footerHeight
	if usableH < 4 {
		usableH = 4
	}

	d.deviceListW = totalW * 40 / 100
	if d.deviceListW < 20 {
		d.deviceListW = 20
	}
	if d.deviceListW > totalW-20 {
		d.deviceListW = totalW - 20
	}
	d.deviceListH = usableH

	rightW := totalW - d.deviceListW
	if rightW < 20 {
		rightW = 20
	}

	d.statsW = rightW
	maxSt := usableH * 35 / 100
	if maxSt < statsMinHeight {
		maxSt = statsMinHeight
	}
	if maxSt > statsMaxHeight {
		maxSt = statsMaxHeight
	}
	d.statsH = maxSt
	if d.statsH > usableH/2 {
		d.statsH = usableH / 2
	}

	d.timelineW = rightW
	d.timelineH = usableH - d.statsH
	if d.timelineH < 3 {
		d.timelineH = 3
	}

	return d
}

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62"))

	panelBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240"))

	panelTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("69"))

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	activeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("82"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("226"))

	deniedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	gaugeGreenStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("82"))

	gaugeYellowStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("226"))

	gaugeRedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))

	statusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	newBadgeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("82")).
			Bold(true)

	focusBorderColor = lipgloss.Color("63")

	surfaceStyle = lipgloss.NewStyle().
			Bold(true).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("208"))
)

func renderBorderedPanel(content string, w, h int) string {
	return renderBorderedPanelStyled(content, w, h, panelBorderStyle)
}

func renderBorderedPanelStyled(content string, w, h int, style lipgloss.Style) string {
	contentH := h - 2
	if contentH < 1 {
		contentH = 1
	}

	lines := strings.Split(content, "\n")
	if len(lines) > contentH {
		lines = lines[:contentH]
		content = strings.Join(lines, "\n")
	}

	return style.
		Width(w - 2).
		Height(contentH).
		Render(content)
}

// panelStyle returns the border style for a dashboard panel, highlighted
// when the panel holds focus.
func (m Model) panelStyle(focus PanelFocus) lipgloss.Style {
	if m.panelFocus == focus {
		return panelBorderStyle.BorderForeground(focusBorderColor)
	}
	return panelBorderStyle
}

var ansiRe = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func stripAnsi(s string) string {
	return ansiRe.ReplaceAllString(s, "")
}

func (m Model) renderDashboard() string {
	dims := computeDimensions(m.width, m.height)

	header := m.renderHeader()

	deviceList := m.renderDeviceListPanel(dims.deviceListW, dims.deviceListH)
	timelinePanel := m.renderTimelinePanel(dims.timelineW, dims.timelineH)
	statsPanel := m.renderStatsPanel(dims.statsW, dims.statsH)
	footer := m.renderFooter()

	rightCol := lipgloss.JoinVertical(lipgloss.Left, timelinePanel, statsPanel)

	mainContent := lipgloss.JoinHorizontal(lipgloss.Top, deviceList, rightCol)

	usableH := m.height - dims.headerH - dims.footerH
	if usableH < 4 {
		usableH = 4
	}
	mcLines := strings.Split(mainContent, "\n")
	if len(mcLines) > usableH {
		mcLines = mcLines[:usableH]
		mainContent = strings.Join(mcLines, "\n")
	}

	layout := lipgloss.JoinVertical(lipgloss.Left, header, mainContent, footer)

	if m.surfaces != nil {
		if sv, ok := m.surfaces.Snapshot(); ok {
			layout = m.overlaySurface(layout, sv)
		}
	}

	return layout
}

func (m Model) renderHeader() string {
	title := " touchtop"
	viewLabel := " [Dashboard]"
	if m.selectedDevice != "" {
		viewLabel += " Device: " + truncateID(m.selectedDevice, 12)
	} else {
		viewLabel += " All"
	}

	indicators := m.headerIndicators()

	padding := m.width - lipgloss.Width(title) - lipgloss.Width(viewLabel) - lipgloss.Width(indicators)
	if padding < 0 {
		padding = 0
	}

	return headerStyle.Width(m.width).Render(title + viewLabel + strings.Repeat(" ", padding) + indicators)
}

func (m Model) renderFooter() string {
	return statusBarStyle.Width(m.width).Render(m.footerHelp())
}

func (m Model) footerHelp() string {
	switch m.panelFocus {
	case FocusTimeline:
		return " ↑/↓:Scroll  f:Filter  c:Clear  Esc:Follow  Tab:Devices  q:Quit"
	default:
		return " ↑/↓:Select  Enter:Pin  Esc:Unpin  Tab:Timeline  f:Filter  c:Clear  q:Quit"
	}
}

func truncateID(id string, maxLen int) string {
	if len(id) <= maxLen {
		return id
	}
	return id[:maxLen]
}

func formatNumber(n int64) string {
	if n >= 10000 {
		return fmt.Sprintf("%.1fk", float64(n)/1000)
	}
	return fmt.Sprintf("%d", n)
}

// overlaySurface composites the floating rate surface over the dashboard,
// clamped so the box stays fully on screen.
func (m Model) overlaySurface(base string, sv SurfaceView) string {
	box := renderSurfaceBox(sv)
	boxW := lipgloss.Width(box)
	boxH := lipgloss.Height(box)

	x, y := sv.X, sv.Y
	if x > m.width-boxW {
		x = m.width - boxW
	}
	if y > m.height-boxH {
		y = m.height - boxH
	}
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}

	return placeOverlay(x, y, box, base)
}

func renderSurfaceBox(sv SurfaceView) string {
	contentW := sv.Width - 2
	if contentW < 4 {
		contentW = 4
	}
	contentH := sv.Height - 2
	if contentH < 1 {
		contentH = 1
	}

	text := sv.Text
	if text == "" {
		text = "-- fps"
	}

	style := surfaceStyle
	if sv.Opaque {
		style = style.Background(lipgloss.Color("236"))
	}

	return style.
		Width(contentW).
		Height(contentH).
		Align(lipgloss.Center, lipgloss.Center).
		Render(text)
}

// placeOverlay splices fg into bg with its top-left corner at cell (x, y).
// Rows under the overlay lose their styling; panel borders and cells are
// single-width runes, so rune indexing matches display columns.
func placeOverlay(x, y int, fg, bg string) string {
	bgLines := strings.Split(bg, "\n")
	fgLines := strings.Split(fg, "\n")
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}

	for i, fgLine := range fgLines {
		row := y + i
		if row >= len(bgLines) {
			break
		}
		plain := []rune(stripAnsi(bgLines[row]))
		for len(plain) < x {
			plain = append(plain, ' ')
		}
		left := string(plain[:x])
		cut := x + lipgloss.Width(fgLine)
		right := ""
		if cut < len(plain) {
			right = string(plain[cut:])
		}
		bgLines[row] = left + fgLine + right
	}
	return strings.Join(bgLines, "\n")
}
