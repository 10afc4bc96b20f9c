package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nixlim/touchtop/internal/config"
	"github.com/nixlim/touchtop/internal/device"
	"github.com/nixlim/touchtop/internal/gesture"
)

type PanelFocus int

const (
	FocusDevices PanelFocus = iota
	FocusTimeline
)

type tickMsg time.Time

// DeviceProvider is the registry surface the dashboard reads and drives.
type DeviceProvider interface {
	List() []device.Summary
	Timeline(deviceID string) []gesture.Record
	ClearLog(deviceID string) bool
	HandleDrag(deviceID string, pointerX, pointerY int)
}

type Model struct {
	width    int
	height   int
	keys     KeyMap
	quitting bool

	cfg config.Config

	devices  DeviceProvider
	surfaces *SurfaceManager

	selectedDevice string
	deviceCursor   int

	timelineScrollPos int
	autoScroll        bool
	kindFilter        KindFilter

	panelFocus PanelFocus

	dragging   bool
	dragDevice string

	refreshRate time.Duration

	onShutdown func()
}

func NewModel(cfg config.Config, opts ...ModelOption) Model {
	m := Model{
		keys:        DefaultKeyMap(),
		cfg:         cfg,
		autoScroll:  true,
		refreshRate: time.Duration(cfg.Display.RefreshRateMS) * time.Millisecond,
	}

	for _, opt := range opts {
		opt(&m)
	}

	return m
}

type ModelOption func(*Model)

func WithDeviceProvider(d DeviceProvider) ModelOption {
	return func(m *Model) { m.devices = d }
}

func WithSurfaceManager(sm *SurfaceManager) ModelOption {
	return func(m *Model) { m.surfaces = sm }
}

func WithOnShutdown(fn func()) ModelOption {
	return func(m *Model) { m.onShutdown = fn }
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.tickCmd(),
	)
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.refreshRate, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		return m, m.tickCmd()

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		if m.onShutdown != nil {
			m.onShutdown()
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Tab):
		if m.panelFocus == FocusDevices {
			m.panelFocus = FocusTimeline
		} else {
			m.panelFocus = FocusDevices
		}
		return m, nil

	case key.Matches(msg, m.keys.Filter):
		m.kindFilter.Next()
		m.timelineScrollPos = 0
		m.autoScroll = true
		return m, nil

	case key.Matches(msg, m.keys.ClearLog):
		if id := m.displayedDevice(); id != "" && m.devices != nil {
			m.devices.ClearLog(id)
			m.timelineScrollPos = 0
			m.autoScroll = true
		}
		return m, nil
	}

	switch m.panelFocus {
	case FocusTimeline:
		return m.handleTimelinePanelKey(msg)
	default:
		return m.handleDevicesPanelKey(msg)
	}
}

func (m Model) handleDevicesPanelKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.deviceCursor > 0 {
			m.deviceCursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		devs := m.getDevices()
		if m.deviceCursor < len(devs)-1 {
			m.deviceCursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.Enter):
		devs := m.getDevices()
		if m.deviceCursor >= 0 && m.deviceCursor < len(devs) {
			m.selectedDevice = devs[m.deviceCursor].ID
			m.timelineScrollPos = 0
			m.autoScroll = true
		}
		return m, nil

	case key.Matches(msg, m.keys.Escape):
		m.selectedDevice = ""
		m.timelineScrollPos = 0
		m.autoScroll = true
		return m, nil

	case key.Matches(msg, m.keys.ScrollDown):
		m.autoScroll = false
		m.timelineScrollPos++
		return m, nil

	case key.Matches(msg, m.keys.ScrollUp):
		m.autoScroll = false
		if m.timelineScrollPos > 0 {
			m.timelineScrollPos--
		}
		return m, nil
	}

	return m, nil
}

func (m Model) handleTimelinePanelKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.ScrollUp):
		m.autoScroll = false
		if m.timelineScrollPos > 0 {
			m.timelineScrollPos--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down), key.Matches(msg, m.keys.ScrollDown):
		m.autoScroll = false
		m.timelineScrollPos++
		return m, nil

	case key.Matches(msg, m.keys.Escape):
		m.panelFocus = FocusDevices
		m.timelineScrollPos = 0
		m.autoScroll = true
		return m, nil
	}

	return m, nil
}

// handleMouse turns a left-button drag that starts on the floating rate
// surface into reposition calls on the owning device's pipeline.
func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft || m.surfaces == nil {
			return m, nil
		}
		if sv, ok := m.surfaces.Snapshot(); ok && sv.Contains(msg.X, msg.Y) {
			m.dragging = true
			m.dragDevice = sv.Owner
		}
		return m, nil

	case tea.MouseActionMotion:
		if m.dragging && m.devices != nil {
			m.devices.HandleDrag(m.dragDevice, msg.X, msg.Y)
		}
		return m, nil

	case tea.MouseActionRelease:
		m.dragging = false
		m.dragDevice = ""
		return m, nil
	}

	return m, nil
}

func (m Model) getDevices() []device.Summary {
	if m.devices == nil {
		return nil
	}
	return m.devices.List()
}

// displayedDevice resolves which device the timeline and stats panels show:
// the pinned device if any, otherwise the cursor row.
func (m Model) displayedDevice() string {
	if m.selectedDevice != "" {
		return m.selectedDevice
	}
	devs := m.getDevices()
	if m.deviceCursor >= 0 && m.deviceCursor < len(devs) {
		return devs[m.deviceCursor].ID
	}
	if len(devs) > 0 {
		return devs[0].ID
	}
	return ""
}

func (m Model) getTimeline() []gesture.Record {
	if m.devices == nil {
		return nil
	}
	id := m.displayedDevice()
	if id == "" {
		return nil
	}
	return m.devices.Timeline(id)
}

func (m Model) headerIndicators() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("gRPC :%d", m.cfg.Receiver.GRPCPort))
	parts = append(parts, fmt.Sprintf("HTTP :%d", m.cfg.Receiver.HTTPPort))
	n := len(m.getDevices())
	if n == 1 {
		parts = append(parts, "1 device")
	} else {
		parts = append(parts, fmt.Sprintf("%d devices", n))
	}
	return dimStyle.Render(strings.Join(parts, "  ")) + " "
}

func (m Model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	output := m.renderDashboard()

	if m.height > 0 {
		lines := strings.Split(output, "\n")
		if len(lines) > m.height {
			lines = lines[:m.height]
			output = strings.Join(lines, "\n")
		}
	}

	return output
}
