package overlay

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/nixlim/touchtop/internal/framerate"
	"github.com/nixlim/touchtop/internal/platform"
)

// State is the controller's visibility state.
type State int

const (
	// Hidden means no surface is live and the sampler is stopped.
	Hidden State = iota
	// Visible means a surface is live and the sampler is running.
	Visible
)

// String returns the display name of the state.
func (s State) String() string {
	if s == Visible {
		return "visible"
	}
	return "hidden"
}

// OrientationSource reports the device's current display rotation in
// degrees. The controller polls it on every notification rather than
// subscribing to rotation changes; that polling is observable behavior and
// stays.
type OrientationSource interface {
	Orientation() int
}

// Controller is the overlay visibility state machine. Every notification
// re-evaluates whether the surface should show (landscape orientation,
// fullscreen stub permitting) and transitions accordingly. Transitions that
// target the current state are no-ops. All methods are safe for concurrent
// use.
type Controller struct {
	orientation OrientationSource
	renderer    Renderer
	sampler     *framerate.Sampler
	surfaceCfg  SurfaceConfig

	mu    sync.Mutex
	state State

	// handle is read by the sampler's publish callback without taking mu,
	// so it lives in an atomic rather than under the lock.
	handle atomic.Value // Handle
}

// NewController creates a Hidden controller. The sampler it owns stamps
// windows with clock and is configured by samplerOpts.
func NewController(orientation OrientationSource, renderer Renderer, clock framerate.Clock,
	surfaceCfg SurfaceConfig, samplerOpts ...framerate.Option) *Controller {

	c := &Controller{
		orientation: orientation,
		renderer:    renderer,
		surfaceCfg:  surfaceCfg,
	}
	c.handle.Store(NoHandle)
	c.sampler = framerate.NewSampler(clock, c.publishRate, samplerOpts...)
	return c
}

// Refresh recomputes the visibility target from the polled orientation and
// transitions if needed. Called on every incoming notification, including
// ones the classifier drops.
func (c *Controller) Refresh() {
	c.mu.Lock()
	defer c.mu.Unlock()

	shouldShow := platform.IsLandscape(c.orientation.Orientation()) && !fullscreenActive()
	if shouldShow {
		c.showLocked()
	} else {
		c.hideLocked()
	}
}

// fullscreenActive is a stub pending a real fullscreen signal from the
// bridge. False means "not detected", never "verified windowed".
func fullscreenActive() bool {
	return false
}

// showLocked transitions Hidden -> Visible. A creation failure (permission
// absent, surface already live) leaves the controller Hidden; the next
// qualifying notification retries.
func (c *Controller) showLocked() {
	if c.state == Visible {
		return
	}

	h, err := c.renderer.CreateSurface(c.surfaceCfg)
	if err != nil {
		return
	}

	c.handle.Store(h)
	c.sampler.Start()
	c.state = Visible
}

// hideLocked transitions Visible -> Hidden: sampler first, then surface
// removal, then the surface-scoped handle is dropped so nothing can touch
// the dead surface.
func (c *Controller) hideLocked() {
	if c.state == Hidden {
		return
	}

	c.sampler.Stop()
	if h := c.loadHandle(); h != NoHandle {
		c.renderer.RemoveSurface(h)
	}
	c.handle.Store(NoHandle)
	c.state = Hidden
}

// publishRate runs on the sampler goroutine once per publish window.
func (c *Controller) publishRate(rate int) {
	h := c.loadHandle()
	if h == NoHandle {
		return
	}
	c.renderer.UpdateSurfaceText(h, fmt.Sprintf("%d fps", rate))
}

// HandleDrag repositions the live surface so its center tracks the pointer:
// the new anchor is the pointer's absolute position minus half the
// surface's dimensions. No-op while Hidden.
func (c *Controller) HandleDrag(pointerX, pointerY int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Visible {
		return
	}

	x := pointerX - c.surfaceCfg.Width/2
	y := pointerY - c.surfaceCfg.Height/2
	c.renderer.RepositionSurface(c.loadHandle(), x, y)
}

// CurrentRate returns the sampler's last published rate. The value lingers
// after the overlay hides, until the next run publishes.
func (c *Controller) CurrentRate() int {
	return c.sampler.CurrentRate()
}

// State returns the current visibility state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Handle returns the live surface handle, or NoHandle while Hidden.
func (c *Controller) Handle() Handle {
	return c.loadHandle()
}

// SamplerRunning reports whether the rate sampler is active.
func (c *Controller) SamplerRunning() bool {
	return c.sampler.Running()
}

// Shutdown forces the controller Hidden, stopping the sampler and removing
// any live surface. Used on device eviction and process shutdown.
func (c *Controller) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hideLocked()
}

func (c *Controller) loadHandle() Handle {
	h, _ := c.handle.Load().(Handle)
	return h
}
