package tui

import (
	"sync"

	"github.com/google/uuid"

	"github.com/nixlim/touchtop/internal/overlay"
)

// PermissionSource reports whether a device currently holds the overlay
// permission. *platform.DeviceState satisfies it.
type PermissionSource interface {
	HasOverlayPermission() bool
}

// SurfaceManager owns the single always-on-top surface slot shared by all
// devices. Each device gets its own overlay.Renderer client via ClientFor;
// whichever client creates the surface first holds the slot until its
// controller removes it.
type SurfaceManager struct {
	mu      sync.Mutex
	current *surface
}

type surface struct {
	handle overlay.Handle
	owner  string
	cfg    overlay.SurfaceConfig
	text   string
	x, y   int
}

// NewSurfaceManager returns an empty manager with no live surface.
func NewSurfaceManager() *SurfaceManager {
	return &SurfaceManager{}
}

// ClientFor returns a renderer bound to one device. The client checks the
// device's overlay permission before competing for the surface slot.
func (s *SurfaceManager) ClientFor(deviceID string, perm PermissionSource) overlay.Renderer {
	return &surfaceClient{mgr: s, deviceID: deviceID, perm: perm}
}

// SurfaceView is a point-in-time copy of the live surface for rendering
// and hit testing.
type SurfaceView struct {
	Owner  string
	Text   string
	X, Y   int
	Width  int
	Height int
	Opaque bool
}

// Contains reports whether the cell (x, y) falls inside the surface box.
func (v SurfaceView) Contains(x, y int) bool {
	return x >= v.X && x < v.X+v.Width && y >= v.Y && y < v.Y+v.Height
}

// Snapshot returns a copy of the live surface, or false when none exists.
func (s *SurfaceManager) Snapshot() (SurfaceView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return SurfaceView{}, false
	}
	return SurfaceView{
		Owner:  s.current.owner,
		Text:   s.current.text,
		X:      s.current.x,
		Y:      s.current.y,
		Width:  s.current.cfg.Width,
		Height: s.current.cfg.Height,
		Opaque: s.current.cfg.Opaque,
	}, true
}

func (s *SurfaceManager) create(owner string, cfg overlay.SurfaceConfig) (overlay.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		return overlay.NoHandle, overlay.ErrSurfaceExists
	}
	h := overlay.Handle(uuid.NewString())
	s.current = &surface{
		handle: h,
		owner:  owner,
		cfg:    cfg,
		x:      cfg.AnchorX,
		y:      cfg.AnchorY,
	}
	return h, nil
}

func (s *SurfaceManager) updateText(h overlay.Handle, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || s.current.handle != h {
		return
	}
	s.current.text = text
}

func (s *SurfaceManager) reposition(h overlay.Handle, x, y int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || s.current.handle != h {
		return
	}
	s.current.x = x
	s.current.y = y
}

func (s *SurfaceManager) remove(h overlay.Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || s.current.handle != h {
		return
	}
	s.current = nil
}

// surfaceClient adapts the shared manager to one device's overlay
// controller.
type surfaceClient struct {
	mgr      *SurfaceManager
	deviceID string
	perm     PermissionSource
}

func (c *surfaceClient) CreateSurface(cfg overlay.SurfaceConfig) (overlay.Handle, error) {
	if c.perm != nil && !c.perm.HasOverlayPermission() {
		return overlay.NoHandle, overlay.ErrPermissionDenied
	}
	return c.mgr.create(c.deviceID, cfg)
}

func (c *surfaceClient) UpdateSurfaceText(h overlay.Handle, text string) {
	c.mgr.updateText(h, text)
}

func (c *surfaceClient) RepositionSurface(h overlay.Handle, x, y int) {
	c.mgr.reposition(h, x, y)
}

func (c *surfaceClient) RemoveSurface(h overlay.Handle) {
	c.mgr.remove(h)
}
