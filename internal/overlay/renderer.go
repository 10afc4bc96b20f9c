// Package overlay drives the lifecycle of the always-on-top rate surface:
// a two-state visibility machine keyed off the device's polled orientation,
// owning the rate sampler that feeds the surface text.
package overlay

import "errors"

// Surface creation failure modes. The controller absorbs both the same
// way, staying Hidden and retrying on the next qualifying notification,
// so renderers may also return their own errors.
var (
	// ErrPermissionDenied reports that the overlay permission is absent.
	ErrPermissionDenied = errors.New("overlay permission denied")

	// ErrSurfaceExists reports that a surface is already live. At most one
	// surface exists at a time; a duplicate request must not create a
	// second one.
	ErrSurfaceExists = errors.New("overlay surface already exists")
)

// Handle identifies a live surface. Handles are opaque and single-use:
// once a surface is removed its handle is stale, and renderer calls with a
// stale handle are no-ops.
type Handle string

// NoHandle is the zero Handle, held while no surface is live.
const NoHandle Handle = ""

// SurfaceConfig describes the surface requested from the renderer.
type SurfaceConfig struct {
	// Width and Height are the surface dimensions in display cells.
	Width, Height int

	// AnchorX and AnchorY offset the surface from the display origin.
	AnchorX, AnchorY int

	// Opaque selects an opaque background instead of translucent.
	Opaque bool
}

// Renderer is the display collaborator the controller calls through. Calls
// are synchronous and expected to be fast; failures are reported as error
// returns, never panics.
type Renderer interface {
	// CreateSurface makes the surface live and returns its handle. It
	// fails when the overlay permission is absent or a surface already
	// exists.
	CreateSurface(cfg SurfaceConfig) (Handle, error)

	// UpdateSurfaceText replaces the surface's text. Best-effort: a stale
	// handle is a no-op.
	UpdateSurfaceText(h Handle, text string)

	// RepositionSurface moves the surface's top-left corner to (x, y).
	RepositionSurface(h Handle, x, y int)

	// RemoveSurface tears the surface down and invalidates its handle.
	RemoveSurface(h Handle)
}
