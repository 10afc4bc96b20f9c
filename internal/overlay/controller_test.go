package overlay

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nixlim/touchtop/internal/framerate"
	"github.com/nixlim/touchtop/internal/platform"
)

// fakeOrientation is a settable OrientationSource.
type fakeOrientation struct {
	deg int
}

func (f *fakeOrientation) Orientation() int { return f.deg }

// fakeRenderer records calls and enforces the single-surface rule the way
// the real display layer does.
type fakeRenderer struct {
	mu         sync.Mutex
	createErr  error
	nextID     int
	liveHandle Handle
	created    []SurfaceConfig
	removed    []Handle
	texts      []string
	lastMoveX  int
	lastMoveY  int
	updates    chan string
}

func newFakeRenderer() *fakeRenderer {
	return &fakeRenderer{updates: make(chan string, 16)}
}

func (r *fakeRenderer) CreateSurface(cfg SurfaceConfig) (Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return NoHandle, r.createErr
	}
	if r.liveHandle != NoHandle {
		return NoHandle, ErrSurfaceExists
	}
	r.nextID++
	h := Handle(fmt.Sprintf("surface-%d", r.nextID))
	r.liveHandle = h
	r.created = append(r.created, cfg)
	return h, nil
}

func (r *fakeRenderer) UpdateSurfaceText(h Handle, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h != r.liveHandle {
		return
	}
	r.texts = append(r.texts, text)
	select {
	case r.updates <- text:
	default:
	}
}

func (r *fakeRenderer) RepositionSurface(h Handle, x, y int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h != r.liveHandle {
		return
	}
	r.lastMoveX, r.lastMoveY = x, y
}

func (r *fakeRenderer) RemoveSurface(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h == r.liveHandle {
		r.liveHandle = NoHandle
	}
	r.removed = append(r.removed, h)
}

func (r *fakeRenderer) createCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.created)
}

func (r *fakeRenderer) removeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.removed)
}

func (r *fakeRenderer) setCreateErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.createErr = err
}

// fixedClock never advances; the sampler stays quiet under idleSleep.
type fixedClock struct{}

func (fixedClock) NowMillis() int64 { return 0 }

// idleSleep blocks until cancellation, so test samplers never tick.
func idleSleep(ctx context.Context, d time.Duration) error {
	<-ctx.Done()
	return ctx.Err()
}

func newTestController(orient *fakeOrientation, r Renderer) *Controller {
	return NewController(orient, r, fixedClock{},
		SurfaceConfig{Width: 18, Height: 5, AnchorX: 2, AnchorY: 1},
		framerate.WithSleepFunc(idleSleep))
}

func TestController_ShowsOnLandscape(t *testing.T) {
	for _, deg := range []int{platform.RotationLandscape, platform.RotationLandscapeFlipped} {
		t.Run(fmt.Sprintf("%d", deg), func(t *testing.T) {
			orient := &fakeOrientation{deg: deg}
			r := newFakeRenderer()
			c := newTestController(orient, r)

			c.Refresh()

			if c.State() != Visible {
				t.Fatalf("State() = %v, want visible", c.State())
			}
			if r.createCount() != 1 {
				t.Errorf("CreateSurface called %d times, want 1", r.createCount())
			}
			if !c.SamplerRunning() {
				t.Error("sampler not running while visible")
			}
			if c.Handle() == NoHandle {
				t.Error("no surface handle while visible")
			}

			c.Shutdown()
		})
	}
}

func TestController_StaysHiddenOnPortrait(t *testing.T) {
	for _, deg := range []int{platform.RotationPortrait, platform.RotationPortraitFlipped} {
		orient := &fakeOrientation{deg: deg}
		r := newFakeRenderer()
		c := newTestController(orient, r)

		c.Refresh()

		if c.State() != Hidden {
			t.Errorf("State() at %d deg = %v, want hidden", deg, c.State())
		}
		if r.createCount() != 0 {
			t.Errorf("CreateSurface called %d times at %d deg, want 0", r.createCount(), deg)
		}
	}
}

func TestController_HidesOnRotationBack(t *testing.T) {
	orient := &fakeOrientation{deg: platform.RotationLandscape}
	r := newFakeRenderer()
	c := newTestController(orient, r)

	c.Refresh()
	if c.State() != Visible {
		t.Fatalf("State() = %v, want visible", c.State())
	}
	shown := c.Handle()

	orient.deg = platform.RotationPortrait
	c.Refresh()

	if c.State() != Hidden {
		t.Fatalf("State() = %v, want hidden", c.State())
	}
	if c.SamplerRunning() {
		t.Error("sampler still running after hide")
	}
	if r.removeCount() != 1 {
		t.Fatalf("RemoveSurface called %d times, want 1", r.removeCount())
	}
	if r.removed[0] != shown {
		t.Errorf("removed handle %q, want %q", r.removed[0], shown)
	}
	if c.Handle() != NoHandle {
		t.Error("surface-scoped handle not cleared after hide")
	}
}

func TestController_ReentrantTransitionsAreNoops(t *testing.T) {
	orient := &fakeOrientation{deg: platform.RotationLandscape}
	r := newFakeRenderer()
	c := newTestController(orient, r)

	// Repeated landscape notifications: exactly one surface, one sampler.
	c.Refresh()
	c.Refresh()
	c.Refresh()
	if r.createCount() != 1 {
		t.Errorf("CreateSurface called %d times, want 1", r.createCount())
	}

	orient.deg = platform.RotationPortrait
	c.Refresh()
	c.Refresh()
	if r.removeCount() != 1 {
		t.Errorf("RemoveSurface called %d times, want 1", r.removeCount())
	}
}

func TestController_CreateFailureStaysHidden(t *testing.T) {
	for _, createErr := range []error{ErrPermissionDenied, ErrSurfaceExists} {
		t.Run(createErr.Error(), func(t *testing.T) {
			orient := &fakeOrientation{deg: platform.RotationLandscape}
			r := newFakeRenderer()
			r.setCreateErr(createErr)
			c := newTestController(orient, r)

			c.Refresh()

			if c.State() != Hidden {
				t.Fatalf("State() = %v after create failure, want hidden", c.State())
			}
			if c.SamplerRunning() {
				t.Error("sampler running after create failure")
			}

			// The failure clears on the collaborator side; the next
			// qualifying notification retries and succeeds.
			r.setCreateErr(nil)
			c.Refresh()
			if c.State() != Visible {
				t.Errorf("State() = %v after retry, want visible", c.State())
			}

			c.Shutdown()
		})
	}
}

func TestController_SamplerNeverLeaksAcrossCycles(t *testing.T) {
	orient := &fakeOrientation{}
	r := newFakeRenderer()
	c := newTestController(orient, r)

	for i := 0; i < 5; i++ {
		orient.deg = platform.RotationLandscape
		c.Refresh()
		if !c.SamplerRunning() {
			t.Fatalf("cycle %d: sampler not running while visible", i)
		}

		orient.deg = platform.RotationPortrait
		c.Refresh()
		if c.SamplerRunning() {
			t.Fatalf("cycle %d: sampler left running after hide", i)
		}
	}

	if r.createCount() != 5 || r.removeCount() != 5 {
		t.Errorf("created %d, removed %d, want 5 and 5", r.createCount(), r.removeCount())
	}
}

func TestController_DragRepositionsAtPointerMinusHalf(t *testing.T) {
	orient := &fakeOrientation{deg: platform.RotationLandscape}
	r := newFakeRenderer()
	c := newTestController(orient, r)

	// Hidden: drag is a no-op.
	c.HandleDrag(100, 40)
	r.mu.Lock()
	if r.lastMoveX != 0 || r.lastMoveY != 0 {
		t.Errorf("drag while hidden moved surface to (%d, %d)", r.lastMoveX, r.lastMoveY)
	}
	r.mu.Unlock()

	c.Refresh()
	c.HandleDrag(100, 40)

	// 18x5 surface: anchor = pointer - (9, 2).
	r.mu.Lock()
	if r.lastMoveX != 91 || r.lastMoveY != 38 {
		t.Errorf("surface moved to (%d, %d), want (91, 38)", r.lastMoveX, r.lastMoveY)
	}
	r.mu.Unlock()

	c.Shutdown()
}

func TestController_PublishesRateToSurface(t *testing.T) {
	clk := &tickClock{}
	orient := &fakeOrientation{deg: platform.RotationLandscape}
	r := newFakeRenderer()

	c := NewController(orient, r, clk,
		SurfaceConfig{Width: 18, Height: 5},
		framerate.WithSleepFunc(func(ctx context.Context, d time.Duration) error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			clk.advance(1000)
			return nil
		}))

	c.Refresh()

	select {
	case text := <-r.updates:
		if !strings.HasSuffix(text, " fps") {
			t.Errorf("surface text = %q, want a \"<n> fps\" string", text)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no surface text published")
	}

	if c.CurrentRate() < 1 {
		t.Errorf("CurrentRate() = %d, want >= 1", c.CurrentRate())
	}

	orient.deg = platform.RotationPortrait
	c.Refresh()

	// The rate lingers after hiding.
	if c.CurrentRate() < 1 {
		t.Errorf("CurrentRate() = %d after hide, want last published value", c.CurrentRate())
	}
}

// tickClock advances under lock; shared between the sleep func and the
// sampler's window accounting.
type tickClock struct {
	mu  sync.Mutex
	now int64
}

func (c *tickClock) NowMillis() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *tickClock) advance(ms int64) {
	c.mu.Lock()
	c.now += ms
	c.mu.Unlock()
}

func TestController_ShutdownForcesHidden(t *testing.T) {
	orient := &fakeOrientation{deg: platform.RotationLandscape}
	r := newFakeRenderer()
	c := newTestController(orient, r)

	c.Refresh()
	c.Shutdown()

	if c.State() != Hidden {
		t.Errorf("State() = %v after Shutdown, want hidden", c.State())
	}
	if c.SamplerRunning() {
		t.Error("sampler running after Shutdown")
	}
	if r.removeCount() != 1 {
		t.Errorf("RemoveSurface called %d times, want 1", r.removeCount())
	}

	// Shutdown while already hidden is a no-op.
	c.Shutdown()
	if r.removeCount() != 1 {
		t.Errorf("second Shutdown removed again (%d removes)", r.removeCount())
	}
}
