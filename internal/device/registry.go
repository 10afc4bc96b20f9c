// Package device tracks the set of Android devices currently streaming
// interaction data and owns one monitoring pipeline per device.
//
// Tracking is bounded: when more devices connect than the registry is
// sized for, the least-recently-seen device is evicted and its pipeline
// shut down so samplers and overlay surfaces never outlive their device.
package device

import (
	"sort"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/nixlim/touchtop/internal/gesture"
	"github.com/nixlim/touchtop/internal/monitor"
	"github.com/nixlim/touchtop/internal/overlay"
	"github.com/nixlim/touchtop/internal/platform"
)

// PipelineFactory builds the monitoring pipeline for a newly seen device.
// The returned monitor must be safe for concurrent use; the registry
// routes all traffic for the device through it.
type PipelineFactory func(deviceID string, state *platform.DeviceState) *monitor.Monitor

// EvictListener is a callback invoked after a device has been evicted
// and its pipeline shut down. Listeners are called outside the registry
// lock and must not call back into the registry in a way that acquires
// a write lock to avoid deadlocks.
type EvictListener func(deviceID string)

// PermissionListener is a callback invoked when a device's overlay
// permission flips from granted to revoked. Same locking rules as
// EvictListener.
type PermissionListener func(deviceID string)

// Tracked is one device known to the registry together with its live
// pipeline. ID and ConnectedAt are fixed at creation; State and Monitor
// are concurrency-safe and may be used directly.
type Tracked struct {
	ID          string
	ConnectedAt time.Time
	State       *platform.DeviceState
	Monitor     *monitor.Monitor

	mu       sync.RWMutex
	name     string
	model    string
	lastSeen time.Time
}

// Name returns the advertised device name, or the device ID when the
// exporter never supplied one.
func (t *Tracked) Name() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.name == "" {
		return t.ID
	}
	return t.name
}

// Model returns the advertised hardware model, if any.
func (t *Tracked) Model() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.model
}

// LastSeenAt returns the time of the most recent traffic from the device.
func (t *Tracked) LastSeenAt() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastSeen
}

func (t *Tracked) setIdentity(name, model string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if name != "" {
		t.name = name
	}
	if model != "" {
		t.model = model
	}
}

func (t *Tracked) touch(at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastSeen = at
}

// Summary is a point-in-time view of one tracked device for display.
type Summary struct {
	ID                string
	Name              string
	Model             string
	ConnectedAt       time.Time
	LastSeenAt        time.Time
	Rotation          int
	OverlayPermission bool
	OverlayState      overlay.State
	TimelineLen       int
	Rate              int
}

// Registry is a thread-safe bounded collection of tracked devices.
type Registry struct {
	factory PipelineFactory
	now     func() time.Time

	mu             sync.RWMutex
	devices        *lru.Cache[string, *Tracked]
	pendingEvicted []*Tracked
	evictListeners []EvictListener
	permListeners  []PermissionListener
}

// Option configures a Registry.
type Option func(*Registry)

// WithNow overrides the registry's time source.
func WithNow(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// NewRegistry creates a registry that tracks at most maxTracked devices.
// The factory is called once per newly seen device ID.
func NewRegistry(maxTracked int, factory PipelineFactory, opts ...Option) (*Registry, error) {
	r := &Registry{
		factory: factory,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}

	// The eviction callback fires while the registry lock is held, so it
	// only records the victim; shutdown and listener notification happen
	// after the lock is released.
	cache, err := lru.NewWithEvict[string, *Tracked](maxTracked, func(_ string, t *Tracked) {
		r.pendingEvicted = append(r.pendingEvicted, t)
	})
	if err != nil {
		return nil, err
	}
	r.devices = cache
	return r, nil
}

// OnEvict registers a listener that is called after every eviction.
// Listeners are invoked synchronously outside the registry lock.
func (r *Registry) OnEvict(fn EvictListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evictListeners = append(r.evictListeners, fn)
}

// OnPermissionRevoked registers a listener that is called when a device
// reports its overlay permission revoked after previously holding it.
// New devices start out assumed granted, so a first report of "revoked"
// counts as a transition.
func (r *Registry) OnPermissionRevoked(fn PermissionListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.permListeners = append(r.permListeners, fn)
}

// getOrCreate returns the tracked device for id, creating the pipeline
// on first sight. It returns any devices evicted to make room, already
// detached from the registry but not yet shut down; the caller must
// finish them with finishEvictions outside the lock.
func (r *Registry) getOrCreate(id string) (*Tracked, []*Tracked) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.devices.Get(id); ok {
		return t, nil
	}

	state := platform.NewDeviceState()
	t := &Tracked{
		ID:          id,
		ConnectedAt: r.now(),
		State:       state,
		Monitor:     r.factory(id, state),
	}
	t.lastSeen = t.ConnectedAt
	r.devices.Add(id, t)

	evicted := r.pendingEvicted
	r.pendingEvicted = nil
	return t, evicted
}

// finishEvictions shuts down evicted pipelines and notifies listeners.
// Must be called without holding the registry lock: pipeline shutdown
// blocks until the device's sampler goroutine has exited.
func (r *Registry) finishEvictions(evicted []*Tracked) {
	if len(evicted) == 0 {
		return
	}

	r.mu.RLock()
	listeners := r.evictListeners
	r.mu.RUnlock()

	for _, t := range evicted {
		t.Monitor.Shutdown()
		for _, fn := range listeners {
			fn(t.ID)
		}
	}
}

// Ingest routes one classified-input notification to the device's
// pipeline, creating the pipeline on first sight of the device.
func (r *Registry) Ingest(deviceID string, n gesture.Notification) {
	t, evicted := r.getOrCreate(deviceID)
	t.touch(r.now())
	r.finishEvictions(evicted)
	t.Monitor.OnNotification(n.Kind, n.Bounds)
}

// UpdateIdentity records the advertised device name and hardware model.
// Empty values leave the previous identity in place.
func (r *Registry) UpdateIdentity(deviceID, name, model string) {
	t, evicted := r.getOrCreate(deviceID)
	t.setIdentity(name, model)
	r.finishEvictions(evicted)
}

// SetOrientation records the device's reported rotation. The overlay
// does not react until the device's next notification; visibility is
// only re-evaluated when input traffic arrives.
func (r *Registry) SetOrientation(deviceID string, rotation int, atMillis int64) {
	t, evicted := r.getOrCreate(deviceID)
	t.touch(r.now())
	t.State.SetOrientation(rotation, atMillis)
	r.finishEvictions(evicted)
}

// SetOverlayPermission records whether the device currently allows
// overlay surfaces. A granted-to-revoked transition is reported to
// revocation listeners once the state change has landed.
func (r *Registry) SetOverlayPermission(deviceID string, granted bool, atMillis int64) {
	t, evicted := r.getOrCreate(deviceID)
	t.touch(r.now())
	revoked := t.State.HasOverlayPermission() && !granted
	t.State.SetOverlayPermission(granted, atMillis)
	r.finishEvictions(evicted)

	if revoked {
		r.mu.RLock()
		listeners := r.permListeners
		r.mu.RUnlock()
		for _, fn := range listeners {
			fn(deviceID)
		}
	}
}

// Get returns the tracked device for id without affecting recency.
func (r *Registry) Get(deviceID string) (*Tracked, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.devices.Peek(deviceID)
}

// Timeline returns one device's gesture history, newest first, or nil
// for an untracked device. Reading does not affect eviction recency.
func (r *Registry) Timeline(deviceID string) []gesture.Record {
	t, ok := r.Get(deviceID)
	if !ok {
		return nil
	}
	return t.Monitor.Timeline()
}

// ClearLog empties one device's gesture history. It reports whether the
// device was tracked.
func (r *Registry) ClearLog(deviceID string) bool {
	t, ok := r.Get(deviceID)
	if !ok {
		return false
	}
	t.Monitor.ClearLog()
	return true
}

// HandleDrag forwards an overlay drag at the given pointer position to
// the device's pipeline. No-op for untracked devices.
func (r *Registry) HandleDrag(deviceID string, pointerX, pointerY int) {
	if t, ok := r.Get(deviceID); ok {
		t.Monitor.HandleDrag(pointerX, pointerY)
	}
}

// Remove evicts one device, shutting down its pipeline. It reports
// whether the device was tracked.
func (r *Registry) Remove(deviceID string) bool {
	r.mu.Lock()
	present := r.devices.Remove(deviceID)
	evicted := r.pendingEvicted
	r.pendingEvicted = nil
	r.mu.Unlock()

	r.finishEvictions(evicted)
	return present
}

// Len returns the number of currently tracked devices.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.devices.Len()
}

// List returns a snapshot of all tracked devices sorted by most recent
// traffic first. Ties are broken by device ID for a stable order.
func (r *Registry) List() []Summary {
	r.mu.RLock()
	tracked := r.devices.Values()
	r.mu.RUnlock()

	result := make([]Summary, 0, len(tracked))
	for _, t := range tracked {
		result = append(result, Summary{
			ID:                t.ID,
			Name:              t.Name(),
			Model:             t.Model(),
			ConnectedAt:       t.ConnectedAt,
			LastSeenAt:        t.LastSeenAt(),
			Rotation:          t.State.Orientation(),
			OverlayPermission: t.State.HasOverlayPermission(),
			OverlayState:      t.Monitor.OverlayState(),
			TimelineLen:       t.Monitor.LogLen(),
			Rate:              t.Monitor.CurrentRate(),
		})
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].LastSeenAt.Equal(result[j].LastSeenAt) {
			return result[i].LastSeenAt.After(result[j].LastSeenAt)
		}
		return result[i].ID < result[j].ID
	})
	return result
}

// Shutdown drops every device and blocks until all pipelines have
// stopped. Eviction listeners do not fire: shutdown drops the whole
// registry, not one device to make room.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	r.evictListeners = nil
	r.devices.Purge()
	evicted := r.pendingEvicted
	r.pendingEvicted = nil
	r.mu.Unlock()

	r.finishEvictions(evicted)
}
