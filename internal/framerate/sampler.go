// Package framerate implements the overlay's refresh-rate sampler: a
// periodic loop that counts its own ticks and publishes the count once per
// window. The published value is "ticks observed in the most recent
// >=1-second window", an approximation of the true frame rate that drifts
// with scheduler jitter. That is the intended behavior, not a defect; do
// not normalize it against wall time.
package framerate

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// DefaultTickInterval targets roughly 60 ticks per second.
	DefaultTickInterval = 16 * time.Millisecond

	// DefaultPublishWindow is the minimum time between published rates.
	DefaultPublishWindow = time.Second
)

// Clock supplies millisecond timestamps for window accounting.
type Clock interface {
	NowMillis() int64
}

// SleepFunc sleeps for d or until ctx is done, returning ctx.Err() when
// canceled. Injected so tests drive the loop without real time.
type SleepFunc func(ctx context.Context, d time.Duration) error

// PublishFunc receives each published rate. It runs on the sampler
// goroutine, and Stop waits for that goroutine, so the callback must not
// call back into Stop.
type PublishFunc func(rate int)

// Sampler runs the tick/publish loop. Start and Stop are idempotent and
// safe for concurrent use; a stopped sampler can be started again and keeps
// its last published rate until the new run publishes.
type Sampler struct {
	tick    time.Duration
	window  time.Duration
	clock   Clock
	sleep   SleepFunc
	publish PublishFunc

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	rate atomic.Int64
}

// Option configures a Sampler.
type Option func(*Sampler)

// WithTickInterval sets the tick cadence. Correctness does not depend on
// the exact cadence, only the published approximation changes.
func WithTickInterval(d time.Duration) Option {
	return func(s *Sampler) {
		if d > 0 {
			s.tick = d
		}
	}
}

// WithPublishWindow sets the minimum elapsed time between publishes.
func WithPublishWindow(d time.Duration) Option {
	return func(s *Sampler) {
		if d > 0 {
			s.window = d
		}
	}
}

// WithSleepFunc replaces the sleep used between ticks.
func WithSleepFunc(fn SleepFunc) Option {
	return func(s *Sampler) {
		if fn != nil {
			s.sleep = fn
		}
	}
}

// NewSampler creates a stopped Sampler. publish may be nil.
func NewSampler(clock Clock, publish PublishFunc, opts ...Option) *Sampler {
	s := &Sampler{
		tick:    DefaultTickInterval,
		window:  DefaultPublishWindow,
		clock:   clock,
		sleep:   defaultSleep,
		publish: publish,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the loop. No-op if already running.
func (s *Sampler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.running = true

	go s.run(ctx, done)
}

// Stop requests cancellation and waits for the loop to exit. The token is
// observed within one tick: the loop re-checks it after waking and again
// before publishing, so once Stop returns no further publish can occur.
// No-op if not running.
func (s *Sampler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done
}

// Running reports whether the loop is active.
func (s *Sampler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// CurrentRate returns the most recently published rate, 0 before the first
// publish. The value persists across Stop.
func (s *Sampler) CurrentRate() int {
	return int(s.rate.Load())
}

func (s *Sampler) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticks := 0
	lastPublish := s.clock.NowMillis()
	windowMs := s.window.Milliseconds()

	for {
		if err := s.sleep(ctx, s.tick); err != nil {
			return
		}
		if ctx.Err() != nil {
			return
		}

		ticks++

		now := s.clock.NowMillis()
		if now-lastPublish >= windowMs {
			if ctx.Err() != nil {
				return
			}
			s.rate.Store(int64(ticks))
			if s.publish != nil {
				s.publish(ticks)
			}
			ticks = 0
			lastPublish = now
		}
	}
}

// defaultSleep waits for d or until ctx is canceled.
func defaultSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
