// Package replay feeds a debug-capture file back through the ingest
// pipeline. Captures are the JSONL files the receiver's FileLogger
// writes; replaying one drives the same sink the live receivers drive,
// paced by the recorded timestamps.
package replay

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/bytedance/sonic"
	"github.com/fsnotify/fsnotify"

	"github.com/nixlim/touchtop/internal/gesture"
	"github.com/nixlim/touchtop/internal/receiver"
)

// Options controls how a capture is played back.
type Options struct {
	// Speed scales the recorded inter-entry gaps: 1 replays in real time,
	// 2 at double speed. 0 disables pacing entirely.
	Speed float64

	// Follow keeps reading past EOF, waiting for the capture file to grow.
	// Used to shadow a live capture as it is written.
	Follow bool
}

// Stats reports what a replay run fed through the pipeline.
type Stats struct {
	Entries   int // entries delivered to the sink
	Malformed int // lines skipped as undecodable or incomplete
}

// SleepFunc pauses between entries for d or until ctx is done, returning
// ctx.Err() when canceled. Injected so tests replay without real time.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Option configures a Player.
type Option func(*Player)

// WithSleepFunc replaces the pause used for pacing.
func WithSleepFunc(fn SleepFunc) Option {
	return func(p *Player) {
		if fn != nil {
			p.sleep = fn
		}
	}
}

// Player replays one capture file into a sink.
type Player struct {
	sink  receiver.Sink
	opts  Options
	sleep SleepFunc
}

// NewPlayer creates a Player that delivers entries to sink.
func NewPlayer(sink receiver.Sink, opts Options, options ...Option) *Player {
	p := &Player{
		sink:  sink,
		opts:  opts,
		sleep: timerSleep,
	}
	for _, o := range options {
		o(p)
	}
	return p
}

// Run plays the capture at path until EOF, or until ctx is canceled when
// following. The returned Stats are valid even when err is non-nil.
func (p *Player) Run(ctx context.Context, path string) (Stats, error) {
	var st Stats

	f, err := os.Open(path)
	if err != nil {
		return st, fmt.Errorf("open capture file: %w", err)
	}
	defer f.Close()

	var watcher *fsnotify.Watcher
	if p.opts.Follow {
		watcher, err = fsnotify.NewWatcher()
		if err != nil {
			return st, fmt.Errorf("watch capture file: %w", err)
		}
		defer watcher.Close()
		if err := watcher.Add(path); err != nil {
			return st, fmt.Errorf("watch capture file: %w", err)
		}
	}

	var (
		pending []byte
		prev    time.Time
		buf     = make([]byte, 64*1024)
	)
	for {
		n, readErr := f.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			for {
				i := bytes.IndexByte(pending, '\n')
				if i < 0 {
					break
				}
				line := pending[:i]
				pending = pending[i+1:]
				if err := p.feed(ctx, line, &prev, &st); err != nil {
					return st, err
				}
			}
		}

		switch {
		case readErr == nil:
			// Keep draining the file.
		case errors.Is(readErr, io.EOF):
			if !p.opts.Follow {
				// A capture that ends without a trailing newline still
				// carries one last entry.
				if err := p.feed(ctx, pending, &prev, &st); err != nil {
					return st, err
				}
				return st, nil
			}
			if err := waitForWrite(ctx, watcher); err != nil {
				return st, err
			}
		default:
			return st, fmt.Errorf("read capture file: %w", readErr)
		}
	}
}

// feed decodes one capture line, paces, and delivers it to the sink.
// Undecodable lines only bump the malformed count.
func (p *Player) feed(ctx context.Context, line []byte, prev *time.Time, st *Stats) error {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil
	}

	var entry receiver.LogEntry
	if err := sonic.Unmarshal(line, &entry); err != nil {
		st.Malformed++
		return nil
	}

	ts, err := time.Parse(time.RFC3339Nano, entry.Timestamp)
	if err != nil {
		// Pacing and state timestamps both hang off ts, so an entry
		// without a readable one cannot be delivered.
		st.Malformed++
		return nil
	}

	if p.opts.Speed > 0 && !prev.IsZero() {
		if gap := ts.Sub(*prev); gap > 0 {
			scaled := time.Duration(float64(gap) / p.opts.Speed)
			if err := p.sleep(ctx, scaled); err != nil {
				return err
			}
		}
	}
	*prev = ts

	switch entry.Type {
	case receiver.EntryInteraction:
		kind, _ := gesture.ParseKind(entry.Name)
		var b gesture.Bounds
		if len(entry.Bounds) == 4 {
			b = gesture.Bounds{
				Left:   entry.Bounds[0],
				Top:    entry.Bounds[1],
				Right:  entry.Bounds[2],
				Bottom: entry.Bounds[3],
			}
		}
		p.sink.Ingest(entry.DeviceID, gesture.Notification{Kind: kind, Bounds: b})
		st.Entries++

	case receiver.EntryState:
		if entry.Value == nil {
			st.Malformed++
			return nil
		}
		at := ts.UnixMilli()
		switch entry.Name {
		case receiver.MetricOrientation:
			p.sink.SetOrientation(entry.DeviceID, int(*entry.Value), at)
		case receiver.MetricOverlayPermission:
			p.sink.SetOverlayPermission(entry.DeviceID, *entry.Value != 0, at)
		default:
			st.Malformed++
			return nil
		}
		st.Entries++

	default:
		st.Malformed++
	}
	return nil
}

func timerSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// waitForWrite blocks until the watched file grows, ctx ends, or the
// watch breaks.
func waitForWrite(ctx context.Context, w *fsnotify.Watcher) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return errors.New("capture file watch closed")
			}
			if ev.Has(fsnotify.Write) {
				return nil
			}
		case err, ok := <-w.Errors:
			if !ok {
				return errors.New("capture file watch closed")
			}
			log.Printf("WARNING: capture file watch error: %v", err)
		}
	}
}
