package receiver

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/nixlim/touchtop/internal/gesture"
)

// Logger provides structured debug logging for the receiver.
// Implementations must be safe for concurrent use.
type Logger interface {
	// LogNotification logs a received interaction notification.
	LogNotification(deviceID string, n gesture.Notification)

	// LogState logs a received device-state gauge value.
	LogState(deviceID string, name string, value float64)
}

// NopLogger discards all log output. This is the default when debug logging
// is not enabled, and has zero allocation overhead.
type NopLogger struct{}

// LogNotification is a no-op.
func (NopLogger) LogNotification(string, gesture.Notification) {}

// LogState is a no-op.
func (NopLogger) LogState(string, string, float64) {}

// LogEntry is the JSON structure written by FileLogger, one object per
// line. Capture files in this format are what the replay command reads
// back.
type LogEntry struct {
	Timestamp string    `json:"ts"`
	Type      string    `json:"type"`
	DeviceID  string    `json:"device"`
	Name      string    `json:"name"`
	Value     *float64  `json:"value,omitempty"`
	Bounds    []float64 `json:"bounds,omitempty"`
}

// Entry types written by FileLogger.
const (
	EntryInteraction = "interaction"
	EntryState       = "state"
)

// FileLogger writes structured JSON debug output to an io.Writer.
// Each line is a complete JSON object (JSONL format).
type FileLogger struct {
	w  io.Writer
	mu sync.Mutex
}

// NewFileLogger creates a FileLogger that writes to the given writer.
func NewFileLogger(w io.Writer) *FileLogger {
	return &FileLogger{w: w}
}

// LogNotification writes a JSON line for a received notification,
// stamped with the arrival time.
func (l *FileLogger) LogNotification(deviceID string, n gesture.Notification) {
	entry := LogEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Type:      EntryInteraction,
		DeviceID:  deviceID,
		Name:      n.Kind.String(),
		Bounds:    []float64{n.Bounds.Left, n.Bounds.Top, n.Bounds.Right, n.Bounds.Bottom},
	}

	l.write(entry)
}

// LogState writes a JSON line for a received device-state gauge.
func (l *FileLogger) LogState(deviceID string, name string, value float64) {
	v := value
	entry := LogEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Type:      EntryState,
		DeviceID:  deviceID,
		Name:      name,
		Value:     &v,
	}

	l.write(entry)
}

// write serialises a LogEntry as JSON and writes it as a single line.
// Serialisation errors are silently dropped to avoid disrupting the receiver.
func (l *FileLogger) write(entry LogEntry) {
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.w, "%s\n", data)
}
