package tui

import (
	"context"
	"time"
)

// ShutdownManager coordinates graceful shutdown of all touchtop components.
// It handles the drain period, device teardown, and final cleanup.
type ShutdownManager struct {
	// DrainTimeout is the maximum time to wait for in-flight requests to complete.
	DrainTimeout time.Duration

	// StopReceivers stops the ingest receivers from accepting new connections.
	StopReceivers func(ctx context.Context) error

	// StopDevices tears down all tracked devices and their overlay surfaces.
	StopDevices func()

	// Cleanup performs any additional cleanup (e.g., releasing resources).
	Cleanup func()
}

// NewShutdownManager creates a ShutdownManager with a 5-second drain timeout.
func NewShutdownManager() *ShutdownManager {
	return &ShutdownManager{
		DrainTimeout: 5 * time.Second,
	}
}

// Shutdown performs a graceful shutdown in the correct order:
// 1. Stop accepting new connections
// 2. Drain in-flight requests (up to DrainTimeout)
// 3. Tear down devices and their surfaces
// 4. Run cleanup
func (sm *ShutdownManager) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), sm.DrainTimeout)
	defer cancel()

	// Step 1 + 2: Stop receivers with drain.
	if sm.StopReceivers != nil {
		_ = sm.StopReceivers(ctx)
	}

	// Step 3: Tear down devices.
	if sm.StopDevices != nil {
		sm.StopDevices()
	}

	// Step 4: Run cleanup.
	if sm.Cleanup != nil {
		sm.Cleanup()
	}

	return nil
}
