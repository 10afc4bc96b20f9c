// Package receiver ingests interaction traffic from device-side bridges.
//
// Bridges export over OTLP: accessibility notifications arrive as log
// records and device state as metric gauges, over either gRPC or
// HTTP/protobuf. A WebSocket endpoint accepts the same traffic as plain
// JSON frames for bridges without an OTLP exporter.
package receiver

import "github.com/nixlim/touchtop/internal/gesture"

// Wire names shared with the device-side bridge. Resource attributes
// identify the device; log record attributes carry the notification and
// metric names carry polled device state.
const (
	attrDeviceID    = "device.id"
	attrDeviceName  = "device.name"
	attrDeviceModel = "device.model"

	attrEventKind   = "event.kind"
	attrBoundsLeft  = "bounds.left"
	attrBoundsTop   = "bounds.top"
	attrBoundsRight = "bounds.right"
	attrBoundsBot   = "bounds.bottom"
)

// Device-state metric names. Exported because debug captures carry them
// and the replay path matches on them when feeding a capture back.
const (
	MetricOrientation       = "device.orientation"
	MetricOverlayPermission = "device.overlay_permission"
)

// UnknownDeviceID buckets traffic from exports that carry no device.id
// resource attribute.
const UnknownDeviceID = "unknown"

// Sink receives translated traffic. All methods must be safe for
// concurrent use; the device registry satisfies this interface.
type Sink interface {
	// Ingest routes one interaction notification to the device's pipeline.
	Ingest(deviceID string, n gesture.Notification)

	// UpdateIdentity records the advertised device name and model.
	UpdateIdentity(deviceID, name, model string)

	// SetOrientation records the device's reported rotation in degrees.
	SetOrientation(deviceID string, rotation int, atMillis int64)

	// SetOverlayPermission records whether the device allows overlays.
	SetOverlayPermission(deviceID string, granted bool, atMillis int64)
}
