package receiver

import (
	"log"
	"time"

	collogspb "go.opentelemetry.io/proto/otlp/collector/logs/v1"
	colmetricspb "go.opentelemetry.io/proto/otlp/collector/metrics/v1"
	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	logspb "go.opentelemetry.io/proto/otlp/logs/v1"
	metricspb "go.opentelemetry.io/proto/otlp/metrics/v1"
	resourcepb "go.opentelemetry.io/proto/otlp/resource/v1"

	"github.com/nixlim/touchtop/internal/gesture"
)

// deviceFromResource extracts the device identity from OTLP resource
// attributes. A missing device.id falls back to UnknownDeviceID with a
// warning so traffic is never silently lost.
func deviceFromResource(res *resourcepb.Resource) (id, name, model string) {
	attrs := res.GetAttributes()
	id = stringAttr(attrs, attrDeviceID)
	if id == "" {
		log.Printf("WARNING: export received without device.id, tracking under %q", UnknownDeviceID)
		id = UnknownDeviceID
	}
	name = stringAttr(attrs, attrDeviceName)
	model = stringAttr(attrs, attrDeviceModel)
	return
}

// notificationFromRecord translates one OTLP log record. The kind comes
// from the record's event name, falling back to the event.kind attribute;
// an unrecognized kind maps to KindUnknown, which downstream classification
// drops while still counting as device traffic.
func notificationFromRecord(lr *logspb.LogRecord) gesture.Notification {
	attrs := lr.GetAttributes()

	name := lr.GetEventName()
	if name == "" {
		name = stringAttr(attrs, attrEventKind)
	}
	kind, _ := gesture.ParseKind(name)

	var b gesture.Bounds
	b.Left, _ = numberAttr(attrs, attrBoundsLeft)
	b.Top, _ = numberAttr(attrs, attrBoundsTop)
	b.Right, _ = numberAttr(attrs, attrBoundsRight)
	b.Bottom, _ = numberAttr(attrs, attrBoundsBot)

	return gesture.Notification{Kind: kind, Bounds: b}
}

// applyLogs feeds every log record of an export into the sink.
func applyLogs(sink Sink, logger Logger, req *collogspb.ExportLogsServiceRequest) {
	for _, rl := range req.GetResourceLogs() {
		id, name, model := deviceFromResource(rl.GetResource())
		if name != "" || model != "" {
			sink.UpdateIdentity(id, name, model)
		}
		for _, sl := range rl.GetScopeLogs() {
			for _, lr := range sl.GetLogRecords() {
				n := notificationFromRecord(lr)
				logger.LogNotification(id, n)
				sink.Ingest(id, n)
			}
		}
	}
}

// applyMetrics feeds every recognized device-state gauge of an export
// into the sink. Unknown metric names are ignored.
func applyMetrics(sink Sink, logger Logger, req *colmetricspb.ExportMetricsServiceRequest) {
	for _, rm := range req.GetResourceMetrics() {
		id, name, model := deviceFromResource(rm.GetResource())
		if name != "" || model != "" {
			sink.UpdateIdentity(id, name, model)
		}
		for _, sm := range rm.GetScopeMetrics() {
			for _, m := range sm.GetMetrics() {
				switch m.GetName() {
				case MetricOrientation:
					for _, dp := range numberDataPoints(m) {
						v := dpValue(dp)
						logger.LogState(id, MetricOrientation, v)
						sink.SetOrientation(id, int(v), dpMillis(dp))
					}
				case MetricOverlayPermission:
					for _, dp := range numberDataPoints(m) {
						v := dpValue(dp)
						logger.LogState(id, MetricOverlayPermission, v)
						sink.SetOverlayPermission(id, v != 0, dpMillis(dp))
					}
				}
			}
		}
	}
}

func stringAttr(kvs []*commonpb.KeyValue, key string) string {
	for _, kv := range kvs {
		if kv.GetKey() == key {
			return kv.GetValue().GetStringValue()
		}
	}
	return ""
}

// numberAttr reads an attribute that bridges may encode as either an
// integer or a double.
func numberAttr(kvs []*commonpb.KeyValue, key string) (float64, bool) {
	for _, kv := range kvs {
		if kv.GetKey() != key {
			continue
		}
		switch v := kv.GetValue().GetValue().(type) {
		case *commonpb.AnyValue_DoubleValue:
			return v.DoubleValue, true
		case *commonpb.AnyValue_IntValue:
			return float64(v.IntValue), true
		}
		return 0, false
	}
	return 0, false
}

func numberDataPoints(m *metricspb.Metric) []*metricspb.NumberDataPoint {
	switch d := m.GetData().(type) {
	case *metricspb.Metric_Gauge:
		return d.Gauge.GetDataPoints()
	case *metricspb.Metric_Sum:
		return d.Sum.GetDataPoints()
	}
	return nil
}

func dpValue(dp *metricspb.NumberDataPoint) float64 {
	switch v := dp.GetValue().(type) {
	case *metricspb.NumberDataPoint_AsDouble:
		return v.AsDouble
	case *metricspb.NumberDataPoint_AsInt:
		return float64(v.AsInt)
	}
	return 0
}

func dpMillis(dp *metricspb.NumberDataPoint) int64 {
	return int64(dp.GetTimeUnixNano()) / int64(time.Millisecond)
}
