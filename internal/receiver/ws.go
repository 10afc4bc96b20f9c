package receiver

import (
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nixlim/touchtop/internal/gesture"
)

// streamFrame is one JSON message on the /v1/stream WebSocket. Bridges
// without an OTLP exporter send interaction and device_state frames in
// this shape.
type streamFrame struct {
	Type              string       `json:"type"`
	DeviceID          string       `json:"device_id"`
	Kind              string       `json:"kind,omitempty"`
	Bounds            *boundsFrame `json:"bounds,omitempty"`
	Rotation          *int         `json:"rotation,omitempty"`
	OverlayPermission *bool        `json:"overlay_permission,omitempty"`
}

type boundsFrame struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

type errorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// streamConn serializes writes so error frames never interleave.
type streamConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (sc *streamConn) sendError(message string) error {
	sc.writeMu.Lock()
	defer sc.writeMu.Unlock()
	return sc.conn.WriteJSON(errorFrame{Type: "error", Message: message})
}

var streamUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     isSameOrigin,
}

// isSameOrigin admits non-browser clients (no Origin header) and
// same-host browser clients.
func isSameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return originURL.Host == r.Host
}

func (r *HTTPReceiver) handleStream(w http.ResponseWriter, req *http.Request) {
	conn, err := streamUpgrader.Upgrade(w, req, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	sc := &streamConn{conn: conn}

	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			// connection closed or error
			return
		}

		if messageType != websocket.TextMessage {
			_ = sc.sendError("only text frames are accepted")
			continue
		}

		r.handleStreamFrame(sc, message)
	}
}

func (r *HTTPReceiver) handleStreamFrame(sc *streamConn, message []byte) {
	var frame streamFrame
	if err := json.Unmarshal(message, &frame); err != nil {
		_ = sc.sendError("expecting JSON frame")
		return
	}
	if frame.DeviceID == "" {
		_ = sc.sendError("'device_id' is required")
		return
	}

	switch frame.Type {
	case "interaction":
		kind, _ := gesture.ParseKind(frame.Kind)
		var b gesture.Bounds
		if frame.Bounds != nil {
			b = gesture.Bounds{
				Left:   frame.Bounds.Left,
				Top:    frame.Bounds.Top,
				Right:  frame.Bounds.Right,
				Bottom: frame.Bounds.Bottom,
			}
		}
		n := gesture.Notification{Kind: kind, Bounds: b}
		r.logger.LogNotification(frame.DeviceID, n)
		r.sink.Ingest(frame.DeviceID, n)

	case "device_state":
		at := time.Now().UnixMilli()
		if frame.Rotation != nil {
			r.logger.LogState(frame.DeviceID, MetricOrientation, float64(*frame.Rotation))
			r.sink.SetOrientation(frame.DeviceID, *frame.Rotation, at)
		}
		if frame.OverlayPermission != nil {
			v := 0.0
			if *frame.OverlayPermission {
				v = 1.0
			}
			r.logger.LogState(frame.DeviceID, MetricOverlayPermission, v)
			r.sink.SetOverlayPermission(frame.DeviceID, *frame.OverlayPermission, at)
		}

	default:
		_ = sc.sendError("unknown frame type: " + frame.Type)
	}
}
