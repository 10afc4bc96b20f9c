package receiver

import (
	"fmt"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nixlim/touchtop/internal/gesture"
)

func setupStreamServer(t *testing.T) (*HTTPReceiver, *testSink, string) {
	t.Helper()
	sink := &testSink{}
	r := startTestHTTP(t, sink)
	wsURL := fmt.Sprintf("ws://%s/v1/stream", r.Addr().String())
	return r, sink, wsURL
}

func connectStream(t *testing.T, url string) *websocket.Conn {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err, "should connect to WebSocket")
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	return conn
}

func readErrorFrame(t *testing.T, conn *websocket.Conn) errorFrame {
	var frame errorFrame
	err := conn.ReadJSON(&frame)
	require.NoError(t, err, "should read error frame")
	return frame
}

func TestStreamBridge_InteractionFrame(t *testing.T) {
	r, sink, wsURL := setupStreamServer(t)
	defer r.Stop()

	conn := connectStream(t, wsURL)
	defer conn.Close()

	err := conn.WriteJSON(streamFrame{
		Type:     "interaction",
		DeviceID: "ws-dev",
		Kind:     "click",
		Bounds:   &boundsFrame{Left: 10, Top: 20, Right: 110, Bottom: 220},
	})
	require.NoError(t, err, "should send frame")

	require.Eventually(t, func() bool {
		return len(sink.ingestedSnapshot()) == 1
	}, 2*time.Second, 10*time.Millisecond, "notification should reach the sink")

	got := sink.ingestedSnapshot()[0]
	assert.Equal(t, "ws-dev", got.deviceID)
	assert.Equal(t, gesture.KindClick, got.n.Kind)
	assert.Equal(t, gesture.Bounds{Left: 10, Top: 20, Right: 110, Bottom: 220}, got.n.Bounds)
}

func TestStreamBridge_DeviceStateFrame(t *testing.T) {
	r, sink, wsURL := setupStreamServer(t)
	defer r.Stop()

	conn := connectStream(t, wsURL)
	defer conn.Close()

	rotation := 90
	granted := false
	err := conn.WriteJSON(streamFrame{
		Type:              "device_state",
		DeviceID:          "ws-dev",
		Rotation:          &rotation,
		OverlayPermission: &granted,
	})
	require.NoError(t, err, "should send frame")

	require.Eventually(t, func() bool {
		return len(sink.rotationsSnapshot()) == 1 && len(sink.permissionsSnapshot()) == 1
	}, 2*time.Second, 10*time.Millisecond, "state updates should reach the sink")

	rot := sink.rotationsSnapshot()[0]
	assert.Equal(t, "ws-dev", rot.deviceID)
	assert.Equal(t, 90, rot.rotation)

	perm := sink.permissionsSnapshot()[0]
	assert.Equal(t, "ws-dev", perm.deviceID)
	assert.False(t, perm.granted)
}

func TestStreamBridge_UnrecognizedKindStillCounts(t *testing.T) {
	r, sink, wsURL := setupStreamServer(t)
	defer r.Stop()

	conn := connectStream(t, wsURL)
	defer conn.Close()

	err := conn.WriteJSON(streamFrame{
		Type:     "interaction",
		DeviceID: "ws-dev",
		Kind:     "TYPE_ANNOUNCEMENT",
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(sink.ingestedSnapshot()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, gesture.KindUnknown, sink.ingestedSnapshot()[0].n.Kind)
}

func TestStreamBridge_MalformedJSON(t *testing.T) {
	r, _, wsURL := setupStreamServer(t)
	defer r.Stop()

	conn := connectStream(t, wsURL)
	defer conn.Close()

	err := conn.WriteMessage(websocket.TextMessage, []byte("{oops"))
	require.NoError(t, err)

	frame := readErrorFrame(t, conn)
	assert.Equal(t, "error", frame.Type)
	assert.Equal(t, "expecting JSON frame", frame.Message)
}

func TestStreamBridge_MissingDeviceID(t *testing.T) {
	r, sink, wsURL := setupStreamServer(t)
	defer r.Stop()

	conn := connectStream(t, wsURL)
	defer conn.Close()

	err := conn.WriteJSON(streamFrame{Type: "interaction", Kind: "click"})
	require.NoError(t, err)

	frame := readErrorFrame(t, conn)
	assert.Equal(t, "error", frame.Type)
	assert.Equal(t, "'device_id' is required", frame.Message)
	assert.Empty(t, sink.ingestedSnapshot(), "frame without device_id should be dropped")
}

func TestStreamBridge_UnknownFrameType(t *testing.T) {
	r, _, wsURL := setupStreamServer(t)
	defer r.Stop()

	conn := connectStream(t, wsURL)
	defer conn.Close()

	err := conn.WriteJSON(streamFrame{Type: "snapshot", DeviceID: "ws-dev"})
	require.NoError(t, err)

	frame := readErrorFrame(t, conn)
	assert.Equal(t, "error", frame.Type)
	assert.Equal(t, "unknown frame type: snapshot", frame.Message)
}

func TestStreamBridge_BinaryFrameRejected(t *testing.T) {
	r, _, wsURL := setupStreamServer(t)
	defer r.Stop()

	conn := connectStream(t, wsURL)
	defer conn.Close()

	err := conn.WriteMessage(websocket.BinaryMessage, []byte{0x01, 0x02})
	require.NoError(t, err)

	frame := readErrorFrame(t, conn)
	assert.Equal(t, "error", frame.Type)
	assert.Equal(t, "only text frames are accepted", frame.Message)
}

func TestStreamBridge_ConnectionSurvivesBadFrame(t *testing.T) {
	r, sink, wsURL := setupStreamServer(t)
	defer r.Stop()

	conn := connectStream(t, wsURL)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	_ = readErrorFrame(t, conn)

	// The same connection keeps working after a rejected frame.
	err := conn.WriteJSON(streamFrame{Type: "interaction", DeviceID: "ws-dev", Kind: "focus"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(sink.ingestedSnapshot()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, gesture.KindFocus, sink.ingestedSnapshot()[0].n.Kind)
}
