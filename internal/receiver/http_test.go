package receiver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"google.golang.org/protobuf/proto"

	"github.com/nixlim/touchtop/internal/config"
	"github.com/nixlim/touchtop/internal/gesture"
)

// startTestHTTP creates an HTTP receiver on an ephemeral port for testing.
func startTestHTTP(t *testing.T, sink Sink) *HTTPReceiver {
	t.Helper()

	cfg := config.ReceiverConfig{
		HTTPPort: 0, // Use ephemeral port.
		Bind:     "127.0.0.1",
	}

	r := NewHTTPReceiver(cfg, sink, nil)

	// Manually bind to an ephemeral port.
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	r.listener = lis

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/logs", r.handleLogs)
	mux.HandleFunc("/v1/metrics", r.handleMetrics)
	mux.HandleFunc("/v1/stream", r.handleStream)
	r.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		_ = r.server.Serve(lis)
	}()

	// Wait briefly for the server to be ready.
	time.Sleep(50 * time.Millisecond)

	return r
}

func TestOTLPReceiver_HTTPLogs(t *testing.T) {
	t.Run("protobuf_content_type", func(t *testing.T) {
		sink := &testSink{}
		r := startTestHTTP(t, sink)
		defer r.Stop()

		req := makeInteractionRequest("emu-5554", "click", gesture.Bounds{Left: 12, Top: 34, Right: 112, Bottom: 134})
		body, err := proto.Marshal(req)
		if err != nil {
			t.Fatalf("failed to marshal request: %v", err)
		}

		url := fmt.Sprintf("http://%s/v1/logs", r.Addr().String())
		resp, err := http.Post(url, "application/x-protobuf", bytes.NewReader(body))
		if err != nil {
			t.Fatalf("HTTP POST failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected status 200, got %d", resp.StatusCode)
		}

		// Verify the notification reached the sink.
		got := sink.ingestedSnapshot()
		if len(got) != 1 {
			t.Fatalf("expected 1 ingested notification, got %d", len(got))
		}
		if got[0].deviceID != "emu-5554" {
			t.Errorf("expected device emu-5554, got %q", got[0].deviceID)
		}
		if got[0].n.Kind != gesture.KindClick {
			t.Errorf("expected KindClick, got %v", got[0].n.Kind)
		}
		if got[0].n.Bounds.Left != 12 {
			t.Errorf("expected bounds.left=12, got %v", got[0].n.Bounds.Left)
		}
	})

	t.Run("json_content_type", func(t *testing.T) {
		sink := &testSink{}
		r := startTestHTTP(t, sink)
		defer r.Stop()

		// Build a JSON OTLP log export request the way a browser-side
		// bridge would.
		jsonBody := map[string]any{
			"resourceLogs": []map[string]any{
				{
					"resource": map[string]any{
						"attributes": []map[string]any{
							{
								"key":   "device.id",
								"value": map[string]any{"stringValue": "web-001"},
							},
						},
					},
					"scopeLogs": []map[string]any{
						{
							"logRecords": []map[string]any{
								{
									"eventName": "focus",
									"attributes": []map[string]any{
										{
											"key":   "bounds.left",
											"value": map[string]any{"doubleValue": 50},
										},
										{
											"key":   "bounds.top",
											"value": map[string]any{"doubleValue": 60},
										},
										{
											"key":   "bounds.right",
											"value": map[string]any{"doubleValue": 150},
										},
										{
											"key":   "bounds.bottom",
											"value": map[string]any{"doubleValue": 90},
										},
									},
								},
							},
						},
					},
				},
			},
		}

		body, err := json.Marshal(jsonBody)
		if err != nil {
			t.Fatalf("failed to marshal JSON: %v", err)
		}

		url := fmt.Sprintf("http://%s/v1/logs", r.Addr().String())
		resp, err := http.Post(url, "application/json", bytes.NewReader(body))
		if err != nil {
			t.Fatalf("HTTP POST failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected status 200, got %d", resp.StatusCode)
		}

		got := sink.ingestedSnapshot()
		if len(got) != 1 {
			t.Fatalf("expected 1 ingested notification, got %d", len(got))
		}
		if got[0].deviceID != "web-001" {
			t.Errorf("expected device web-001, got %q", got[0].deviceID)
		}
		if got[0].n.Kind != gesture.KindFocus {
			t.Errorf("expected KindFocus, got %v", got[0].n.Kind)
		}
		if got[0].n.Bounds.Bottom != 90 {
			t.Errorf("expected bounds.bottom=90, got %v", got[0].n.Bounds.Bottom)
		}
	})

	t.Run("invalid_payload_returns_400", func(t *testing.T) {
		sink := &testSink{}
		r := startTestHTTP(t, sink)
		defer r.Stop()

		url := fmt.Sprintf("http://%s/v1/logs", r.Addr().String())
		resp, err := http.Post(url, "application/x-protobuf", bytes.NewReader([]byte("not valid protobuf")))
		if err != nil {
			t.Fatalf("HTTP POST failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("expected status 400 for invalid payload, got %d", resp.StatusCode)
		}

		// Server should still be operational.
		req := makeInteractionRequest("emu-5554", "click", gesture.Bounds{Right: 10, Bottom: 10})
		body, _ := proto.Marshal(req)
		resp2, err := http.Post(url, "application/x-protobuf", bytes.NewReader(body))
		if err != nil {
			t.Fatalf("recovery POST failed: %v", err)
		}
		defer resp2.Body.Close()

		if resp2.StatusCode != http.StatusOK {
			t.Errorf("expected 200 after recovery, got %d", resp2.StatusCode)
		}

		if n := len(sink.ingestedSnapshot()); n != 1 {
			t.Errorf("expected 1 notification after recovery from invalid payload, got %d", n)
		}
	})

	t.Run("invalid_json_returns_400", func(t *testing.T) {
		sink := &testSink{}
		r := startTestHTTP(t, sink)
		defer r.Stop()

		url := fmt.Sprintf("http://%s/v1/logs", r.Addr().String())
		resp, err := http.Post(url, "application/json", bytes.NewReader([]byte("{invalid json")))
		if err != nil {
			t.Fatalf("HTTP POST failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("expected status 400 for invalid JSON, got %d", resp.StatusCode)
		}
	})

	t.Run("unsupported_content_type_returns_415", func(t *testing.T) {
		sink := &testSink{}
		r := startTestHTTP(t, sink)
		defer r.Stop()

		url := fmt.Sprintf("http://%s/v1/logs", r.Addr().String())
		resp, err := http.Post(url, "text/plain", bytes.NewReader([]byte("hello")))
		if err != nil {
			t.Fatalf("HTTP POST failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusUnsupportedMediaType {
			t.Errorf("expected status 415, got %d", resp.StatusCode)
		}
	})
}

func TestOTLPReceiver_HTTPMetrics(t *testing.T) {
	sink := &testSink{}
	r := startTestHTTP(t, sink)
	defer r.Stop()

	req := makeStateMetricRequest("emu-5554", MetricOrientation, 270, uint64(time.Now().UnixNano()))
	body, err := proto.Marshal(req)
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}

	url := fmt.Sprintf("http://%s/v1/metrics", r.Addr().String())
	resp, err := http.Post(url, "application/x-protobuf", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("HTTP POST failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", resp.StatusCode)
	}

	got := sink.rotationsSnapshot()
	if len(got) != 1 {
		t.Fatalf("expected 1 rotation update, got %d", len(got))
	}
	if got[0].rotation != 270 {
		t.Errorf("expected rotation 270, got %d", got[0].rotation)
	}
}

func TestOTLPReceiver_HTTPMethodNotAllowed(t *testing.T) {
	r := startTestHTTP(t, &testSink{})
	defer r.Stop()

	url := fmt.Sprintf("http://%s/v1/logs", r.Addr().String())
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("HTTP GET failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405 for GET, got %d", resp.StatusCode)
	}
}
