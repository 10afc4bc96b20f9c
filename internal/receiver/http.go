package receiver

import (
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	collogspb "go.opentelemetry.io/proto/otlp/collector/logs/v1"
	colmetricspb "go.opentelemetry.io/proto/otlp/collector/metrics/v1"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	"github.com/nixlim/touchtop/internal/config"
)

// HTTPReceiver serves the OTLP HTTP endpoints and the WebSocket stream
// bridge on a single port.
type HTTPReceiver struct {
	cfg    config.ReceiverConfig
	sink   Sink
	logger Logger

	listener net.Listener
	server   *http.Server
}

// NewHTTPReceiver creates an HTTP receiver. A nil logger disables debug
// logging.
func NewHTTPReceiver(cfg config.ReceiverConfig, sink Sink, logger Logger) *HTTPReceiver {
	if logger == nil {
		logger = NopLogger{}
	}
	return &HTTPReceiver{
		cfg:    cfg,
		sink:   sink,
		logger: logger,
	}
}

// Start binds the configured port and begins serving in the background.
func (r *HTTPReceiver) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", r.cfg.Bind, r.cfg.HTTPPort)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d already in use", r.cfg.HTTPPort)
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

	log.Printf("OTLP HTTP receiver listening on %s", lis.Addr())
	return nil
}

// Addr returns the bound address, or nil before Start.
func (r *HTTPReceiver) Addr() net.Addr {
	if r.listener == nil {
		return nil
	}
	return r.listener.Addr()
}

// Stop shuts the server down, waiting briefly for in-flight requests.
func (r *HTTPReceiver) Stop() {
	if r.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.server.Shutdown(ctx); err != nil {
		_ = r.server.Close()
	}
}

func (r *HTTPReceiver) handleLogs(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	exportReq := &collogspb.ExportLogsServiceRequest{}
	contentType, ok := decodeExportRequest(w, req, exportReq)
	if !ok {
		return
	}

	applyLogs(r.sink, r.logger, exportReq)
	writeExportResponse(w, contentType, &collogspb.ExportLogsServiceResponse{})
}

func (r *HTTPReceiver) handleMetrics(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	exportReq := &colmetricspb.ExportMetricsServiceRequest{}
	contentType, ok := decodeExportRequest(w, req, exportReq)
	if !ok {
		return
	}

	applyMetrics(r.sink, r.logger, exportReq)
	writeExportResponse(w, contentType, &colmetricspb.ExportMetricsServiceResponse{})
}

// decodeExportRequest reads and unmarshals an OTLP export request in
// either protobuf or JSON encoding, writing the error response itself
// when decoding fails. It returns the negotiated content type.
func decodeExportRequest(w http.ResponseWriter, req *http.Request, msg proto.Message) (string, bool) {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		http.Error(w, "reading request body", http.StatusBadRequest)
		return "", false
	}

	contentType := req.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(contentType, "application/x-protobuf"):
		if err := proto.Unmarshal(body, msg); err != nil {
			http.Error(w, "invalid protobuf payload", http.StatusBadRequest)
			return "", false
		}
		return "application/x-protobuf", true
	case strings.HasPrefix(contentType, "application/json"):
		if err := protojson.Unmarshal(body, msg); err != nil {
			http.Error(w, "invalid JSON payload", http.StatusBadRequest)
			return "", false
		}
		return "application/json", true
	default:
		http.Error(w, "unsupported content type", http.StatusUnsupportedMediaType)
		return "", false
	}
}

// writeExportResponse answers in the request's encoding.
func writeExportResponse(w http.ResponseWriter, contentType string, resp proto.Message) {
	var data []byte
	var err error
	if contentType == "application/json" {
		data, err = protojson.Marshal(resp)
	} else {
		data, err = proto.Marshal(resp)
	}
	if err != nil {
		http.Error(w, "encoding response", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
