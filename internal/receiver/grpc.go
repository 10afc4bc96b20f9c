package receiver

import (
	"context"
	"fmt"
	"log"
	"net"

	collogspb "go.opentelemetry.io/proto/otlp/collector/logs/v1"
	colmetricspb "go.opentelemetry.io/proto/otlp/collector/metrics/v1"
	"google.golang.org/grpc"

	"github.com/nixlim/touchtop/internal/config"
)

// GRPCReceiver serves the OTLP LogsService and MetricsService over gRPC.
type GRPCReceiver struct {
	cfg    config.ReceiverConfig
	sink   Sink
	logger Logger

	listener net.Listener
	server   *grpc.Server
}

// NewGRPCReceiver creates a gRPC receiver. A nil logger disables debug
// logging.
func NewGRPCReceiver(cfg config.ReceiverConfig, sink Sink, logger Logger) *GRPCReceiver {
	if logger == nil {
		logger = NopLogger{}
	}
	return &GRPCReceiver{
		cfg:    cfg,
		sink:   sink,
		logger: logger,
	}
}

// Start binds the configured port and begins serving in the background.
func (r *GRPCReceiver) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", r.cfg.Bind, r.cfg.GRPCPort)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d already in use", r.cfg.GRPCPort)
	}
	r.listener = lis

	r.server = grpc.NewServer()
	collogspb.RegisterLogsServiceServer(r.server, &logsService{rcv: r})
	colmetricspb.RegisterMetricsServiceServer(r.server, &metricsService{rcv: r})

	go func() {
		_ = r.server.Serve(lis)
	}()

	log.Printf("OTLP gRPC receiver listening on %s", lis.Addr())
	return nil
}

// Addr returns the bound address, or nil before Start.
func (r *GRPCReceiver) Addr() net.Addr {
	if r.listener == nil {
		return nil
	}
	return r.listener.Addr()
}

// Stop drains in-flight RPCs and releases the port.
func (r *GRPCReceiver) Stop() {
	if r.server != nil {
		r.server.GracefulStop()
	}
}

type logsService struct {
	collogspb.UnimplementedLogsServiceServer
	rcv *GRPCReceiver
}

func (s *logsService) Export(ctx context.Context, req *collogspb.ExportLogsServiceRequest) (*collogspb.ExportLogsServiceResponse, error) {
	applyLogs(s.rcv.sink, s.rcv.logger, req)
	return &collogspb.ExportLogsServiceResponse{}, nil
}

type metricsService struct {
	colmetricspb.UnimplementedMetricsServiceServer
	rcv *GRPCReceiver
}

func (s *metricsService) Export(ctx context.Context, req *colmetricspb.ExportMetricsServiceRequest) (*colmetricspb.ExportMetricsServiceResponse, error) {
	applyMetrics(s.rcv.sink, s.rcv.logger, req)
	return &colmetricspb.ExportMetricsServiceResponse{}, nil
}
