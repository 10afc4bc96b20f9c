package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nixlim/touchtop/internal/alerts"
	"github.com/nixlim/touchtop/internal/config"
	"github.com/nixlim/touchtop/internal/device"
	"github.com/nixlim/touchtop/internal/framerate"
	"github.com/nixlim/touchtop/internal/gesture"
	"github.com/nixlim/touchtop/internal/monitor"
	"github.com/nixlim/touchtop/internal/overlay"
	"github.com/nixlim/touchtop/internal/platform"
	"github.com/nixlim/touchtop/internal/receiver"
	"github.com/nixlim/touchtop/internal/timeline"
	"github.com/nixlim/touchtop/internal/tui"
)

const version = "dev"

var (
	configPath string

	grpcPortFlag int
	httpPortFlag int
	logFileFlag  string
)

var rootCmd = &cobra.Command{
	Use:   "touchtop",
	Short: "Terminal monitor for Android interaction streams",
	Long: `touchtop receives accessibility interaction traffic from device-side
bridges over OTLP and renders a live gesture dashboard: per-device
timelines, swipe statistics, and the floating refresh-rate overlay.`,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMonitor(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/touchtop/config.toml)")

	rootCmd.Flags().IntVar(&grpcPortFlag, "grpc-port", 0, "override the OTLP gRPC port")
	rootCmd.Flags().IntVar(&httpPortFlag, "http-port", 0, "override the OTLP HTTP port")
	rootCmd.Flags().StringVar(&logFileFlag, "log-file", "", "write operational logs to this file instead of discarding them")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig resolves the effective config: file (default path or --config),
// then port flags on top. Warnings go to stderr before the TUI starts.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	var (
		loadResult *config.LoadResult
		err        error
	)
	if configPath != "" {
		loadResult, err = config.LoadFrom(configPath)
	} else {
		loadResult, err = config.Load()
	}
	if err != nil {
		return config.Config{}, fmt.Errorf("config: %w", err)
	}

	for _, w := range loadResult.Warnings {
		fmt.Fprintf(os.Stderr, "touchtop: config warning: %s\n", w)
	}

	cfg := loadResult.Config
	if cmd.Flags().Changed("grpc-port") {
		cfg.Receiver.GRPCPort = grpcPortFlag
	}
	if cmd.Flags().Changed("http-port") {
		cfg.Receiver.HTTPPort = httpPortFlag
	}
	return cfg, nil
}

// newPipelineFactory builds per-device monitor pipelines: classifier,
// bounded timeline, and an overlay controller rendering through the shared
// surface manager.
func newPipelineFactory(cfg config.Config, surfaces *tui.SurfaceManager) device.PipelineFactory {
	clock := platform.SystemClock{}
	surfaceCfg := overlay.SurfaceConfig{
		Width:   cfg.Overlay.Width,
		Height:  cfg.Overlay.Height,
		AnchorX: cfg.Overlay.MarginX,
		AnchorY: cfg.Overlay.MarginY,
	}

	return func(deviceID string, state *platform.DeviceState) *monitor.Monitor {
		classifier := gesture.NewClassifier(clock,
			gesture.WithSwipeMaxGap(int64(cfg.Gesture.SwipeMaxGapMS)))
		timelineLog := timeline.NewLog(cfg.Timeline.MaxEntries)
		controller := overlay.NewController(state, surfaces.ClientFor(deviceID, state), clock,
			surfaceCfg,
			framerate.WithTickInterval(time.Duration(cfg.Sampler.TickMS)*time.Millisecond),
			framerate.WithPublishWindow(time.Duration(cfg.Sampler.PublishMS)*time.Millisecond),
		)
		return monitor.New(classifier, timelineLog, controller)
	}
}

// openWireLogger opens the receiver's debug capture sink, if configured.
func openWireLogger(cfg config.Config) (receiver.Logger, func(), error) {
	if cfg.Receiver.DebugLog == "" {
		return receiver.NopLogger{}, func() {}, nil
	}
	f, err := os.OpenFile(cfg.Receiver.DebugLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("open debug log %q: %w", cfg.Receiver.DebugLog, err)
	}
	return receiver.NewFileLogger(f), func() { _ = f.Close() }, nil
}

// routeLogs sends stdlib log output to --log-file, or discards it while the
// TUI owns the terminal.
func routeLogs() (func(), error) {
	if logFileFlag == "" {
		log.SetOutput(io.Discard)
		return func() {}, nil
	}
	f, err := os.OpenFile(logFileFlag, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file %q: %w", logFileFlag, err)
	}
	log.SetOutput(f)
	return func() { _ = f.Close() }, nil
}

func runMonitor(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	wireLogger, closeWireLog, err := openWireLogger(cfg)
	if err != nil {
		return err
	}
	defer closeWireLog()

	surfaces := tui.NewSurfaceManager()
	registry, err := device.NewRegistry(cfg.Devices.MaxTracked, newPipelineFactory(cfg, surfaces))
	if err != nil {
		return fmt.Errorf("device registry: %w", err)
	}

	dispatcher := alerts.NewDispatcher(alerts.NewPlatformNotifier(cfg.Alerts.SystemNotify))
	registry.OnEvict(dispatcher.DeviceEvicted)
	registry.OnPermissionRevoked(dispatcher.PermissionRevoked)

	grpcRecv := receiver.NewGRPCReceiver(cfg.Receiver, registry, wireLogger)
	httpRecv := receiver.NewHTTPReceiver(cfg.Receiver, registry, wireLogger)

	shutdownMgr := tui.NewShutdownManager()
	shutdownMgr.StopReceivers = func(ctx context.Context) error {
		grpcRecv.Stop()
		httpRecv.Stop()
		return nil
	}
	shutdownMgr.StopDevices = func() {
		registry.Shutdown()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	closeLogs, err := routeLogs()
	if err != nil {
		return err
	}
	defer closeLogs()

	if err := grpcRecv.Start(ctx); err != nil {
		return fmt.Errorf("start gRPC receiver: %w", err)
	}
	if err := httpRecv.Start(ctx); err != nil {
		grpcRecv.Stop()
		return fmt.Errorf("start HTTP receiver: %w", err)
	}

	model := tui.NewModel(cfg,
		tui.WithDeviceProvider(registry),
		tui.WithSurfaceManager(surfaces),
		tui.WithOnShutdown(func() {
			_ = shutdownMgr.Shutdown()
		}),
	)

	p := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	go func() {
		select {
		case <-sigCh:
			_ = shutdownMgr.Shutdown()
			p.Quit()
		case <-ctx.Done():
			return
		}
	}()

	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}
