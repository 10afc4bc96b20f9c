package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nixlim/touchtop/internal/device"
	"github.com/nixlim/touchtop/internal/replay"
	"github.com/nixlim/touchtop/internal/tui"
)

var (
	replaySpeed  float64
	replayFollow bool
)

var replayCmd = &cobra.Command{
	Use:   "replay <capture.jsonl>",
	Short: "Replay a debug capture through the dashboard",
	Long: `Feeds a receiver debug capture (the JSONL file written when
[receiver] debug_log is set) back through the gesture pipeline and renders
the dashboard from it, paced by the recorded timestamps.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReplay(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 1, "playback speed multiplier (0 disables pacing)")
	replayCmd.Flags().BoolVar(&replayFollow, "follow", false, "keep reading as the capture file grows")
}

func runReplay(cmd *cobra.Command, path string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	surfaces := tui.NewSurfaceManager()
	registry, err := device.NewRegistry(cfg.Devices.MaxTracked, newPipelineFactory(cfg, surfaces))
	if err != nil {
		return fmt.Errorf("device registry: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.SetOutput(io.Discard)

	player := replay.NewPlayer(registry, replay.Options{
		Speed:  replaySpeed,
		Follow: replayFollow,
	})

	statsCh := make(chan replay.Stats, 1)
	errCh := make(chan error, 1)
	go func() {
		st, err := player.Run(ctx, path)
		statsCh <- st
		errCh <- err
	}()

	model := tui.NewModel(cfg,
		tui.WithDeviceProvider(registry),
		tui.WithSurfaceManager(surfaces),
		tui.WithOnShutdown(func() {
			cancel()
			registry.Shutdown()
		}),
	)

	p := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	if _, err := p.Run(); err != nil {
		return err
	}
	cancel()

	st := <-statsCh
	runErr := <-errCh
	fmt.Printf("replayed %d entries (%d malformed lines skipped)\n", st.Entries, st.Malformed)

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}
