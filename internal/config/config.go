package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Receiver ReceiverConfig
	Devices  DevicesConfig
	Timeline TimelineConfig
	Gesture  GestureConfig
	Overlay  OverlayConfig
	Sampler  SamplerConfig
	Display  DisplayConfig
	Alerts   AlertsConfig
}

type ReceiverConfig struct {
	GRPCPort int    `toml:"grpc_port"`
	HTTPPort int    `toml:"http_port"`
	Bind     string `toml:"bind"`
	DebugLog string `toml:"debug_log"`
}

type DevicesConfig struct {
	MaxTracked int `toml:"max_tracked"`
}

type TimelineConfig struct {
	MaxEntries int `toml:"max_entries"`
}

type GestureConfig struct {
	SwipeMaxGapMS int `toml:"swipe_max_gap_ms"`
}

type OverlayConfig struct {
	Width   int `toml:"width"`
	Height  int `toml:"height"`
	MarginX int `toml:"margin_x"`
	MarginY int `toml:"margin_y"`
}

type SamplerConfig struct {
	TickMS    int `toml:"tick_ms"`
	PublishMS int `toml:"publish_ms"`
}

type DisplayConfig struct {
	RefreshRateMS int `toml:"refresh_rate_ms"`
}

type AlertsConfig struct {
	SystemNotify bool `toml:"system_notify"`
}

type LoadResult struct {
	Config   Config
	Warnings []string
}

func DefaultConfig() Config {
	return Config{
		Receiver: ReceiverConfig{
			GRPCPort: 4317,
			HTTPPort: 4318,
			Bind:     "127.0.0.1",
			DebugLog: "",
		},
		Devices: DevicesConfig{
			MaxTracked: 32,
		},
		Timeline: TimelineConfig{
			MaxEntries: 100,
		},
		Gesture: GestureConfig{
			SwipeMaxGapMS: 0,
		},
		Overlay: OverlayConfig{
			Width:   18,
			Height:  5,
			MarginX: 2,
			MarginY: 1,
		},
		Sampler: SamplerConfig{
			TickMS:    16,
			PublishMS: 1000,
		},
		Display: DisplayConfig{
			RefreshRateMS: 250,
		},
		Alerts: AlertsConfig{
			SystemNotify: false,
		},
	}
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "touchtop", "config.toml")
}

func Load() (*LoadResult, error) {
	return LoadFrom(defaultConfigPath())
}

func LoadFrom(path string) (*LoadResult, error) {
	cfg := DefaultConfig()
	result := &LoadResult{Config: cfg}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return result, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var raw map[string]any
	if _, err := toml.Decode(string(data), &raw); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	for key := range raw {
		if !knownTopLevel[key] {
			result.Warnings = append(result.Warnings, fmt.Sprintf("unknown config key: %q", key))
		}
	}

	var tf tomlFile
	if _, err := toml.Decode(string(data), &tf); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	mergeFromRaw(&result.Config, &tf, raw)

	if err := validate(&result.Config); err != nil {
		return nil, err
	}

	return result, nil
}

var knownTopLevel = map[string]bool{
	"receiver": true,
	"devices":  true,
	"timeline": true,
	"gesture":  true,
	"overlay":  true,
	"sampler":  true,
	"display":  true,
	"alerts":   true,
}

type tomlFile struct {
	Receiver *ReceiverConfig `toml:"receiver"`
	Devices  *DevicesConfig  `toml:"devices"`
	Timeline *TimelineConfig `toml:"timeline"`
	Gesture  *GestureConfig  `toml:"gesture"`
	Overlay  *OverlayConfig  `toml:"overlay"`
	Sampler  *SamplerConfig  `toml:"sampler"`
	Display  *DisplayConfig  `toml:"display"`
	Alerts   *AlertsConfig   `toml:"alerts"`
}

func mergeFromRaw(cfg *Config, tf *tomlFile, raw map[string]any) {
	if tf.Receiver != nil {
		if section, ok := rawSection(raw, "receiver"); ok {
			if _, exists := section["grpc_port"]; exists {
				cfg.Receiver.GRPCPort = tf.Receiver.GRPCPort
			}
			if _, exists := section["http_port"]; exists {
				cfg.Receiver.HTTPPort = tf.Receiver.HTTPPort
			}
			if _, exists := section["bind"]; exists {
				cfg.Receiver.Bind = tf.Receiver.Bind
			}
			if _, exists := section["debug_log"]; exists {
				cfg.Receiver.DebugLog = tf.Receiver.DebugLog
			}
		}
	}
	if tf.Devices != nil {
		if section, ok := rawSection(raw, "devices"); ok {
			if _, exists := section["max_tracked"]; exists {
				cfg.Devices.MaxTracked = tf.Devices.MaxTracked
			}
		}
	}
	if tf.Timeline != nil {
		if section, ok := rawSection(raw, "timeline"); ok {
			if _, exists := section["max_entries"]; exists {
				cfg.Timeline.MaxEntries = tf.Timeline.MaxEntries
			}
		}
	}
	if tf.Gesture != nil {
		if section, ok := rawSection(raw, "gesture"); ok {
			if _, exists := section["swipe_max_gap_ms"]; exists {
				cfg.Gesture.SwipeMaxGapMS = tf.Gesture.SwipeMaxGapMS
			}
		}
	}
	if tf.Overlay != nil {
		if section, ok := rawSection(raw, "overlay"); ok {
			if _, exists := section["width"]; exists {
				cfg.Overlay.Width = tf.Overlay.Width
			}
			if _, exists := section["height"]; exists {
				cfg.Overlay.Height = tf.Overlay.Height
			}
			if _, exists := section["margin_x"]; exists {
				cfg.Overlay.MarginX = tf.Overlay.MarginX
			}
			if _, exists := section["margin_y"]; exists {
				cfg.Overlay.MarginY = tf.Overlay.MarginY
			}
		}
	}
	if tf.Sampler != nil {
		if section, ok := rawSection(raw, "sampler"); ok {
			if _, exists := section["tick_ms"]; exists {
				cfg.Sampler.TickMS = tf.Sampler.TickMS
			}
			if _, exists := section["publish_ms"]; exists {
				cfg.Sampler.PublishMS = tf.Sampler.PublishMS
			}
		}
	}
	if tf.Display != nil {
		if section, ok := rawSection(raw, "display"); ok {
			if _, exists := section["refresh_rate_ms"]; exists {
				cfg.Display.RefreshRateMS = tf.Display.RefreshRateMS
			}
		}
	}
	if tf.Alerts != nil {
		if section, ok := rawSection(raw, "alerts"); ok {
			if _, exists := section["system_notify"]; exists {
				cfg.Alerts.SystemNotify = tf.Alerts.SystemNotify
			}
		}
	}
}

func rawSection(raw map[string]any, key string) (map[string]any, bool) {
	v, ok := raw[key]
	if !ok {
		return nil, false
	}
	m, ok := v.(map[string]any)
	return m, ok
}

func LoadFromString(data string) (*LoadResult, error) {
	cfg := DefaultConfig()
	result := &LoadResult{Config: cfg}

	if data == "" {
		return result, nil
	}

	var raw map[string]any
	if _, err := toml.Decode(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	for key := range raw {
		if !knownTopLevel[key] {
			result.Warnings = append(result.Warnings, fmt.Sprintf("unknown config key: %q", key))
		}
	}

	var tf tomlFile
	if _, err := toml.Decode(data, &tf); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	mergeFromRaw(&result.Config, &tf, raw)

	if err := validate(&result.Config); err != nil {
		return nil, err
	}

	return result, nil
}

func validate(cfg *Config) error {
	var errs []string

	if cfg.Receiver.GRPCPort < 1 || cfg.Receiver.GRPCPort > 65535 {
		errs = append(errs, fmt.Sprintf("grpc_port must be 1-65535, got %d", cfg.Receiver.GRPCPort))
	}
	if cfg.Receiver.HTTPPort < 1 || cfg.Receiver.HTTPPort > 65535 {
		errs = append(errs, fmt.Sprintf("http_port must be 1-65535, got %d", cfg.Receiver.HTTPPort))
	}

	if cfg.Devices.MaxTracked < 1 {
		errs = append(errs, fmt.Sprintf("devices max_tracked must be positive, got %d", cfg.Devices.MaxTracked))
	}

	if cfg.Timeline.MaxEntries < 1 {
		errs = append(errs, fmt.Sprintf("timeline max_entries must be positive, got %d", cfg.Timeline.MaxEntries))
	}

	if cfg.Gesture.SwipeMaxGapMS < 0 {
		errs = append(errs, fmt.Sprintf("gesture swipe_max_gap_ms must not be negative, got %d", cfg.Gesture.SwipeMaxGapMS))
	}

	if cfg.Overlay.Width < 1 {
		errs = append(errs, fmt.Sprintf("overlay width must be positive, got %d", cfg.Overlay.Width))
	}
	if cfg.Overlay.Height < 1 {
		errs = append(errs, fmt.Sprintf("overlay height must be positive, got %d", cfg.Overlay.Height))
	}
	if cfg.Overlay.MarginX < 0 {
		errs = append(errs, fmt.Sprintf("overlay margin_x must not be negative, got %d", cfg.Overlay.MarginX))
	}
	if cfg.Overlay.MarginY < 0 {
		errs = append(errs, fmt.Sprintf("overlay margin_y must not be negative, got %d", cfg.Overlay.MarginY))
	}

	if cfg.Sampler.TickMS < 1 {
		errs = append(errs, fmt.Sprintf("sampler tick_ms must be positive, got %d", cfg.Sampler.TickMS))
	}
	if cfg.Sampler.PublishMS < cfg.Sampler.TickMS {
		errs = append(errs, fmt.Sprintf("sampler publish_ms must be at least tick_ms, got %d", cfg.Sampler.PublishMS))
	}

	if cfg.Display.RefreshRateMS < 1 {
		errs = append(errs, fmt.Sprintf("refresh_rate_ms must be positive, got %d", cfg.Display.RefreshRateMS))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation error: %s", strings.Join(errs, "; "))
	}
	return nil
}
