// Package config loads service configuration for go-truesight.
//
// Values are layered: struct defaults, then an optional YAML file, then
// TRUESIGHT_* environment variables (highest priority).
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix for environment overrides.
// TRUESIGHT_SERVER_PORT maps to server.port.
const EnvPrefix = "TRUESIGHT_"

// PathEnvVar names the environment variable holding the config file path.
const PathEnvVar = "TRUESIGHT_CONFIG"

// DefaultPaths are searched when no explicit path is given.
var DefaultPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/truesight/config.yaml",
}

// Config is the complete service configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Overlay  OverlayConfig  `koanf:"overlay"`
	Debounce DebounceConfig `koanf:"debounce"`
	Detector DetectorConfig `koanf:"detector"`
	Alerts   AlertsConfig   `koanf:"alerts"`
	Demo     DemoConfig     `koanf:"demo"`
	Log      LogConfig      `koanf:"log"`
}

// ServerConfig holds HTTP settings.
type ServerConfig struct {
	Port        int  `koanf:"port"`
	Debug       bool `koanf:"debug"`
	BodyLimitMB int  `koanf:"body_limit_mb"`
	// IngestFPS caps frames per second accepted per device socket. 0 disables.
	IngestFPS float64 `koanf:"ingest_fps"`
}

// OverlayConfig holds overlay pipeline settings.
type OverlayConfig struct {
	DefaultThreshold float64 `koanf:"default_threshold"`
	CalibrationPath  string  `koanf:"calibration_path"`
	MinWidth         int     `koanf:"min_width"`
}

// DebounceConfig holds per-room debounce settings.
type DebounceConfig struct {
	HumanWindow   int           `koanf:"human_window"`
	DeviceWindow  int           `koanf:"device_window"`
	MaxRooms      int           `koanf:"max_rooms"`
	RoomTTL       time.Duration `koanf:"room_ttl"`
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

// DetectorConfig holds person/phone detector settings.
type DetectorConfig struct {
	Enabled            bool          `koanf:"enabled"`
	ModelPath          string        `koanf:"model_path"`
	Confidence         float64       `koanf:"confidence"`
	NMS                float64       `koanf:"nms"`
	MaskScreens        bool          `koanf:"mask_screens"`
	FilterScreenHumans bool          `koanf:"filter_screen_humans"`
	BreakerFailures    uint32        `koanf:"breaker_failures"`
	BreakerTimeout     time.Duration `koanf:"breaker_timeout"`
}

// AlertsConfig holds alert history settings. An empty DBPath disables history.
type AlertsConfig struct {
	DBPath string `koanf:"db_path"`
}

// DemoConfig toggles the scripted demo routes.
type DemoConfig struct {
	Enabled bool `koanf:"enabled"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `koanf:"level"`
}

// Default returns production defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        8000,
			BodyLimitMB: 16,
		},
		Overlay: OverlayConfig{
			DefaultThreshold: 0.6,
			CalibrationPath:  "overlay_calibration_data.json",
			MinWidth:         800,
		},
		Debounce: DebounceConfig{
			HumanWindow:   4,
			DeviceWindow:  2,
			MaxRooms:      10000,
			RoomTTL:       2 * time.Hour,
			SweepInterval: time.Minute,
		},
		Detector: DetectorConfig{
			Enabled:         true,
			ModelPath:       "models/yolov8n.onnx",
			Confidence:      0.3,
			NMS:             0.45,
			MaskScreens:     true,
			BreakerFailures: 5,
			BreakerTimeout:  30 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration from defaults, the file at path (or the
// first default path found when path is empty) and the environment.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		path = findFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envKey maps TRUESIGHT_DEBOUNCE_HUMAN_WINDOW to debounce.human_window.
// Only the first underscore after the prefix separates section from key.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	if s == "config" {
		return ""
	}
	section, key, ok := strings.Cut(s, "_")
	if !ok {
		return s
	}
	return section + "." + key
}

func findFile() string {
	if p := os.Getenv(PathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return &ConfigError{Field: "server.port", Message: fmt.Sprintf("port %d out of range", c.Server.Port)}
	}
	if c.Overlay.DefaultThreshold < 0 || c.Overlay.DefaultThreshold > 1 {
		return &ConfigError{Field: "overlay.default_threshold", Message: "threshold must be within [0, 1]"}
	}
	if c.Debounce.HumanWindow < 1 {
		return &ConfigError{Field: "debounce.human_window", Message: "window must hold at least one frame"}
	}
	if c.Debounce.DeviceWindow < 1 {
		return &ConfigError{Field: "debounce.device_window", Message: "window must hold at least one frame"}
	}
	if c.Debounce.MaxRooms < 1 {
		return &ConfigError{Field: "debounce.max_rooms", Message: "max_rooms must be positive"}
	}
	if c.Detector.Enabled && c.Detector.ModelPath == "" {
		return &ConfigError{Field: "detector.model_path", Message: "model_path is required when the detector is enabled"}
	}
	if c.Detector.Confidence < 0 || c.Detector.Confidence > 1 {
		return &ConfigError{Field: "detector.confidence", Message: "confidence must be within [0, 1]"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config: " + e.Field + ": " + e.Message
}
