package config

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	LogLevel string         `yaml:"log_level"`
	LogFile  string         `yaml:"log_file"`
	BLE      BLEConfig      `yaml:"ble"`
	Protocol ProtocolConfig `yaml:"protocol"`
	Trigger  TriggerConfig  `yaml:"trigger"`
	Output   OutputConfig   `yaml:"output"`
}

// BLEConfig holds peripheral selection and session timing settings.
type BLEConfig struct {
	ServiceUUID         string        `yaml:"service_uuid"`
	CharacteristicUUID  string        `yaml:"characteristic_uuid"`
	WriteCharacteristic string        `yaml:"write_characteristic"` // empty = characteristic_uuid
	NameFilter          string        `yaml:"name_filter"`
	ConnectTimeout      time.Duration `yaml:"connect_timeout"`
	DiscoveryTimeout    time.Duration `yaml:"discovery_timeout"`
	SubscribeTimeout    time.Duration `yaml:"subscribe_timeout"`
	AutoRescan          bool          `yaml:"auto_rescan"`
	RescanMax           int           `yaml:"rescan_max"` // seconds
}

// ProtocolConfig holds the outbound command encoding.
type ProtocolConfig struct {
	CommandWidth int    `yaml:"command_width"` // bytes: 1, 2, 4 or 8
	CommandValue uint64 `yaml:"command_value"`
}

// TriggerConfig holds send-trigger settings.
type TriggerConfig struct {
	Hotkey      []string      `yaml:"hotkey"`
	MinInterval time.Duration `yaml:"min_interval"`
}

// OutputConfig holds keyboard-wedge settings.
type OutputConfig struct {
	Method string `yaml:"method"` // "none", "type" or "paste"
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "bluno-link")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		LogFile:  filepath.Join(DefaultConfigDir(), "bluno-link.log"),
		BLE: BLEConfig{
			ServiceUUID:        "DFB0",
			CharacteristicUUID: "DFB1",
			ConnectTimeout:     10 * time.Second,
			DiscoveryTimeout:   5 * time.Second,
			SubscribeTimeout:   5 * time.Second,
			RescanMax:          30,
		},
		Protocol: ProtocolConfig{
			CommandWidth: 2,
			CommandValue: 1,
		},
		Trigger: TriggerConfig{
			Hotkey:      []string{"ctrl", "shift", "s"},
			MinInterval: 250 * time.Millisecond,
		},
		Output: OutputConfig{
			Method: "none",
		},
	}
}

// Load reads and parses a YAML config file. Missing fields are filled
// with defaults. Tilde (~) in log_file is expanded to the user's home directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.LogFile = expandTilde(cfg.LogFile)

	return cfg, nil
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	if err := validateUUID("ble.service_uuid", c.BLE.ServiceUUID, false); err != nil {
		return err
	}
	if err := validateUUID("ble.characteristic_uuid", c.BLE.CharacteristicUUID, false); err != nil {
		return err
	}
	if err := validateUUID("ble.write_characteristic", c.BLE.WriteCharacteristic, true); err != nil {
		return err
	}

	if c.BLE.ConnectTimeout < 0 || c.BLE.DiscoveryTimeout < 0 || c.BLE.SubscribeTimeout < 0 {
		return fmt.Errorf("ble timeouts must not be negative")
	}
	if c.BLE.AutoRescan && c.BLE.RescanMax <= 0 {
		return fmt.Errorf("ble.rescan_max must be > 0 when auto_rescan is enabled")
	}

	switch c.Protocol.CommandWidth {
	case 1, 2, 4, 8:
	default:
		return fmt.Errorf("protocol.command_width must be 1, 2, 4, or 8, got %d", c.Protocol.CommandWidth)
	}
	if c.Protocol.CommandWidth < 8 && c.Protocol.CommandValue>>(uint(c.Protocol.CommandWidth)*8) != 0 {
		return fmt.Errorf("protocol.command_value %d does not fit in %d bytes", c.Protocol.CommandValue, c.Protocol.CommandWidth)
	}

	if len(c.Trigger.Hotkey) == 0 {
		return fmt.Errorf("trigger.hotkey must not be empty")
	}
	if c.Trigger.MinInterval < 0 {
		return fmt.Errorf("trigger.min_interval must not be negative")
	}

	switch c.Output.Method {
	case "none", "type", "paste":
	default:
		return fmt.Errorf("output.method must be \"none\", \"type\" or \"paste\", got %q", c.Output.Method)
	}

	return nil
}

// validateUUID accepts 16-bit ("DFB0"), 32-bit or dashed 128-bit UUID strings.
func validateUUID(field, s string, optional bool) error {
	if s == "" {
		if optional {
			return nil
		}
		return fmt.Errorf("%s must not be empty", field)
	}
	raw := strings.ReplaceAll(s, "-", "")
	switch len(raw) {
	case 4, 8, 32:
	default:
		return fmt.Errorf("%s must be a 16-bit, 32-bit or 128-bit UUID, got %q", field, s)
	}
	if _, err := hex.DecodeString(raw); err != nil {
		return fmt.Errorf("%s is not valid hex: %q", field, s)
	}
	return nil
}

// ParseLogLevel maps a log_level string to a slog.Level. Unknown values map to info.
func ParseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

const defaultConfigYAML = `# bluno-link configuration
# Connects to a BLE serial peripheral (service DFB0) and shows its readings.

log_level: info
# log_file: ~/.config/bluno-link/bluno-link.log

ble:
  service_uuid: DFB0
  characteristic_uuid: DFB1
  # Set if the firmware exposes a separate write characteristic.
  write_characteristic: ""
  # Only connect to devices whose advertised name contains this.
  name_filter: ""
  connect_timeout: 10s
  discovery_timeout: 5s
  subscribe_timeout: 5s
  auto_rescan: false
  rescan_max: 30

protocol:
  # Outbound command size in bytes, little-endian (1, 2, 4 or 8).
  command_width: 2
  command_value: 1

trigger:
  hotkey: ["ctrl", "shift", "s"]
  min_interval: 250ms

output:
  # none | type | paste: forward each reading into the focused application.
  method: none
`

// WriteDefault writes the commented default config to DefaultConfigPath.
// It returns ("", nil) without touching anything if the file already exists.
func WriteDefault() (string, error) {
	path := DefaultConfigPath()
	if _, err := os.Stat(path); err == nil {
		return "", nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("creating config dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultConfigYAML), 0644); err != nil {
		return "", fmt.Errorf("writing default config: %w", err)
	}
	return path, nil
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
