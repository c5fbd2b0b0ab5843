// Package config loads the watcher configuration file. The file is read
// once at startup; everything in it is immutable for the lifetime of the
// process.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/goccy/go-yaml"
)

// Config is the on-disk configuration schema.
type Config struct {
	Device  Device  `yaml:"device"`
	Sounds  Sounds  `yaml:"sounds"`
	Enabled Enabled `yaml:"enabled_sounds"`
	Logging Logging `yaml:"logging"`
	DataDir string  `yaml:"data_dir"`
}

// Device identifies the HID interface to watch. All four fields are
// hexadecimal strings (0x-prefixed) as reported by the keyboard firmware.
type Device struct {
	VendorID  string `yaml:"vid"`
	ProductID string `yaml:"pid"`
	UsagePage string `yaml:"usage_page"`
	Usage     string `yaml:"usage"`
}

type Sounds struct {
	Volume             float64 `yaml:"volume"`
	LayerUp            string  `yaml:"layer_up"`
	LayerDown          string  `yaml:"layer_down"`
	CapsWordOn         string  `yaml:"caps_word_on"`
	CapsWordOff        string  `yaml:"caps_word_off"`
	ProgramStart       string  `yaml:"program_start"`
	ProgramExit        string  `yaml:"program_exit"`
	Error              string  `yaml:"error"`
	KeyboardConnect    string  `yaml:"keyboard_connect"`
	KeyboardDisconnect string  `yaml:"keyboard_disconnect"`
}

type Enabled struct {
	LayerUp            bool `yaml:"layer_up"`
	LayerDown          bool `yaml:"layer_down"`
	CapsWordOn         bool `yaml:"caps_word_on"`
	CapsWordOff        bool `yaml:"caps_word_off"`
	ProgramStart       bool `yaml:"program_start"`
	ProgramExit        bool `yaml:"program_exit"`
	Error              bool `yaml:"error"`
	KeyboardConnect    bool `yaml:"keyboard_connect"`
	KeyboardDisconnect bool `yaml:"keyboard_disconnect"`
}

type Logging struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Identity is the parsed device matching tuple.
type Identity struct {
	VendorID  uint16
	ProductID uint16
	UsagePage uint16
	Usage     uint16
}

func Default() Config {
	return Config{
		Device: Device{
			VendorID:  "0x1234",
			ProductID: "0x5678",
			UsagePage: "0x1",
			Usage:     "0x6",
		},
		Sounds: Sounds{
			Volume:             0.5,
			LayerUp:            "sounds/layer_up.wav",
			LayerDown:          "sounds/layer_down.wav",
			CapsWordOn:         "sounds/caps_word_on.wav",
			CapsWordOff:        "sounds/caps_word_off.wav",
			ProgramStart:       "sounds/program_start.wav",
			ProgramExit:        "sounds/program_exit.wav",
			Error:              "sounds/error.wav",
			KeyboardConnect:    "sounds/keyboard_connect.wav",
			KeyboardDisconnect: "sounds/keyboard_disconnect.wav",
		},
		Enabled: Enabled{
			LayerUp:            true,
			LayerDown:          true,
			CapsWordOn:         true,
			CapsWordOff:        true,
			ProgramStart:       true,
			ProgramExit:        true,
			Error:              true,
			KeyboardConnect:    true,
			KeyboardDisconnect: true,
		},
		Logging: Logging{
			Level: "info",
			File:  "accesswatch.log",
		},
		DataDir: ".accesswatch",
	}
}

// Load reads and validates the configuration at path.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if _, err := cfg.DeviceIdentity(); err != nil {
		return Config{}, err
	}
	if cfg.Sounds.Volume < 0 || cfg.Sounds.Volume > 1 {
		return Config{}, fmt.Errorf("volume must be between 0.0 and 1.0, got %v", cfg.Sounds.Volume)
	}
	return cfg, nil
}

// WriteDefault writes the built-in default configuration to path.
// It refuses to overwrite an existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}
	b, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("failed to marshal default config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("failed to write default config: %w", err)
	}
	return nil
}

// DeviceIdentity parses the hexadecimal device fields.
func (c Config) DeviceIdentity() (Identity, error) {
	vid, err := parseHex16("device.vid", c.Device.VendorID)
	if err != nil {
		return Identity{}, err
	}
	pid, err := parseHex16("device.pid", c.Device.ProductID)
	if err != nil {
		return Identity{}, err
	}
	page, err := parseHex16("device.usage_page", c.Device.UsagePage)
	if err != nil {
		return Identity{}, err
	}
	usage, err := parseHex16("device.usage", c.Device.Usage)
	if err != nil {
		return Identity{}, err
	}
	return Identity{VendorID: vid, ProductID: pid, UsagePage: page, Usage: usage}, nil
}

func parseHex16(field, s string) (uint16, error) {
	// base 0 accepts both 0x-prefixed hex and plain decimal
	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", field, s, err)
	}
	return uint16(v), nil
}

func (i Identity) String() string {
	return fmt.Sprintf("%04x:%04x page=%#x usage=%#x", i.VendorID, i.ProductID, i.UsagePage, i.Usage)
}
