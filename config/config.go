// Package config loads and validates the YAML configuration that points
// l1catrackd at a sample source and a set of tracking channels.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ChannelConfig is one channel's YAML entry, mirroring spec.md §6's
// per-channel configuration fields.
type ChannelConfig struct {
	InputItemType        string  `yaml:"input_item_type"`
	SamplingFrequencyHz  float64 `yaml:"sampling_frequency"`
	FreqHz               float64 `yaml:"freq"`
	Gain                 float64 `yaml:"gain"`
	RFGain               float64 `yaml:"rf_gain"`
	IFGain               float64 `yaml:"if_gain"`
	AGCEnabled           bool    `yaml:"AGC_enabled"`
	Samples              int     `yaml:"samples"`
	PLLBandwidthHz       float64 `yaml:"pll_bw_hz"`
	DLLBandwidthHz       float64 `yaml:"dll_bw_hz"`
	EarlyLateSpaceChips  float64 `yaml:"early_late_space_chips"`
	Dump                 bool    `yaml:"dump"`
	DumpFilename         string  `yaml:"dump_filename"`
	PRN                  int     `yaml:"prn"`

	// DiscriminatorController names the §9 redesign's discriminator
	// collaborator: "local" (default) or "remote", which requires
	// remote_controller_addr. Validate checks it; l1catrackd does not pass
	// it on, and every channel runs the in-process controller.
	DiscriminatorController string `yaml:"discriminator_controller"`
	RemoteControllerAddr    string `yaml:"remote_controller_addr"`
	RemoteControllerPortCh0 int    `yaml:"remote_controller_port_ch0"`
}

// Config is the top-level YAML document.
type Config struct {
	LogLevel string          `yaml:"log_level"`
	Channels []ChannelConfig `yaml:"channels"`
}

// Load reads and validates a YAML config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks every channel's fields are in sane ranges.
func (c *Config) Validate() error {
	if len(c.Channels) == 0 {
		return fmt.Errorf("no channels configured")
	}
	for i, ch := range c.Channels {
		if ch.SamplingFrequencyHz <= 0 {
			return fmt.Errorf("channel %d: sampling_frequency must be positive", i)
		}
		if ch.PRN < 1 || ch.PRN > 32 {
			return fmt.Errorf("channel %d: prn %d out of range [1,32]", i, ch.PRN)
		}
		if ch.PLLBandwidthHz <= 0 {
			return fmt.Errorf("channel %d: pll_bw_hz must be positive", i)
		}
		if ch.DLLBandwidthHz <= 0 {
			return fmt.Errorf("channel %d: dll_bw_hz must be positive", i)
		}
		if ch.EarlyLateSpaceChips <= 0 {
			return fmt.Errorf("channel %d: early_late_space_chips must be positive", i)
		}
		if ch.Dump && ch.DumpFilename == "" {
			return fmt.Errorf("channel %d: dump_filename required when dump is true", i)
		}
		switch ch.DiscriminatorController {
		case "", "local":
		case "remote":
			if ch.RemoteControllerAddr == "" {
				return fmt.Errorf("channel %d: remote_controller_addr required for remote discriminator controller", i)
			}
		default:
			return fmt.Errorf("channel %d: unknown discriminator_controller %q", i, ch.DiscriminatorController)
		}
	}
	return nil
}
