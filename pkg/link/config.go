// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package link

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Thermoquad/parhelion/pkg/hop"
	"github.com/flynn/json5"
)

// Config holds the link engine's timing and threshold parameters.
// All timing is expressed in ticks of TickPeriod.
type Config struct {
	// TickPeriod is the wall time of one tick.
	TickPeriod time.Duration `json:"tick_period"`

	// BindChannel is the channel listened on while binding.
	BindChannel uint8 `json:"bind_channel"`

	// BindThreshold is the number of bind packets a candidate needs to win.
	BindThreshold uint16 `json:"bind_threshold"`

	// PacketIntervalTicks is the transmitter's packet period.
	PacketIntervalTicks uint32 `json:"packet_interval_ticks"`

	// SlackTicks is added to the interval after a received packet before
	// the next one is declared missed.
	SlackTicks uint32 `json:"slack_ticks"`

	// SearchDwellTicks is how long the receiver stays on one channel while
	// it has no timing reference: before the first packet after entering
	// Hopping, and while the link is lost.
	SearchDwellTicks uint32 `json:"search_dwell_ticks"`

	// FailsafeMisses is the consecutive miss count at which the link is
	// reported unhealthy.
	FailsafeMisses uint16 `json:"failsafe_misses"`

	// RebindMisses is the consecutive miss count at which the receiver
	// gives up on the bound transmitter and returns to Bind.
	RebindMisses uint16 `json:"rebind_misses"`
}

// DefaultConfig returns parameters for a 1ms tick and a transmitter sending
// every 4ms.
func DefaultConfig() Config {
	return Config{
		TickPeriod:          time.Millisecond,
		BindChannel:         hop.DefaultBindChannel,
		BindThreshold:       10,
		PacketIntervalTicks: 4,
		SlackTicks:          2,
		SearchDwellTicks:    4*hop.Length + 6,
		FailsafeMisses:      25,
		RebindMisses:        300,
	}
}

// Validate checks the configuration for consistency
func (c Config) Validate() error {
	switch {
	case c.TickPeriod <= 0:
		return fmt.Errorf("%w: tick period must be positive", ErrInvalidConfig)
	case c.BindChannel < hop.MinChannel || c.BindChannel > hop.MaxChannel:
		return fmt.Errorf("%w: bind channel 0x%02X outside 0x%02X-0x%02X", ErrInvalidConfig, c.BindChannel, hop.MinChannel, hop.MaxChannel)
	case c.BindThreshold == 0:
		return fmt.Errorf("%w: bind threshold must be at least 1", ErrInvalidConfig)
	case c.PacketIntervalTicks == 0:
		return fmt.Errorf("%w: packet interval must be at least 1 tick", ErrInvalidConfig)
	case c.SearchDwellTicks < c.PacketIntervalTicks:
		return fmt.Errorf("%w: search dwell (%d) shorter than packet interval (%d)", ErrInvalidConfig, c.SearchDwellTicks, c.PacketIntervalTicks)
	case c.FailsafeMisses == 0:
		return fmt.Errorf("%w: failsafe threshold must be at least 1", ErrInvalidConfig)
	case c.RebindMisses <= c.FailsafeMisses:
		return fmt.Errorf("%w: rebind threshold (%d) must exceed failsafe threshold (%d)", ErrInvalidConfig, c.RebindMisses, c.FailsafeMisses)
	}
	return nil
}

// LoadConfig reads a JSON configuration file. JSON5 syntax (comments,
// trailing commas) is accepted so files can be annotated by hand. Fields
// missing from the file keep their DefaultConfig values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := json5.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// SaveConfig writes cfg as indented JSON, creating parent directories
func SaveConfig(cfg Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
