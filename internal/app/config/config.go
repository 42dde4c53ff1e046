package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/abruno-tek/Oscope-automation/internal/adapters/hsi"
	"github.com/abruno-tek/Oscope-automation/internal/adapters/observability"
	"github.com/abruno-tek/Oscope-automation/internal/adapters/plot"
	"github.com/abruno-tek/Oscope-automation/internal/adapters/scpi"
	"github.com/abruno-tek/Oscope-automation/internal/adapters/sim"
	"github.com/abruno-tek/Oscope-automation/internal/domain"
)

type Config struct {
	Instrument InstrumentConfig        `yaml:"instrument"`
	Transfer   hsi.Config              `yaml:"transfer"`
	Plot       PlotConfig              `yaml:"plot"`
	Prompt     PromptConfig            `yaml:"prompt"`
	Logging    observability.LogConfig `yaml:"logging"`
	Metrics    MetricsConfig           `yaml:"metrics"`
	Simulate   bool                    `yaml:"simulate"`
	Sim        sim.Config              `yaml:"sim"`
}

type InstrumentConfig struct {
	Address      string        `yaml:"address"`
	Control      scpi.Config   `yaml:"control"`
	Channel      string        `yaml:"channel"`
	OPCTimeout   time.Duration `yaml:"opc_timeout"`
	CheckErrors  *bool         `yaml:"check_errors"`
	ForceTrigger bool          `yaml:"force_trigger"`
	Measurements []string      `yaml:"measurements"`
	AFG          AFGConfig     `yaml:"afg"`
}

// AFGConfig drives the instrument's built-in function generator so a run
// has a signal without external wiring.
type AFGConfig struct {
	Enabled     bool    `yaml:"enabled"`
	FrequencyHz float64 `yaml:"frequency_hz"`
}

type PlotConfig struct {
	plot.Config `yaml:",inline"`
	Title       string `yaml:"title"`
}

// PromptConfig controls the operator prompt. An empty Message gets a text
// naming the acquisition channel when the run starts.
type PromptConfig struct {
	Skip    bool   `yaml:"skip"`
	Message string `yaml:"message"`
}

type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

// Finalize applies defaults and validates a config built in code or
// modified after Load.
func (c *Config) Finalize() error {
	c.applyDefaults()
	return c.validate()
}

// ChannelID returns the parsed acquisition channel.
func (c *Config) ChannelID() domain.Channel {
	ch, _ := domain.ParseChannel(c.Instrument.Channel)
	return ch
}

func (c *Config) applyDefaults() {
	if c.Instrument.Channel == "" {
		c.Instrument.Channel = "ch1"
	}
	if c.Instrument.OPCTimeout == 0 {
		c.Instrument.OPCTimeout = 30 * time.Second
	}
	if c.Instrument.CheckErrors == nil {
		on := true
		c.Instrument.CheckErrors = &on
	}
	if c.Instrument.AFG.Enabled && c.Instrument.AFG.FrequencyHz == 0 {
		c.Instrument.AFG.FrequencyHz = 1000
	}
	if c.Plot.Title == "" {
		c.Plot.Title = "Simple Plot"
	}

	c.Instrument.Control.ApplyDefaults()
	c.Transfer.ApplyDefaults()
	c.Plot.Config.ApplyDefaults()
	c.Logging.ApplyDefaults()
	c.Sim.ApplyDefaults()
}

func (c *Config) validate() error {
	if !c.Simulate && c.Instrument.Address == "" {
		return errors.New("instrument.address is required unless simulate is set")
	}
	if _, err := domain.ParseChannel(c.Instrument.Channel); err != nil {
		return fmt.Errorf("instrument.channel: %w", err)
	}
	if c.Instrument.OPCTimeout < 0 {
		return fmt.Errorf("instrument.opc_timeout must be positive, got %s", c.Instrument.OPCTimeout)
	}
	for i, m := range c.Instrument.Measurements {
		if m == "" {
			return fmt.Errorf("instrument.measurements[%d] is empty", i)
		}
	}
	if c.Instrument.AFG.FrequencyHz < 0 {
		return fmt.Errorf("instrument.afg.frequency_hz must be positive")
	}
	if err := c.Instrument.Control.Validate(); err != nil {
		return fmt.Errorf("instrument.control config: %w", err)
	}
	if err := c.Transfer.Validate(); err != nil {
		return fmt.Errorf("transfer config: %w", err)
	}
	if err := c.Plot.Config.Validate(); err != nil {
		return fmt.Errorf("plot config: %w", err)
	}
	return nil
}
