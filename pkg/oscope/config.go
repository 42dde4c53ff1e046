package oscope

import (
	"github.com/abruno-tek/Oscope-automation/internal/adapters/hsi"
	"github.com/abruno-tek/Oscope-automation/internal/adapters/observability"
	"github.com/abruno-tek/Oscope-automation/internal/adapters/scpi"
	"github.com/abruno-tek/Oscope-automation/internal/adapters/sim"
	"github.com/abruno-tek/Oscope-automation/internal/app/config"
)

// Config re-exports the root configuration struct so downstream projects can
// construct or modify it programmatically.
type Config = config.Config

type (
	// InstrumentConfig holds the address and the optional workflow steps.
	InstrumentConfig = config.InstrumentConfig
	// ControlConfig configures the SCPI socket.
	ControlConfig = scpi.Config
	// TransferConfig configures the high-speed transfer session.
	TransferConfig = hsi.Config
	// AFGConfig drives the built-in function generator.
	AFGConfig    = config.AFGConfig
	PlotConfig   = config.PlotConfig
	PromptConfig = config.PromptConfig
	LogConfig    = observability.LogConfig
	// MetricsConfig names the Prometheus textfile written after each run.
	MetricsConfig = config.MetricsConfig
	// SimConfig shapes the simulated record.
	SimConfig = sim.Config
)

// LoadConfig loads YAML from disk using the internal config reader.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// DefaultConfig returns a config with every default applied. Set an address
// or Simulate before use.
func DefaultConfig() *Config {
	return config.Default()
}
