package oscope

import (
	"io"

	base "github.com/abruno-tek/Oscope-automation/pkg/oscope"
)

// Re-exported errors for convenience.
var (
	ErrInvalidWaveform = base.ErrInvalidWaveform
	ErrControlClosed   = base.ErrControlClosed
	ErrNoData          = base.ErrNoData
	ErrConnectRejected = base.ErrConnectRejected
)

// Type aliases so consumers can import github.com/abruno-tek/Oscope-automation directly.
type (
	Config            = base.Config
	InstrumentConfig  = base.InstrumentConfig
	ControlConfig     = base.ControlConfig
	TransferConfig    = base.TransferConfig
	AFGConfig         = base.AFGConfig
	PlotConfig        = base.PlotConfig
	PromptConfig      = base.PromptConfig
	LogConfig         = base.LogConfig
	MetricsConfig     = base.MetricsConfig
	SimConfig         = base.SimConfig
	Runtime           = base.Runtime
	RuntimeOption     = base.RuntimeOption
	ControlSession    = base.ControlSession
	ControlConnector  = base.ControlConnector
	TransferSession   = base.TransferSession
	TransferConnector = base.TransferConnector
	Plotter           = base.Plotter
	PlotRequest       = base.PlotRequest
	Prompter          = base.Prompter
	Observability     = base.Observability
	Field             = base.Field
	Channel           = base.Channel
	AnalogWaveform    = base.AnalogWaveform
	WaveformParams    = base.WaveformParams
	Summary           = base.Summary
	Result            = base.Result
	Measurement       = base.Measurement
	CommandError      = base.CommandError
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

func DefaultConfig() *Config {
	return base.DefaultConfig()
}

func Conf(path string, opts ...RuntimeOption) (*Runtime, error) {
	return base.Conf(path, opts...)
}

// Runtime and options.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	return base.NewRuntime(cfg, opts...)
}

func WithControlConnector(c ControlConnector) RuntimeOption {
	return base.WithControlConnector(c)
}

func WithTransferConnector(c TransferConnector) RuntimeOption {
	return base.WithTransferConnector(c)
}

func WithPlotter(p Plotter) RuntimeOption {
	return base.WithPlotter(p)
}

func WithPrompter(p Prompter) RuntimeOption {
	return base.WithPrompter(p)
}

func WithObservability(obs Observability) RuntimeOption {
	return base.WithObservability(obs)
}

func WithOutput(w io.Writer) RuntimeOption {
	return base.WithOutput(w)
}

func WithInput(r io.Reader) RuntimeOption {
	return base.WithInput(r)
}

// Waveform helpers.
func NewAnalogWaveform(p WaveformParams, raw []float64) (*AnalogWaveform, error) {
	return base.NewAnalogWaveform(p, raw)
}

func ParseChannel(raw string) (Channel, error) {
	return base.ParseChannel(raw)
}
