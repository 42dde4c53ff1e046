package oscope

import (
	"github.com/abruno-tek/Oscope-automation/internal/adapters/hsi"
	"github.com/abruno-tek/Oscope-automation/internal/adapters/scpi"
	"github.com/abruno-tek/Oscope-automation/internal/app/workflow"
	"github.com/abruno-tek/Oscope-automation/internal/domain"
	"github.com/abruno-tek/Oscope-automation/internal/ports"
)

// ControlSession is the instrument's request/response command channel.
type ControlSession = ports.ControlSession

// ControlConnector opens control sessions.
type ControlConnector = ports.ControlConnector

// TransferSession is the bulk waveform channel with its data-access lock.
type TransferSession = ports.TransferSession

// TransferConnector opens transfer sessions.
type TransferConnector = ports.TransferConnector

// Plotter renders the waveform.
type Plotter = ports.Plotter

// PlotRequest carries the title, axis labels and index-aligned series.
type PlotRequest = ports.PlotRequest

// Prompter waits for the operator before the instrument is configured.
type Prompter = ports.Prompter

// Observability receives logs and metrics from a run.
type Observability = ports.Observability

// Field is a key/value pair attached to a log line.
type Field = ports.Field

type (
	Channel        = domain.Channel
	AnalogWaveform = domain.AnalogWaveform
	WaveformParams = domain.WaveformParams
	Summary        = domain.Summary
	Result         = workflow.Result
	Measurement    = workflow.Measurement
	CommandError   = workflow.CommandError
)

var (
	ErrInvalidWaveform = domain.ErrInvalidWaveform
	ErrControlClosed   = scpi.ErrClosed
	ErrNoData          = hsi.ErrNoData
	ErrConnectRejected = hsi.ErrConnectRejected
)

// NewAnalogWaveform builds an immutable waveform, e.g. for a custom
// TransferSession.
func NewAnalogWaveform(p WaveformParams, raw []float64) (*AnalogWaveform, error) {
	return domain.NewAnalogWaveform(p, raw)
}

// ParseChannel accepts "ch1", "CH1" or "1".
func ParseChannel(raw string) (Channel, error) {
	return domain.ParseChannel(raw)
}
