// Package sim provides an in-process oscilloscope that accepts the control
// protocol and serves a synthetic sine record over the transfer port.
package sim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/abruno-tek/Oscope-automation/internal/adapters/hsi"
	"github.com/abruno-tek/Oscope-automation/internal/domain"
	"github.com/abruno-tek/Oscope-automation/internal/ports"
)

const Identity = "TEKTRONIX,MSO58-SIM,SIM0001,CF:91.1CT FV:2.0.3.950"

// ErrClosed is returned for calls on a released simulated session.
var ErrClosed = errors.New("sim: session closed")

// Config shapes the synthetic record.
type Config struct {
	Samples        int     `yaml:"samples"`
	FrequencyHz    float64 `yaml:"frequency_hz"`
	Amplitude      float64 `yaml:"amplitude"`
	SampleInterval float64 `yaml:"sample_interval"`
}

func (c *Config) ApplyDefaults() {
	if c.Samples <= 0 {
		c.Samples = 1000
	}
	if c.FrequencyHz <= 0 {
		c.FrequencyHz = 1000
	}
	if c.Amplitude <= 0 {
		c.Amplitude = 1
	}
	if c.SampleInterval <= 0 {
		c.SampleInterval = 1e-5
	}
}

// full-scale count used for the int16-style raw record
const fullScale = 25000

var measQuery = regexp.MustCompile(`^MEASUREMENT:MEAS(\d+):RESULTS:CURRENTACQ:MEAN\?$`)

// Instrument is the shared state behind the simulated control and transfer
// sessions.
type Instrument struct {
	cfg Config

	mu       sync.Mutex
	log      []string
	sequence bool
	acquired bool
	measured []string
}

func New(cfg Config) *Instrument {
	cfg.ApplyDefaults()
	return &Instrument{cfg: cfg}
}

// Control returns a connector for the command channel.
func (in *Instrument) Control() ports.ControlConnector { return controlConnector{in} }

// Transfer returns a connector for the high-speed data channel.
func (in *Instrument) Transfer() ports.TransferConnector { return transferConnector{in} }

// Log returns every command and query received, in order.
func (in *Instrument) Log() []string {
	in.mu.Lock()
	defer in.mu.Unlock()
	return append([]string(nil), in.log...)
}

func (in *Instrument) write(cmd string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.log = append(in.log, cmd)

	fields := strings.Fields(strings.ToUpper(cmd))
	if len(fields) == 0 {
		return
	}
	arg := ""
	if len(fields) > 1 {
		arg = fields[1]
	}
	switch fields[0] {
	case "*RST":
		in.sequence = false
		in.acquired = false
		in.measured = nil
	case "ACQUIRE:STOPAFTER":
		in.sequence = arg == "SEQUENCE"
	case "ACQUIRE:STATE":
		if (arg == "1" || arg == "ON" || arg == "RUN") && in.sequence {
			in.acquired = true
		}
	case "MEASUREMENT:ADDMEAS":
		in.measured = append(in.measured, arg)
	}
}

func (in *Instrument) query(cmd string) string {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.log = append(in.log, cmd)

	q := strings.ToUpper(strings.TrimSpace(cmd))
	switch q {
	case "*IDN?":
		return Identity
	case "*OPC?":
		return "1"
	case "*ESR?":
		return "0"
	case "ALLEV?":
		return `0,"No events to report - queue empty"`
	}
	if m := measQuery.FindStringSubmatch(q); m != nil {
		idx, _ := strconv.Atoi(m[1])
		if idx < 1 || idx > len(in.measured) {
			return "9.91E+37"
		}
		return fmt.Sprintf("%.6E", in.measurement(in.measured[idx-1]))
	}
	return "0"
}

func (in *Instrument) measurement(kind string) float64 {
	switch kind {
	case "AMPLITUDE", "PK2PK":
		return 2 * in.cfg.Amplitude
	case "FREQUENCY":
		return in.cfg.FrequencyHz
	case "PERIOD":
		return 1 / in.cfg.FrequencyHz
	case "RMS":
		return in.cfg.Amplitude / math.Sqrt2
	default:
		return 0
	}
}

func (in *Instrument) hasAcquisition() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.acquired
}

func (in *Instrument) waveform(source string) (*domain.AnalogWaveform, error) {
	n := in.cfg.Samples
	raw := make([]float64, n)
	for i := range raw {
		t := float64(i) * in.cfg.SampleInterval
		raw[i] = math.Round(fullScale * math.Sin(2*math.Pi*in.cfg.FrequencyHz*t))
	}
	return domain.NewAnalogWaveform(domain.WaveformParams{
		Source:            source,
		HorizontalSpacing: in.cfg.SampleInterval,
		VerticalSpacing:   in.cfg.Amplitude / fullScale,
		HorizontalUnits:   "s",
		VerticalUnits:     "V",
	}, raw)
}

type controlConnector struct{ in *Instrument }

func (c controlConnector) Connect(ctx context.Context) (ports.ControlSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &controlSession{in: c.in}, nil
}

type controlSession struct {
	in     *Instrument
	mu     sync.Mutex
	closed bool
}

func (s *controlSession) Write(ctx context.Context, cmd string) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	s.in.write(cmd)
	return nil
}

func (s *controlSession) Query(ctx context.Context, cmd string) (string, error) {
	if err := s.check(ctx); err != nil {
		return "", err
	}
	return s.in.query(cmd), nil
}

func (s *controlSession) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *controlSession) check(ctx context.Context) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}
	return ctx.Err()
}

type transferConnector struct{ in *Instrument }

func (c transferConnector) Connect(ctx context.Context) (ports.TransferSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &transferSession{in: c.in}, nil
}

type transferSession struct {
	in     *Instrument
	mu     sync.Mutex
	closed bool
	access bool
}

func (s *transferSession) WaitForDataAccess(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.access = true
	return ctx.Err()
}

func (s *transferSession) FinishedWithDataAccess(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.access = false
	return nil
}

func (s *transferSession) Waveform(ctx context.Context, source string) (*domain.AnalogWaveform, error) {
	s.mu.Lock()
	closed, access := s.closed, s.access
	s.mu.Unlock()
	switch {
	case closed:
		return nil, ErrClosed
	case !access:
		return nil, errors.New("sim: waveform requested outside data access")
	case !s.in.hasAcquisition():
		return nil, fmt.Errorf("%w: %s", hsi.ErrNoData, source)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.in.waveform(source)
}

func (s *transferSession) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

var (
	_ ports.ControlSession  = (*controlSession)(nil)
	_ ports.TransferSession = (*transferSession)(nil)
)
