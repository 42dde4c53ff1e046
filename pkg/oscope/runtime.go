package oscope

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/abruno-tek/Oscope-automation/internal/adapters/console"
	"github.com/abruno-tek/Oscope-automation/internal/adapters/hsi"
	"github.com/abruno-tek/Oscope-automation/internal/adapters/observability"
	"github.com/abruno-tek/Oscope-automation/internal/adapters/plot"
	"github.com/abruno-tek/Oscope-automation/internal/adapters/scpi"
	"github.com/abruno-tek/Oscope-automation/internal/adapters/sim"
	"github.com/abruno-tek/Oscope-automation/internal/app/workflow"
	"github.com/abruno-tek/Oscope-automation/internal/ports"
)

// RuntimeOption customizes the dependencies used by Runtime.
type RuntimeOption func(*runtimeOverrides)

type runtimeOverrides struct {
	control       ControlConnector
	transfer      TransferConnector
	plotter       Plotter
	prompter      Prompter
	observability Observability
	out           io.Writer
	in            io.Reader
}

// WithControlConnector injects a custom control channel (VISA bridge, HiSLIP, test double).
func WithControlConnector(c ControlConnector) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.control = c
	}
}

// WithTransferConnector injects a custom waveform transfer implementation.
func WithTransferConnector(c TransferConnector) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.transfer = c
	}
}

// WithPlotter overrides the default gonum/plot file renderer.
func WithPlotter(p Plotter) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.plotter = p
	}
}

// WithPrompter overrides the stdin operator prompt.
func WithPrompter(p Prompter) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.prompter = p
	}
}

// WithObservability plugs in a custom observability backend.
func WithObservability(obs Observability) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.observability = obs
	}
}

// WithOutput redirects progress and identity messages (default stdout).
func WithOutput(w io.Writer) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.out = w
	}
}

// WithInput sets where the default prompter reads from (default stdin).
func WithInput(r io.Reader) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.in = r
	}
}

// Runtime wires the control, transfer, plot and prompt adapters to the
// acquire-and-plot workflow.
type Runtime struct {
	cfg       *Config
	control   ports.ControlConnector
	transfer  ports.TransferConnector
	plotter   ports.Plotter
	prompter  ports.Prompter
	obs       ports.Observability
	prom      *observability.PromObs
	out       io.Writer
	logCloser io.Closer
	simulator *sim.Instrument
}

// NewRuntime bootstraps the default adapters (SCPI control socket, HSI
// transfer, gonum plot, stdin prompt, Prometheus observability) or the
// simulator when cfg.Simulate is set. Options override any dependency.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := cfg.Finalize(); err != nil {
		return nil, err
	}

	var overrides runtimeOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&overrides)
		}
	}

	rt := &Runtime{cfg: cfg, out: overrides.out}
	if rt.out == nil {
		rt.out = os.Stdout
	}

	logger, closer := observability.NewLogger(cfg.Logging)
	rt.logCloser = closer
	rt.obs = overrides.observability
	if rt.obs == nil {
		rt.prom = observability.NewPromObs(nil, logger)
		rt.obs = rt.prom
	}

	if cfg.Simulate {
		rt.simulator = sim.New(cfg.Sim)
	}

	var err error
	rt.control = overrides.control
	if rt.control == nil {
		if rt.simulator != nil {
			rt.control = rt.simulator.Control()
		} else if rt.control, err = scpi.NewConnector(cfg.Instrument.Address, cfg.Instrument.Control); err != nil {
			return nil, errors.Join(err, closer.Close())
		}
	}

	rt.transfer = overrides.transfer
	if rt.transfer == nil {
		if rt.simulator != nil {
			rt.transfer = rt.simulator.Transfer()
		} else if rt.transfer, err = hsi.NewConnector(cfg.Instrument.Address, cfg.Transfer); err != nil {
			return nil, errors.Join(err, closer.Close())
		}
	}

	rt.plotter = overrides.plotter
	if rt.plotter == nil {
		if rt.plotter, err = plot.NewPlotter(cfg.Plot.Config); err != nil {
			return nil, errors.Join(err, closer.Close())
		}
	}

	rt.prompter = overrides.prompter
	if rt.prompter == nil {
		in := overrides.in
		if in == nil {
			in = os.Stdin
		}
		rt.prompter = console.NewPrompter(in, rt.out)
	}

	return rt, nil
}

// Config returns the resolved configuration.
func (r *Runtime) Config() *Config {
	if r == nil {
		return nil
	}
	return r.cfg
}

// Run executes one acquire-and-plot cycle and, when configured, writes the
// run's metrics to the Prometheus textfile.
func (r *Runtime) Run(ctx context.Context) (*Result, error) {
	if r == nil {
		return nil, fmt.Errorf("runtime is nil")
	}
	ch := r.cfg.ChannelID()
	res, err := workflow.Run(ctx, workflow.Deps{
		Control:  r.control,
		Transfer: r.transfer,
		Plotter:  r.plotter,
		Prompter: r.prompter,
		Obs:      r.obs,
		Out:      r.out,
	}, workflow.Options{
		Channel:        ch,
		OPCTimeout:     r.cfg.Instrument.OPCTimeout,
		CheckErrors:    *r.cfg.Instrument.CheckErrors,
		ForceTrigger:   r.cfg.Instrument.ForceTrigger,
		Measurements:   r.cfg.Instrument.Measurements,
		AFG:            r.cfg.Instrument.AFG.Enabled,
		AFGFrequencyHz: r.cfg.Instrument.AFG.FrequencyHz,
		SkipPrompt:     r.cfg.Prompt.Skip,
		PromptMessage:  r.cfg.Prompt.Message,
		PlotTitle:      r.cfg.Plot.Title,
	})
	if r.prom != nil {
		if werr := r.prom.WriteTextfile(r.cfg.Metrics.Textfile); werr != nil {
			log.Printf("metrics textfile: %v", werr)
		}
	}
	return res, err
}

// Identify opens a control session, returns the *IDN? response and closes
// the session.
func (r *Runtime) Identify(ctx context.Context) (idn string, err error) {
	if r == nil {
		return "", fmt.Errorf("runtime is nil")
	}
	sess, err := r.control.Connect(ctx)
	if err != nil {
		return "", err
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()
	return sess.Query(ctx, "*IDN?")
}

// Close releases the log file, if any.
func (r *Runtime) Close() error {
	if r == nil || r.logCloser == nil {
		return nil
	}
	return r.logCloser.Close()
}
