package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/abruno-tek/Oscope-automation/internal/domain"
	"github.com/abruno-tek/Oscope-automation/internal/ports"
)

// Standard event status register bits that indicate a rejected command:
// query, device-dependent, execution and command errors.
const esrErrorMask = 0x3C

// Instruments answer 9.91E37 when a measurement has no valid result.
const notAValue = 9.91e37

// Deps are the collaborators a run talks to.
type Deps struct {
	Control  ports.ControlConnector
	Transfer ports.TransferConnector
	Plotter  ports.Plotter
	Prompter ports.Prompter
	Obs      ports.Observability
	Out      io.Writer
}

// Measurement is one instrument measurement read after the acquisition.
// Value is NaN when the instrument had no result.
type Measurement struct {
	Name  string
	Value float64
}

// Result is what one run produced.
type Result struct {
	RunID        string
	Identity     string
	Waveform     *domain.AnalogWaveform
	Summary      domain.Summary
	Measurements []Measurement
	PlotPath     string
}

// CommandError reports a command the instrument flagged in its event
// status register.
type CommandError struct {
	Command string
	ESR     int
	Events  string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("instrument rejected %q (esr=0x%02X): %s", e.Command, e.ESR, e.Events)
}

// Run performs one acquire-and-plot cycle: identify, wait for the operator,
// configure, acquire a single sequence, restore continuous run, transfer the
// channel's waveform and plot it.
func Run(ctx context.Context, d Deps, o Options) (res *Result, err error) {
	if err := d.validate(o); err != nil {
		return nil, err
	}
	o = o.withDefaults()
	obs := d.Obs
	if obs == nil {
		obs = nopObs{}
	}
	out := d.Out
	if out == nil {
		out = io.Discard
	}

	res = &Result{RunID: ulid.Make().String()}
	runField := ports.Field{Key: "run_id", Value: res.RunID}
	obs.IncCounter("scope_runs_total", 1)
	defer func() {
		if err != nil {
			obs.IncCounter("scope_run_failures_total", 1)
			obs.LogError("run_failed", err, runField)
		}
	}()

	sess, err := d.Control.Connect(ctx)
	if err != nil {
		return res, fmt.Errorf("connect control session: %w", err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close control session: %w", cerr))
		}
	}()
	c := &controller{sess: sess, obs: obs, opts: o}

	res.Identity, err = c.query(ctx, "*IDN?")
	if err != nil {
		return res, fmt.Errorf("identify: %w", err)
	}
	fmt.Fprintln(out, res.Identity)
	obs.LogInfo("control_connected", runField, ports.Field{Key: "idn", Value: res.Identity})

	if !o.SkipPrompt {
		if err := d.Prompter.Prompt(ctx, o.PromptMessage); err != nil {
			return res, fmt.Errorf("operator prompt: %w", err)
		}
	}
	fmt.Fprintln(out, "Scope Setup, Acquire, Waveform transfer, and plotting....")

	if err := c.run(ctx, ConfigureSequence(o)); err != nil {
		return res, fmt.Errorf("configure: %w", err)
	}
	res.Measurements, err = acquire(ctx, c, o)
	if err != nil {
		return res, err
	}
	for _, m := range res.Measurements {
		fmt.Fprintf(out, "%s: %g\n", m.Name, m.Value)
	}

	res.Waveform, err = transfer(ctx, d.Transfer, o.Channel, obs)
	if err != nil {
		return res, err
	}
	res.Summary = domain.Summarize(res.Waveform)
	obs.SetGauge("scope_waveform_samples", float64(res.Waveform.Len()))
	fmt.Fprintf(out, "%s: %d samples over %g %s, min %g max %g mean %g %s\n",
		o.Channel, res.Summary.Samples, res.Summary.Duration, res.Summary.TimeUnits,
		res.Summary.Min, res.Summary.Max, res.Summary.Mean, res.Summary.Units)

	res.PlotPath, err = d.Plotter.Plot(ctx, ports.PlotRequest{
		Title:  o.PlotTitle,
		XLabel: res.Waveform.HorizontalUnits(),
		YLabel: res.Waveform.VerticalUnits(),
		X:      res.Waveform.NormalizedHorizontal(),
		Y:      res.Waveform.NormalizedVertical(),
	})
	if err != nil {
		return res, fmt.Errorf("plot: %w", err)
	}
	fmt.Fprintf(out, "Plot written to %s\n", res.PlotPath)
	obs.LogInfo("run_complete", runField, ports.Field{Key: "plot", Value: res.PlotPath})
	return res, nil
}

func (d Deps) validate(o Options) error {
	switch {
	case d.Control == nil:
		return errors.New("workflow: control connector is required")
	case d.Transfer == nil:
		return errors.New("workflow: transfer connector is required")
	case d.Plotter == nil:
		return errors.New("workflow: plotter is required")
	case d.Prompter == nil && !o.SkipPrompt:
		return errors.New("workflow: prompter is required unless the prompt is skipped")
	}
	return nil
}

// acquire runs the single sequence, reads measurements and restores
// continuous run. A failure after arming still attempts the restore so the
// instrument is not left stopped.
func acquire(ctx context.Context, c *controller, o Options) ([]Measurement, error) {
	if err := c.run(ctx, AcquireSequence(o)); err != nil {
		return nil, c.restoreAfter(ctx, fmt.Errorf("acquire: %w", err))
	}
	meas, err := c.measurements(ctx, o.Measurements)
	if err != nil {
		return nil, c.restoreAfter(ctx, err)
	}
	if err := c.run(ctx, RestoreSequence()); err != nil {
		return nil, fmt.Errorf("restore continuous run: %w", err)
	}
	return meas, nil
}

func transfer(ctx context.Context, conn ports.TransferConnector, ch domain.Channel, obs ports.Observability) (wf *domain.AnalogWaveform, err error) {
	sess, err := conn.Connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect transfer session: %w", err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close transfer session: %w", cerr))
		}
	}()

	err = withDataAccess(ctx, sess, func(ctx context.Context) error {
		start := time.Now()
		var werr error
		wf, werr = sess.Waveform(ctx, ch.SourceName())
		obs.ObserveLatency("scope_transfer_seconds", time.Since(start).Seconds())
		return werr
	})
	if err != nil {
		return nil, fmt.Errorf("transfer %s: %w", ch.SourceName(), err)
	}
	return wf, nil
}

// withDataAccess holds the instrument's data-access lock for the duration
// of fn. The lock is released exactly once, even if ctx is cancelled.
func withDataAccess(ctx context.Context, sess ports.TransferSession, fn func(context.Context) error) (err error) {
	if err := sess.WaitForDataAccess(ctx); err != nil {
		return fmt.Errorf("wait for data access: %w", err)
	}
	defer func() {
		if rerr := sess.FinishedWithDataAccess(context.WithoutCancel(ctx)); rerr != nil {
			err = errors.Join(err, fmt.Errorf("release data access: %w", rerr))
		}
	}()
	return fn(ctx)
}

type controller struct {
	sess ports.ControlSession
	obs  ports.Observability
	opts Options
}

// run writes cmds in order. Every sync command is followed by *OPC? before
// anything else goes out.
func (c *controller) run(ctx context.Context, cmds []domain.Command) error {
	for _, cmd := range cmds {
		if err := c.sess.Write(ctx, cmd.Text); err != nil {
			return fmt.Errorf("write %q: %w", cmd.Text, err)
		}
		c.obs.IncCounter("scope_commands_total", 1)
		if !cmd.Sync {
			continue
		}
		if err := c.waitComplete(ctx, cmd.Text); err != nil {
			return err
		}
	}
	return nil
}

func (c *controller) query(ctx context.Context, q string) (string, error) {
	resp, err := c.sess.Query(ctx, q)
	if err != nil {
		return "", fmt.Errorf("query %q: %w", q, err)
	}
	c.obs.IncCounter("scope_queries_total", 1)
	return resp, nil
}

func (c *controller) waitComplete(ctx context.Context, after string) error {
	opcCtx, cancel := context.WithTimeout(ctx, c.opts.OPCTimeout)
	defer cancel()

	start := time.Now()
	resp, err := c.query(opcCtx, "*OPC?")
	c.obs.ObserveLatency("scope_opc_wait_seconds", time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("wait for %q: %w", after, err)
	}
	if strings.TrimSpace(resp) != "1" {
		return fmt.Errorf("wait for %q: unexpected *OPC? response %q", after, resp)
	}
	if !c.opts.CheckErrors {
		return nil
	}

	raw, err := c.query(ctx, "*ESR?")
	if err != nil {
		return err
	}
	esr, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("parse *ESR? response %q: %w", raw, err)
	}
	if esr&esrErrorMask == 0 {
		return nil
	}
	events, err := c.query(ctx, "ALLEV?")
	if err != nil {
		events = "event queue unavailable: " + err.Error()
	}
	return &CommandError{Command: after, ESR: esr, Events: strings.TrimSpace(events)}
}

func (c *controller) measurements(ctx context.Context, names []string) ([]Measurement, error) {
	if len(names) == 0 {
		return nil, nil
	}
	out := make([]Measurement, 0, len(names))
	for i, name := range names {
		resp, err := c.query(ctx, MeasurementQuery(i+1))
		if err != nil {
			return nil, fmt.Errorf("measurement %s: %w", name, err)
		}
		v, err := parseMeasurement(resp)
		if err != nil {
			return nil, fmt.Errorf("measurement %s: %w", name, err)
		}
		out = append(out, Measurement{Name: strings.ToUpper(name), Value: v})
	}
	return out, nil
}

// restoreAfter attempts the continuous-run restore after cause. The restore
// is not bound to ctx so an interrupted run still leaves the instrument
// running.
func (c *controller) restoreAfter(ctx context.Context, cause error) error {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.OPCTimeout)
	defer cancel()
	if err := c.run(rctx, RestoreSequence()); err != nil {
		return errors.Join(cause, fmt.Errorf("restore continuous run: %w", err))
	}
	return cause
}

// parseMeasurement reads the last field of a response, tolerating a
// command header echo. The "no result" sentinel maps to NaN.
func parseMeasurement(resp string) (float64, error) {
	fields := strings.Fields(resp)
	if len(fields) == 0 {
		return 0, errors.New("empty measurement response")
	}
	v, err := strconv.ParseFloat(fields[len(fields)-1], 64)
	if err != nil {
		return 0, fmt.Errorf("parse measurement %q: %w", resp, err)
	}
	if v >= notAValue {
		return math.NaN(), nil
	}
	return v, nil
}

type nopObs struct{}

func (nopObs) LogInfo(string, ...ports.Field)            {}
func (nopObs) LogError(string, error, ...ports.Field)    {}
func (nopObs) LogCritical(string, error, ...ports.Field) {}
func (nopObs) IncCounter(string, float64)                {}
func (nopObs) ObserveLatency(string, float64)            {}
func (nopObs) SetGauge(string, float64)                  {}
