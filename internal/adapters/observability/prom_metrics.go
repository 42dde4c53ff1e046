package observability

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/abruno-tek/Oscope-automation/internal/ports"
)

const (
	MetricCommands     = "scope_commands_total"
	MetricQueries      = "scope_queries_total"
	MetricRuns         = "scope_runs_total"
	MetricRunFailures  = "scope_run_failures_total"
	MetricOPCWait      = "scope_opc_wait_seconds"
	MetricTransfer     = "scope_transfer_seconds"
	MetricWaveformSize = "scope_waveform_samples"
)

type PromObs struct {
	reg      *prometheus.Registry
	logger   *log.Logger
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

// NewPromObs registers the workflow metrics on reg. A nil reg gets a fresh
// registry; a nil logger falls back to the standard logger.
func NewPromObs(reg *prometheus.Registry, logger *log.Logger) *PromObs {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	if logger == nil {
		logger = log.Default()
	}

	commands := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricCommands,
		Help: "Control commands written to the instrument.",
	})
	queries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricQueries,
		Help: "Control queries answered by the instrument.",
	})
	runs := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricRuns,
		Help: "Acquire-and-plot runs started.",
	})
	failures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricRunFailures,
		Help: "Acquire-and-plot runs that returned an error.",
	})
	opcWait := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    MetricOPCWait,
		Help:    "Time spent waiting for operation-complete after a synchronized command.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 16),
	})
	transfer := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    MetricTransfer,
		Help:    "Time to fetch one waveform over the transfer session.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
	})
	samples := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: MetricWaveformSize,
		Help: "Number of samples in the last transferred waveform.",
	})

	reg.MustRegister(commands, queries, runs, failures, opcWait, transfer, samples)

	return &PromObs{
		reg:    reg,
		logger: logger,
		counters: map[string]prometheus.Counter{
			MetricCommands:    commands,
			MetricQueries:     queries,
			MetricRuns:        runs,
			MetricRunFailures: failures,
		},
		gauges: map[string]prometheus.Gauge{
			MetricWaveformSize: samples,
		},
		histos: map[string]prometheus.Observer{
			MetricOPCWait:  opcWait,
			MetricTransfer: transfer,
		},
	}
}

// Registry exposes the registry the metrics live on.
func (p *PromObs) Registry() *prometheus.Registry { return p.reg }

// WriteTextfile dumps the current metric values in the node-exporter
// textfile format. The file is replaced atomically.
func (p *PromObs) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return prometheus.WriteToTextfile(path, p.reg)
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {
	p.logger.Printf("INFO: %s%s", msg, formatFields(fields))
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	if err != nil {
		p.logger.Printf("ERROR: %s: %v%s", msg, err, formatFields(fields))
	}
}

func (p *PromObs) LogCritical(msg string, err error, fields ...ports.Field) {
	if err != nil {
		p.logger.Printf("CRITICAL: %s: %v%s", msg, err, formatFields(fields))
	}
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

func formatFields(fields []ports.Field) string {
	if len(fields) == 0 {
		return ""
	}
	var b strings.Builder
	for _, f := range fields {
		fmt.Fprintf(&b, " %s=%v", f.Key, f.Value)
	}
	return b.String()
}

var _ ports.Observability = (*PromObs)(nil)
