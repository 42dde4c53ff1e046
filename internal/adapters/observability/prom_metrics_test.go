package observability

import (
	"bytes"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/abruno-tek/Oscope-automation/internal/ports"
)

func TestPromObsMetrics(t *testing.T) {
	obs := NewPromObs(prometheus.NewRegistry(), log.New(&bytes.Buffer{}, "", 0))

	obs.IncCounter(MetricCommands, 5)
	if got := testutil.ToFloat64(obs.counters[MetricCommands]); got != 5 {
		t.Fatalf("expected commands counter 5, got %f", got)
	}

	obs.IncCounter(MetricRunFailures, 1)
	if got := testutil.ToFloat64(obs.counters[MetricRunFailures]); got != 1 {
		t.Fatalf("expected failure counter 1, got %f", got)
	}

	obs.SetGauge(MetricWaveformSize, 1000)
	if got := testutil.ToFloat64(obs.gauges[MetricWaveformSize]); got != 1000 {
		t.Fatalf("expected samples gauge 1000, got %f", got)
	}

	obs.ObserveLatency(MetricOPCWait, 0.5)
	hCollector := obs.histos[MetricOPCWait].(prometheus.Collector)
	if samples := testutil.CollectAndCount(hCollector); samples != 1 {
		t.Fatalf("expected opc histogram to record 1 sample, got %d", samples)
	}

	// unknown names are ignored
	obs.IncCounter("nope", 1)
	obs.SetGauge("nope", 1)
	obs.ObserveLatency("nope", 1)
}

func TestPromObsSeparateRegistries(t *testing.T) {
	a := NewPromObs(nil, nil)
	b := NewPromObs(nil, nil)
	a.IncCounter(MetricRuns, 1)
	if got := testutil.ToFloat64(b.counters[MetricRuns]); got != 0 {
		t.Fatalf("registries must not share state, got %f", got)
	}
}

func TestWriteTextfile(t *testing.T) {
	obs := NewPromObs(nil, nil)
	obs.IncCounter(MetricQueries, 3)

	path := filepath.Join(t.TempDir(), "scope.prom")
	if err := obs.WriteTextfile(path); err != nil {
		t.Fatalf("write textfile: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(raw), MetricQueries+" 3") {
		t.Fatalf("expected %s in textfile, got:\n%s", MetricQueries, raw)
	}
	if err := obs.WriteTextfile(""); err != nil {
		t.Fatalf("empty path should be a no-op, got %v", err)
	}
}

func TestLogFormatting(t *testing.T) {
	var buf bytes.Buffer
	obs := NewPromObs(nil, log.New(&buf, "", 0))

	obs.LogInfo("connected", ports.Field{Key: "idn", Value: "TEK"})
	obs.LogError("skipped", nil)
	obs.LogCritical("transfer", errors.New("boom"), ports.Field{Key: "channel", Value: "ch1"})

	want := "INFO: connected idn=TEK\nCRITICAL: transfer: boom channel=ch1\n"
	if buf.String() != want {
		t.Fatalf("unexpected log output:\n%q\nwant\n%q", buf.String(), want)
	}
}

func TestNewLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scopeplot.log")
	logger, closer := NewLogger(LogConfig{File: path})
	logger.Print("hello")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(raw), "hello") {
		t.Fatalf("expected log line in file, got %q", raw)
	}
}
