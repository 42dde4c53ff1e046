package plot

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/abruno-tek/Oscope-automation/internal/ports"
)

func TestPlotWritesFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "nested", "wave.png")
	p, err := NewPlotter(Config{Output: out})
	if err != nil {
		t.Fatalf("new plotter: %v", err)
	}
	path, err := p.Plot(context.Background(), ports.PlotRequest{
		Title:  "ch1",
		XLabel: "s",
		YLabel: "V",
		X:      []float64{0, 1, 2, 3},
		Y:      []float64{0, 1, 0, -1},
	})
	if err != nil {
		t.Fatalf("plot: %v", err)
	}
	if path != out {
		t.Fatalf("expected path %s, got %s", out, path)
	}
	info, err := os.Stat(out)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Size() == 0 {
		t.Fatalf("expected non-empty image")
	}
}

func TestPlotRejectsMismatchedSeries(t *testing.T) {
	p, err := NewPlotter(Config{Output: filepath.Join(t.TempDir(), "w.svg")})
	if err != nil {
		t.Fatalf("new plotter: %v", err)
	}
	if _, err := p.Plot(context.Background(), ports.PlotRequest{X: []float64{1, 2}, Y: []float64{1}}); err == nil {
		t.Fatalf("expected length mismatch error")
	}
	if _, err := p.Plot(context.Background(), ports.PlotRequest{}); err == nil {
		t.Fatalf("expected empty series error")
	}
}

func TestConfigRejectsUnknownFormat(t *testing.T) {
	if _, err := NewPlotter(Config{Output: "wave.bmp"}); err == nil {
		t.Fatalf("expected format error")
	}
}
