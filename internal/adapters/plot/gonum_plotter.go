package plot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gplot "gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/abruno-tek/Oscope-automation/internal/ports"
)

// Config controls where and how large the rendered figure is.
type Config struct {
	Output string  `yaml:"output"`
	Width  float64 `yaml:"width_in"`
	Height float64 `yaml:"height_in"`
}

func (c *Config) ApplyDefaults() {
	if c.Output == "" {
		c.Output = "waveform.png"
	}
	if c.Width <= 0 {
		c.Width = 8
	}
	if c.Height <= 0 {
		c.Height = 4
	}
}

func (c *Config) Validate() error {
	switch strings.ToLower(filepath.Ext(c.Output)) {
	case ".png", ".svg", ".pdf", ".jpg", ".jpeg":
		return nil
	default:
		return fmt.Errorf("unsupported plot format %q", filepath.Ext(c.Output))
	}
}

// Plotter renders a single line series to an image file.
type Plotter struct {
	cfg Config
}

func NewPlotter(cfg Config) (*Plotter, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Plotter{cfg: cfg}, nil
}

// Plot writes the figure and returns the path it was saved to.
func (p *Plotter) Plot(ctx context.Context, req ports.PlotRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(req.X) != len(req.Y) {
		return "", fmt.Errorf("plot: x has %d points, y has %d", len(req.X), len(req.Y))
	}
	if len(req.X) == 0 {
		return "", errors.New("plot: no points")
	}

	pts := make(plotter.XYs, len(req.X))
	for i := range req.X {
		pts[i].X = req.X[i]
		pts[i].Y = req.Y[i]
	}

	fig := gplot.New()
	fig.Title.Text = req.Title
	fig.X.Label.Text = req.XLabel
	fig.Y.Label.Text = req.YLabel
	fig.Add(plotter.NewGrid())

	line, err := plotter.NewLine(pts)
	if err != nil {
		return "", fmt.Errorf("plot: %w", err)
	}
	fig.Add(line)

	if dir := filepath.Dir(p.cfg.Output); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("plot: %w", err)
		}
	}
	if err := fig.Save(vg.Length(p.cfg.Width)*vg.Inch, vg.Length(p.cfg.Height)*vg.Inch, p.cfg.Output); err != nil {
		return "", fmt.Errorf("plot: save %s: %w", p.cfg.Output, err)
	}
	return p.cfg.Output, nil
}

var _ ports.Plotter = (*Plotter)(nil)
