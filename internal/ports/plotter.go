package ports

import "context"

// PlotRequest describes one line series. X and Y have equal length.
type PlotRequest struct {
	Title  string
	XLabel string
	YLabel string
	X      []float64
	Y      []float64
}

// Plotter renders a single line plot and returns where it was written.
type Plotter interface {
	Plot(ctx context.Context, req PlotRequest) (string, error)
}
