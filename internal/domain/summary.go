package domain

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary describes the normalized vertical values of a waveform.
type Summary struct {
	Samples    int
	Min        float64
	Max        float64
	PeakToPeak float64
	Mean       float64
	StdDev     float64
	Duration   float64
	Units      string
	TimeUnits  string
}

// Summarize computes descriptive statistics for w.
func Summarize(w *AnalogWaveform) Summary {
	v := w.NormalizedVertical()
	s := Summary{
		Samples:   len(v),
		Min:       floats.Min(v),
		Max:       floats.Max(v),
		Mean:      stat.Mean(v, nil),
		Duration:  w.Duration(),
		Units:     w.VerticalUnits(),
		TimeUnits: w.HorizontalUnits(),
	}
	s.PeakToPeak = s.Max - s.Min
	if len(v) > 1 {
		s.StdDev = stat.StdDev(v, nil)
	}
	if math.IsNaN(s.StdDev) {
		s.StdDev = 0
	}
	return s
}
