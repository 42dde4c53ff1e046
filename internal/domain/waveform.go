package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidWaveform is returned when waveform parameters cannot describe a record.
var ErrInvalidWaveform = errors.New("invalid waveform")

// WaveformParams carries the scaling metadata delivered with a record.
type WaveformParams struct {
	Source              string
	HorizontalSpacing   float64
	HorizontalZeroIndex float64
	VerticalSpacing     float64
	VerticalOffset      float64
	HorizontalUnits     string
	VerticalUnits       string
}

// AnalogWaveform is an immutable snapshot of one acquisition on one channel.
// Raw samples are stored in digitizer units and normalized on demand.
type AnalogWaveform struct {
	params     WaveformParams
	raw        []float64
	acquiredAt time.Time
}

// NewAnalogWaveform copies raw and validates the scaling parameters.
func NewAnalogWaveform(p WaveformParams, raw []float64) (*AnalogWaveform, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: no samples", ErrInvalidWaveform)
	}
	if p.HorizontalSpacing == 0 {
		return nil, fmt.Errorf("%w: zero horizontal spacing", ErrInvalidWaveform)
	}
	if p.VerticalSpacing == 0 {
		p.VerticalSpacing = 1
	}
	data := make([]float64, len(raw))
	copy(data, raw)
	return &AnalogWaveform{params: p, raw: data, acquiredAt: time.Now()}, nil
}

func (w *AnalogWaveform) Len() int                { return len(w.raw) }
func (w *AnalogWaveform) Source() string          { return w.params.Source }
func (w *AnalogWaveform) HorizontalUnits() string { return w.params.HorizontalUnits }
func (w *AnalogWaveform) VerticalUnits() string   { return w.params.VerticalUnits }
func (w *AnalogWaveform) AcquiredAt() time.Time   { return w.acquiredAt }
func (w *AnalogWaveform) Params() WaveformParams  { return w.params }

// Raw returns a copy of the digitizer-unit samples.
func (w *AnalogWaveform) Raw() []float64 {
	out := make([]float64, len(w.raw))
	copy(out, w.raw)
	return out
}

// NormalizedHorizontal returns sample times relative to the trigger point.
func (w *AnalogWaveform) NormalizedHorizontal() []float64 {
	out := make([]float64, len(w.raw))
	for i := range out {
		out[i] = (float64(i) - w.params.HorizontalZeroIndex) * w.params.HorizontalSpacing
	}
	return out
}

// NormalizedVertical returns samples in the vertical unit (usually volts).
func (w *AnalogWaveform) NormalizedVertical() []float64 {
	out := make([]float64, len(w.raw))
	for i, v := range w.raw {
		out[i] = v*w.params.VerticalSpacing + w.params.VerticalOffset
	}
	return out
}

// Duration is the time covered by the record, in horizontal units.
func (w *AnalogWaveform) Duration() float64 {
	return float64(len(w.raw)-1) * w.params.HorizontalSpacing
}
