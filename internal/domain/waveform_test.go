package domain

import (
	"errors"
	"math"
	"testing"
)

func TestNormalizedValuesAreIndexAligned(t *testing.T) {
	w, err := NewAnalogWaveform(WaveformParams{
		Source:              "ch1",
		HorizontalSpacing:   1e-3,
		HorizontalZeroIndex: 2,
		VerticalSpacing:     0.5,
		VerticalOffset:      1,
		HorizontalUnits:     "s",
		VerticalUnits:       "V",
	}, []float64{0, 2, 4, -2})
	if err != nil {
		t.Fatalf("new waveform: %v", err)
	}

	h := w.NormalizedHorizontal()
	v := w.NormalizedVertical()
	if len(h) != w.Len() || len(v) != w.Len() {
		t.Fatalf("expected %d,%d samples, got %d,%d", w.Len(), w.Len(), len(h), len(v))
	}
	wantH := []float64{-2e-3, -1e-3, 0, 1e-3}
	wantV := []float64{1, 2, 3, 0}
	for i := range wantH {
		if math.Abs(h[i]-wantH[i]) > 1e-12 {
			t.Fatalf("horizontal[%d] = %g, want %g", i, h[i], wantH[i])
		}
		if v[i] != wantV[i] {
			t.Fatalf("vertical[%d] = %g, want %g", i, v[i], wantV[i])
		}
	}
	if w.HorizontalUnits() != "s" || w.VerticalUnits() != "V" {
		t.Fatalf("unexpected units %q/%q", w.HorizontalUnits(), w.VerticalUnits())
	}
}

func TestWaveformIsNotMutatedThroughAccessors(t *testing.T) {
	raw := []float64{1, 2, 3}
	w, err := NewAnalogWaveform(WaveformParams{HorizontalSpacing: 1}, raw)
	if err != nil {
		t.Fatalf("new waveform: %v", err)
	}
	raw[0] = 100
	got := w.Raw()
	got[1] = 100
	if again := w.Raw(); again[0] != 1 || again[1] != 2 {
		t.Fatalf("waveform changed after caller mutation: %v", again)
	}
}

func TestNewAnalogWaveformRejectsInvalidInput(t *testing.T) {
	if _, err := NewAnalogWaveform(WaveformParams{HorizontalSpacing: 1}, nil); !errors.Is(err, ErrInvalidWaveform) {
		t.Fatalf("expected ErrInvalidWaveform for empty data, got %v", err)
	}
	if _, err := NewAnalogWaveform(WaveformParams{}, []float64{1}); !errors.Is(err, ErrInvalidWaveform) {
		t.Fatalf("expected ErrInvalidWaveform for zero spacing, got %v", err)
	}
}

func TestSummarize(t *testing.T) {
	w, err := NewAnalogWaveform(WaveformParams{
		HorizontalSpacing: 0.5,
		VerticalSpacing:   1,
		VerticalUnits:     "V",
		HorizontalUnits:   "s",
	}, []float64{-1, 1, -1, 1})
	if err != nil {
		t.Fatalf("new waveform: %v", err)
	}
	s := Summarize(w)
	if s.Samples != 4 || s.Min != -1 || s.Max != 1 || s.PeakToPeak != 2 {
		t.Fatalf("unexpected summary %+v", s)
	}
	if s.Mean != 0 {
		t.Fatalf("expected mean 0, got %g", s.Mean)
	}
	if s.Duration != 1.5 {
		t.Fatalf("expected duration 1.5, got %g", s.Duration)
	}
}

func TestParseChannel(t *testing.T) {
	for _, raw := range []string{"ch1", "CH1", "1", " Ch1 "} {
		ch, err := ParseChannel(raw)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		if ch.SCPI() != "CH1" || ch.SourceName() != "ch1" {
			t.Fatalf("parse %q: got %s/%s", raw, ch.SCPI(), ch.SourceName())
		}
	}
	for _, raw := range []string{"", "ch0", "ch9", "math1"} {
		if _, err := ParseChannel(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}
