package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHammingWindow(t *testing.T) {
	win := Hamming(129)
	require.Len(t, win, 129)
	assert.InDelta(t, 0.08, win[0], 1e-9)
	assert.InDelta(t, 0.08, win[128], 1e-9)
	assert.InDelta(t, 1.0, win[64], 1e-9)

	assert.Empty(t, Hamming(0))
	assert.Empty(t, Hamming(-3))
}

func TestFFTShift(t *testing.T) {
	in := []complex128{0, 1, 2, 3}
	assert.Equal(t, []complex128{2, 3, 0, 1}, FFTShift(in))
	assert.Equal(t, []complex128{0, 1, 2, 3}, in, "input must stay intact")
	assert.Empty(t, FFTShift(nil))
}

func TestFFTShiftLeavesSpareCapacityAlone(t *testing.T) {
	backing := []complex128{0, 1, 2, 3, 100, 200}
	in := backing[:4]

	assert.Equal(t, []complex128{2, 3, 0, 1}, FFTShift(in))
	assert.Equal(t, complex128(100), backing[4])
	assert.Equal(t, complex128(200), backing[5])
}

func TestSpectrumFullScaleTone(t *testing.T) {
	const (
		n    = 128
		bin  = 16
		rate = 1280000.0
	)
	samples := make([]complex64, n)
	for i := range samples {
		phase := 2 * math.Pi * float64(bin) * float64(i) / n
		samples[i] = complex(float32(adcScale*math.Cos(phase)), float32(adcScale*math.Sin(phase)))
	}

	dbfs := Spectrum(samples)
	require.Len(t, dbfs, n)

	idx, level := PeakBin(dbfs)
	assert.Equal(t, n/2+bin, idx, "tone should land above center")
	assert.InDelta(t, 0.0, level, 0.01, "full-scale tone sits at 0 dBFS")

	assert.InDelta(t, 160000.0, BinFrequency(idx, n, rate), 1e-6)
}

func TestSpectrumEmpty(t *testing.T) {
	assert.Empty(t, Spectrum(nil))
	idx, level := PeakBin(nil)
	assert.Equal(t, -1, idx)
	assert.True(t, math.IsInf(level, -1))
}
