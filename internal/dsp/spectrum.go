package dsp

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

const adcScale = 2048.0 // 2^11 for 12-bit signed converters

// Hamming returns a Hamming window of length n.
func Hamming(n int) []float64 {
	if n <= 0 {
		return []float64{}
	}
	win := make([]float64, n)
	for i := 0; i < n; i++ {
		win[i] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return win
}

// FFTShift reorders FFT output into a fresh slice so that DC sits in
// the middle. The input is left untouched.
func FFTShift(data []complex128) []complex128 {
	n := len(data)
	if n == 0 {
		return []complex128{}
	}
	half := n / 2
	out := make([]complex128, 0, n)
	out = append(out, data[half:]...)
	return append(out, data[:half]...)
}

// Spectrum computes a centered power spectrum of one capture in dBFS.
// Samples are Hamming-windowed, magnitudes normalized by the window sum
// and referenced to the full scale of a 12-bit converter, so a
// full-scale tone lands at 0 dBFS.
func Spectrum(samples []complex64) []float64 {
	if len(samples) == 0 {
		return []float64{}
	}
	win := Hamming(len(samples))
	windowed := make([]complex128, len(samples))
	sumWin := 0.0
	for i, v := range samples {
		windowed[i] = complex(float64(real(v))*win[i], float64(imag(v))*win[i])
		sumWin += win[i]
	}

	fft := fourier.NewCmplxFFT(len(samples)).Coefficients(nil, windowed)
	shifted := FFTShift(fft)

	dbfs := make([]float64, len(shifted))
	for i, v := range shifted {
		mag := cmplx.Abs(v) / sumWin
		if mag == 0 {
			dbfs[i] = math.Inf(-1)
			continue
		}
		dbfs[i] = 20 * math.Log10(mag/adcScale)
	}
	return dbfs
}

// PeakBin locates the strongest bin of a spectrum.
func PeakBin(dbfs []float64) (int, float64) {
	idx, level := -1, math.Inf(-1)
	for i, v := range dbfs {
		if v > level {
			idx, level = i, v
		}
	}
	return idx, level
}

// BinFrequency converts a centered bin index to its frequency offset
// from the carrier in Hz.
func BinFrequency(idx, n int, sampleRateHz float64) float64 {
	return float64(idx-n/2) * sampleRateHz / float64(n)
}
