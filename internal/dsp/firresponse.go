package dsp

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// FilterResponse evaluates the magnitude response of an FIR coefficient
// set at nfft/2+1 points from DC to Nyquist, in dB relative to the DC
// gain. It operates on raw integer taps as they appear in hardware
// filter tables.
func FilterResponse(taps []int16, nfft int) ([]float64, error) {
	if len(taps) == 0 {
		return nil, fmt.Errorf("dsp: no taps")
	}
	if nfft < len(taps) {
		return nil, fmt.Errorf("dsp: nfft %d shorter than %d taps", nfft, len(taps))
	}

	padded := make([]float64, nfft)
	for i, tap := range taps {
		padded[i] = float64(tap)
	}
	coeffs := fourier.NewFFT(nfft).Coefficients(nil, padded)

	dc := cmplx.Abs(coeffs[0])
	if dc == 0 {
		return nil, fmt.Errorf("dsp: filter has zero DC gain")
	}

	resp := make([]float64, len(coeffs))
	for i, c := range coeffs {
		mag := cmplx.Abs(c) / dc
		if mag == 0 {
			resp[i] = math.Inf(-1)
			continue
		}
		resp[i] = 20 * math.Log10(mag)
	}
	return resp, nil
}

// CutoffIndex returns the first bin at or below -3 dB, or -1 when the
// response never crosses it.
func CutoffIndex(respDB []float64) int {
	for i, v := range respDB {
		if v <= -3 {
			return i
		}
	}
	return -1
}

// StopbandPeakDB returns the worst (highest) response at or beyond the
// given bin.
func StopbandPeakDB(respDB []float64, from int) float64 {
	peak := math.Inf(-1)
	if from < 0 {
		from = 0
	}
	for _, v := range respDB[from:] {
		if v > peak {
			peak = v
		}
	}
	return peak
}
