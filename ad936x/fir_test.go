package ad936x

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectFilterProfileBrackets(t *testing.T) {
	cases := []struct {
		rate int64
		dec  int
		taps int
	}{
		{521000, 4, 128},
		{10000000, 4, 128},
		{20000000, 4, 128},
		{20000001, 2, 128},
		{30000000, 2, 128},
		{40000000, 2, 128},
		{40000001, 2, 96},
		{53333333, 2, 96},
		{53333334, 2, 64},
		{61440000, 2, 64},
	}
	for _, tc := range cases {
		p := SelectFilterProfile(tc.rate)
		assert.Equal(t, tc.dec, p.Decimation, "rate %d", tc.rate)
		assert.Equal(t, tc.taps, p.TapCount, "rate %d", tc.rate)
	}
}

func TestFilterTableShape(t *testing.T) {
	require.Len(t, filterProfiles, 4)
	for _, p := range filterProfiles {
		require.Len(t, p.Coefficients, p.TapCount, "profile dec=%d", p.Decimation)
		if p.Decimation == 2 {
			// The half-band designs peak at full scale mid-table.
			assert.Equal(t, int16(32767), p.Coefficients[p.TapCount/2-1])
		}
	}
}

func TestFilterTapSymmetry(t *testing.T) {
	// The decimate-by-4 design is fully symmetric.
	for i := range fir128Dec4 {
		assert.Equal(t, fir128Dec4[i], fir128Dec4[127-i], "tap %d", i)
	}
	// The half-band designs are a symmetric body plus one trailing zero.
	for _, taps := range [][]int16{fir128Dec2, fir96Dec2, fir64Dec2} {
		n := len(taps)
		assert.Equal(t, int16(0), taps[n-1])
		for i := 0; i < n-1; i++ {
			assert.Equal(t, taps[i], taps[n-2-i], "tap %d of %d", i, n)
		}
	}
}

func TestBuildFilterConfig(t *testing.T) {
	p := SelectFilterProfile(10000000)
	cfg := BuildFilterConfig(p)

	lines := strings.Split(cfg, "\n")
	// Two headers, one line per tap, the blank terminator, and the
	// empty split artifact after the final newline.
	require.Len(t, lines, 2+p.TapCount+2)
	assert.Equal(t, "RX 3 GAIN -6 DEC 4", lines[0])
	assert.Equal(t, "TX 3 GAIN 0 INT 4", lines[1])
	assert.Equal(t, "", lines[len(lines)-2])
	assert.Equal(t, "", lines[len(lines)-1])

	coeffs := lines[2 : 2+p.TapCount]
	for i, line := range coeffs {
		left, right, ok := strings.Cut(line, ",")
		require.True(t, ok, "line %d", i)
		assert.Equal(t, left, right, "line %d", i)
	}
	assert.Equal(t, "-15,-15", coeffs[0])
	assert.Equal(t, "15921,15921", coeffs[63])
	assert.Equal(t, "15921,15921", coeffs[64])
	assert.Equal(t, "-15,-15", coeffs[127])
}

func TestBuildFilterConfigHeadersFollowDecimation(t *testing.T) {
	cfg := BuildFilterConfig(SelectFilterProfile(30000000))
	assert.True(t, strings.HasPrefix(cfg, "RX 3 GAIN -6 DEC 2\nTX 3 GAIN 0 INT 2\n"))
	assert.Contains(t, cfg, "\n32767,32767\n")
}
