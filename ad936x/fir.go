package ad936x

import (
	"fmt"
	"strings"
)

// SelectFilterProfile returns the FIR profile for the requested baseband
// rate: the first bounded table row that covers the rate, or the final
// unbounded row for everything above the last bracket.
func SelectFilterProfile(rateHz int64) FilterProfile {
	bounded := filterProfiles[:len(filterProfiles)-1]
	for _, p := range bounded {
		if rateHz <= p.MaxRateHz {
			return p
		}
	}
	return filterProfiles[len(filterProfiles)-1]
}

// BuildFilterConfig renders a profile as the filter_fir_config payload the
// phy device parses. Both paths run the same coefficient set; the RX path
// carries a fixed -6 dB gain and the TX interpolation mirrors the RX
// decimation. Each coefficient line holds the value twice, once per path,
// and a blank line terminates the block.
func BuildFilterConfig(p FilterProfile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "RX 3 GAIN -6 DEC %d\n", p.Decimation)
	fmt.Fprintf(&b, "TX 3 GAIN 0 INT %d\n", p.Decimation)
	for i := 0; i < p.TapCount; i++ {
		c := p.Coefficients[i]
		fmt.Fprintf(&b, "%d,%d\n", c, c)
	}
	b.WriteString("\n")
	return b.String()
}
