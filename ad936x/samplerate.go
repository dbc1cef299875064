package ad936x

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/GogoLike/ad936x-api/internal/logging"
)

const (
	// MinSampleRateHz is the lowest baseband rate the chip supports.
	// Requests below it are rejected before any device write.
	MinSampleRateHz = 521000

	// narrowbandRateHz is the bound below which a rate change needs the
	// bootstrap dance. The truncating division matches the driver.
	narrowbandRateHz = 25000000 / 12

	// bootstrapRateHz is a rate known to be safe at every decimation,
	// used to park the chip while the FIR filter is reloaded.
	bootstrapRateHz = 3000000
)

// PathRates holds the TX clock chain reported by the phy device, from the
// baseband PLL down to the final sample rate.
type PathRates struct {
	BBPLL    int64
	DAC      int64
	T2       int64
	T1       int64
	TF       int64
	TXSample int64
}

// maxTaps is the longest FIR the hardware can clock at the current
// DAC-to-sample ratio. The filter must fit in 16 coefficients per
// available DAC cycle.
func (r PathRates) maxTaps() int64 {
	if r.TXSample == 0 {
		return 0
	}
	return (r.DAC / r.TXSample) * 16
}

func parseTxPathRates(s string) (PathRates, error) {
	fields := strings.Fields(s)
	if len(fields) < 6 {
		return PathRates{}, fmt.Errorf("%w: tx_path_rates %q has %d fields, want 6", ErrDataIntegrity, s, len(fields))
	}
	var vals [6]int64
	for i := 0; i < 6; i++ {
		_, raw, ok := strings.Cut(fields[i], ":")
		if !ok {
			return PathRates{}, fmt.Errorf("%w: tx_path_rates field %q has no value", ErrDataIntegrity, fields[i])
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return PathRates{}, fmt.Errorf("%w: tx_path_rates field %q is not an integer", ErrDataIntegrity, fields[i])
		}
		vals[i] = n
	}
	return PathRates{
		BBPLL:    vals[0],
		DAC:      vals[1],
		T2:       vals[2],
		T1:       vals[3],
		TF:       vals[4],
		TXSample: vals[5],
	}, nil
}

// TxPathRates reads and parses the TX clock chain.
func (t *Transceiver) TxPathRates(ctx context.Context) (PathRates, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.txPathRates(ctx)
}

func (t *Transceiver) txPathRates(ctx context.Context) (PathRates, error) {
	s, err := t.phyReadDevAttr(ctx, "tx_path_rates")
	if err != nil {
		return PathRates{}, err
	}
	return parseTxPathRates(s)
}

// SetSampleRate reprograms the baseband FIR filter for the requested RX
// and TX sample rate and commits the rate, following the sequence from
// ad9361_set_bb_rate(): disable the running filter (parking narrowband
// configurations at the bootstrap rate first), load the new coefficient
// set, then re-enable and commit in the order the target band requires.
//
// A failed device write leaves the chip partially configured; callers
// should re-query rate and filter state before retrying.
func (t *Transceiver) SetSampleRate(ctx context.Context, rateHz int64) error {
	if rateHz < MinSampleRateHz {
		return fmt.Errorf("%w: sample rate %d Hz is below the %d Hz floor", ErrInvalidParameter, rateHz, MinSampleRateHz)
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	profile := SelectFilterProfile(rateHz)
	t.log.Debug("changing sample rate",
		logging.F("rate_hz", rateHz),
		logging.F("decimation", profile.Decimation),
		logging.F("taps", profile.TapCount))

	current, err := t.phyReadInt(ctx, "voltage0", "sampling_frequency", false)
	if err != nil {
		return err
	}
	enabled, err := t.phyReadInt(ctx, "out", "voltage_filter_fir_en", false)
	if err != nil {
		return err
	}
	if enabled != 0 {
		if current <= narrowbandRateHz {
			// The filter cannot be dropped at a narrowband rate.
			t.log.Debug("parking at bootstrap rate before filter disable", logging.F("current_hz", current))
			if err := t.phyWriteInt(ctx, "voltage0", "sampling_frequency", false, bootstrapRateHz); err != nil {
				return err
			}
		}
		if err := t.phyWriteInt(ctx, "out", "voltage_filter_fir_en", false, 0); err != nil {
			return err
		}
	}

	if err := t.phyWriteDevAttr(ctx, "filter_fir_config", BuildFilterConfig(profile)); err != nil {
		return err
	}

	if rateHz <= narrowbandRateHz {
		rates, err := t.txPathRates(ctx)
		if err != nil {
			return err
		}
		if rates.maxTaps() < int64(profile.TapCount) {
			// Current clocking cannot drive the full filter; park first.
			t.log.Debug("parking at bootstrap rate before filter enable",
				logging.F("max_taps", rates.maxTaps()),
				logging.F("taps", profile.TapCount))
			if err := t.phyWriteInt(ctx, "voltage0", "sampling_frequency", false, bootstrapRateHz); err != nil {
				return err
			}
		}
		if err := t.phyWriteInt(ctx, "out", "voltage_filter_fir_en", false, 1); err != nil {
			return err
		}
		if err := t.phyWriteInt(ctx, "voltage0", "sampling_frequency", false, rateHz); err != nil {
			return err
		}
	} else {
		if err := t.phyWriteInt(ctx, "voltage0", "sampling_frequency", false, rateHz); err != nil {
			return err
		}
		if err := t.phyWriteInt(ctx, "out", "voltage_filter_fir_en", false, 1); err != nil {
			return err
		}
	}

	t.log.Info("sample rate set",
		logging.F("rate_hz", rateHz),
		logging.F("decimation", profile.Decimation),
		logging.F("taps", profile.TapCount))
	return nil
}
