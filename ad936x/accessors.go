package ad936x

import "context"

// Pass-through tuning accessors. Each maps one public knob onto a phy
// channel attribute; values go to the device untouched apart from
// numeric formatting.

// GainControlMode reports the RX AGC mode. The hardware offers
// slow_attack, fast_attack and manual.
func (t *Transceiver) GainControlMode(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phyReadStr(ctx, "voltage0", "gain_control_mode", false)
}

func (t *Transceiver) SetGainControlMode(ctx context.Context, mode string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phyWriteStr(ctx, "voltage0", "gain_control_mode", false, mode)
}

// RXHardwareGain reports the gain applied to the RX path in dB.
func (t *Transceiver) RXHardwareGain(ctx context.Context) (float64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phyReadFloat(ctx, "voltage0", "hardwaregain", false)
}

// SetRXHardwareGain sets the RX gain in dB. The write only takes effect
// in manual gain mode; under AGC it is skipped, matching the driver's
// behavior of ignoring manual gain while the loop owns the setting.
func (t *Transceiver) SetRXHardwareGain(ctx context.Context, gainDB float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	mode, err := t.phyReadStr(ctx, "voltage0", "gain_control_mode", false)
	if err != nil {
		return err
	}
	if mode != "manual" {
		t.log.Debug("rx gain write skipped: agc owns the gain")
		return nil
	}
	return t.phyWriteFloat(ctx, "voltage0", "hardwaregain", false, gainDB)
}

// TXHardwareGain reports the TX attenuation in dB, 0 or negative.
func (t *Transceiver) TXHardwareGain(ctx context.Context) (float64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phyReadFloat(ctx, "voltage0", "hardwaregain", true)
}

func (t *Transceiver) SetTXHardwareGain(ctx context.Context, gainDB float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phyWriteFloat(ctx, "voltage0", "hardwaregain", true, gainDB)
}

// RXRFBandwidth reports the RX analog front-end filter bandwidth in Hz.
func (t *Transceiver) RXRFBandwidth(ctx context.Context) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phyReadInt(ctx, "voltage0", "rf_bandwidth", false)
}

func (t *Transceiver) SetRXRFBandwidth(ctx context.Context, hz int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phyWriteInt(ctx, "voltage0", "rf_bandwidth", false, hz)
}

// TXRFBandwidth reports the TX analog front-end filter bandwidth in Hz.
func (t *Transceiver) TXRFBandwidth(ctx context.Context) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phyReadInt(ctx, "voltage0", "rf_bandwidth", true)
}

func (t *Transceiver) SetTXRFBandwidth(ctx context.Context, hz int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phyWriteInt(ctx, "voltage0", "rf_bandwidth", true, hz)
}

// SampleRate reports the current baseband rate in Hz. Changing the rate
// goes through SetSampleRate, which also reprograms the FIR filter.
func (t *Transceiver) SampleRate(ctx context.Context) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phyReadInt(ctx, "voltage0", "sampling_frequency", false)
}

// RXLO reports the RX carrier frequency in Hz.
func (t *Transceiver) RXLO(ctx context.Context) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phyReadInt(ctx, "altvoltage0", "frequency", true)
}

func (t *Transceiver) SetRXLO(ctx context.Context, hz int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phyWriteInt(ctx, "altvoltage0", "frequency", true, hz)
}

// TXLO reports the TX carrier frequency in Hz.
func (t *Transceiver) TXLO(ctx context.Context) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phyReadInt(ctx, "altvoltage1", "frequency", true)
}

func (t *Transceiver) SetTXLO(ctx context.Context, hz int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phyWriteInt(ctx, "altvoltage1", "frequency", true, hz)
}
