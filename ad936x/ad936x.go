// Package ad936x drives AD936x family transceivers (PlutoSDR and
// similar) over an IIO transport. It covers baseband sample-rate changes
// with the stock FIR filter tables, buffered capture and transmission of
// complex samples, and the usual gain, bandwidth and oscillator tuning
// attributes.
package ad936x

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/GogoLike/ad936x-api/internal/logging"
)

// IIO device names shared by the AD936x reference designs.
const (
	// PhyDevice is the control device carrying all tuning attributes.
	PhyDevice = "ad9361-phy"
	// RXDataDevice streams captured samples.
	RXDataDevice = "cf-ad9361-lpc"
	// TXDataDevice accepts samples for transmission.
	TXDataDevice = "cf-ad9361-dds-core-lpc"
)

// DefaultRXBufferSize is the capture depth used when Config leaves
// RXBufferSize unset, in samples per channel.
const DefaultRXBufferSize = 1024

// Model selects the chip variant. The variants share the register map;
// they differ in tuning range and channel count.
type Model int

const (
	AD9361 Model = iota
	AD9363
	AD9364
)

func (m Model) String() string {
	switch m {
	case AD9361:
		return "ad9361"
	case AD9363:
		return "ad9363"
	case AD9364:
		return "ad9364"
	}
	return fmt.Sprintf("Model(%d)", int(m))
}

// maxChannelPairs reports the complex channel count of the variant. The
// AD9364 is the single-channel part.
func (m Model) maxChannelPairs() int {
	if m == AD9364 {
		return 1
	}
	return 2
}

// Config describes how to reach and configure a transceiver.
type Config struct {
	// URI is the iiod daemon address as host:port. Leave empty to
	// discover a daemon on the local network via mDNS.
	URI string

	// Model selects the chip variant. The zero value is AD9361.
	Model Model

	// RXChannelPairs is how many complex channels to capture, within
	// the model's limit. Defaults to 1.
	RXChannelPairs int

	// RXBufferSize is the capture depth in samples per channel.
	// Defaults to DefaultRXBufferSize.
	RXBufferSize int

	// Logger receives progress and device traffic notes. Defaults to
	// a no-op logger.
	Logger logging.Logger
}

// Transceiver is a handle on one AD936x chip. Methods serialize against
// each other, so a rate change cannot interleave with a capture.
type Transceiver struct {
	mu   sync.Mutex
	conn Conn
	cfg  Config
	log  logging.Logger

	rxOpen    bool
	txSamples int
	txPairs   int
	last      SampleSet
	hasLast   bool
}

// Open wires a Transceiver to an established transport and verifies the
// expected devices are present. The RX capture buffer is claimed up
// front so the first Receive returns data immediately.
func Open(ctx context.Context, conn Conn, cfg Config) (*Transceiver, error) {
	if cfg.RXChannelPairs == 0 {
		cfg.RXChannelPairs = 1
	}
	if cfg.RXBufferSize == 0 {
		cfg.RXBufferSize = DefaultRXBufferSize
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Nop()
	}
	if cfg.RXChannelPairs < 1 || cfg.RXChannelPairs > cfg.Model.maxChannelPairs() {
		return nil, fmt.Errorf("%w: %s supports 1 to %d channel pairs, requested %d",
			ErrInvalidParameter, cfg.Model, cfg.Model.maxChannelPairs(), cfg.RXChannelPairs)
	}
	if cfg.RXBufferSize < 1 {
		return nil, fmt.Errorf("%w: rx buffer size %d", ErrInvalidParameter, cfg.RXBufferSize)
	}

	t := &Transceiver{conn: conn, cfg: cfg, log: cfg.Logger}

	names, err := conn.Devices(ctx)
	if err != nil {
		return nil, deviceErr("list-devices", "", "", "", err)
	}
	present := make(map[string]bool, len(names))
	for _, n := range names {
		present[n] = true
	}
	for _, want := range []string{PhyDevice, RXDataDevice, TXDataDevice} {
		if !present[want] {
			return nil, fmt.Errorf("no device found with name %s", want)
		}
	}

	if err := t.openRX(ctx); err != nil {
		if !errors.Is(err, ErrUnsupported) {
			return nil, err
		}
		// Attribute-only transports still serve tuning and rate changes.
		t.log.Warn("capture unavailable on this transport", logging.Err(err))
	}
	t.log.Info("transceiver ready",
		logging.F("model", cfg.Model.String()),
		logging.F("rx_pairs", cfg.RXChannelPairs),
		logging.F("rx_buffer", cfg.RXBufferSize))
	return t, nil
}

// scanChannels lists the data-device scan elements for n complex
// channels, two converters per pair.
func scanChannels(pairs int) []string {
	chans := make([]string, 0, pairs*2)
	for i := 0; i < pairs*2; i++ {
		chans = append(chans, fmt.Sprintf("voltage%d", i))
	}
	return chans
}

func (t *Transceiver) openRX(ctx context.Context) error {
	err := t.conn.OpenBuffer(ctx, RXDataDevice, t.cfg.RXBufferSize, scanChannels(t.cfg.RXChannelPairs), false, false)
	if err != nil {
		return deviceErr("open-buffer", RXDataDevice, "", "", err)
	}
	t.rxOpen = true
	return nil
}

// Receive blocks for one buffer refill and returns the assembled complex
// samples, one sequence per configured channel pair. The result is also
// cached for LastCapture.
func (t *Transceiver) Receive(ctx context.Context) (SampleSet, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.rxOpen {
		if err := t.openRX(ctx); err != nil {
			return SampleSet{}, err
		}
	}
	raw, err := t.conn.RefillBuffer(ctx, RXDataDevice)
	if err != nil {
		return SampleSet{}, deviceErr("refill", RXDataDevice, "", "", err)
	}
	comps := make([]float32, len(raw))
	for i, v := range raw {
		comps[i] = float32(v)
	}
	set, err := AssembleComplexSamples(comps, t.cfg.RXChannelPairs)
	if err != nil {
		return SampleSet{}, err
	}
	// Cache a copy so the caller owns the returned slices outright.
	t.last, t.hasLast = set.clone(), true
	t.log.Debug("captured buffer",
		logging.F("pairs", set.NumChannels()),
		logging.F("samples", len(raw)/2))
	return set, nil
}

// LastCapture returns a copy of the most recent Receive result without
// touching the hardware.
func (t *Transceiver) LastCapture() (SampleSet, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.hasLast {
		return SampleSet{}, false
	}
	return t.last.clone(), true
}

// Transmit pushes one buffer of complex samples, one sequence per TX
// channel pair. Sample values are raw DAC codes in the int16 range;
// out-of-range values saturate. All sequences must have equal length.
func (t *Transceiver) Transmit(ctx context.Context, channels [][]complex64) error {
	if len(channels) < 1 || len(channels) > t.cfg.Model.maxChannelPairs() {
		return fmt.Errorf("%w: %d tx channels", ErrInvalidParameter, len(channels))
	}
	n := len(channels[0])
	for _, ch := range channels[1:] {
		if len(ch) != n {
			return fmt.Errorf("%w: tx channels differ in length", ErrInvalidParameter)
		}
	}
	if n == 0 {
		return fmt.Errorf("%w: empty tx buffer", ErrInvalidParameter)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// The open buffer is only reusable when both its depth and its
	// scan-channel mask still match; a changed pair count would leave
	// the pushed frames misaligned with the enabled converters.
	if t.txSamples != 0 && (t.txSamples != n || t.txPairs != len(channels)) {
		if err := t.conn.CloseBuffer(ctx, TXDataDevice); err != nil {
			return deviceErr("close-buffer", TXDataDevice, "", "", err)
		}
		t.txSamples = 0
		t.txPairs = 0
	}
	if t.txSamples == 0 {
		err := t.conn.OpenBuffer(ctx, TXDataDevice, n, scanChannels(len(channels)), true, false)
		if err != nil {
			return deviceErr("open-buffer", TXDataDevice, "", "", err)
		}
		t.txSamples = n
		t.txPairs = len(channels)
	}

	raw := make([]int16, 0, n*len(channels)*2)
	for i := 0; i < n; i++ {
		for _, ch := range channels {
			raw = append(raw, clampInt16(real(ch[i])), clampInt16(imag(ch[i])))
		}
	}
	if err := t.conn.PushBuffer(ctx, TXDataDevice, raw); err != nil {
		return deviceErr("push", TXDataDevice, "", "", err)
	}
	t.log.Debug("pushed buffer",
		logging.F("pairs", len(channels)),
		logging.F("samples", n))
	return nil
}

func clampInt16(v float32) int16 {
	switch {
	case v > 32767:
		return 32767
	case v < -32768:
		return -32768
	}
	return int16(v)
}

// RXBufferSize reports the current capture depth in samples per channel.
func (t *Transceiver) RXBufferSize() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cfg.RXBufferSize
}

// SetRXBufferSize changes the capture depth, reopening the RX buffer
// when one is already claimed.
func (t *Transceiver) SetRXBufferSize(ctx context.Context, samples int) error {
	if samples < 1 {
		return fmt.Errorf("%w: rx buffer size %d", ErrInvalidParameter, samples)
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if samples == t.cfg.RXBufferSize {
		return nil
	}
	if t.rxOpen {
		if err := t.conn.CloseBuffer(ctx, RXDataDevice); err != nil {
			return deviceErr("close-buffer", RXDataDevice, "", "", err)
		}
		t.rxOpen = false
	}
	t.cfg.RXBufferSize = samples
	return t.openRX(ctx)
}

// Close releases claimed buffers and the underlying transport.
func (t *Transceiver) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	ctx := context.Background()
	if t.rxOpen {
		if err := t.conn.CloseBuffer(ctx, RXDataDevice); err != nil {
			t.log.Warn("rx buffer close failed", logging.Err(err))
		}
		t.rxOpen = false
	}
	if t.txSamples != 0 {
		if err := t.conn.CloseBuffer(ctx, TXDataDevice); err != nil {
			t.log.Warn("tx buffer close failed", logging.Err(err))
		}
		t.txSamples = 0
		t.txPairs = 0
	}
	return t.conn.Close()
}
