package ad936x

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"sync"
)

// SimConn is an in-memory Conn with the attribute surface of a Pluto.
// It synthesizes a complex tone on capture, tracks pushed samples, and
// enforces the FIR load-before-enable ordering, which makes it usable
// both for tests and for running the tools without hardware.
type SimConn struct {
	mu      sync.Mutex
	attrs   map[string]string
	buffers map[string]simBuffer

	toneOffsetHz  float64
	phaseDeltaDeg float64
	pushed        []int16
}

type simBuffer struct {
	samples  int
	channels int
}

// NewSimConn returns a simulator booted into the Pluto power-on state:
// 30.72 MS/s, FIR disabled, slow-attack AGC.
func NewSimConn() *SimConn {
	c := &SimConn{
		attrs:        make(map[string]string),
		buffers:      make(map[string]simBuffer),
		toneOffsetHz: 100e3,
	}
	seed := map[string]string{
		c.key("voltage0", "sampling_frequency", false): "30720000",
		c.key("out", "voltage_filter_fir_en", false):   "0",
		c.key("voltage0", "gain_control_mode", false):  "slow_attack",
		c.key("voltage0", "hardwaregain", false):       "71.000000 dB",
		c.key("voltage0", "hardwaregain", true):        "-10.000000 dB",
		c.key("voltage0", "rf_bandwidth", false):       "18000000",
		c.key("voltage0", "rf_bandwidth", true):        "18000000",
		c.key("altvoltage0", "frequency", true):        "2400000000",
		c.key("altvoltage1", "frequency", true):        "2450000000",
	}
	for k, v := range seed {
		c.attrs[k] = v
	}
	return c
}

// SetToneOffset moves the synthesized RX tone, in Hz from center.
func (c *SimConn) SetToneOffset(hz float64) {
	c.mu.Lock()
	c.toneOffsetHz = hz
	c.mu.Unlock()
}

// SetPhaseDelta sets the phase offset of the second channel pair in
// degrees, for exercising multi-channel consumers.
func (c *SimConn) SetPhaseDelta(deg float64) {
	c.mu.Lock()
	c.phaseDeltaDeg = deg
	c.mu.Unlock()
}

// LastPush returns the most recently pushed TX samples.
func (c *SimConn) LastPush() []int16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int16{}, c.pushed...)
}

// SetAttr seeds or overrides a channel attribute.
func (c *SimConn) SetAttr(channel, attr string, output bool, value string) {
	c.mu.Lock()
	c.attrs[c.key(channel, attr, output)] = value
	c.mu.Unlock()
}

// SetDeviceAttr seeds or overrides a device attribute, e.g. a fixed
// tx_path_rates string.
func (c *SimConn) SetDeviceAttr(attr, value string) {
	c.mu.Lock()
	c.attrs[PhyDevice+":"+attr] = value
	c.mu.Unlock()
}

func (c *SimConn) key(channel, attr string, output bool) string {
	return PhyDevice + ":" + channelToken(channel, output) + ":" + attr
}

func (c *SimConn) Devices(ctx context.Context) ([]string, error) {
	return []string{PhyDevice, RXDataDevice, TXDataDevice}, nil
}

func (c *SimConn) ReadChannelAttr(ctx context.Context, device, channel, attr string, output bool) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.attrs[device+":"+channelToken(channel, output)+":"+attr]
	if !ok {
		return "", fmt.Errorf("no attribute %s on %s/%s", attr, device, channelToken(channel, output))
	}
	return v, nil
}

func (c *SimConn) WriteChannelAttr(ctx context.Context, device, channel, attr string, output bool, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if attr == "voltage_filter_fir_en" && strings.TrimSpace(value) != "0" {
		if _, loaded := c.attrs[PhyDevice+":filter_fir_config"]; !loaded {
			return fmt.Errorf("no FIR filter loaded")
		}
	}
	c.attrs[device+":"+channelToken(channel, output)+":"+attr] = value
	return nil
}

func (c *SimConn) ReadDeviceAttr(ctx context.Context, device, attr string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.attrs[device+":"+attr]; ok {
		return v, nil
	}
	if device == PhyDevice && attr == "tx_path_rates" {
		return c.derivedPathRates(), nil
	}
	return "", fmt.Errorf("no attribute %s on %s", attr, device)
}

// derivedPathRates models the clock chain as fixed ratios of the
// committed sample rate, which reproduces the hardware's tap-count limit
// at narrowband rates. Callers hold c.mu.
func (c *SimConn) derivedPathRates() string {
	rate := int64(30720000)
	if v, ok := c.attrs[c.key("voltage0", "sampling_frequency", false)]; ok {
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil && n > 0 {
			rate = n
		}
	}
	return fmt.Sprintf("BBPLL:%d DAC:%d T2:%d T1:%d TF:%d TXSAMP:%d",
		rate*32, rate*4, rate*2, rate, rate, rate)
}

func (c *SimConn) WriteDeviceAttr(ctx context.Context, device, attr, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attrs[device+":"+attr] = value
	return nil
}

func (c *SimConn) OpenBuffer(ctx context.Context, device string, samples int, channels []string, output, cyclic bool) error {
	if samples < 1 || len(channels) == 0 || len(channels)%2 != 0 {
		return fmt.Errorf("bad buffer geometry: %d samples, %d channels", samples, len(channels))
	}
	c.mu.Lock()
	c.buffers[device] = simBuffer{samples: samples, channels: len(channels)}
	c.mu.Unlock()
	return nil
}

func (c *SimConn) RefillBuffer(ctx context.Context, device string) ([]int16, error) {
	c.mu.Lock()
	buf, ok := c.buffers[device]
	tone := c.toneOffsetHz
	delta := c.phaseDeltaDeg * math.Pi / 180
	rateStr := c.attrs[c.key("voltage0", "sampling_frequency", false)]
	c.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("no open buffer on %s", device)
	}

	rate := 30720000.0
	if n, err := strconv.ParseFloat(strings.TrimSpace(rateStr), 64); err == nil && n > 0 {
		rate = n
	}
	pairs := buf.channels / 2
	const amplitude = 2000.0
	phaseStep := 2 * math.Pi * tone / rate

	out := make([]int16, 0, buf.samples*pairs*2)
	for i := 0; i < buf.samples; i++ {
		phase := phaseStep * float64(i)
		for p := 0; p < pairs; p++ {
			ph := phase + float64(p)*delta
			in := amplitude*math.Cos(ph) + rand.NormFloat64()*20
			qu := amplitude*math.Sin(ph) + rand.NormFloat64()*20
			out = append(out, clampInt16(float32(in)), clampInt16(float32(qu)))
		}
	}
	return out, nil
}

func (c *SimConn) PushBuffer(ctx context.Context, device string, samples []int16) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.buffers[device]; !ok {
		return fmt.Errorf("no open buffer on %s", device)
	}
	c.pushed = append([]int16{}, samples...)
	return nil
}

func (c *SimConn) CloseBuffer(ctx context.Context, device string) error {
	c.mu.Lock()
	delete(c.buffers, device)
	c.mu.Unlock()
	return nil
}

func (c *SimConn) Close() error { return nil }
