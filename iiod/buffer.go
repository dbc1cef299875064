package iiod

import (
	"context"
	"encoding/binary"
	"fmt"
	"strings"
)

// Buffer is an open sample buffer on one device. The daemon allows a single
// buffer per device, so the device name doubles as the handle.
type Buffer struct {
	Device   string
	Samples  int
	Channels []string
	Cyclic   bool
}

// OpenBuffer enables the given scan channels and opens a buffer of the
// requested depth on the device. Channels are enabled through their "en"
// attribute before OPEN, mirroring the order the kernel expects.
func (c *Client) OpenBuffer(ctx context.Context, device string, samples int, channels []string, cyclic bool) (*Buffer, error) {
	if strings.TrimSpace(device) == "" {
		return nil, fmt.Errorf("iiod: device name is required")
	}
	if samples <= 0 {
		return nil, fmt.Errorf("iiod: sample count must be positive, got %d", samples)
	}
	if len(channels) == 0 {
		return nil, fmt.Errorf("iiod: at least one scan channel is required")
	}

	for _, ch := range channels {
		if err := c.WriteAttr(ctx, device, ch, "en", "1"); err != nil {
			return nil, fmt.Errorf("enable channel %s: %w", ch, err)
		}
	}

	cmd := fmt.Sprintf("OPEN %s %d", device, samples)
	if cyclic {
		cmd += " CYCLIC"
	}
	if _, err := c.sendCommandString(ctx, cmd); err != nil {
		return nil, err
	}

	return &Buffer{
		Device:   device,
		Samples:  samples,
		Channels: append([]string{}, channels...),
		Cyclic:   cyclic,
	}, nil
}

// ReadBuffer fetches one refill of the buffer as raw little-endian bytes.
func (c *Client) ReadBuffer(ctx context.Context, buf *Buffer) ([]byte, error) {
	if buf == nil {
		return nil, fmt.Errorf("iiod: nil buffer")
	}
	return c.sendBinaryCommand(ctx, fmt.Sprintf("READBUF %s %d", buf.Device, buf.Samples), nil)
}

// WriteBuffer pushes raw sample bytes into the device buffer.
func (c *Client) WriteBuffer(ctx context.Context, buf *Buffer, data []byte) error {
	if buf == nil {
		return fmt.Errorf("iiod: nil buffer")
	}
	if len(data) == 0 {
		return fmt.Errorf("iiod: no data for buffer write")
	}
	_, err := c.sendBinaryCommand(ctx, fmt.Sprintf("WRITEBUF %s %d", buf.Device, len(data)), data)
	return err
}

// CloseBuffer releases the device buffer.
func (c *Client) CloseBuffer(ctx context.Context, buf *Buffer) error {
	if buf == nil {
		return nil
	}
	_, err := c.sendCommandString(ctx, fmt.Sprintf("CLOSE %s", buf.Device))
	return err
}

// ParseInt16Samples converts a little-endian byte payload into int16
// samples. The byte count must be even.
func ParseInt16Samples(raw []byte) ([]int16, error) {
	if len(raw)%2 != 0 {
		return nil, fmt.Errorf("iiod: odd payload length %d", len(raw))
	}
	samples := make([]int16, len(raw)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
	}
	return samples, nil
}

// FormatInt16Samples converts int16 samples into the little-endian byte
// layout the daemon expects.
func FormatInt16Samples(samples []int16) []byte {
	raw := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(raw[i*2:], uint16(s))
	}
	return raw
}

// DeinterleaveIQ extracts the I and Q component streams of one channel from
// a flat buffer holding numChannels interleaved I/Q pairs per frame:
// [I0c0 Q0c0 I0c1 Q0c1 ...].
func DeinterleaveIQ(samples []int16, numChannels, channelIndex int) ([]int16, []int16, error) {
	if numChannels <= 0 {
		return nil, nil, fmt.Errorf("iiod: channel count must be positive, got %d", numChannels)
	}
	if channelIndex < 0 || channelIndex >= numChannels {
		return nil, nil, fmt.Errorf("iiod: channel index %d out of range [0,%d)", channelIndex, numChannels)
	}
	frame := numChannels * 2
	if len(samples)%frame != 0 {
		return nil, nil, fmt.Errorf("iiod: buffer length %d not a multiple of frame size %d", len(samples), frame)
	}

	n := len(samples) / frame
	i16 := make([]int16, n)
	q16 := make([]int16, n)
	for i := 0; i < n; i++ {
		base := i*frame + channelIndex*2
		i16[i] = samples[base]
		q16[i] = samples[base+1]
	}
	return i16, q16, nil
}

// InterleaveIQ builds a flat transmit buffer from per-channel {I, Q}
// component pairs. All component slices must share one length.
func InterleaveIQ(channels [][][]int16) ([]int16, error) {
	if len(channels) == 0 {
		return nil, fmt.Errorf("iiod: no channels to interleave")
	}
	n := -1
	for idx, pair := range channels {
		if len(pair) != 2 {
			return nil, fmt.Errorf("iiod: channel %d must hold an I and a Q slice", idx)
		}
		if len(pair[0]) != len(pair[1]) {
			return nil, fmt.Errorf("iiod: channel %d I/Q length mismatch: %d vs %d", idx, len(pair[0]), len(pair[1]))
		}
		if n == -1 {
			n = len(pair[0])
		} else if len(pair[0]) != n {
			return nil, fmt.Errorf("iiod: channel %d length %d differs from %d", idx, len(pair[0]), n)
		}
	}

	out := make([]int16, 0, n*len(channels)*2)
	for i := 0; i < n; i++ {
		for _, pair := range channels {
			out = append(out, pair[0][i], pair[1][i])
		}
	}
	return out, nil
}
