// Package iqfile stores complex baseband captures as two-channel WAV
// files: I on the left channel, Q on the right, raw converter codes as
// 16-bit PCM. The WAV header carries the capture rate, so files remain
// inspectable with standard audio tooling.
package iqfile

import (
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Write stores one channel's samples at the given capture rate.
func Write(path string, sampleRateHz int, samples []complex64) error {
	if sampleRateHz <= 0 {
		return fmt.Errorf("iqfile: sample rate %d Hz", sampleRateHz)
	}
	if len(samples) == 0 {
		return fmt.Errorf("iqfile: no samples to write")
	}

	data := make([]int, 0, len(samples)*2)
	for _, s := range samples {
		data = append(data, clamp(real(s)), clamp(imag(s)))
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: sampleRateHz},
		Data:           data,
		SourceBitDepth: 16,
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("iqfile: create %s: %w", path, err)
	}
	enc := wav.NewEncoder(f, sampleRateHz, 16, 2, 1)
	if err := enc.Write(buf); err != nil {
		f.Close()
		return fmt.Errorf("iqfile: write %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("iqfile: finalize %s: %w", path, err)
	}
	return f.Close()
}

// Read loads a capture file and returns its sample rate and samples.
func Read(path string) (int, []complex64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, nil, fmt.Errorf("iqfile: open %s: %w", path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return 0, nil, fmt.Errorf("iqfile: decode %s: %w", path, err)
	}
	if buf == nil || buf.Format == nil {
		return 0, nil, fmt.Errorf("iqfile: %s has no PCM data", path)
	}
	if buf.Format.NumChannels != 2 {
		return 0, nil, fmt.Errorf("iqfile: %s has %d channels, want 2 (I and Q)", path, buf.Format.NumChannels)
	}
	if len(buf.Data)%2 != 0 {
		return 0, nil, fmt.Errorf("iqfile: %s holds a torn final frame", path)
	}

	samples := make([]complex64, len(buf.Data)/2)
	for i := range samples {
		samples[i] = complex(float32(buf.Data[2*i]), float32(buf.Data[2*i+1]))
	}
	return buf.Format.SampleRate, samples, nil
}

func clamp(v float32) int {
	switch {
	case v > 32767:
		return 32767
	case v < -32768:
		return -32768
	}
	return int(v)
}
