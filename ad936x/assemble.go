package ad936x

import "fmt"

// SampleSet holds the complex baseband samples recovered from one buffer
// refill, one sequence per enabled channel pair. Values keep the raw
// converter scale; no normalization is applied.
type SampleSet struct {
	channels [][]complex64
}

// NumChannels reports how many channel sequences the set carries.
func (s SampleSet) NumChannels() int { return len(s.channels) }

// Channels returns the per-channel sample sequences.
func (s SampleSet) Channels() [][]complex64 { return s.channels }

// Single returns the sole sequence when exactly one channel was captured.
func (s SampleSet) Single() ([]complex64, bool) {
	if len(s.channels) != 1 {
		return nil, false
	}
	return s.channels[0], true
}

// clone returns a set whose sequences share no backing storage with s.
func (s SampleSet) clone() SampleSet {
	channels := make([][]complex64, len(s.channels))
	for i, ch := range s.channels {
		channels[i] = append([]complex64(nil), ch...)
	}
	return SampleSet{channels: channels}
}

// AssembleComplexSamples reconstructs complex samples from a flat buffer
// of interleaved real components. Consecutive elements pair up as
// (I, Q) = (raw[2i], raw[2i+1]); with multiple channels the pairs cycle
// through the channels in capture order, one frame per channel per step.
//
// An odd component count, or a pair count that does not divide evenly
// across the channels, means the buffer was torn in transit and yields
// ErrDataIntegrity with no partial result.
func AssembleComplexSamples(raw []float32, numChannels int) (SampleSet, error) {
	if numChannels < 1 {
		return SampleSet{}, fmt.Errorf("%w: channel count %d", ErrInvalidParameter, numChannels)
	}
	if len(raw)%2 != 0 {
		return SampleSet{}, fmt.Errorf("%w: %d components cannot form complex pairs", ErrDataIntegrity, len(raw))
	}
	pairs := len(raw) / 2
	if pairs%numChannels != 0 {
		return SampleSet{}, fmt.Errorf("%w: %d pairs do not fill %d channels evenly", ErrDataIntegrity, pairs, numChannels)
	}
	perChannel := pairs / numChannels
	channels := make([][]complex64, numChannels)
	for ch := range channels {
		channels[ch] = make([]complex64, 0, perChannel)
	}
	for i := 0; i < pairs; i++ {
		ch := i % numChannels
		channels[ch] = append(channels[ch], complex(raw[2*i], raw[2*i+1]))
	}
	return SampleSet{channels: channels}, nil
}
