package iqfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.wav")
	samples := []complex64{
		complex(0, 0),
		complex(1000, -1000),
		complex(32767, -32768),
		complex(-42, 17),
	}

	require.NoError(t, Write(path, 2000000, samples))

	rate, got, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, 2000000, rate)
	assert.Equal(t, samples, got)
}

func TestWriteClampsOutOfRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clamped.wav")
	require.NoError(t, Write(path, 1000000, []complex64{complex(40000, -40000)}))

	_, got, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, []complex64{complex(32767, -32768)}, got)
}

func TestWriteValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wav")
	require.Error(t, Write(path, 0, []complex64{1}))
	require.Error(t, Write(path, 1000000, nil))
}

func TestReadRejectsMono(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mono.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	enc := wav.NewEncoder(f, 48000, 16, 1, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: 48000},
		Data:           []int{1, 2, 3},
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())

	_, _, err = Read(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "want 2")
}

func TestReadMissingFile(t *testing.T) {
	_, _, err := Read(filepath.Join(t.TempDir(), "absent.wav"))
	require.Error(t, err)
}
