package ad936x

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSysfsSSHDefaults(t *testing.T) {
	s, err := NewSysfsSSH(SysfsConfig{Host: "192.168.2.1", Password: "analog"})
	require.NoError(t, err)
	assert.Equal(t, "root", s.cfg.User)
	assert.Equal(t, 22, s.cfg.Port)
	assert.Equal(t, "/sys/bus/iio/devices", s.cfg.SysfsRoot)

	_, err = NewSysfsSSH(SysfsConfig{})
	require.Error(t, err)
}

func TestSysfsAttrPaths(t *testing.T) {
	s, err := NewSysfsSSH(SysfsConfig{Host: "192.168.2.1", Password: "analog"})
	require.NoError(t, err)
	s.devices = map[string]string{
		PhyDevice:    "/sys/bus/iio/devices/iio:device0",
		RXDataDevice: "/sys/bus/iio/devices/iio:device2",
	}

	ctx := context.Background()
	cases := []struct {
		channel string
		attr    string
		output  bool
		want    string
	}{
		{"voltage0", "sampling_frequency", false, "/sys/bus/iio/devices/iio:device0/in_voltage0_sampling_frequency"},
		{"out", "voltage_filter_fir_en", false, "/sys/bus/iio/devices/iio:device0/in_out_voltage_filter_fir_en"},
		{"altvoltage0", "frequency", true, "/sys/bus/iio/devices/iio:device0/out_altvoltage0_frequency"},
		{"voltage0", "hardwaregain", true, "/sys/bus/iio/devices/iio:device0/out_voltage0_hardwaregain"},
		{"", "filter_fir_config", false, "/sys/bus/iio/devices/iio:device0/filter_fir_config"},
	}
	for _, tc := range cases {
		got, err := s.attrPath(ctx, PhyDevice, tc.channel, tc.attr, tc.output)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}
}

func TestSysfsUnknownDevice(t *testing.T) {
	s, err := NewSysfsSSH(SysfsConfig{Host: "192.168.2.1", Password: "analog"})
	require.NoError(t, err)
	s.devices = map[string]string{PhyDevice: "/sys/bus/iio/devices/iio:device0"}

	_, err = s.attrPath(context.Background(), "nope", "voltage0", "sampling_frequency", false)
	require.EqualError(t, err, "no device found with name nope")
}

func TestSysfsBuffersUnsupported(t *testing.T) {
	s, err := NewSysfsSSH(SysfsConfig{Host: "192.168.2.1", Password: "analog"})
	require.NoError(t, err)

	ctx := context.Background()
	assert.ErrorIs(t, s.OpenBuffer(ctx, RXDataDevice, 16, []string{"voltage0", "voltage1"}, false, false), ErrUnsupported)
	_, rerr := s.RefillBuffer(ctx, RXDataDevice)
	assert.ErrorIs(t, rerr, ErrUnsupported)
	assert.ErrorIs(t, s.PushBuffer(ctx, TXDataDevice, []int16{1}), ErrUnsupported)
	assert.ErrorIs(t, s.CloseBuffer(ctx, RXDataDevice), ErrUnsupported)
}

func TestShellQuote(t *testing.T) {
	assert.Equal(t, `'plain'`, shellQuote("plain"))
	assert.Equal(t, `'two words'`, shellQuote("two words"))
	assert.Equal(t, `'it'\''s'`, shellQuote("it's"))
}
