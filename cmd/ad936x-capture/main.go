// Command ad936x-capture tunes an AD936x receiver, grabs one buffer of IQ
// samples, and stores each channel as a stereo WAV file with I on the left
// and Q on the right. With -spectrum it also reports the strongest tone per
// channel. Settings persist to capture-config.json, so repeated runs only
// need the flags that change.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/GogoLike/ad936x-api/ad936x"
	"github.com/GogoLike/ad936x-api/internal/dsp"
	"github.com/GogoLike/ad936x-api/internal/logging"
	"github.com/GogoLike/ad936x-api/iqfile"
)

func main() {
	const configPath = "capture-config.json"

	persistentCfg, err := loadOrCreateConfig(configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	cfg, err := parseConfig(os.Args[1:], os.LookupEnv, persistentCfg)
	if err != nil {
		log.Fatalf("parse config: %v", err)
	}
	if err := saveConfig(configPath, persistentFromCLI(cfg)); err != nil {
		log.Fatalf("save config: %v", err)
	}

	level, err := logging.ParseLevel(cfg.logLevel)
	if err != nil {
		log.Fatalf("parse log level: %v", err)
	}
	logger := logging.New(level, logging.Text, os.Stderr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tr, err := openTransceiver(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("open transceiver: %v", err)
	}
	defer tr.Close()

	if err := capture(ctx, tr, cfg, os.Stdout); err != nil {
		log.Fatalf("capture: %v", err)
	}
}

type cliConfig struct {
	backend       string
	uri           string
	model         string
	sampleRate    float64
	rxLO          float64
	rxBandwidth   float64
	gainMode      string
	rxGain        float64
	channelPairs  int
	bufferSize    int
	warmupBuffers int
	toneOffset    float64
	outPath       string
	spectrum      bool
	logLevel      string
}

type persistentConfig struct {
	Backend       string  `json:"backend"`
	URI           string  `json:"uri"`
	Model         string  `json:"model"`
	SampleRate    float64 `json:"sample_rate"`
	RxLO          float64 `json:"rx_lo"`
	RxBandwidth   float64 `json:"rx_bandwidth"`
	GainMode      string  `json:"gain_mode"`
	RxGain        float64 `json:"rx_gain"`
	ChannelPairs  int     `json:"channel_pairs"`
	BufferSize    int     `json:"buffer_size"`
	WarmupBuffers int     `json:"warmup_buffers"`
	ToneOffset    float64 `json:"tone_offset"`
	OutPath       string  `json:"out_path"`
	Spectrum      bool    `json:"spectrum"`
	LogLevel      string  `json:"log_level"`
}

func parseConfig(args []string, lookup func(string) (string, bool), defaults persistentConfig) (cliConfig, error) {
	cfg := cliConfig{}
	fs := flag.NewFlagSet("ad936x-capture", flag.ContinueOnError)
	fs.StringVar(&cfg.backend, "backend", envString(lookup, "CAPTURE_BACKEND", defaults.Backend), "Transceiver backend (sim|iiod)")
	fs.StringVar(&cfg.uri, "uri", envString(lookup, "CAPTURE_URI", defaults.URI), "IIO daemon address (host:port, empty for mDNS discovery)")
	fs.StringVar(&cfg.model, "model", envString(lookup, "CAPTURE_MODEL", defaults.Model), "Chip variant (ad9361|ad9363|ad9364)")
	fs.Float64Var(&cfg.sampleRate, "sample-rate", envFloat(lookup, "CAPTURE_SAMPLE_RATE", defaults.SampleRate), "Sample rate in Hz")
	fs.Float64Var(&cfg.rxLO, "rx-lo", envFloat(lookup, "CAPTURE_RX_LO", defaults.RxLO), "RX LO frequency in Hz")
	fs.Float64Var(&cfg.rxBandwidth, "rx-bandwidth", envFloat(lookup, "CAPTURE_RX_BANDWIDTH", defaults.RxBandwidth), "RX RF bandwidth in Hz")
	fs.StringVar(&cfg.gainMode, "gain-mode", envString(lookup, "CAPTURE_GAIN_MODE", defaults.GainMode), "Gain control mode (manual|slow_attack|fast_attack)")
	fs.Float64Var(&cfg.rxGain, "rx-gain", envFloat(lookup, "CAPTURE_RX_GAIN", defaults.RxGain), "RX gain in dB (manual gain mode only)")
	fs.IntVar(&cfg.channelPairs, "pairs", envInt(lookup, "CAPTURE_PAIRS", defaults.ChannelPairs), "Complex channel pairs to capture")
	fs.IntVar(&cfg.bufferSize, "buffer-size", envInt(lookup, "CAPTURE_BUFFER_SIZE", defaults.BufferSize), "Samples per channel per buffer")
	fs.IntVar(&cfg.warmupBuffers, "warmup-buffers", envInt(lookup, "CAPTURE_WARMUP_BUFFERS", defaults.WarmupBuffers), "Number of RX buffers to discard for warm-up")
	fs.Float64Var(&cfg.toneOffset, "tone-offset", envFloat(lookup, "CAPTURE_TONE_OFFSET", defaults.ToneOffset), "Sim backend tone offset in Hz")
	fs.StringVar(&cfg.outPath, "out", envString(lookup, "CAPTURE_OUT", defaults.OutPath), "Output WAV path (channel 1+ gets a _chN suffix)")
	fs.BoolVar(&cfg.spectrum, "spectrum", envBool(lookup, "CAPTURE_SPECTRUM", defaults.Spectrum), "Print the peak tone per channel")
	fs.StringVar(&cfg.logLevel, "log-level", envString(lookup, "CAPTURE_LOG_LEVEL", defaults.LogLevel), "Log level (debug|info|warn|error)")

	if err := fs.Parse(args); err != nil {
		return cliConfig{}, err
	}
	return cfg, nil
}

func persistentFromCLI(cfg cliConfig) persistentConfig {
	return persistentConfig{
		Backend:       cfg.backend,
		URI:           cfg.uri,
		Model:         cfg.model,
		SampleRate:    cfg.sampleRate,
		RxLO:          cfg.rxLO,
		RxBandwidth:   cfg.rxBandwidth,
		GainMode:      cfg.gainMode,
		RxGain:        cfg.rxGain,
		ChannelPairs:  cfg.channelPairs,
		BufferSize:    cfg.bufferSize,
		WarmupBuffers: cfg.warmupBuffers,
		ToneOffset:    cfg.toneOffset,
		OutPath:       cfg.outPath,
		Spectrum:      cfg.spectrum,
		LogLevel:      cfg.logLevel,
	}
}

func loadOrCreateConfig(path string) (persistentConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := defaultPersistentConfig()
			if saveErr := saveConfig(path, cfg); saveErr != nil {
				return persistentConfig{}, saveErr
			}
			return cfg, nil
		}
		return persistentConfig{}, err
	}
	defer f.Close()

	var cfg persistentConfig
	if err := json.NewDecoder(f).Decode(&cfg); err != nil {
		return persistentConfig{}, err
	}
	return cfg, nil
}

func saveConfig(path string, cfg persistentConfig) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func defaultPersistentConfig() persistentConfig {
	return persistentConfig{
		Backend:       "sim",
		URI:           "",
		Model:         "ad9361",
		SampleRate:    2e6,
		RxLO:          2.4e9,
		RxBandwidth:   18e6,
		GainMode:      "slow_attack",
		RxGain:        40,
		ChannelPairs:  1,
		BufferSize:    1 << 12,
		WarmupBuffers: 3,
		ToneOffset:    100e3,
		OutPath:       "capture.wav",
		Spectrum:      false,
		LogLevel:      "info",
	}
}

func envFloat(lookup func(string) (string, bool), key string, def float64) float64 {
	if val, ok := lookup(key); ok {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return def
}

func envInt(lookup func(string) (string, bool), key string, def int) int {
	if val, ok := lookup(key); ok {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func envString(lookup func(string) (string, bool), key, def string) string {
	if val, ok := lookup(key); ok {
		return val
	}
	return def
}

func envBool(lookup func(string) (string, bool), key string, def bool) bool {
	if val, ok := lookup(key); ok {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return def
}

func openTransceiver(ctx context.Context, cfg cliConfig, logger logging.Logger) (*ad936x.Transceiver, error) {
	model, err := parseModel(cfg.model)
	if err != nil {
		return nil, err
	}
	base := ad936x.Config{
		URI:            cfg.uri,
		Model:          model,
		RXChannelPairs: cfg.channelPairs,
		RXBufferSize:   cfg.bufferSize,
		Logger:         logger,
	}
	switch cfg.backend {
	case "sim":
		sim := ad936x.NewSimConn()
		if cfg.toneOffset != 0 {
			sim.SetToneOffset(cfg.toneOffset)
		}
		return ad936x.Open(ctx, sim, base)
	case "iiod":
		return ad936x.OpenURI(ctx, base)
	default:
		return nil, fmt.Errorf("unknown backend %s", cfg.backend)
	}
}

func parseModel(s string) (ad936x.Model, error) {
	switch strings.ToLower(s) {
	case "", "ad9361":
		return ad936x.AD9361, nil
	case "ad9363":
		return ad936x.AD9363, nil
	case "ad9364":
		return ad936x.AD9364, nil
	default:
		return 0, fmt.Errorf("unknown model %s", s)
	}
}

func capture(ctx context.Context, tr *ad936x.Transceiver, cfg cliConfig, out io.Writer) error {
	if cfg.outPath == "" {
		return fmt.Errorf("output path is required")
	}
	if err := applySettings(ctx, tr, cfg); err != nil {
		return err
	}

	for i := 0; i < cfg.warmupBuffers; i++ {
		if _, err := tr.Receive(ctx); err != nil {
			return fmt.Errorf("warm-up buffer %d: %w", i, err)
		}
	}
	set, err := tr.Receive(ctx)
	if err != nil {
		return err
	}

	rate, err := tr.SampleRate(ctx)
	if err != nil {
		return err
	}

	channels := set.Channels()
	fmt.Fprintf(out, "captured %d samples on %d channel(s) at %d Hz\n", len(channels[0]), len(channels), rate)
	for i, ch := range channels {
		path := channelPath(cfg.outPath, i)
		if err := iqfile.Write(path, int(rate), ch); err != nil {
			return fmt.Errorf("write channel %d: %w", i, err)
		}
		fmt.Fprintf(out, "wrote %s\n", path)
	}

	if cfg.spectrum {
		printSpectrum(out, channels, float64(rate))
	}
	return nil
}

func applySettings(ctx context.Context, tr *ad936x.Transceiver, cfg cliConfig) error {
	if cfg.sampleRate > 0 {
		if err := tr.SetSampleRate(ctx, int64(cfg.sampleRate)); err != nil {
			return fmt.Errorf("set sample rate: %w", err)
		}
	}
	if cfg.rxLO > 0 {
		if err := tr.SetRXLO(ctx, int64(cfg.rxLO)); err != nil {
			return fmt.Errorf("set rx lo: %w", err)
		}
	}
	if cfg.rxBandwidth > 0 {
		if err := tr.SetRXRFBandwidth(ctx, int64(cfg.rxBandwidth)); err != nil {
			return fmt.Errorf("set rx bandwidth: %w", err)
		}
	}
	if cfg.gainMode != "" {
		if err := tr.SetGainControlMode(ctx, cfg.gainMode); err != nil {
			return fmt.Errorf("set gain mode: %w", err)
		}
	}
	if cfg.gainMode == "manual" {
		if err := tr.SetRXHardwareGain(ctx, cfg.rxGain); err != nil {
			return fmt.Errorf("set rx gain: %w", err)
		}
	}
	return nil
}

func printSpectrum(out io.Writer, channels [][]complex64, rateHz float64) {
	for i, ch := range channels {
		dbfs := dsp.Spectrum(ch)
		idx, level := dsp.PeakBin(dbfs)
		if idx < 0 {
			fmt.Fprintf(out, "channel %d: no signal\n", i)
			continue
		}
		freq := dsp.BinFrequency(idx, len(dbfs), rateHz)
		fmt.Fprintf(out, "channel %d peak: %.1f dBFS at %+.0f Hz\n", i, level, freq)
	}
}

// channelPath derives the per-channel file name: capture.wav stays as-is
// for channel 0, later channels become capture_ch1.wav and so on.
func channelPath(path string, channel int) string {
	if channel == 0 {
		return path
	}
	ext := filepath.Ext(path)
	return fmt.Sprintf("%s_ch%d%s", strings.TrimSuffix(path, ext), channel, ext)
}
