// Command ad936x-play reads an IQ recording from a stereo WAV file and
// pushes it through the AD936x transmit chain. It is the counterpart of
// ad936x-capture, so a capture from one board can be replayed on another.
// Settings persist to play-config.json.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"github.com/GogoLike/ad936x-api/ad936x"
	"github.com/GogoLike/ad936x-api/internal/logging"
	"github.com/GogoLike/ad936x-api/iqfile"
)

func main() {
	const configPath = "play-config.json"

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

	if err := play(ctx, tr, cfg, os.Stdout); err != nil {
		log.Fatalf("play: %v", err)
	}
}

type cliConfig struct {
	backend  string
	uri      string
	file     string
	txLO     float64
	txGain   float64
	rate     float64
	repeat   int
	logLevel string
}

type persistentConfig struct {
	Backend  string  `json:"backend"`
	URI      string  `json:"uri"`
	File     string  `json:"file"`
	TxLO     float64 `json:"tx_lo"`
	TxGain   float64 `json:"tx_gain"`
	Rate     float64 `json:"sample_rate"`
	Repeat   int     `json:"repeat"`
	LogLevel string  `json:"log_level"`
}

func parseConfig(args []string, lookup func(string) (string, bool), defaults persistentConfig) (cliConfig, error) {
	cfg := cliConfig{}
	fs := flag.NewFlagSet("ad936x-play", flag.ContinueOnError)
	fs.StringVar(&cfg.backend, "backend", envString(lookup, "PLAY_BACKEND", defaults.Backend), "Transceiver backend (sim|iiod)")
	fs.StringVar(&cfg.uri, "uri", envString(lookup, "PLAY_URI", defaults.URI), "IIO daemon address (host:port, empty for mDNS discovery)")
	fs.StringVar(&cfg.file, "file", envString(lookup, "PLAY_FILE", defaults.File), "Input WAV path (I left, Q right)")
	fs.Float64Var(&cfg.txLO, "tx-lo", envFloat(lookup, "PLAY_TX_LO", defaults.TxLO), "TX LO frequency in Hz")
	fs.Float64Var(&cfg.txGain, "tx-gain", envFloat(lookup, "PLAY_TX_GAIN", defaults.TxGain), "TX gain in dB")
	fs.Float64Var(&cfg.rate, "rate", envFloat(lookup, "PLAY_SAMPLE_RATE", defaults.Rate), "Sample rate in Hz (0 uses the recording's rate)")
	fs.IntVar(&cfg.repeat, "repeat", envInt(lookup, "PLAY_REPEAT", defaults.Repeat), "How many times to push the recording")
	fs.StringVar(&cfg.logLevel, "log-level", envString(lookup, "PLAY_LOG_LEVEL", defaults.LogLevel), "Log level (debug|info|warn|error)")

	if err := fs.Parse(args); err != nil {
		return cliConfig{}, err
	}
	return cfg, nil
}

func persistentFromCLI(cfg cliConfig) persistentConfig {
	return persistentConfig{
		Backend:  cfg.backend,
		URI:      cfg.uri,
		File:     cfg.file,
		TxLO:     cfg.txLO,
		TxGain:   cfg.txGain,
		Rate:     cfg.rate,
		Repeat:   cfg.repeat,
		LogLevel: cfg.logLevel,
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
		Backend:  "sim",
		URI:      "",
		File:     "capture.wav",
		TxLO:     2.45e9,
		TxGain:   -10,
		Rate:     0,
		Repeat:   1,
		LogLevel: "info",
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

func openTransceiver(ctx context.Context, cfg cliConfig, logger logging.Logger) (*ad936x.Transceiver, error) {
	base := ad936x.Config{
		URI:    cfg.uri,
		Logger: logger,
	}
	switch cfg.backend {
	case "sim":
		return ad936x.Open(ctx, ad936x.NewSimConn(), base)
	case "iiod":
		return ad936x.OpenURI(ctx, base)
	default:
		return nil, fmt.Errorf("unknown backend %s", cfg.backend)
	}
}

func play(ctx context.Context, tr *ad936x.Transceiver, cfg cliConfig, out io.Writer) error {
	if cfg.file == "" {
		return fmt.Errorf("input file is required")
	}
	fileRate, samples, err := iqfile.Read(cfg.file)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		return fmt.Errorf("%s holds no samples", cfg.file)
	}

	rate := int64(cfg.rate)
	if rate == 0 {
		rate = int64(fileRate)
	}
	if err := tr.SetSampleRate(ctx, rate); err != nil {
		return fmt.Errorf("set sample rate: %w", err)
	}
	if cfg.txLO > 0 {
		if err := tr.SetTXLO(ctx, int64(cfg.txLO)); err != nil {
			return fmt.Errorf("set tx lo: %w", err)
		}
	}
	if err := tr.SetTXHardwareGain(ctx, cfg.txGain); err != nil {
		return fmt.Errorf("set tx gain: %w", err)
	}

	repeat := cfg.repeat
	if repeat < 1 {
		repeat = 1
	}
	for i := 0; i < repeat; i++ {
		if err := tr.Transmit(ctx, [][]complex64{samples}); err != nil {
			return fmt.Errorf("push buffer %d: %w", i, err)
		}
	}
	fmt.Fprintf(out, "pushed %d samples x %d at %d Hz\n", len(samples), repeat, rate)
	return nil
}
