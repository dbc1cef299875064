// Command ad936x-rate reads or changes the baseband sample rate of an
// AD936x transceiver and reports which programmable FIR profile serves it.
// With -analyze it skips the device entirely and prints the frequency
// response of the profile that would serve -rate. Settings persist to
// rate-config.json.
//
// Besides the iiod network backend this tool can drive a board over SSH
// through the kernel's sysfs attributes, which works even when the iiod
// daemon is not running.
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
	"strings"

	"github.com/GogoLike/ad936x-api/ad936x"
	"github.com/GogoLike/ad936x-api/internal/dsp"
	"github.com/GogoLike/ad936x-api/internal/logging"
)

func main() {
	const configPath = "rate-config.json"

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

	if cfg.analyze {
		report, err := analyzeProfile(int64(cfg.rate), cfg.nfft)
		if err != nil {
			log.Fatalf("analyze: %v", err)
		}
		fmt.Print(report)
		return
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

	if err := runRate(ctx, tr, cfg, os.Stdout); err != nil {
		log.Fatalf("rate: %v", err)
	}
}

type cliConfig struct {
	backend     string
	uri         string
	rate        float64
	analyze     bool
	nfft        int
	sshHost     string
	sshUser     string
	sshPassword string
	sshKeyPath  string
	logLevel    string
}

type persistentConfig struct {
	Backend    string  `json:"backend"`
	URI        string  `json:"uri"`
	Rate       float64 `json:"sample_rate"`
	NFFT       int     `json:"nfft"`
	SSHHost    string  `json:"ssh_host"`
	SSHUser    string  `json:"ssh_user"`
	SSHKeyPath string  `json:"ssh_key"`
	LogLevel   string  `json:"log_level"`
}

func parseConfig(args []string, lookup func(string) (string, bool), defaults persistentConfig) (cliConfig, error) {
	cfg := cliConfig{}
	fs := flag.NewFlagSet("ad936x-rate", flag.ContinueOnError)
	fs.StringVar(&cfg.backend, "backend", envString(lookup, "RATE_BACKEND", defaults.Backend), "Transceiver backend (sim|iiod|sysfs)")
	fs.StringVar(&cfg.uri, "uri", envString(lookup, "RATE_URI", defaults.URI), "IIO daemon address (host:port, empty for mDNS discovery)")
	fs.Float64Var(&cfg.rate, "rate", envFloat(lookup, "RATE_SAMPLE_RATE", defaults.Rate), "Sample rate in Hz to apply (0 only reads)")
	fs.BoolVar(&cfg.analyze, "analyze", false, "Print the FIR response serving -rate without touching a device")
	fs.IntVar(&cfg.nfft, "nfft", envInt(lookup, "RATE_NFFT", defaults.NFFT), "FFT length for -analyze")
	fs.StringVar(&cfg.sshHost, "ssh-host", envString(lookup, "RATE_SSH_HOST", defaults.SSHHost), "Board address for the sysfs backend")
	fs.StringVar(&cfg.sshUser, "ssh-user", envString(lookup, "RATE_SSH_USER", defaults.SSHUser), "SSH user for the sysfs backend")
	fs.StringVar(&cfg.sshPassword, "ssh-password", "", "SSH password for the sysfs backend (never persisted)")
	fs.StringVar(&cfg.sshKeyPath, "ssh-key", envString(lookup, "RATE_SSH_KEY", defaults.SSHKeyPath), "SSH private key path for the sysfs backend")
	fs.StringVar(&cfg.logLevel, "log-level", envString(lookup, "RATE_LOG_LEVEL", defaults.LogLevel), "Log level (debug|info|warn|error)")

	if err := fs.Parse(args); err != nil {
		return cliConfig{}, err
	}
	return cfg, nil
}

func persistentFromCLI(cfg cliConfig) persistentConfig {
	return persistentConfig{
		Backend:    cfg.backend,
		URI:        cfg.uri,
		Rate:       cfg.rate,
		NFFT:       cfg.nfft,
		SSHHost:    cfg.sshHost,
		SSHUser:    cfg.sshUser,
		SSHKeyPath: cfg.sshKeyPath,
		LogLevel:   cfg.logLevel,
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
		Rate:     0,
		NFFT:     512,
		SSHHost:  "192.168.2.1",
		SSHUser:  "root",
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
	case "sysfs":
		conn, err := ad936x.NewSysfsSSH(ad936x.SysfsConfig{
			Host:     cfg.sshHost,
			User:     cfg.sshUser,
			Password: cfg.sshPassword,
			KeyPath:  cfg.sshKeyPath,
		})
		if err != nil {
			return nil, err
		}
		return ad936x.Open(ctx, conn, base)
	default:
		return nil, fmt.Errorf("unknown backend %s", cfg.backend)
	}
}

func runRate(ctx context.Context, tr *ad936x.Transceiver, cfg cliConfig, out io.Writer) error {
	if cfg.rate > 0 {
		if err := tr.SetSampleRate(ctx, int64(cfg.rate)); err != nil {
			return err
		}
	}

	rate, err := tr.SampleRate(ctx)
	if err != nil {
		return err
	}
	profile := ad936x.SelectFilterProfile(rate)
	fmt.Fprintf(out, "sample rate: %d Hz\n", rate)
	fmt.Fprintf(out, "fir profile: decimation %d, %d taps\n", profile.Decimation, profile.TapCount)

	rates, err := tr.TxPathRates(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "tx path: BBPLL %d  DAC %d  T2 %d  T1 %d  TF %d  TXSAMP %d\n",
		rates.BBPLL, rates.DAC, rates.T2, rates.T1, rates.TF, rates.TXSample)
	return nil
}

// analyzeProfile renders the frequency response of the FIR profile that
// serves rateHz. Pure table math, no device involved.
func analyzeProfile(rateHz int64, nfft int) (string, error) {
	if rateHz <= 0 {
		return "", fmt.Errorf("a positive -rate is required for -analyze")
	}
	profile := ad936x.SelectFilterProfile(rateHz)
	resp, err := dsp.FilterResponse(profile.Coefficients, nfft)
	if err != nil {
		return "", err
	}

	b := &strings.Builder{}
	fmt.Fprintf(b, "rate %d Hz selects decimation %d, %d taps\n", rateHz, profile.Decimation, profile.TapCount)
	if idx := dsp.CutoffIndex(resp); idx >= 0 {
		fmt.Fprintf(b, "-3 dB cutoff: %.3f x fs\n", float64(idx)/float64(nfft))
	} else {
		fmt.Fprintf(b, "-3 dB cutoff: none below fs/2\n")
	}
	stop := 3 * nfft / 8
	fmt.Fprintf(b, "stopband above %.3f x fs: %.1f dB worst case\n",
		float64(stop)/float64(nfft), dsp.StopbandPeakDB(resp, stop))
	return b.String(), nil
}
