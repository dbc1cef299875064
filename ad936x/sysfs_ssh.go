package ad936x

import (
	"context"
	"fmt"
	"net"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
)

// SysfsConfig describes an SSH login on the radio itself, used to reach
// the IIO sysfs tree directly when the iiod daemon is unavailable or too
// old (e.g. protocol v0.25 on early Pluto firmware).
type SysfsConfig struct {
	Host      string
	User      string
	Password  string
	KeyPath   string
	Port      int
	SysfsRoot string
}

// SysfsSSH is an attribute-only Conn over an SSH session to the device.
// Buffer operations return ErrUnsupported; everything else maps onto
// reads and writes of the sysfs files under /sys/bus/iio/devices.
type SysfsSSH struct {
	mu      sync.Mutex
	cfg     SysfsConfig
	client  *ssh.Client
	devices map[string]string
}

// NewSysfsSSH validates the configuration and prepares a connection. The
// SSH session is established lazily on first use.
func NewSysfsSSH(cfg SysfsConfig) (*SysfsSSH, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("ssh host is required for sysfs access")
	}
	if cfg.User == "" {
		cfg.User = "root"
	}
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.SysfsRoot == "" {
		cfg.SysfsRoot = "/sys/bus/iio/devices"
	}
	return &SysfsSSH{cfg: cfg}, nil
}

func (s *SysfsSSH) Devices(ctx context.Context) ([]string, error) {
	dirs, err := s.deviceDirs(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(dirs))
	for name := range dirs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *SysfsSSH) ReadChannelAttr(ctx context.Context, device, channel, attr string, output bool) (string, error) {
	target, err := s.attrPath(ctx, device, channel, attr, output)
	if err != nil {
		return "", err
	}
	out, err := s.run(ctx, "cat "+target)
	if err != nil {
		return "", fmt.Errorf("read sysfs attribute: %w", err)
	}
	return strings.TrimSpace(out), nil
}

func (s *SysfsSSH) WriteChannelAttr(ctx context.Context, device, channel, attr string, output bool, value string) error {
	target, err := s.attrPath(ctx, device, channel, attr, output)
	if err != nil {
		return err
	}
	// printf %s keeps the shell from interpreting the value contents.
	if _, err := s.run(ctx, fmt.Sprintf("printf %%s %s > %s", shellQuote(value), target)); err != nil {
		return fmt.Errorf("write sysfs attribute: %w", err)
	}
	return nil
}

func (s *SysfsSSH) ReadDeviceAttr(ctx context.Context, device, attr string) (string, error) {
	return s.ReadChannelAttr(ctx, device, "", attr, false)
}

func (s *SysfsSSH) WriteDeviceAttr(ctx context.Context, device, attr, value string) error {
	return s.WriteChannelAttr(ctx, device, "", attr, false, value)
}

func (s *SysfsSSH) OpenBuffer(ctx context.Context, device string, samples int, channels []string, output, cyclic bool) error {
	return fmt.Errorf("%w: buffer access over sysfs", ErrUnsupported)
}

func (s *SysfsSSH) RefillBuffer(ctx context.Context, device string) ([]int16, error) {
	return nil, fmt.Errorf("%w: buffer access over sysfs", ErrUnsupported)
}

func (s *SysfsSSH) PushBuffer(ctx context.Context, device string, samples []int16) error {
	return fmt.Errorf("%w: buffer access over sysfs", ErrUnsupported)
}

func (s *SysfsSSH) CloseBuffer(ctx context.Context, device string) error {
	return fmt.Errorf("%w: buffer access over sysfs", ErrUnsupported)
}

func (s *SysfsSSH) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	return err
}

// attrPath resolves the sysfs filename for an attribute. Channel
// attributes carry the in_/out_ direction prefix; device attributes sit
// directly in the device directory.
func (s *SysfsSSH) attrPath(ctx context.Context, device, channel, attr string, output bool) (string, error) {
	dirs, err := s.deviceDirs(ctx)
	if err != nil {
		return "", err
	}
	dir, ok := dirs[device]
	if !ok {
		return "", fmt.Errorf("no device found with name %s", device)
	}
	if channel == "" {
		return path.Join(dir, attr), nil
	}
	prefix := "in"
	if output {
		prefix = "out"
	}
	return path.Join(dir, prefix+"_"+channel+"_"+attr), nil
}

// deviceDirs maps device names to their iio:deviceN directories, probed
// once per connection.
func (s *SysfsSSH) deviceDirs(ctx context.Context) (map[string]string, error) {
	s.mu.Lock()
	cached := s.devices
	s.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	cmd := fmt.Sprintf(`for d in %s/iio:device*; do printf '%%s %%s\n' "$d" "$(cat "$d/name" 2>/dev/null)"; done`, s.cfg.SysfsRoot)
	out, err := s.run(ctx, cmd)
	if err != nil {
		return nil, fmt.Errorf("scan iio devices: %w", err)
	}
	dirs := make(map[string]string)
	for _, line := range strings.Split(out, "\n") {
		dir, name, ok := strings.Cut(strings.TrimSpace(line), " ")
		if !ok || name == "" {
			continue
		}
		dirs[name] = dir
	}

	s.mu.Lock()
	s.devices = dirs
	s.mu.Unlock()
	return dirs, nil
}

func (s *SysfsSSH) run(ctx context.Context, cmd string) (string, error) {
	client, err := s.dial(ctx)
	if err != nil {
		return "", err
	}
	session, err := client.NewSession()
	if err != nil {
		return "", fmt.Errorf("create ssh session: %w", err)
	}
	defer session.Close()

	out, err := session.Output(cmd)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (s *SysfsSSH) dial(ctx context.Context) (*ssh.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return s.client, nil
	}

	auth := []ssh.AuthMethod{}
	if s.cfg.Password != "" {
		auth = append(auth, ssh.Password(s.cfg.Password))
	}
	if s.cfg.KeyPath != "" {
		key, err := os.ReadFile(s.cfg.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("read ssh key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("parse ssh key: %w", err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if len(auth) == 0 {
		return nil, fmt.Errorf("no ssh password or key configured")
	}

	config := &ssh.ClientConfig{
		User:            s.cfg.User,
		Auth:            auth,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         5 * time.Second,
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	dialer := net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial ssh: %w", err)
	}
	clientConn, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		return nil, fmt.Errorf("create ssh client: %w", err)
	}
	s.client = ssh.NewClient(clientConn, chans, reqs)
	return s.client, nil
}

// shellQuote wraps a value in single quotes with embedded quotes escaped
// for safe shell usage.
func shellQuote(value string) string {
	escaped := strings.ReplaceAll(value, "'", "'\\''")
	return fmt.Sprintf("'%s'", escaped)
}
