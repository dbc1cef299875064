// Package iiod implements a client for the text variant of the IIO daemon
// network protocol as spoken by PlutoSDR-class devices. Commands are single
// lines; every response starts with a "<status> <length>" header line
// followed by length payload bytes. A non-zero status carries the failure
// payload as a message, negative values being -errno from the daemon.
package iiod

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
)

// DefaultIOTimeout bounds a single command/response exchange when the
// caller's context carries no deadline of its own.
const DefaultIOTimeout = 5 * time.Second

// IIODError is a daemon-reported failure: the response header carried a
// non-zero status. Negative statuses are -errno values (for example -22,
// EINVAL, when the daemon rejects an attribute value).
type IIODError struct {
	Op     string
	Status int
	Msg    string
}

func (e *IIODError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("iiod: %s: status %d: %s", e.Op, e.Status, e.Msg)
	}
	return fmt.Sprintf("iiod: %s: status %d", e.Op, e.Status)
}

// ContextInfo describes the daemon version reported by VERSION.
type ContextInfo struct {
	Major       int
	Minor       int
	Description string
}

// Client is a connection to one IIO daemon. All exported methods are safe
// for concurrent use; the protocol allows one in-flight command at a time,
// so calls serialize on an internal mutex.
type Client struct {
	mu      sync.Mutex
	conn    net.Conn
	reader  *bufio.Reader
	timeout time.Duration

	xmlContext string
	debug      bool
	logf       func(format string, args ...any)
}

// Dial connects to an IIO daemon at addr ("host:port") with the default
// retry policy and I/O timeout.
func Dial(addr string) (*Client, error) {
	return DialContext(context.Background(), addr)
}

// DialContext connects to an IIO daemon at addr, retrying transient
// failures with exponential backoff until the context is done.
func DialContext(ctx context.Context, addr string) (*Client, error) {
	if strings.TrimSpace(addr) == "" {
		return nil, fmt.Errorf("iiod: address is required")
	}

	var conn net.Conn
	dialer := net.Dialer{}
	op := func() error {
		var err error
		conn, err = dialer.DialContext(ctx, "tcp", addr)
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 100 * time.Millisecond
	policy.MaxInterval = 2 * time.Second

	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(policy, 4), ctx)); err != nil {
		return nil, fmt.Errorf("iiod: dial %s: %w", addr, err)
	}

	return &Client{
		conn:    conn,
		reader:  bufio.NewReader(conn),
		timeout: DefaultIOTimeout,
	}, nil
}

// SetTimeout replaces the per-exchange I/O timeout used when the caller's
// context has no deadline.
func (c *Client) SetTimeout(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d > 0 {
		c.timeout = d
	}
}

// SetDebugLogger enables command tracing through logf.
func (c *Client) SetDebugLogger(logf func(format string, args ...any)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.debug = logf != nil
	c.logf = logf
}

func (c *Client) dbg(format string, args ...any) {
	if c.debug && c.logf != nil {
		c.logf("[IIOD] "+format, args...)
	}
}

// Close shuts the connection down. A second Close reports not connected.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("iiod: not connected")
	}
	err := c.conn.Close()
	c.conn = nil
	c.reader = nil
	return err
}

// GetContextInfo queries the daemon version string.
func (c *Client) GetContextInfo(ctx context.Context) (ContextInfo, error) {
	payload, err := c.sendCommandString(ctx, "VERSION")
	if err != nil {
		return ContextInfo{}, err
	}
	return parseContextInfo(payload)
}

func parseContextInfo(payload string) (ContextInfo, error) {
	fields := strings.Fields(payload)
	if len(fields) < 2 {
		return ContextInfo{}, fmt.Errorf("iiod: malformed VERSION reply %q", payload)
	}
	major, err := strconv.Atoi(fields[0])
	if err != nil {
		return ContextInfo{}, fmt.Errorf("iiod: malformed VERSION major %q", fields[0])
	}
	minor, err := strconv.Atoi(fields[1])
	if err != nil {
		return ContextInfo{}, fmt.Errorf("iiod: malformed VERSION minor %q", fields[1])
	}
	return ContextInfo{
		Major:       major,
		Minor:       minor,
		Description: strings.Join(fields[2:], " "),
	}, nil
}

// sendCommandString runs one text command and returns the payload as a
// string. The response header must report status zero.
func (c *Client) sendCommandString(ctx context.Context, cmd string) (string, error) {
	payload, err := c.exchange(ctx, cmd, nil)
	if err != nil {
		return "", err
	}
	return string(payload), nil
}

// sendBinaryCommand runs one command whose payload (request, response or
// both) is raw bytes. Outbound data follows the command line with a 4-byte
// big-endian length prefix.
func (c *Client) sendBinaryCommand(ctx context.Context, cmd string, data []byte) ([]byte, error) {
	return c.exchange(ctx, cmd, data)
}

func (c *Client) exchange(ctx context.Context, cmd string, data []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil, fmt.Errorf("iiod: not connected")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetDeadline(deadline); err != nil {
		return nil, fmt.Errorf("iiod: set deadline: %w", err)
	}

	c.dbg("-> %s (%d raw bytes)", cmd, len(data))

	if _, err := fmt.Fprintf(c.conn, "%s\n", cmd); err != nil {
		return nil, fmt.Errorf("iiod: send %q: %w", firstWord(cmd), err)
	}
	if data != nil {
		var prefix [4]byte
		binary.BigEndian.PutUint32(prefix[:], uint32(len(data)))
		if _, err := c.conn.Write(prefix[:]); err != nil {
			return nil, fmt.Errorf("iiod: send %q payload length: %w", firstWord(cmd), err)
		}
		if _, err := c.conn.Write(data); err != nil {
			return nil, fmt.Errorf("iiod: send %q payload: %w", firstWord(cmd), err)
		}
	}

	status, length, err := c.readHeader()
	if err != nil {
		return nil, fmt.Errorf("iiod: %q response: %w", firstWord(cmd), err)
	}

	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(c.reader, payload); err != nil {
			return nil, fmt.Errorf("iiod: %q payload: %w", firstWord(cmd), err)
		}
	}

	c.dbg("<- status=%d len=%d", status, length)

	if status != 0 {
		return nil, &IIODError{Op: firstWord(cmd), Status: status, Msg: strings.TrimSpace(string(payload))}
	}
	return payload, nil
}

func (c *Client) readHeader() (status, length int, err error) {
	line, err := c.reader.ReadString('\n')
	if err != nil {
		return 0, 0, err
	}
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("malformed header %q", strings.TrimSpace(line))
	}
	status, err = strconv.Atoi(fields[0])
	if err != nil {
		return 0, 0, fmt.Errorf("malformed status %q", fields[0])
	}
	length, err = strconv.Atoi(fields[1])
	if err != nil || length < 0 {
		return 0, 0, fmt.Errorf("malformed length %q", fields[1])
	}
	return status, length, nil
}

func firstWord(cmd string) string {
	if i := strings.IndexByte(cmd, ' '); i > 0 {
		return cmd[:i]
	}
	return cmd
}
