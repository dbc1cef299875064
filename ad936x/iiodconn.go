package ad936x

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/GogoLike/ad936x-api/iiod"
	"github.com/GogoLike/ad936x-api/internal/logging"
	"github.com/GogoLike/ad936x-api/internal/mdns"
)

// iiodConn adapts an iiod network client to the Conn interface. Channel
// names gain the daemon's direction prefix here, so "voltage0" input
// becomes in_voltage0 and the filter enable pseudo-channel "out" becomes
// in_out, exactly as sysfs spells them.
type iiodConn struct {
	client *iiod.Client

	mu      sync.Mutex
	buffers map[string]*iiod.Buffer
}

// NewIIODConn wraps an established iiod client as a transceiver
// transport.
func NewIIODConn(client *iiod.Client) Conn {
	return &iiodConn{client: client, buffers: make(map[string]*iiod.Buffer)}
}

// OpenURI dials an iiod daemon and opens a transceiver on it. An empty
// Config.URI discovers a daemon on the local network first. Closing the
// transceiver closes the dialed connection.
func OpenURI(ctx context.Context, cfg Config) (*Transceiver, error) {
	log := cfg.Logger
	if log == nil {
		log = logging.Nop()
	}
	if cfg.URI == "" {
		uri, err := mdns.ResolveURI(ctx)
		if err != nil {
			return nil, fmt.Errorf("no device found: %w", err)
		}
		log.Info("discovered iiod daemon", logging.F("uri", uri))
		cfg.URI = uri
	}
	client, err := iiod.DialContext(ctx, cfg.URI)
	if err != nil {
		return nil, err
	}
	t, err := Open(ctx, NewIIODConn(client), cfg)
	if err != nil {
		client.Close()
		return nil, err
	}
	return t, nil
}

func channelToken(channel string, output bool) string {
	if output {
		return "out_" + channel
	}
	return "in_" + channel
}

func (c *iiodConn) Devices(ctx context.Context) ([]string, error) {
	return c.client.ListDevices(ctx)
}

func (c *iiodConn) ReadChannelAttr(ctx context.Context, device, channel, attr string, output bool) (string, error) {
	return c.client.ReadAttr(ctx, device, channelToken(channel, output), attr)
}

func (c *iiodConn) WriteChannelAttr(ctx context.Context, device, channel, attr string, output bool, value string) error {
	return c.client.WriteAttr(ctx, device, channelToken(channel, output), attr, value)
}

func (c *iiodConn) ReadDeviceAttr(ctx context.Context, device, attr string) (string, error) {
	return c.client.ReadAttr(ctx, device, "", attr)
}

func (c *iiodConn) WriteDeviceAttr(ctx context.Context, device, attr, value string) error {
	// Multi-line payloads such as the FIR config need the framed write.
	if strings.ContainsAny(value, "\r\n") {
		return c.client.WriteAttrRaw(ctx, device, "", attr, []byte(value))
	}
	return c.client.WriteAttr(ctx, device, "", attr, value)
}

func (c *iiodConn) OpenBuffer(ctx context.Context, device string, samples int, channels []string, output, cyclic bool) error {
	tokens := make([]string, len(channels))
	for i, ch := range channels {
		tokens[i] = channelToken(ch, output)
	}
	buf, err := c.client.OpenBuffer(ctx, device, samples, tokens, cyclic)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.buffers[device] = buf
	c.mu.Unlock()
	return nil
}

func (c *iiodConn) RefillBuffer(ctx context.Context, device string) ([]int16, error) {
	buf, err := c.buffer(device)
	if err != nil {
		return nil, err
	}
	raw, err := c.client.ReadBuffer(ctx, buf)
	if err != nil {
		return nil, err
	}
	return iiod.ParseInt16Samples(raw)
}

func (c *iiodConn) PushBuffer(ctx context.Context, device string, samples []int16) error {
	buf, err := c.buffer(device)
	if err != nil {
		return err
	}
	return c.client.WriteBuffer(ctx, buf, iiod.FormatInt16Samples(samples))
}

func (c *iiodConn) CloseBuffer(ctx context.Context, device string) error {
	c.mu.Lock()
	buf := c.buffers[device]
	delete(c.buffers, device)
	c.mu.Unlock()
	if buf == nil {
		return nil
	}
	return c.client.CloseBuffer(ctx, buf)
}

func (c *iiodConn) buffer(device string) (*iiod.Buffer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	buf := c.buffers[device]
	if buf == nil {
		return nil, fmt.Errorf("no open buffer on %s", device)
	}
	return buf, nil
}

func (c *iiodConn) Close() error {
	return c.client.Close()
}
