package iiod

import (
	"context"
	"fmt"
	"strings"
)

// ListDevices returns the device names known to the daemon.
func (c *Client) ListDevices(ctx context.Context) ([]string, error) {
	payload, err := c.sendCommandString(ctx, "LIST_DEVICES")
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(payload) == "" {
		return nil, nil
	}
	return strings.Fields(payload), nil
}

// ListChannels returns the channel tokens of one device. Tokens carry the
// IIO side prefix, e.g. "in_voltage0" or "out_altvoltage1".
func (c *Client) ListChannels(ctx context.Context, device string) ([]string, error) {
	if strings.TrimSpace(device) == "" {
		return nil, fmt.Errorf("iiod: device name is required")
	}
	payload, err := c.sendCommandString(ctx, fmt.Sprintf("LIST_CHANNELS %s", device))
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(payload) == "" {
		return nil, nil
	}
	return strings.Fields(payload), nil
}

// ReadAttr reads a channel attribute. An empty channel token reads a
// device-level attribute instead.
func (c *Client) ReadAttr(ctx context.Context, device, channel, attr string) (string, error) {
	if err := requireAttrTarget(device, attr); err != nil {
		return "", err
	}
	cmd := fmt.Sprintf("READ_ATTR %s %s", device, attr)
	if channel != "" {
		cmd = fmt.Sprintf("READ_ATTR %s %s %s", device, channel, attr)
	}
	payload, err := c.sendCommandString(ctx, cmd)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(payload), nil
}

// WriteAttr writes a channel attribute with an inline value. An empty
// channel token writes a device-level attribute. The value must be a single
// line; use WriteAttrRaw for multi-line payloads.
func (c *Client) WriteAttr(ctx context.Context, device, channel, attr, value string) error {
	if err := requireAttrTarget(device, attr); err != nil {
		return err
	}
	if strings.ContainsAny(value, "\r\n") {
		return fmt.Errorf("iiod: value for %s.%s is multi-line, use WriteAttrRaw", device, attr)
	}
	cmd := fmt.Sprintf("WRITE_ATTR %s %s %s", device, attr, value)
	if channel != "" {
		cmd = fmt.Sprintf("WRITE_ATTR %s %s %s %s", device, channel, attr, value)
	}
	_, err := c.sendCommandString(ctx, cmd)
	return err
}

// WriteAttrRaw writes an attribute whose value travels as a raw payload
// after the command line, with the byte count in the command in place of
// the inline value. This is how large multi-line values such as FIR filter
// tables reach the device.
func (c *Client) WriteAttrRaw(ctx context.Context, device, channel, attr string, data []byte) error {
	if err := requireAttrTarget(device, attr); err != nil {
		return err
	}
	if len(data) == 0 {
		return fmt.Errorf("iiod: no data for %s.%s", device, attr)
	}
	cmd := fmt.Sprintf("WRITE_ATTR %s %s %d", device, attr, len(data))
	if channel != "" {
		cmd = fmt.Sprintf("WRITE_ATTR %s %s %s %d", device, channel, attr, len(data))
	}
	_, err := c.sendBinaryCommand(ctx, cmd, data)
	return err
}

func requireAttrTarget(device, attr string) error {
	if strings.TrimSpace(device) == "" {
		return fmt.Errorf("iiod: device name is required")
	}
	if strings.TrimSpace(attr) == "" {
		return fmt.Errorf("iiod: attribute name is required")
	}
	return nil
}
