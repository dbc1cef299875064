package ad936x

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Attribute helpers against the phy control device. Values read back from
// the kernel may carry a unit suffix ("71.000000 dB"), so numeric parsing
// takes the first whitespace-separated token. Callers hold t.mu.

func (t *Transceiver) phyReadStr(ctx context.Context, channel, attr string, output bool) (string, error) {
	v, err := t.conn.ReadChannelAttr(ctx, PhyDevice, channel, attr, output)
	if err != nil {
		return "", deviceErr("read", PhyDevice, channel, attr, err)
	}
	return strings.TrimSpace(v), nil
}

func (t *Transceiver) phyWriteStr(ctx context.Context, channel, attr string, output bool, value string) error {
	if err := t.conn.WriteChannelAttr(ctx, PhyDevice, channel, attr, output, value); err != nil {
		return deviceErr("write", PhyDevice, channel, attr, err)
	}
	return nil
}

func (t *Transceiver) phyReadInt(ctx context.Context, channel, attr string, output bool) (int64, error) {
	s, err := t.phyReadStr(ctx, channel, attr, output)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(firstToken(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s/%s value %q is not an integer", ErrDataIntegrity, channel, attr, s)
	}
	return n, nil
}

func (t *Transceiver) phyWriteInt(ctx context.Context, channel, attr string, output bool, value int64) error {
	return t.phyWriteStr(ctx, channel, attr, output, strconv.FormatInt(value, 10))
}

func (t *Transceiver) phyReadFloat(ctx context.Context, channel, attr string, output bool) (float64, error) {
	s, err := t.phyReadStr(ctx, channel, attr, output)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(firstToken(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s/%s value %q is not a number", ErrDataIntegrity, channel, attr, s)
	}
	return f, nil
}

func (t *Transceiver) phyWriteFloat(ctx context.Context, channel, attr string, output bool, value float64) error {
	return t.phyWriteStr(ctx, channel, attr, output, strconv.FormatFloat(value, 'f', -1, 64))
}

func (t *Transceiver) phyReadDevAttr(ctx context.Context, attr string) (string, error) {
	v, err := t.conn.ReadDeviceAttr(ctx, PhyDevice, attr)
	if err != nil {
		return "", deviceErr("read", PhyDevice, "", attr, err)
	}
	return strings.TrimSpace(v), nil
}

func (t *Transceiver) phyWriteDevAttr(ctx context.Context, attr, value string) error {
	if err := t.conn.WriteDeviceAttr(ctx, PhyDevice, attr, value); err != nil {
		return deviceErr("write", PhyDevice, "", attr, err)
	}
	return nil
}

func firstToken(s string) string {
	if f := strings.Fields(s); len(f) > 0 {
		return f[0]
	}
	return s
}
