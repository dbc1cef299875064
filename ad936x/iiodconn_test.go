package ad936x

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GogoLike/ad936x-api/iiod"
)

type wireOp struct {
	cmd           string
	status        int
	payload       string
	binaryPayload []byte
	expectBinary  []byte
}

// startWireServer speaks the daemon side of a scripted exchange. Protocol
// mismatches surface through the returned channel once the script ends.
func startWireServer(t *testing.T, ops []wireOp) (string, chan error) {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		defer listener.Close()

		conn, err := listener.Accept()
		if err != nil {
			errCh <- err
			return
		}
		defer conn.Close()

		reader := bufio.NewReader(conn)
		for _, op := range ops {
			line, err := reader.ReadString('\n')
			if err != nil {
				errCh <- fmt.Errorf("read command: %w", err)
				return
			}
			if got := strings.TrimSpace(line); got != op.cmd {
				errCh <- fmt.Errorf("unexpected command %q, want %q", got, op.cmd)
				return
			}

			if len(op.expectBinary) > 0 {
				var prefix [4]byte
				if _, err := io.ReadFull(reader, prefix[:]); err != nil {
					errCh <- fmt.Errorf("read length prefix: %w", err)
					return
				}
				data := make([]byte, binary.BigEndian.Uint32(prefix[:]))
				if _, err := io.ReadFull(reader, data); err != nil {
					errCh <- fmt.Errorf("read payload: %w", err)
					return
				}
				if !bytes.Equal(data, op.expectBinary) {
					errCh <- fmt.Errorf("payload mismatch: got %q want %q", data, op.expectBinary)
					return
				}
			}

			payload := []byte(op.payload)
			if len(op.binaryPayload) > 0 {
				payload = op.binaryPayload
			}
			if _, err := fmt.Fprintf(conn, "%d %d\n", op.status, len(payload)); err != nil {
				errCh <- err
				return
			}
			if len(payload) > 0 {
				if _, err := conn.Write(payload); err != nil {
					errCh <- err
					return
				}
			}
		}
		errCh <- nil
	}()

	return listener.Addr().String(), errCh
}

func TestIIODConnAttrMapping(t *testing.T) {
	firCfg := BuildFilterConfig(SelectFilterProfile(1000000))
	ops := []wireOp{
		{cmd: "LIST_DEVICES", payload: "ad9361-phy cf-ad9361-lpc cf-ad9361-dds-core-lpc\n"},
		{cmd: "READ_ATTR ad9361-phy in_voltage0 sampling_frequency", payload: "30720000\n"},
		{cmd: "WRITE_ATTR ad9361-phy in_out voltage_filter_fir_en 1"},
		{cmd: "WRITE_ATTR ad9361-phy out_altvoltage1 frequency 2450000000"},
		{cmd: fmt.Sprintf("WRITE_ATTR ad9361-phy filter_fir_config %d", len(firCfg)), expectBinary: []byte(firCfg)},
		{cmd: "READ_ATTR ad9361-phy tx_path_rates", payload: "BBPLL:983040000 DAC:122880000 T2:61440000 T1:30720000 TF:30720000 TXSAMP:30720000\n"},
	}

	addr, serverErr := startWireServer(t, ops)
	client, err := iiod.Dial(addr)
	require.NoError(t, err)
	conn := NewIIODConn(client)
	defer conn.Close()

	ctx := context.Background()

	names, err := conn.Devices(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{PhyDevice, RXDataDevice, TXDataDevice}, names)

	v, err := conn.ReadChannelAttr(ctx, PhyDevice, "voltage0", "sampling_frequency", false)
	require.NoError(t, err)
	assert.Equal(t, "30720000", v)

	require.NoError(t, conn.WriteChannelAttr(ctx, PhyDevice, "out", "voltage_filter_fir_en", false, "1"))
	require.NoError(t, conn.WriteChannelAttr(ctx, PhyDevice, "altvoltage1", "frequency", true, "2450000000"))

	// Multi-line values must travel as a framed payload.
	require.NoError(t, conn.WriteDeviceAttr(ctx, PhyDevice, "filter_fir_config", firCfg))

	rates, err := conn.ReadDeviceAttr(ctx, PhyDevice, "tx_path_rates")
	require.NoError(t, err)
	parsed, err := parseTxPathRates(rates)
	require.NoError(t, err)
	assert.EqualValues(t, 122880000, parsed.DAC)

	require.NoError(t, <-serverErr)
}

func TestTransceiverOverWire(t *testing.T) {
	rx := iiod.FormatInt16Samples([]int16{1, 2, 3, 4, 5, 6, 7, 8})
	ops := []wireOp{
		{cmd: "LIST_DEVICES", payload: "ad9361-phy cf-ad9361-lpc cf-ad9361-dds-core-lpc\n"},
		{cmd: "WRITE_ATTR cf-ad9361-lpc in_voltage0 en 1"},
		{cmd: "WRITE_ATTR cf-ad9361-lpc in_voltage1 en 1"},
		{cmd: "OPEN cf-ad9361-lpc 4"},
		{cmd: "READBUF cf-ad9361-lpc 4", binaryPayload: rx},
		{cmd: "CLOSE cf-ad9361-lpc"},
	}

	addr, serverErr := startWireServer(t, ops)
	client, err := iiod.Dial(addr)
	require.NoError(t, err)

	ctx := context.Background()
	tr, err := Open(ctx, NewIIODConn(client), Config{RXBufferSize: 4})
	require.NoError(t, err)

	set, err := tr.Receive(ctx)
	require.NoError(t, err)
	seq, ok := set.Single()
	require.True(t, ok)
	assert.Equal(t, []complex64{
		complex(1, 2), complex(3, 4), complex(5, 6), complex(7, 8),
	}, seq)

	require.NoError(t, tr.Close())
	require.NoError(t, <-serverErr)
}

func TestIIODConnRefillWithoutOpen(t *testing.T) {
	addr, _ := startWireServer(t, nil)
	client, err := iiod.Dial(addr)
	require.NoError(t, err)
	conn := NewIIODConn(client)
	defer conn.Close()

	_, err = conn.RefillBuffer(context.Background(), RXDataDevice)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no open buffer")
}
