package iiod

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"testing"
)

type mockCase struct {
	name        string
	invoke      func(*Client) (string, error)
	request     string
	status      int
	payload     string
	header      string
	wantsErr    bool
	wantPayload string
}

func TestClientCommands(t *testing.T) {
	cases := []mockCase{
		{
			name:    "context info",
			request: "VERSION",
			status:  0,
			payload: "0 25 ip,usb,xml",
			invoke: func(c *Client) (string, error) {
				info, err := c.GetContextInfo(context.Background())
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("%d.%d %s", info.Major, info.Minor, info.Description), nil
			},
			wantPayload: "0.25 ip,usb,xml",
		},
		{
			name:        "list devices",
			request:     "LIST_DEVICES",
			status:      0,
			payload:     "ad9361-phy cf-ad9361-lpc cf-ad9361-dds-core-lpc",
			wantPayload: "ad9361-phy cf-ad9361-lpc cf-ad9361-dds-core-lpc",
			invoke: func(c *Client) (string, error) {
				devices, err := c.ListDevices(context.Background())
				if err != nil {
					return "", err
				}
				return strings.Join(devices, " "), nil
			},
		},
		{
			name:        "list channels",
			request:     "LIST_CHANNELS ad9361-phy",
			status:      0,
			payload:     "in_voltage0 in_voltage1 out_voltage0 out_altvoltage0 out_altvoltage1",
			wantPayload: "in_voltage0 in_voltage1 out_voltage0 out_altvoltage0 out_altvoltage1",
			invoke: func(c *Client) (string, error) {
				channels, err := c.ListChannels(context.Background(), "ad9361-phy")
				if err != nil {
					return "", err
				}
				return strings.Join(channels, " "), nil
			},
		},
		{
			name:    "read channel attr",
			request: "READ_ATTR ad9361-phy in_voltage0 sampling_frequency",
			status:  0,
			payload: "30720000",
			invoke: func(c *Client) (string, error) {
				return c.ReadAttr(context.Background(), "ad9361-phy", "in_voltage0", "sampling_frequency")
			},
			wantPayload: "30720000",
		},
		{
			name:    "read device attr",
			request: "READ_ATTR ad9361-phy tx_path_rates",
			status:  0,
			payload: "BBPLL:983040000 DAC:122880000 T2:61440000 T1:30720000 TF:30720000 TXSAMP:30720000",
			invoke: func(c *Client) (string, error) {
				return c.ReadAttr(context.Background(), "ad9361-phy", "", "tx_path_rates")
			},
			wantPayload: "BBPLL:983040000 DAC:122880000 T2:61440000 T1:30720000 TF:30720000 TXSAMP:30720000",
		},
		{
			name:    "write channel attr",
			request: "WRITE_ATTR ad9361-phy out_altvoltage0 frequency 2400000000",
			status:  0,
			payload: "",
			invoke: func(c *Client) (string, error) {
				return "", c.WriteAttr(context.Background(), "ad9361-phy", "out_altvoltage0", "frequency", "2400000000")
			},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			addr, serverErr := startMockServer(t, tc.request, tc.status, tc.payload, tc.header)
			client, err := Dial(addr)
			if err != nil {
				t.Fatalf("Dial failed: %v", err)
			}
			defer client.Close()

			payload, err := tc.invoke(client)
			if tc.wantsErr {
				if err == nil {
					t.Fatalf("expected error")
				}
			} else {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if payload != tc.wantPayload {
					t.Fatalf("unexpected payload: %q", payload)
				}
			}

			if err := <-serverErr; err != nil {
				t.Fatalf("server error: %v", err)
			}
		})
	}
}

func TestSendErrors(t *testing.T) {
	cases := []mockCase{
		{
			name:     "malformed header",
			request:  "VERSION",
			header:   "MALFORMED\n",
			invoke:   func(c *Client) (string, error) { return c.sendCommandString(context.Background(), "VERSION") },
			wantsErr: true,
		},
		{
			name:     "daemon rejects value",
			request:  "WRITE_ATTR ad9361-phy in_voltage0 sampling_frequency 1",
			status:   -22,
			payload:  "invalid argument",
			invoke:   func(c *Client) (string, error) { return "", c.WriteAttr(context.Background(), "ad9361-phy", "in_voltage0", "sampling_frequency", "1") },
			wantsErr: true,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			addr, serverErr := startMockServer(t, tc.request, tc.status, tc.payload, tc.header)
			client, err := Dial(addr)
			if err != nil {
				t.Fatalf("Dial failed: %v", err)
			}
			defer client.Close()

			_, err = tc.invoke(client)
			if err == nil {
				t.Fatalf("expected error")
			}
			if tc.status != 0 {
				var iioErr *IIODError
				if !errors.As(err, &iioErr) {
					t.Fatalf("expected IIODError, got %T: %v", err, err)
				}
				if iioErr.Status != tc.status {
					t.Fatalf("unexpected status %d, want %d", iioErr.Status, tc.status)
				}
				if iioErr.Msg != tc.payload {
					t.Fatalf("unexpected message %q, want %q", iioErr.Msg, tc.payload)
				}
			}

			if err := <-serverErr; err != nil {
				t.Fatalf("server error: %v", err)
			}
		})
	}
}

func TestMultilineValueNeedsRawWrite(t *testing.T) {
	c := &Client{}
	err := c.WriteAttr(context.Background(), "ad9361-phy", "", "filter_fir_config", "RX 3\nTX 3\n")
	if err == nil || !strings.Contains(err.Error(), "WriteAttrRaw") {
		t.Fatalf("expected multi-line rejection, got %v", err)
	}
}

func TestCloseIdempotent(t *testing.T) {
	client := &Client{}
	if err := client.Close(); err == nil {
		t.Fatalf("expected error closing unconnected client")
	}

	conn1, conn2 := net.Pipe()
	client = &Client{conn: conn1, reader: bufio.NewReader(conn1)}
	conn2.Close()

	if err := client.Close(); err != nil {
		t.Fatalf("expected first close to succeed: %v", err)
	}

	if err := client.Close(); err == nil || !strings.Contains(err.Error(), "not connected") {
		t.Fatalf("expected not connected error, got %v", err)
	}
}

func startMockServer(t *testing.T, expectedReq string, status int, payload, headerOverride string) (string, chan error) {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

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
		line, err := reader.ReadString('\n')
		if err != nil {
			errCh <- err
			return
		}
		if strings.TrimSpace(line) != expectedReq {
			errCh <- fmt.Errorf("unexpected request %q", strings.TrimSpace(line))
			return
		}

		header := headerOverride
		if header == "" {
			header = fmt.Sprintf("%d %d\n", status, len(payload))
		}
		if _, err := fmt.Fprint(conn, header); err != nil {
			errCh <- err
			return
		}
		if payload != "" && headerOverride == "" {
			if _, err := fmt.Fprint(conn, payload); err != nil {
				errCh <- err
				return
			}
		}

		errCh <- nil
	}()

	return listener.Addr().String(), errCh
}
