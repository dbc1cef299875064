package mdns

import (
	"net"
	"testing"
)

func TestHostAddrPrefersIPv4(t *testing.T) {
	h := Host{
		Hostname:  "pluto.local.",
		Port:      30431,
		Addresses: []net.IP{net.ParseIP("fe80::1"), net.ParseIP("192.168.2.1")},
	}
	if got := h.Addr(); got != "192.168.2.1:30431" {
		t.Fatalf("Addr() = %q, want 192.168.2.1:30431", got)
	}
}

func TestHostAddrFallsBackToHostname(t *testing.T) {
	h := Host{
		Hostname:  "pluto.local.",
		Port:      30431,
		Addresses: []net.IP{net.ParseIP("fe80::1")},
	}
	if got := h.Addr(); got != "pluto.local:30431" {
		t.Fatalf("Addr() = %q, want pluto.local:30431", got)
	}
}

func TestCleanInstance(t *testing.T) {
	if got := cleanInstance(`iiod\ on\ pluto`); got != "iiod on pluto" {
		t.Fatalf("cleanInstance = %q", got)
	}
}
