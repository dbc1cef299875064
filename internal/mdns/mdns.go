// Package mdns locates IIO daemons on the local network. PlutoSDR firmware
// advertises the daemon as an _iio._tcp service, which is what the
// auto-URI path of the transceiver resolves against when no address is
// configured.
package mdns

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strings"

	"github.com/grandcat/zeroconf"
)

// Host is one discovered IIOD endpoint.
type Host struct {
	Instance  string // advertised name, e.g. "iiod on pluto"
	Hostname  string // DNS hostname, e.g. "pluto.local."
	Addresses []net.IP
	Port      int
	TXT       []string
}

// Addr returns the host's dialable "host:port" address, preferring an IPv4
// address over the DNS hostname.
func (h Host) Addr() string {
	for _, ip := range h.Addresses {
		if v4 := ip.To4(); v4 != nil {
			return fmt.Sprintf("%s:%d", v4.String(), h.Port)
		}
	}
	return fmt.Sprintf("%s:%d", strings.TrimSuffix(h.Hostname, "."), h.Port)
}

// Discover browses for _iio._tcp services until the context expires and
// returns deduplicated host entries sorted by hostname.
func Discover(ctx context.Context) ([]Host, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("mdns: resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	resultMap := make(map[string]Host)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case e, ok := <-entries:
				if !ok {
					return
				}
				if e == nil {
					continue
				}

				addrs := make([]net.IP, 0, len(e.AddrIPv4)+len(e.AddrIPv6))
				addrs = append(addrs, e.AddrIPv4...)
				addrs = append(addrs, e.AddrIPv6...)

				key := fmt.Sprintf("%s|%d", e.HostName, e.Port)
				resultMap[key] = Host{
					Instance:  cleanInstance(e.Instance),
					Hostname:  e.HostName,
					Addresses: addrs,
					Port:      e.Port,
					TXT:       append([]string{}, e.Text...),
				}

			case <-ctx.Done():
				return
			}
		}
	}()

	if err := resolver.Browse(ctx, "_iio._tcp", "local.", entries); err != nil {
		return nil, fmt.Errorf("mdns: browse: %w", err)
	}

	<-done

	out := make([]Host, 0, len(resultMap))
	for _, h := range resultMap {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hostname < out[j].Hostname })

	return out, nil
}

// ResolveURI picks the first discovered daemon's address. This is the
// fallback used when a transceiver is opened with an empty URI.
func ResolveURI(ctx context.Context) (string, error) {
	hosts, err := Discover(ctx)
	if err != nil {
		return "", err
	}
	if len(hosts) == 0 {
		return "", fmt.Errorf("mdns: no IIO daemons found")
	}
	return hosts[0].Addr(), nil
}

// cleanInstance removes zeroconf escape sequences from advertised names.
func cleanInstance(s string) string {
	return strings.ReplaceAll(s, `\ `, " ")
}
