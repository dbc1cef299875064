// Command ad936x-discover browses the local network for IIO daemons via
// mDNS and prints a dialable address for each. PlutoSDR firmware announces
// the daemon as _iio._tcp, so this is the fastest way to find a board
// without knowing its IP.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/GogoLike/ad936x-api/internal/mdns"
)

func main() {
	timeout := flag.Int("timeout", 5, "Timeout in seconds")
	flag.Parse()

	fmt.Println("===============================================================")
	fmt.Println(" IIO Daemon Discovery")
	fmt.Println("===============================================================")
	fmt.Printf(" Service : _iio._tcp.local\n")
	fmt.Printf(" Timeout : %d seconds\n", *timeout)
	fmt.Println("---------------------------------------------------------------")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(*timeout)*time.Second)
	defer cancel()

	start := time.Now()
	hosts, err := mdns.Discover(ctx)
	duration := time.Since(start)

	if err != nil {
		fmt.Fprintf(os.Stderr, "Discovery error: %v\n", err)
		os.Exit(1)
	}

	if len(hosts) == 0 {
		fmt.Printf("No daemons found (%s)\n", duration.Truncate(time.Millisecond))
		return
	}

	fmt.Printf("Discovered %d daemon(s) in %s\n",
		len(hosts), duration.Truncate(time.Millisecond))
	fmt.Println("===============================================================")

	for i, h := range hosts {
		fmt.Printf(" Daemon #%d\n", i+1)
		fmt.Println("---------------------------------------------------------------")
		fmt.Printf(" Instance : %s\n", h.Instance)
		fmt.Printf(" Hostname : %s\n", h.Hostname)
		fmt.Printf(" Port     : %d\n", h.Port)

		fmt.Println(" Addresses:")
		if len(h.Addresses) == 0 {
			fmt.Println("   <none>")
		}
		for _, ip := range h.Addresses {
			fmt.Printf("   %s\n", ip)
		}

		fmt.Printf(" Connect  : ad936x-capture -backend iiod -uri %s\n", h.Addr())
		fmt.Println("===============================================================")
	}
}
