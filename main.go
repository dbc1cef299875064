// Command ad936x-probe connects to an IIO daemon and prints the daemon
// version together with the devices it exposes. It is the quickest way to
// confirm that a PlutoSDR (or any other AD936x carrier) is reachable before
// running the heavier tools under cmd/.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/GogoLike/ad936x-api/iiod"
)

const defaultIIODAddr = "192.168.2.1:30431"

// dial is swapped out in tests.
var dial = iiod.Dial

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Getenv); err != nil {
		log.Fatal(err)
	}
}

func run(args []string, out io.Writer, getenv func(string) string) error {
	fs := flag.NewFlagSet("ad936x-probe", flag.ContinueOnError)
	fs.SetOutput(out)

	addrDefault := getenv("IIOD_ADDR")
	if addrDefault == "" {
		addrDefault = defaultIIODAddr
	}
	addr := fs.String("iiod-addr", addrDefault, "IIO daemon address (host:port)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	c, err := dial(*addr)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	info, err := c.GetContextInfo(ctx)
	if err != nil {
		return fmt.Errorf("read daemon version: %w", err)
	}
	fmt.Fprintf(out, "iiod %d.%d %s\n", info.Major, info.Minor, info.Description)

	devices, err := c.ListDevices(ctx)
	if err != nil {
		return fmt.Errorf("list devices: %w", err)
	}
	fmt.Fprintf(out, "devices (%d):\n", len(devices))
	for _, d := range devices {
		channels, err := c.ListChannels(ctx, d)
		if err != nil {
			return fmt.Errorf("list channels of %s: %w", d, err)
		}
		fmt.Fprintf(out, "  %s\n", d)
		for _, ch := range channels {
			fmt.Fprintf(out, "    %s\n", ch)
		}
	}

	return nil
}
