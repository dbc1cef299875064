package ad936x

import "context"

// Conn is the transport a Transceiver drives. The iiod network backend is
// the primary implementation; a sysfs-over-SSH backend covers attribute
// access when the daemon is unreachable, and SimConn backs tests and
// offline tooling.
//
// Channel attributes are addressed by bare channel name plus a direction
// flag; implementations map the pair onto their native naming (the sysfs
// in_/out_ filename prefix and its iiod equivalent). Device attributes
// have no channel. A Transceiver serializes calls, so implementations
// only need to be safe for one caller at a time.
type Conn interface {
	// Devices lists the device names visible in the IIO context.
	Devices(ctx context.Context) ([]string, error)

	ReadChannelAttr(ctx context.Context, device, channel, attr string, output bool) (string, error)
	WriteChannelAttr(ctx context.Context, device, channel, attr string, output bool, value string) error

	ReadDeviceAttr(ctx context.Context, device, attr string) (string, error)
	WriteDeviceAttr(ctx context.Context, device, attr, value string) error

	// OpenBuffer enables the named scan channels on a data device and
	// claims a buffer of the given depth in samples per channel.
	OpenBuffer(ctx context.Context, device string, samples int, channels []string, output, cyclic bool) error
	// RefillBuffer captures one buffer and returns the raw interleaved
	// 16-bit samples exactly as the converter produced them.
	RefillBuffer(ctx context.Context, device string) ([]int16, error)
	// PushBuffer submits raw interleaved 16-bit samples for transmission.
	PushBuffer(ctx context.Context, device string, samples []int16) error
	CloseBuffer(ctx context.Context, device string) error

	Close() error
}
