package ad936x

import "errors"

var (
	// ErrInvalidParameter marks requests rejected before any device
	// interaction, such as a sample rate below the hardware floor.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrDataIntegrity marks malformed data: odd-length sample buffers,
	// unparseable attribute values, or a garbled tx_path_rates string.
	ErrDataIntegrity = errors.New("data integrity violation")

	// ErrUnsupported is returned by backends that cannot serve an
	// operation, such as buffer access over the sysfs fallback.
	ErrUnsupported = errors.New("operation not supported")
)

// DeviceError wraps a failed attribute or buffer operation against the
// hardware. The device may be left partially configured; callers should
// re-query rate and filter state before retrying a sequence.
type DeviceError struct {
	Op      string
	Device  string
	Channel string
	Attr    string
	Err     error
}

func (e *DeviceError) Error() string {
	target := e.Device
	if e.Channel != "" {
		target += "/" + e.Channel
	}
	if e.Attr != "" {
		target += "/" + e.Attr
	}
	msg := "device communication failed"
	switch {
	case e.Op != "" && target != "":
		msg += ": " + e.Op + " " + target
	case e.Op != "":
		msg += ": " + e.Op
	case target != "":
		msg += ": " + target
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DeviceError) Unwrap() error { return e.Err }

func deviceErr(op, device, channel, attr string, err error) error {
	if err == nil {
		return nil
	}
	return &DeviceError{Op: op, Device: device, Channel: channel, Attr: attr, Err: err}
}
