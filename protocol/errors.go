package protocol

import (
	"errors"
	"fmt"
)

var ErrNoResponse = errors.New("protocol: no response from device")

// DeviceError is returned when the device answers with a '-' line.
type DeviceError struct {
	// the line as received, '-' prefix included
	Line string
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("device error: %s", e.Line)
}

// Message is the device's explanation without the '-' prefix.
func (e *DeviceError) Message() string {
	if len(e.Line) > 0 && e.Line[0] == '-' {
		return e.Line[1:]
	}
	return e.Line
}

// IsDeviceError reports whether err carries a device error.
func IsDeviceError(err error) bool {
	var derr *DeviceError
	return errors.As(err, &derr)
}
