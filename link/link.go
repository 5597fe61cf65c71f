package link

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

// DefaultReadTimeout is how long a read waits for data before returning zero bytes. The device
// firmware ends every variable-length transfer by going quiet, so a zero-length read after this
// timeout is the end-of-stream signal for header blocks, image dumps and title listings.
const DefaultReadTimeout = time.Second

// DefaultBaud matches the firmware's serial configuration.
const DefaultBaud = 115200

var ErrClosed = errors.New("link: closed")

// Link is an exclusive, bidirectional byte channel to the cartridge reader.
// Read blocks until at least one byte arrives or the read timeout elapses, in which case it
// returns 0 and a nil error.
type Link interface {
	io.Reader
	io.Writer
	io.Closer
}

// Descriptor selects and configures a device.
type Descriptor struct {
	Port        string
	Baud        int
	ReadTimeout time.Duration
}

func (d Descriptor) WithDefaults() Descriptor {
	if d.Baud <= 0 {
		d.Baud = DefaultBaud
	}
	if d.ReadTimeout <= 0 {
		d.ReadTimeout = DefaultReadTimeout
	}
	return d
}

type Driver interface {
	Open(desc Descriptor) (Link, error)
}

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]Driver)
)

// Register makes a link driver available by the provided name.
// If Register is called twice with the same name or if driver is nil,
// it panics.
func Register(name string, driver Driver) {
	driversMu.Lock()
	defer driversMu.Unlock()
	if driver == nil {
		panic("link: Register driver is nil")
	}
	if _, dup := drivers[name]; dup {
		panic("link: Register called twice for driver " + name)
	}
	drivers[name] = driver
}

// Drivers returns a sorted list of the names of the registered drivers.
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	list := make([]string, 0, len(drivers))
	for name := range drivers {
		list = append(list, name)
	}
	sort.Strings(list)
	return list
}

// DriverFor picks the driver name for a port string: websocket URLs go to the bridge driver,
// "mock" to the simulated device, everything else is a serial port.
func DriverFor(port string) string {
	switch {
	case strings.HasPrefix(port, "ws://"), strings.HasPrefix(port, "wss://"):
		return "wsbridge"
	case port == "mock":
		return "mock"
	default:
		return "serial"
	}
}

func Open(driverName string, desc Descriptor) (Link, error) {
	driversMu.RLock()
	driveri, ok := drivers[driverName]
	driversMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("link: unknown driver %q (forgotten import?)", driverName)
	}

	return driveri.Open(desc.WithDefaults())
}
