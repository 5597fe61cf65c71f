package mock

import (
	"writeboy/link"
)

type Driver struct{}

// Open returns a fresh simulated reader holding a small cartridge.
func (d *Driver) Open(desc link.Descriptor) (link.Link, error) {
	dev := New("TETRIS")
	dev.ROM = make([]byte, 0x8000)
	copy(dev.ROM[0x100:], dev.Header)
	dev.SRAM = make([]byte, 0x2000)
	dev.Mapping = make([]byte, 0x80)
	dev.Titles = []string{"1 TETRIS"}
	dev.Info = []string{"mock: " + desc.Port}
	return dev, nil
}

func init() {
	link.Register(driverName, &Driver{})
}
