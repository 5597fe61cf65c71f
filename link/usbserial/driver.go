package usbserial

import (
	"errors"
	"fmt"
	log "github.com/sirupsen/logrus"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
	"strings"
	"writeboy/link"
)

const driverName = "serial"

type Driver struct{}

type Port struct {
	f    serial.Port
	name string
}

var (
	ErrNoDeviceFound = errors.New("serial: no cartridge reader found among serial ports")

	// USB vendor IDs of the boards and USB-serial bridges the reader firmware runs behind:
	knownVIDs = []string{
		"2341", // Arduino
		"2A03", // Arduino (arduino.org)
		"1A86", // WCH CH340
		"0403", // FTDI
		"10C4", // Silicon Labs CP210x
	}
)

// DetectDevice returns the first USB serial port with a known vendor ID.
func DetectDevice() (portName string, err error) {
	var ports []*enumerator.PortDetails

	ports, err = enumerator.GetDetailedPortsList()
	if err != nil {
		return "", fmt.Errorf("serial: could not list ports: %w", err)
	}

	for _, port := range ports {
		if !port.IsUSB {
			continue
		}

		log.Debugf("serial: found USB port %s (%s:%s)", port.Name, port.VID, port.PID)
		if isKnownVID(port.VID) {
			return port.Name, nil
		}
	}

	return "", ErrNoDeviceFound
}

func isKnownVID(vid string) bool {
	for _, known := range knownVIDs {
		if strings.EqualFold(vid, known) {
			return true
		}
	}
	return false
}

// PortInfo describes one serial port on the host.
type PortInfo struct {
	Name         string
	IsUSB        bool
	VID          string
	PID          string
	SerialNumber string
	Product      string
	Known        bool
}

func ListPorts() ([]PortInfo, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("serial: could not list ports: %w", err)
	}

	infos := make([]PortInfo, 0, len(ports))
	for _, port := range ports {
		infos = append(infos, PortInfo{
			Name:         port.Name,
			IsUSB:        port.IsUSB,
			VID:          port.VID,
			PID:          port.PID,
			SerialNumber: port.SerialNumber,
			Product:      port.Product,
			Known:        port.IsUSB && isKnownVID(port.VID),
		})
	}
	return infos, nil
}

func (d *Driver) Open(desc link.Descriptor) (link.Link, error) {
	var err error

	portName := desc.Port
	if portName == "" {
		portName, err = DetectDevice()
		if err != nil {
			return nil, err
		}
		log.Infof("serial: detected %s", portName)
	}

	log.Debugf("serial: open %s at %d baud", portName, desc.Baud)
	f, err := serial.Open(portName, &serial.Mode{
		BaudRate: desc.Baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("serial: failed to open %s: %w", portName, err)
	}

	if err = f.SetReadTimeout(desc.ReadTimeout); err != nil {
		f.Close()
		return nil, fmt.Errorf("serial: failed to set read timeout: %w", err)
	}

	// raising DTR resets the board, it then greets us with a line that the first
	// operation discards:
	if err = f.SetDTR(true); err != nil {
		f.Close()
		return nil, fmt.Errorf("serial: failed to set DTR: %w", err)
	}

	return &Port{f: f, name: portName}, nil
}

func (p *Port) Read(b []byte) (int, error) {
	return p.f.Read(b)
}

func (p *Port) Write(b []byte) (int, error) {
	return p.f.Write(b)
}

func (p *Port) Close() (err error) {
	// Clear DTR (ignore any errors since we're closing):
	log.Debugf("serial: %s: clear DTR", p.name)
	p.f.SetDTR(false)

	log.Debugf("serial: %s: close port", p.name)
	err = p.f.Close()
	if err != nil {
		return fmt.Errorf("serial: could not close %s: %w", p.name, err)
	}

	return
}

func init() {
	link.Register(driverName, &Driver{})
}
