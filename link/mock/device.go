// Package mock simulates the cartridge reader firmware in memory. It answers the text commands,
// streams images back, and acknowledges written chunks, which is enough to drive every operation
// without hardware.
package mock

import (
	"bytes"
	"strings"
	"sync"
	"writeboy/gb"
	"writeboy/link"
)

const driverName = "mock"

// Device is an in-memory cartridge reader. The exported fields describe the inserted cartridge
// and the faults to inject; the recorded fields capture what the host sent.
type Device struct {
	Header  []byte
	ROM     []byte
	SRAM    []byte
	Mapping []byte
	Titles  []string

	// save RAM of the individual titles of a multi-cartridge, by title slot
	Slots map[string][]byte

	// informational lines emitted before every '+' terminator
	Info []string
	// command text to error message; the message is sent as "-<message>"
	Fail map[string]string
	// 1-based write chunk number that is rejected, 0 to accept every chunk
	FailChunk int
	// maximum bytes returned by one Read, 0 for unlimited
	Fragment int

	mu       sync.Mutex
	out      []byte
	line     []byte
	sink     func(p []byte)
	closed   bool
	commands []string
	chunks   int
}

// Header builds a header window with a valid logo and the given title.
func Header(title string) []byte {
	raw := make([]byte, gb.HeaderSize)
	copy(raw, []byte{0x00, 0xC3, 0x50, 0x01})
	copy(raw[0x04:], gb.Logo[:])
	copy(raw[0x34:0x44], title)
	return raw
}

// New returns a device with a cartridge titled title, already holding the line the firmware
// prints after reset.
func New(title string) *Device {
	d := &Device{
		Header: Header(title),
		Slots:  make(map[string][]byte),
		Fail:   make(map[string]string),
	}
	d.out = append(d.out, "READY\n"...)
	return d
}

func (d *Device) Read(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return 0, link.ErrClosed
	}

	n := len(p)
	if d.Fragment > 0 && n > d.Fragment {
		n = d.Fragment
	}
	n = copy(p[:n], d.out)
	d.out = d.out[n:]
	return n, nil
}

func (d *Device) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return 0, link.ErrClosed
	}

	if d.sink != nil {
		// every write in a write transfer is one chunk:
		d.chunks++
		d.sink(p)
		if d.chunks == d.FailChunk {
			d.reply("-WRITE FAILED")
		} else {
			d.reply("+OK")
		}
		return len(p), nil
	}

	d.line = append(d.line, p...)
	for {
		i := bytes.IndexByte(d.line, '\n')
		if i < 0 {
			break
		}
		cmd := strings.TrimRight(string(d.line[:i]), "\r")
		d.line = d.line[i+1:]
		d.execute(cmd)
	}

	return len(p), nil
}

func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *Device) reply(lines ...string) {
	for _, line := range lines {
		d.out = append(d.out, line...)
		d.out = append(d.out, '\n')
	}
}

func (d *Device) execute(cmd string) {
	d.commands = append(d.commands, cmd)

	if msg, ok := d.Fail[cmd]; ok {
		d.reply(d.Info...)
		d.reply("-" + msg)
		return
	}

	verb, arg := cmd, ""
	if strings.HasPrefix(cmd, "DUMP SRAM ") || strings.HasPrefix(cmd, "WRITE SRAM ") {
		i := strings.LastIndexByte(cmd, ' ')
		verb, arg = cmd[:i], cmd[i+1:]
	}

	var payload []byte
	switch verb {
	case "HEADER":
		payload = d.Header
	case "DUMP ROM", "DUMP GBMCROM":
		payload = d.ROM
	case "DUMP SRAM":
		payload = d.SRAM
		if arg != "" {
			payload = d.Slots[arg]
		}
	case "DUMP MAPPING":
		payload = d.Mapping
	case "DUMP TITLES":
		var b strings.Builder
		for _, title := range d.Titles {
			b.WriteString(title)
			b.WriteByte('\n')
		}
		payload = []byte(b.String())
	case "WRITE SRAM":
		if arg != "" {
			delete(d.Slots, arg)
			d.sink = func(p []byte) { d.Slots[arg] = append(d.Slots[arg], p...) }
		} else {
			d.SRAM = nil
			d.sink = func(p []byte) { d.SRAM = append(d.SRAM, p...) }
		}
	case "WRITE GBMCROM":
		d.ROM = nil
		d.sink = func(p []byte) { d.ROM = append(d.ROM, p...) }
	case "WRITE MAPPING":
		d.Mapping = nil
		d.sink = func(p []byte) { d.Mapping = append(d.Mapping, p...) }
	default:
		d.reply("-UNKNOWN COMMAND")
		return
	}

	d.reply(d.Info...)
	d.reply("+OK")
	d.out = append(d.out, payload...)
}

// Commands returns the command lines received so far.
func (d *Device) Commands() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.commands...)
}

// Chunks returns the number of write transfer chunks received so far.
func (d *Device) Chunks() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.chunks
}

// Pending returns the bytes queued for the host that it has not read yet.
func (d *Device) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.out)
}

// Closed reports whether the host closed the link.
func (d *Device) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}
