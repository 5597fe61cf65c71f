package engine

import (
	"fmt"
	"path/filepath"
	"writeboy/gb"
)

// Direction is the kind of data phase that follows an operation's command.
type Direction int

const (
	None Direction = iota
	// Receive streams an image from the device.
	Receive
	// Send writes an image to the device chunk by chunk.
	Send
	// Lines receives a text listing.
	Lines
)

func (d Direction) String() string {
	switch d {
	case Receive:
		return "receive"
	case Send:
		return "send"
	case Lines:
		return "lines"
	default:
		return "none"
	}
}

type Operation struct {
	Name      string
	Command   string
	Direction Direction
	// default file extension of the image
	Extension string
	// accepts a title slot of a multi-cartridge
	Slotted bool
}

var (
	Info         = Operation{Name: "info"}
	DumpROM      = Operation{Name: "dump-rom", Command: "DUMP ROM", Direction: Receive, Extension: "gb"}
	DumpGBMCROM  = Operation{Name: "dump-gbmc-rom", Command: "DUMP GBMCROM", Direction: Receive, Extension: "gb"}
	DumpSRAM     = Operation{Name: "dump-sram", Command: "DUMP SRAM", Direction: Receive, Extension: "sav", Slotted: true}
	DumpMapping  = Operation{Name: "dump-mapping", Command: "DUMP MAPPING", Direction: Receive, Extension: "map"}
	DumpTitles   = Operation{Name: "dump-titles", Command: "DUMP TITLES", Direction: Lines}
	WriteSRAM    = Operation{Name: "write-sram", Command: "WRITE SRAM", Direction: Send, Extension: "sav", Slotted: true}
	WriteGBMCROM = Operation{Name: "write-gbmc-rom", Command: "WRITE GBMCROM", Direction: Send, Extension: "gb"}
	WriteMapping = Operation{Name: "write-mapping", Command: "WRITE MAPPING", Direction: Send, Extension: "map"}
)

var operations = []Operation{
	Info,
	DumpROM,
	DumpGBMCROM,
	DumpSRAM,
	DumpMapping,
	DumpTitles,
	WriteSRAM,
	WriteGBMCROM,
	WriteMapping,
}

// Operations lists every supported operation.
func Operations() []Operation {
	return append([]Operation(nil), operations...)
}

func OperationFor(name string) (Operation, error) {
	for _, op := range operations {
		if op.Name == name {
			return op, nil
		}
	}
	return Operation{}, fmt.Errorf("engine: unknown operation %q", name)
}

// CommandText is the command line sent for the operation, with the title slot appended when
// one is given.
func (op Operation) CommandText(slot string) string {
	if slot == "" {
		return op.Command
	}
	return op.Command + " " + slot
}

// FileName returns explicit when set, otherwise the cartridge title with the operation's
// extension inside dir.
func (op Operation) FileName(h *gb.Header, dir, explicit string) string {
	if explicit != "" {
		return explicit
	}
	title := h.Title
	if title == "" {
		title = "untitled"
	}
	return filepath.Join(dir, title+"."+op.Extension)
}
