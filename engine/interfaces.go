package engine

import (
	"writeboy/gb"
	"writeboy/protocol"
)

// Reporter receives everything an operation has to tell the user.
type Reporter interface {
	protocol.Observer

	// Header is called once the cartridge header has been read, before it is validated.
	Header(h *gb.Header)
	// Target names the file an image is read from or written to.
	Target(path string)
	// Progress is called after every chunk with the running byte count.
	Progress(dir Direction, total int64)
	// Done is called once a transfer completes.
	Done(dir Direction, total int64)
	// Title is called with each line of a title listing.
	Title(line string)
}
