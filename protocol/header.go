package protocol

import (
	"writeboy/gb"
)

const CmdHeader = "HEADER"

// FetchHeader reads the cartridge header window. It discards one stale line left over from
// before the link was opened, then receives the block that follows the HEADER handshake until
// the device goes quiet.
func (c *Conn) FetchHeader() (*gb.Header, error) {
	if _, err := c.ReadLine(); err != nil {
		return nil, err
	}

	if err := c.SendCommand(CmdHeader); err != nil {
		return nil, err
	}
	// the header exchange is quiet even in verbose mode:
	if err := c.AwaitHandshake(false); err != nil {
		return nil, err
	}

	block := make([]byte, 0, gb.HeaderSize)
	buf := make([]byte, gb.HeaderSize)
	for {
		n, err := c.readChunk(buf)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			break
		}
		block = append(block, buf[:n]...)
	}

	return gb.Parse(block), nil
}
