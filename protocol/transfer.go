package protocol

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

const (
	// ReceiveChunkSize is the read size of a device to host transfer. The device paces the
	// stream, the host never acknowledges.
	ReceiveChunkSize = 256
	// SendChunkSize is the size of each host to device chunk. Every chunk waits for its own
	// handshake, which keeps the unacknowledged data within the firmware's buffer.
	SendChunkSize = 128
)

// ProgressFunc is called with the running byte count of a transfer.
type ProgressFunc func(total int64)

// Receive copies the device's stream into w until a read yields no data.
func (c *Conn) Receive(ctx context.Context, w io.Writer, progress ProgressFunc) (total int64, err error) {
	buf := make([]byte, ReceiveChunkSize)
	for {
		if err = ctx.Err(); err != nil {
			return
		}

		start := time.Now()
		n, rerr := c.readChunk(buf)
		if n == 0 {
			err = rerr
			return
		}
		c.Stats.record(n, time.Since(start))

		// bytes taken off the link reach the sink even when the read then failed:
		if _, err = w.Write(buf[:n]); err != nil {
			err = fmt.Errorf("protocol: receive: %w", err)
			return
		}
		total += int64(n)

		if progress != nil {
			progress(total)
		}
		if rerr != nil {
			err = rerr
			return
		}
	}
}

// Send transmits r in SendChunkSize chunks and completes a quiet handshake after each one before
// the next chunk is read. The returned count includes a chunk the device rejected.
func (c *Conn) Send(ctx context.Context, r io.Reader, progress ProgressFunc) (sent int64, err error) {
	buf := make([]byte, SendChunkSize)
	for {
		if err = ctx.Err(); err != nil {
			return
		}

		n, rerr := io.ReadFull(r, buf)
		if rerr != nil && !errors.Is(rerr, io.EOF) && !errors.Is(rerr, io.ErrUnexpectedEOF) {
			err = fmt.Errorf("protocol: send: %w", rerr)
			return
		}
		if n == 0 {
			return
		}

		start := time.Now()
		if err = c.write(buf[:n]); err != nil {
			return
		}
		sent += int64(n)

		// per-chunk acknowledgements are never echoed:
		if err = c.AwaitHandshake(false); err != nil {
			return
		}
		c.Stats.record(n, time.Since(start))

		if progress != nil {
			progress(sent)
		}
	}
}

// ReceiveLines hands each text line of the device's stream to fn until a read yields no data.
func (c *Conn) ReceiveLines(ctx context.Context, fn func(line string)) (count int, err error) {
	for {
		if err = ctx.Err(); err != nil {
			return
		}

		var line string
		line, err = c.ReadLine()
		if err != nil {
			return
		}
		if line == "" {
			return
		}

		count++
		fn(strings.TrimRight(line, "\r\n"))
	}
}
