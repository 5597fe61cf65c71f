package protocol

import (
	"bytes"
	"errors"
	"fmt"
	log "github.com/sirupsen/logrus"
	"io"
	"time"
	"writeboy/link"
)

// DefaultIdleLimit bounds how long a handshake waits without receiving anything at all.
// Informational lines reset the limit, so slow device work that reports progress is fine.
const DefaultIdleLimit = 60 * time.Second

// Observer receives the text side of the conversation with the device.
type Observer interface {
	// Command is called with every command line before it is sent.
	Command(text string)
	// Response is called with every response line that should be shown to the user.
	Response(r Response)
}

// Conn speaks the line protocol over a Link. Lines and raw binary data share one receive
// buffer, so bytes that follow a terminator line in the same read are not lost.
type Conn struct {
	link     link.Link
	observer Observer

	// echo '+' and informational lines to the observer
	Verbose bool
	// a '-' line ends the handshake but is not returned as an error
	ContinueOnError bool
	// longest silence tolerated inside a handshake
	IdleLimit time.Duration
	// optional per-chunk transfer statistics
	Stats *Stats

	pending []byte
	rbuf    [ReceiveChunkSize]byte
}

func NewConn(l link.Link, observer Observer) *Conn {
	return &Conn{
		link:      l,
		observer:  observer,
		IdleLimit: DefaultIdleLimit,
	}
}

func (c *Conn) echo(r Response) {
	if c.observer != nil {
		c.observer.Response(r)
	}
}

// fill performs one read from the link into the receive buffer. A zero count means the read
// timed out without data or the link reached its end.
func (c *Conn) fill() (int, error) {
	n, err := c.link.Read(c.rbuf[:])
	c.pending = append(c.pending, c.rbuf[:n]...)
	if errors.Is(err, io.EOF) {
		return n, nil
	}
	return n, err
}

// ReadLine returns the next line including its terminator. When the read timeout elapses first,
// whatever partial line has arrived is returned, possibly the empty string.
func (c *Conn) ReadLine() (string, error) {
	for {
		if i := bytes.IndexByte(c.pending, '\n'); i >= 0 {
			line := string(c.pending[:i+1])
			c.pending = c.pending[i+1:]
			return line, nil
		}

		n, err := c.fill()
		if err != nil {
			return "", fmt.Errorf("protocol: read line: %w", err)
		}
		if n == 0 {
			line := string(c.pending)
			c.pending = nil
			return line, nil
		}
	}
}

// readChunk fills p until it is full or a read from the link yields no data.
func (c *Conn) readChunk(p []byte) (int, error) {
	n := copy(p, c.pending)
	c.pending = c.pending[n:]

	for n < len(p) {
		m, err := c.link.Read(p[n:])
		n += m
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return n, fmt.Errorf("protocol: read: %w", err)
		}
		if m == 0 {
			break
		}
	}

	return n, nil
}

func (c *Conn) write(buf []byte) error {
	sent := 0
	for sent < len(buf) {
		n, err := c.link.Write(buf[sent:])
		if err != nil {
			return fmt.Errorf("protocol: write: %w", err)
		}
		sent += n
	}
	return nil
}

// SendCommand writes one command line.
func (c *Conn) SendCommand(text string) error {
	if c.observer != nil {
		c.observer.Command(text)
	}
	log.Debugf("<< %s", text)

	return c.write([]byte(text + "\n"))
}

// AwaitHandshake reads lines until the device ends the exchange with a '+' or '-' line.
// A '-' line is returned as a *DeviceError unless ContinueOnError is set.
func (c *Conn) AwaitHandshake(verbose bool) error {
	idleLimit := c.IdleLimit
	if idleLimit <= 0 {
		idleLimit = DefaultIdleLimit
	}

	lastData := time.Now()
	for {
		line, err := c.ReadLine()
		if err != nil {
			return err
		}
		if line == "" {
			if time.Since(lastData) > idleLimit {
				return ErrNoResponse
			}
			continue
		}
		lastData = time.Now()

		r := Classify(line)
		log.Debugf(">> %s", r.Text)

		switch r.Kind {
		case Failure:
			c.echo(r)
			derr := &DeviceError{Line: r.Text}
			if c.ContinueOnError {
				log.Warnf("protocol: continuing after %v", derr)
				return nil
			}
			return derr
		case Success:
			if verbose {
				c.echo(r)
			}
			return nil
		default:
			if verbose {
				c.echo(r)
			}
		}
	}
}

// Do sends a command and completes its handshake.
func (c *Conn) Do(text string) error {
	if err := c.SendCommand(text); err != nil {
		return err
	}
	return c.AwaitHandshake(c.Verbose)
}
