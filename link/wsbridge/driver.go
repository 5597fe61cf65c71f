// Package wsbridge reaches a cartridge reader that is attached to another machine and exposed
// through a websocket-to-serial bridge. Every binary message carries raw serial bytes in either
// direction.
package wsbridge

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	log "github.com/sirupsen/logrus"
	"io"
	"net"
	"sync"
	"time"
	"writeboy/link"
)

const driverName = "wsbridge"

type Driver struct{}

type message struct {
	data []byte
	err  error
}

type Conn struct {
	urlstr  string
	timeout time.Duration

	ws net.Conn
	// serializes frame writes from Write, Close and control frame replies:
	wmu sync.Mutex

	messages chan message
	done     chan struct{}

	// remainder of the last received message:
	pending []byte
	// sticky error once the reader has stopped
	err error
}

// lockedWriter lets the reader goroutine answer pings without interleaving with Write.
type lockedWriter struct {
	mu *sync.Mutex
	w  io.Writer
}

func (l lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

func (d *Driver) Open(desc link.Descriptor) (link.Link, error) {
	log.Debugf("wsbridge: dial %s", desc.Port)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, br, _, err := ws.Dial(ctx, desc.Port)
	if err != nil {
		return nil, fmt.Errorf("wsbridge: dial %s: %w", desc.Port, err)
	}

	c := &Conn{
		urlstr:   desc.Port,
		timeout:  desc.ReadTimeout,
		ws:       conn,
		messages: make(chan message),
		done:     make(chan struct{}),
	}
	go c.readLoop(conn, br)

	return c, nil
}

// readLoop owns the read side of the websocket. It reads whole messages without a deadline so
// a frame is never abandoned halfway; Read applies the link's read timeout to the hand-off.
func (c *Conn) readLoop(conn net.Conn, br *bufio.Reader) {
	// the handshake may have read ahead into the first frames:
	var src io.Reader = conn
	if br != nil {
		src = br
		defer ws.PutReader(br)
	}

	ctrl := wsutil.ControlFrameHandler(lockedWriter{&c.wmu, conn}, ws.StateClientSide)
	rd := &wsutil.Reader{
		Source:         src,
		State:          ws.StateClientSide,
		OnIntermediate: ctrl,
	}

	for {
		m := c.nextMessage(rd, ctrl)
		select {
		case c.messages <- m:
		case <-c.done:
			return
		}
		if m.err != nil {
			return
		}
	}
}

func (c *Conn) nextMessage(rd *wsutil.Reader, ctrl wsutil.FrameHandlerFunc) message {
	for {
		hdr, err := rd.NextFrame()
		if err != nil {
			return message{err: err}
		}

		if hdr.OpCode.IsControl() {
			if err = ctrl(hdr, rd); err != nil {
				return message{err: err}
			}
			continue
		}

		if hdr.OpCode != ws.OpBinary && hdr.OpCode != ws.OpText {
			if err = rd.Discard(); err != nil {
				return message{err: err}
			}
			continue
		}

		data, err := io.ReadAll(rd)
		if err != nil {
			return message{err: err}
		}
		if len(data) > 0 {
			return message{data: data}
		}
	}
}

func (c *Conn) Read(p []byte) (int, error) {
	if c.ws == nil {
		return 0, link.ErrClosed
	}

	if len(c.pending) == 0 {
		if c.err != nil {
			return 0, c.err
		}

		timer := time.NewTimer(c.timeout)
		defer timer.Stop()

		select {
		case m := <-c.messages:
			if m.err != nil {
				var cerr wsutil.ClosedError
				if errors.As(m.err, &cerr) {
					c.err = io.EOF
				} else {
					c.err = fmt.Errorf("wsbridge: [%s] read: %w", c.urlstr, m.err)
				}
				return 0, c.err
			}
			c.pending = m.data
		case <-timer.C:
			// no data within the read timeout:
			return 0, nil
		}
	}

	n := copy(p, c.pending)
	c.pending = c.pending[n:]
	return n, nil
}

func (c *Conn) Write(p []byte) (int, error) {
	if c.ws == nil {
		return 0, link.ErrClosed
	}

	c.wmu.Lock()
	err := wsutil.WriteClientBinary(c.ws, p)
	c.wmu.Unlock()
	if err != nil {
		return 0, fmt.Errorf("wsbridge: [%s] write: %w", c.urlstr, err)
	}
	return len(p), nil
}

func (c *Conn) Close() (err error) {
	if c.ws == nil {
		return nil
	}

	log.Debugf("wsbridge: [%s] close websocket", c.urlstr)
	close(c.done)

	// best effort close frame; the bridge may already be gone:
	c.wmu.Lock()
	_ = ws.WriteFrame(c.ws, ws.MaskFrame(ws.NewCloseFrame(ws.NewCloseFrameBody(ws.StatusNormalClosure, ""))))
	c.wmu.Unlock()

	// unblocks the reader goroutine:
	err = c.ws.Close()
	c.ws = nil

	return
}

func init() {
	link.Register(driverName, &Driver{})
}
