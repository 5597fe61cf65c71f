package engine

import (
	"context"
	"errors"
	"fmt"
	log "github.com/sirupsen/logrus"
	"os"
	"strings"
	"unicode"
	"writeboy/gb"
	"writeboy/protocol"
)

var (
	ErrLogoMismatch = errors.New("engine: cartridge logo check failed")
	ErrSlotRejected = errors.New("engine: operation does not take a title slot")
	ErrInvalidSlot  = errors.New("engine: invalid title slot")
)

type Options struct {
	// image file; derived from the cartridge title when empty
	Filename string
	// directory for derived file names
	Dir string
	// title slot of a multi-cartridge, empty for the default scope
	Slot string
	// run even when the logo check fails
	SkipCheck bool
}

type Result struct {
	Header *gb.Header
	// image file read or written, empty when the operation has none
	Path  string
	Bytes int64
	Lines int
}

// Controller runs one operation against a connected device.
type Controller struct {
	conn     *protocol.Conn
	reporter Reporter
}

func NewController(conn *protocol.Conn, reporter Reporter) *Controller {
	return &Controller{conn: conn, reporter: reporter}
}

func validSlot(slot string) bool {
	if slot == "" {
		return true
	}
	return strings.IndexFunc(slot, func(r rune) bool {
		return unicode.IsSpace(r) || !unicode.IsPrint(r)
	}) < 0
}

// Run reads the header, checks it, then issues the operation's command and drives its data
// phase. The header is always read fresh since the cartridge may have been swapped.
func (c *Controller) Run(ctx context.Context, op Operation, opts Options) (res *Result, err error) {
	if opts.Slot != "" && !op.Slotted {
		return nil, fmt.Errorf("%w: %s", ErrSlotRejected, op.Name)
	}
	if !validSlot(opts.Slot) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSlot, opts.Slot)
	}

	res = &Result{}
	res.Header, err = c.conn.FetchHeader()
	if err != nil {
		return
	}
	c.reporter.Header(res.Header)

	if op.Direction == None {
		return
	}

	if !res.Header.LogoOK {
		if !opts.SkipCheck {
			err = ErrLogoMismatch
			return
		}
		log.Warn("engine: logo check failed, continuing as requested")
	}

	switch op.Direction {
	case Receive:
		res.Path = op.FileName(res.Header, opts.Dir, opts.Filename)
		res.Bytes, err = c.receiveImage(ctx, op, opts.Slot, res.Path)
	case Send:
		res.Path = op.FileName(res.Header, opts.Dir, opts.Filename)
		res.Bytes, err = c.sendImage(ctx, op, opts.Slot, res.Path)
	case Lines:
		if err = c.conn.Do(op.CommandText(opts.Slot)); err != nil {
			return
		}
		res.Lines, err = c.conn.ReceiveLines(ctx, c.reporter.Title)
	}

	return
}

func (c *Controller) receiveImage(ctx context.Context, op Operation, slot, path string) (total int64, err error) {
	if err = c.conn.Do(op.CommandText(slot)); err != nil {
		return
	}

	c.reporter.Target(path)
	f, err := os.Create(path)
	if err != nil {
		err = fmt.Errorf("engine: %w", err)
		return
	}
	// a partial image stays on disk when the transfer fails:
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("engine: %w", cerr)
		}
	}()

	total, err = c.conn.Receive(ctx, f, func(n int64) {
		c.reporter.Progress(Receive, n)
	})
	if err != nil {
		return
	}

	log.Debugf("engine: received %d bytes into %s", total, path)
	c.reporter.Done(Receive, total)
	return
}

func (c *Controller) sendImage(ctx context.Context, op Operation, slot, path string) (total int64, err error) {
	// open the source before the device is put into write mode:
	f, err := os.Open(path)
	if err != nil {
		err = fmt.Errorf("engine: %w", err)
		return
	}
	defer f.Close()

	if err = c.conn.Do(op.CommandText(slot)); err != nil {
		return
	}

	c.reporter.Target(path)
	total, err = c.conn.Send(ctx, f, func(n int64) {
		c.reporter.Progress(Send, n)
	})
	if err != nil {
		return
	}

	log.Debugf("engine: sent %d bytes from %s", total, path)
	c.reporter.Done(Send, total)
	return
}
