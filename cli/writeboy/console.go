package main

import (
	"fmt"
	"io"
	"writeboy/engine"
	"writeboy/gb"
	"writeboy/protocol"
)

var rotor = []byte{'\\', '|', '/', '-'}

// consoleReporter prints the conversation and transfer progress. On a terminal the progress
// line is redrawn in place; otherwise only the summary is printed.
type consoleReporter struct {
	w   io.Writer
	tty bool

	count int
	// a progress line without its newline is on screen
	midLine bool
}

func newConsoleReporter(w io.Writer, tty bool) *consoleReporter {
	return &consoleReporter{w: w, tty: tty}
}

func (r *consoleReporter) breakLine() {
	if r.midLine {
		fmt.Fprintln(r.w)
		r.midLine = false
	}
}

func (r *consoleReporter) Command(text string) {
	r.breakLine()
	fmt.Fprintf(r.w, "<< %s\n", text)
}

func (r *consoleReporter) Response(resp protocol.Response) {
	r.breakLine()
	if resp.Kind == protocol.Info {
		fmt.Fprintf(r.w, "** %s\n", resp.Text)
		return
	}
	fmt.Fprintf(r.w, ">> %s\n", resp.Text)
}

func okNG(ok bool) string {
	if ok {
		return "OK"
	}
	return "NG"
}

func (r *consoleReporter) Header(h *gb.Header) {
	fmt.Fprintf(r.w, "Logo check: %s\n", okNG(h.LogoOK))
	fmt.Fprintf(r.w, "Title: [%s]\n", h.Title)
	fmt.Fprintf(r.w, "Cartridge type: %s\n", h.CartridgeType)
	fmt.Fprintf(r.w, "%s ROM / %s RAM\n", h.ROMSize, h.RAMSize)
	if !h.HeaderChecksumOK {
		fmt.Fprintf(r.w, "Header checksum: %s\n", okNG(false))
	}
	if !h.Complete() {
		fmt.Fprintf(r.w, "Header: only %d of %d bytes received\n", h.Received, gb.HeaderSize)
	}
	fmt.Fprintln(r.w)
}

func (r *consoleReporter) Target(path string) {
	fmt.Fprintf(r.w, "Target file: %s\n", path)
}

func verb(dir engine.Direction) string {
	if dir == engine.Send {
		return "Sent"
	}
	return "Received"
}

func (r *consoleReporter) Progress(dir engine.Direction, total int64) {
	r.count++
	if !r.tty {
		return
	}
	fmt.Fprintf(r.w, "\r %c %s %4d kbytes (%7d bytes)", rotor[r.count%len(rotor)], verb(dir), total/1024, total)
	r.midLine = true
}

func (r *consoleReporter) Done(dir engine.Direction, total int64) {
	if r.midLine {
		fmt.Fprint(r.w, "\r")
		r.midLine = false
	}
	fmt.Fprintf(r.w, "OK %s %4d kbytes (%7d bytes)\n", verb(dir), total/1024, total)
}

func (r *consoleReporter) Title(line string) {
	fmt.Fprintln(r.w, line)
}

// Abort finishes a progress line left open by a failed transfer.
func (r *consoleReporter) Abort() {
	r.breakLine()
}
