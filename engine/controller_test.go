package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"writeboy/gb"
	"writeboy/link/mock"
	"writeboy/protocol"
	"writeboy/util"
)

type event struct {
	kind  string
	value string
}

type testReporter struct {
	events   []event
	header   *gb.Header
	progress []int64
}

func (r *testReporter) Command(text string) {
	r.events = append(r.events, event{"command", text})
}

func (r *testReporter) Response(resp protocol.Response) {
	r.events = append(r.events, event{"response", resp.Text})
}

func (r *testReporter) Header(h *gb.Header) {
	r.header = h
	r.events = append(r.events, event{"header", h.Title})
}

func (r *testReporter) Target(path string) {
	r.events = append(r.events, event{"target", filepath.Base(path)})
}

func (r *testReporter) Progress(dir Direction, total int64) {
	r.progress = append(r.progress, total)
}

func (r *testReporter) Done(dir Direction, total int64) {
	r.events = append(r.events, event{"done", fmt.Sprintf("%s %d", dir, total)})
}

func (r *testReporter) Title(line string) {
	r.events = append(r.events, event{"title", line})
}

func newTestController(t *testing.T, dev *mock.Device) (*Controller, *testReporter) {
	t.Helper()
	util.UseTestingLogger(t)

	rep := &testReporter{}
	conn := protocol.NewConn(dev, rep)
	return NewController(conn, rep), rep
}

func pattern(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i * 7)
	}
	return b
}

func assertCommands(t *testing.T, dev *mock.Device, want ...string) {
	t.Helper()
	if got := dev.Commands(); !reflect.DeepEqual(got, want) {
		t.Fatalf("commands = %q, want %q", got, want)
	}
}

func TestRunDumpROM(t *testing.T) {
	dev := mock.New("TETRIS")
	dev.ROM = pattern(0x8000)
	c, rep := newTestController(t, dev)

	dir := t.TempDir()
	res, err := c.Run(context.Background(), DumpROM, Options{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}

	want := filepath.Join(dir, "TETRIS.gb")
	if res.Path != want {
		t.Fatalf("Path = %q, want %q", res.Path, want)
	}
	got, err := os.ReadFile(want)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, dev.ROM) || res.Bytes != int64(len(dev.ROM)) {
		t.Fatalf("image has %d bytes, result says %d", len(got), res.Bytes)
	}

	assertCommands(t, dev, "HEADER", "DUMP ROM")
	wantEvents := []event{
		{"command", "HEADER"},
		{"header", "TETRIS"},
		{"command", "DUMP ROM"},
		{"target", "TETRIS.gb"},
		{"done", "receive 32768"},
	}
	if !reflect.DeepEqual(rep.events, wantEvents) {
		t.Fatalf("events = %v", rep.events)
	}
	if len(rep.progress) != 0x8000/protocol.ReceiveChunkSize {
		t.Fatalf("%d progress reports", len(rep.progress))
	}
}

func TestRunExplicitFilename(t *testing.T) {
	dev := mock.New("TETRIS")
	dev.Mapping = pattern(0x80)
	c, _ := newTestController(t, dev)

	path := filepath.Join(t.TempDir(), "backup.bin")
	res, err := c.Run(context.Background(), DumpMapping, Options{Filename: path, Dir: "ignored"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Path != path {
		t.Fatalf("Path = %q", res.Path)
	}
	if got, _ := os.ReadFile(path); !bytes.Equal(got, dev.Mapping) {
		t.Fatal("mapping mismatch")
	}
}

func TestRunLogoMismatch(t *testing.T) {
	dev := mock.New("TETRIS")
	dev.Header[0x10] ^= 0xFF
	dev.ROM = pattern(1024)
	c, rep := newTestController(t, dev)

	dir := t.TempDir()
	_, err := c.Run(context.Background(), DumpROM, Options{Dir: dir})
	if !errors.Is(err, ErrLogoMismatch) {
		t.Fatalf("Run() = %v, want %v", err, ErrLogoMismatch)
	}
	if rep.header == nil || rep.header.LogoOK {
		t.Fatal("header must be reported before validation")
	}
	assertCommands(t, dev, "HEADER")
	if _, err := os.Stat(filepath.Join(dir, "TETRIS.gb")); !os.IsNotExist(err) {
		t.Fatalf("image created: %v", err)
	}
}

func TestRunSkipCheck(t *testing.T) {
	dev := mock.New("TETRIS")
	dev.Header[0x10] ^= 0xFF
	dev.ROM = pattern(1024)
	c, _ := newTestController(t, dev)

	dir := t.TempDir()
	res, err := c.Run(context.Background(), DumpROM, Options{Dir: dir, SkipCheck: true})
	if err != nil {
		t.Fatal(err)
	}
	if res.Path != filepath.Join(dir, "TETRIS.gb") || res.Bytes != 1024 {
		t.Fatalf("result = %+v", res)
	}
	got, err := os.ReadFile(res.Path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, dev.ROM) {
		t.Fatalf("image holds %d bytes, want the %d byte ROM", len(got), len(dev.ROM))
	}
	assertCommands(t, dev, "HEADER", "DUMP ROM")
}

func TestRunInfo(t *testing.T) {
	dev := mock.New("TETRIS")
	dev.Header[0x10] ^= 0xFF
	c, _ := newTestController(t, dev)

	res, err := c.Run(context.Background(), Info, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Header.Title != "TETRIS" || res.Header.LogoOK || res.Path != "" {
		t.Fatalf("result = %+v", res)
	}
	assertCommands(t, dev, "HEADER")
}

func TestRunDumpSRAMSlot(t *testing.T) {
	dev := mock.New("GBMC MULTI")
	dev.SRAM = pattern(0x2000)
	dev.Slots["3"] = pattern(0x800)[0x100:]
	c, _ := newTestController(t, dev)

	dir := t.TempDir()
	res, err := c.Run(context.Background(), DumpSRAM, Options{Dir: dir, Slot: "3"})
	if err != nil {
		t.Fatal(err)
	}
	assertCommands(t, dev, "HEADER", "DUMP SRAM 3")
	if res.Path != filepath.Join(dir, "GBMC MULTI.sav") {
		t.Fatalf("Path = %q", res.Path)
	}
	if got, _ := os.ReadFile(res.Path); !bytes.Equal(got, dev.Slots["3"]) {
		t.Fatal("slot save mismatch")
	}
}

func TestRunSlotValidation(t *testing.T) {
	dev := mock.New("TETRIS")
	c, _ := newTestController(t, dev)

	if _, err := c.Run(context.Background(), DumpROM, Options{Slot: "1"}); !errors.Is(err, ErrSlotRejected) {
		t.Fatalf("Run() = %v", err)
	}
	if _, err := c.Run(context.Background(), DumpSRAM, Options{Slot: "1\nWRITE SRAM"}); !errors.Is(err, ErrInvalidSlot) {
		t.Fatalf("Run() = %v", err)
	}
	assertCommands(t, dev)
}

func TestRunDumpTitles(t *testing.T) {
	dev := mock.New("GBMC MULTI")
	dev.Titles = []string{"1 TETRIS", "2 KIRBY"}
	c, rep := newTestController(t, dev)

	res, err := c.Run(context.Background(), DumpTitles, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Lines != 2 {
		t.Fatalf("Lines = %d", res.Lines)
	}
	want := []event{
		{"command", "HEADER"},
		{"header", "GBMC MULTI"},
		{"command", "DUMP TITLES"},
		{"title", "1 TETRIS"},
		{"title", "2 KIRBY"},
	}
	if !reflect.DeepEqual(rep.events, want) {
		t.Fatalf("events = %v", rep.events)
	}
}

func TestRunWrite(t *testing.T) {
	tests := []struct {
		op   Operation
		slot string
		file string
		cmd  string
		got  func(dev *mock.Device) []byte
	}{
		{WriteSRAM, "", "TETRIS.sav", "WRITE SRAM", func(dev *mock.Device) []byte { return dev.SRAM }},
		{WriteSRAM, "2", "TETRIS.sav", "WRITE SRAM 2", func(dev *mock.Device) []byte { return dev.Slots["2"] }},
		{WriteGBMCROM, "", "TETRIS.gb", "WRITE GBMCROM", func(dev *mock.Device) []byte { return dev.ROM }},
		{WriteMapping, "", "TETRIS.map", "WRITE MAPPING", func(dev *mock.Device) []byte { return dev.Mapping }},
	}
	for _, tt := range tests {
		t.Run(tt.cmd, func(t *testing.T) {
			dev := mock.New("TETRIS")
			c, rep := newTestController(t, dev)

			dir := t.TempDir()
			image := pattern(1000)
			if err := os.WriteFile(filepath.Join(dir, tt.file), image, 0644); err != nil {
				t.Fatal(err)
			}

			res, err := c.Run(context.Background(), tt.op, Options{Dir: dir, Slot: tt.slot})
			if err != nil {
				t.Fatal(err)
			}
			assertCommands(t, dev, "HEADER", tt.cmd)
			if !bytes.Equal(tt.got(dev), image) || res.Bytes != 1000 {
				t.Fatalf("device holds %d bytes, result says %d", len(tt.got(dev)), res.Bytes)
			}
			if dev.Chunks() != 8 || len(rep.progress) != 8 {
				t.Fatalf("%d chunks, %d progress reports", dev.Chunks(), len(rep.progress))
			}
		})
	}
}

func TestRunWriteRejected(t *testing.T) {
	dev := mock.New("TETRIS")
	dev.FailChunk = 2
	c, rep := newTestController(t, dev)

	path := filepath.Join(t.TempDir(), "game.gb")
	if err := os.WriteFile(path, pattern(1000), 0644); err != nil {
		t.Fatal(err)
	}

	res, err := c.Run(context.Background(), WriteGBMCROM, Options{Filename: path})
	var derr *protocol.DeviceError
	if !errors.As(err, &derr) || derr.Line != "-WRITE FAILED" {
		t.Fatalf("Run() = %v", err)
	}
	if dev.Chunks() != 2 || res.Bytes != 2*protocol.SendChunkSize {
		t.Fatalf("%d chunks, %d bytes", dev.Chunks(), res.Bytes)
	}
	for _, e := range rep.events {
		if e.kind == "done" {
			t.Fatal("rejected transfer reported as done")
		}
	}
}

func TestRunMissingSource(t *testing.T) {
	dev := mock.New("TETRIS")
	c, _ := newTestController(t, dev)

	_, err := c.Run(context.Background(), WriteSRAM, Options{Dir: t.TempDir()})
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Run() = %v", err)
	}
	// the device never entered write mode:
	assertCommands(t, dev, "HEADER")
}

func TestRunCommandRejected(t *testing.T) {
	dev := mock.New("TETRIS")
	dev.Fail["DUMP ROM"] = "NO CARTRIDGE"
	c, _ := newTestController(t, dev)

	dir := t.TempDir()
	_, err := c.Run(context.Background(), DumpROM, Options{Dir: dir})
	if !protocol.IsDeviceError(err) {
		t.Fatalf("Run() = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "TETRIS.gb")); !os.IsNotExist(err) {
		t.Fatalf("image created: %v", err)
	}
}

func TestRunEmptyImage(t *testing.T) {
	dev := mock.New("TETRIS")
	c, rep := newTestController(t, dev)

	res, err := c.Run(context.Background(), DumpSRAM, Options{Dir: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(res.Path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != 0 || res.Bytes != 0 {
		t.Fatalf("size %d", info.Size())
	}
	if last := rep.events[len(rep.events)-1]; last != (event{"done", "receive 0"}) {
		t.Fatalf("last event = %v", last)
	}
}

func TestOperations(t *testing.T) {
	want := map[string]string{
		"info":           "",
		"dump-rom":       "DUMP ROM",
		"dump-gbmc-rom":  "DUMP GBMCROM",
		"dump-sram":      "DUMP SRAM",
		"dump-mapping":   "DUMP MAPPING",
		"dump-titles":    "DUMP TITLES",
		"write-sram":     "WRITE SRAM",
		"write-gbmc-rom": "WRITE GBMCROM",
		"write-mapping":  "WRITE MAPPING",
	}
	ops := Operations()
	if len(ops) != len(want) {
		t.Fatalf("%d operations", len(ops))
	}
	for _, op := range ops {
		if op.Command != want[op.Name] {
			t.Errorf("%s: command %q, want %q", op.Name, op.Command, want[op.Name])
		}
		got, err := OperationFor(op.Name)
		if err != nil || got != op {
			t.Errorf("OperationFor(%q) = %+v, %v", op.Name, got, err)
		}
	}
	if _, err := OperationFor("format"); err == nil {
		t.Error("OperationFor(format) succeeded")
	}

	if got := DumpSRAM.CommandText("5"); got != "DUMP SRAM 5" {
		t.Errorf("CommandText = %q", got)
	}
	if got := WriteSRAM.CommandText(""); got != "WRITE SRAM" {
		t.Errorf("CommandText = %q", got)
	}
	if got := DumpROM.FileName(&gb.Header{}, "", ""); got != "untitled.gb" {
		t.Errorf("FileName = %q", got)
	}
}
