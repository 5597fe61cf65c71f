package util

import (
	log "github.com/sirupsen/logrus"
	"io"
	"os"
	"runtime/debug"
)

// PanicSafeLogger mirrors log output to a file and the console and can flush the file before
// the process dies.
type PanicSafeLogger struct {
	f  *os.File
	mw io.Writer
}

var std *PanicSafeLogger

func NewPanicSafeLogger(f *os.File, console io.Writer) *PanicSafeLogger {
	std = &PanicSafeLogger{
		f:  f,
		mw: io.MultiWriter(f, console),
	}
	return std
}

func (l *PanicSafeLogger) Write(p []byte) (n int, err error) {
	return l.mw.Write(p)
}

func (l *PanicSafeLogger) Flush() error {
	return l.f.Sync()
}

func (l *PanicSafeLogger) Close() error {
	if std == l {
		std = nil
	}
	return l.f.Close()
}

func FlushLogger() error {
	if std == nil {
		return nil
	}
	return std.Flush()
}

func LogPanic(err any) {
	log.Errorf("panicked with %v\n%s", err, string(debug.Stack()))
	_ = FlushLogger()
}
