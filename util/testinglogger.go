package util

import (
	log "github.com/sirupsen/logrus"
	"testing"
	"unsafe"
)

func NewTestingLogger(tb testing.TB) *CommitLogger {
	return &CommitLogger{
		Committer: func(p []byte) {
			line := *(*string)(unsafe.Pointer(&p))
			tb.Log(line)
		},
		buf: nil,
	}
}

// UseTestingLogger sends the standard logger's output to tb at debug level until the test ends.
func UseTestingLogger(tb testing.TB) {
	out, level := log.StandardLogger().Out, log.GetLevel()
	log.SetOutput(NewTestingLogger(tb))
	log.SetLevel(log.DebugLevel)
	tb.Cleanup(func() {
		log.SetOutput(out)
		log.SetLevel(level)
	})
}
