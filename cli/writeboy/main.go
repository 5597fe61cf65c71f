package main

import (
	"context"
	"fmt"
	log "github.com/sirupsen/logrus"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"
	"writeboy/util"
)

// include these link drivers:
import (
	_ "writeboy/link/mock"
	_ "writeboy/link/usbserial"
	_ "writeboy/link/wsbridge"
)

var logger *util.PanicSafeLogger

// setupLogging mirrors the log to a timestamped file in the temp directory.
func setupLogging(verbose bool) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05.000000"})
	log.SetOutput(os.Stderr)
	if verbose {
		log.SetLevel(log.DebugLevel)
	}

	ts := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
	ts = strings.ReplaceAll(ts, ":", "-")
	ts = strings.ReplaceAll(ts, ".", "-")
	logPath := filepath.Join(os.TempDir(), fmt.Sprintf("writeboy-%s.log", ts))
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Debugf("could not open log file '%s' for writing", logPath)
		return
	}

	logger = util.NewPanicSafeLogger(logFile, os.Stderr)
	log.SetOutput(logger)
	log.Debugf("logging to '%s'", logPath)
}

func main() {
	initConsole()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	code := 0
	func() {
		defer func() {
			if p := recover(); p != nil {
				util.LogPanic(p)
				code = 2
			}
		}()

		if err := newRootCommand().ExecuteContext(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "writeboy: %v\n", err)
			code = 1
		}
	}()

	stop()
	if logger != nil {
		_ = logger.Close()
	}
	os.Exit(code)
}
