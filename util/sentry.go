package util

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
)

// InitSentry configures error reporting. An empty dsn leaves reporting off
// and the capture calls in CallServerError become no-ops.
func InitSentry(dsn, environment string) bool {
	if dsn == "" {
		return false
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
	})
	if err != nil {
		log.Printf("sentry.Init: %v", err)
		return false
	}
	return true
}

// FlushSentry waits for buffered events before shutdown.
func FlushSentry() {
	sentry.Flush(2 * time.Second)
}

var exit = os.Exit

// Fatalf reports a fatal error, flushes Sentry and exits. Deferred calls
// in the caller do not run, so the flush has to happen here.
func Fatalf(format string, args ...interface{}) {
	err := fmt.Errorf(format, args...)
	sentry.CaptureException(err)
	FlushSentry()
	log.Print(err)
	exit(1)
}
