package panics

import (
	"os"
	"runtime/debug"

	"github.com/btcsuite/btclog"
)

// HandlePanic recovers a panic on the current goroutine, logs it along
// with the stack trace, and exits the process. Deferred at the top of
// main and of every long-running goroutine spawned off main.
func HandlePanic(log btclog.Logger, goroutineStackTrace []byte) {
	err := recover()
	if err == nil {
		return
	}

	log.Criticalf("Fatal error: %v", err)
	if goroutineStackTrace != nil {
		log.Criticalf("Goroutine stack trace: %s", goroutineStackTrace)
	}
	log.Criticalf("Stack trace: %s", debug.Stack())
	os.Exit(1)
}

// GoroutineWrapperFunc returns a goroutine-spawning function that
// recovers and logs panics the same way HandlePanic does, capturing the
// caller's stack trace at spawn time so the log points at where the
// goroutine was launched from.
func GoroutineWrapperFunc(log btclog.Logger) func(func()) {
	return func(f func()) {
		stackTrace := debug.Stack()
		go func() {
			defer HandlePanic(log, stackTrace)
			f()
		}()
	}
}
