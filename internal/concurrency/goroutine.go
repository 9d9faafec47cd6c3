package concurrency

import (
	"fmt"
	"log/slog"
	"runtime/debug"
)

// Go runs fn on a new goroutine named for the logs. A panic is logged with
// its stack and handed to onPanic as an error instead of crashing the
// process.
func Go(name string, fn func(), onPanic func(error)) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Panic recovered", "goroutine", name, "panic", r, "stack", string(debug.Stack()))
				if onPanic != nil {
					onPanic(fmt.Errorf("%s panicked: %v", name, r))
				}
			}
		}()
		fn()
	}()
}
