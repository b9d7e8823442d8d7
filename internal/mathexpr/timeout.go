// Package mathexpr holds the two proof-of-concept expression evaluators
// reachable from the main menu.
package mathexpr

import (
	"errors"
	"time"
)

const (
	// opTimeout bounds a single binary operation.
	opTimeout = 5 * time.Second
	// pollInterval is how often the deadline is rechecked.
	pollInterval = 100 * time.Millisecond
)

// ErrTimedOut reports that an operation exceeded opTimeout.
var ErrTimedOut = errors.New("execution timed out before terminating")

// runTimed executes f on its own goroutine and polls until it finishes or
// the deadline passes. The goroutine of a timed-out operation is abandoned;
// its buffered channel keeps it from leaking a send.
func runTimed[T any](f func() (T, error)) (T, error) {
	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)
	go func() {
		value, err := f()
		done <- result{value, err}
	}()

	deadline := time.Now().Add(opTimeout)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case r := <-done:
			return r.value, r.err
		case <-ticker.C:
			if time.Now().After(deadline) {
				var zero T
				return zero, ErrTimedOut
			}
		}
	}
}
