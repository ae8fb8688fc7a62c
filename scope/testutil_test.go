package scope

import (
	"runtime"
	"testing"
	"time"
)

// checkNumGoroutines returns a func to be deferred immediately, via
// "defer checkNumGoroutines(d)(t)": it snapshots the goroutine count now,
// then on return polls until it returns to the snapshot or d elapses,
// failing t if it never does. Every close protocol in this package
// guarantees no child outlives its scope, so every test that spawns
// anything should use it.
func checkNumGoroutines(d time.Duration) func(t *testing.T) {
	before := runtime.NumGoroutine()
	return func(t *testing.T) {
		t.Helper()
		deadline := time.Now().Add(d)
		for {
			after := runtime.NumGoroutine()
			if after <= before {
				return
			}
			if time.Now().After(deadline) {
				t.Errorf("goroutine leak: started with %d, ended with %d", before, after)
				return
			}
			time.Sleep(time.Millisecond)
		}
	}
}
