package scope

import (
	"context"
	"time"
)

// RestoreFunc returns the real, cancelable context for a spawned action,
// switching it out of its initial masked state. Calling it more than once
// is safe and returns the same context each time.
type RestoreFunc func() context.Context

// maskedContext wraps a real context, suppressing its deadline and
// cancellation so that code holding only the masked context cannot observe
// or be interrupted by it. Context values still pass through, matching the
// source substrate's uninterruptible-masking, which defers signal delivery
// without hiding anything else about the enclosing context.
type maskedContext struct {
	real context.Context
}

func (maskedContext) Deadline() (time.Time, bool) { return time.Time{}, false }

func (maskedContext) Done() <-chan struct{} { return nil }

func (maskedContext) Err() error { return nil }

func (m maskedContext) Value(key any) any { return m.real.Value(key) }
