package scope

import (
	"context"
	"errors"
	"fmt"
)

// ErrClosed is returned, synchronously, by any spawn attempted on a Scope
// whose close protocol has already frozen spawning (the spawn never creates
// a goroutine in this case).
var ErrClosed = errors.New("scope: closed")

// ErrScopeClosing is the cause carried by the context.Context handed to a
// child when its scope's close protocol signals it to terminate. A child
// that fails because it observed this cause, directly or wrapped, is never
// re-propagated to the parent: the parent is the one closing, so it already
// knows.
var ErrScopeClosing = errors.New("scope: closing")

// threadFailed wraps a child's original failure for the trip back to the
// parent's body context. It is unwrapped before ever being returned from
// [In] or [InVoid], so callers only ever see the child's original error.
type threadFailed struct {
	cause error
}

func (e threadFailed) Error() string {
	return fmt.Sprintf("scope: child failed: %v", e.cause)
}

func (e threadFailed) Unwrap() error {
	return e.cause
}

// unwrapThreadFailed returns the original cause carried by a threadFailed
// error reachable via err's Unwrap chain, or nil if err is nil or does not
// carry one.
func unwrapThreadFailed(err error) error {
	if err == nil {
		return nil
	}
	var tf threadFailed
	if errors.As(err, &tf) {
		return tf.cause
	}
	return nil
}

// IsScopeClosingFailure reports whether err is, or wraps, ErrScopeClosing:
// a child terminated by its own scope's close protocol, rather than by a
// failure that should be reported anywhere. Exported so other packages
// wrapping spawn (scopectx, in particular) can apply the same propagation
// predicate [Async] and [Fork] use internally.
func IsScopeClosingFailure(err error) bool {
	return err != nil && errors.Is(err, ErrScopeClosing)
}

// IsAsyncFailure reports whether err looks like the result of the action
// observing its own context's cancellation, as opposed to a failure
// computed by the action's own logic: a cooperative cancellation check
// returning ctx.Err() is the idiomatic Go equivalent of "the failure was
// delivered, not computed". Exported for the same reason as
// [IsScopeClosingFailure].
func IsAsyncFailure(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
