package scopectx

import (
	"context"
	"errors"

	"github.com/joeycumines/scope/scope"
)

// ActionFunc is a child's body, receiving sc's token directly rather than
// a context derived from the underlying scope.Scope: this is the
// historical variant's defining property, a single context.Context that is
// both "my cancellation signal" and "the value-bearing context."
type ActionFunc[V any] func(ctx context.Context) (V, error)

// Async spawns a child whose failure is stored in its handle, propagated
// to sc.Err only if it's classified asynchronous (the same predicate
// [scope.Async] itself applies) and isn't this Scope's own token
// cancellation or the underlying scope's close signal — an Async child's
// synchronous failure stays visible only through its own handle, same as
// the underlying scope.
func Async[V any](sc *Scope, action ActionFunc[V]) (*scope.Thread[V], error) {
	return scope.AsyncWithUnmask(sc.inner, wrap(sc, false, action))
}

// Fork spawns a child whose failure is always propagated to sc.Err (unless
// it is this Scope's own token cancellation or the underlying scope's
// close signal), in addition to being stored in its handle.
func Fork[V any](sc *Scope, action ActionFunc[V]) (*scope.Thread[V], error) {
	return scope.ForkWithUnmask(sc.inner, wrap(sc, true, action))
}

// wrap adapts action to scope's calling convention, and — right after
// action returns, synchronously in the child's own goroutine, before
// lowLevelFork's completion hook can race it from another one — decides
// whether this failure should reach sc.Err, applying the identical
// predicate the underlying scope package's own spawn uses internally
// (alwaysPropagate for Fork, scope.IsAsyncFailure for Async), plus the
// token-cancellation exclusions specific to this wrapper.
func wrap[V any](sc *Scope, alwaysPropagate bool, action ActionFunc[V]) scope.UnmaskActionFunc[V] {
	return func(_ context.Context, restore scope.RestoreFunc) (V, error) {
		restore()
		v, err := action(sc.token)
		if err != nil && errors.Is(err, context.Canceled) {
			if cause := context.Cause(sc.token); cause != nil {
				err = cause
			}
		}
		sc.hook.observe(err, alwaysPropagate, sc.token)
		return v, err
	}
}
