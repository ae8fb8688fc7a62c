package scopeutil

import (
	"context"
	"errors"
	"time"

	"github.com/joeycumines/scope/scope"
)

// WaitFor blocks until s has no running or in-flight children, or until d
// elapses, whichever comes first. completed reports which one happened; it
// is true only if s's wait condition was actually observed, never merely
// because d was non-positive.
//
// WaitFor returning early (completed == false) never affects s's own close
// protocol, which always fully drains every child regardless of how any
// particular Wait/WaitFor call returned.
func WaitFor(ctx context.Context, s *scope.Scope, d time.Duration) (completed bool, err error) {
	if ctx == nil {
		panic("scopeutil: nil context")
	}
	waitCtx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	err = s.Wait(waitCtx)
	if waitCtx.Err() != nil && errors.Is(err, waitCtx.Err()) {
		// waitCtx fired first, either because d elapsed or because ctx
		// itself was already done; either way Wait never ran to completion.
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return false, nil
	}
	return true, err
}

// AwaitFor blocks until t's child finishes, or until d elapses, whichever
// comes first. completed reports which one happened, with the same
// truncation semantics as [WaitFor]: a timeout here never affects the
// child itself, which keeps running under its scope regardless.
func AwaitFor[V any](ctx context.Context, t *scope.Thread[V], d time.Duration) (value V, completed bool, err error) {
	if ctx == nil {
		panic("scopeutil: nil context")
	}
	awaitCtx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	value, err = t.Await(awaitCtx)
	if awaitCtx.Err() != nil && errors.Is(err, awaitCtx.Err()) {
		var zero V
		if ctx.Err() != nil {
			return zero, false, ctx.Err()
		}
		return zero, false, nil
	}
	return value, true, err
}
