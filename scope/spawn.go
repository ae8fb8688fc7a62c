package scope

import (
	"context"
	"errors"
	"fmt"
)

// ActionFunc is a child's body for the plain spawn variants: it receives
// the real, cancelable context directly (the plain variants unmask
// automatically, for the whole call, before invoking it — see
// [UnmaskActionFunc] for manual control).
type ActionFunc[V any] func(ctx context.Context) (V, error)

// UnmaskActionFunc is a child's body for the *WithUnmask spawn variants. It
// starts masked — the supplied ctx never reports a deadline or
// cancellation — until restore is called, after which ctx's sibling, the
// real cancelable context, is what restore returns.
type UnmaskActionFunc[V any] func(ctx context.Context, restore RestoreFunc) (V, error)

// lowLevelFork reserves a spawn slot, mints a child id, starts the child's
// goroutine, and records it as running — or, if the child finished first,
// lets the child's own completion hook win the race. Returns the new
// child's id, or ErrClosed if the scope has already closed.
func lowLevelFork[V any](s *Scope, action UnmaskActionFunc[V], completion func(Outcome[V])) (int64, error) {
	s.mu.Lock()
	if s.starting < 0 {
		s.mu.Unlock()
		return 0, ErrClosed
	}
	s.starting++
	id := s.nextID
	s.nextID++
	s.notifyLocked()
	s.mu.Unlock()

	if s.hook != nil {
		s.hook.Spawned(id)
	}

	childCtx, childCancel := context.WithCancelCause(s.rootCtx)

	go func() {
		outcome := runAction(action, childCtx)
		s.finishChild(id)
		if s.hook != nil {
			s.hook.Finished(id, outcome.Err)
		}
		completion(outcome)
	}()

	s.recordStarted(id, childCtx, childCancel)

	return id, nil
}

// runAction invokes action under the masking discipline described by
// [UnmaskActionFunc], recovering a panic into a failed Outcome so that one
// child's bug cannot crash the whole program out from under its scope.
func runAction[V any](action UnmaskActionFunc[V], childCtx context.Context) (out Outcome[V]) {
	defer func() {
		if r := recover(); r != nil {
			var zero V
			out = Outcome[V]{Value: zero, Err: fmt.Errorf("scope: panic in child: %v", r)}
		}
	}()
	masked := maskedContext{real: childCtx}
	restore := RestoreFunc(func() context.Context { return childCtx })
	v, err := action(masked, restore)
	if err != nil && errors.Is(err, context.Canceled) {
		// Normalize a plain "I saw my context was cancelled" error into the
		// specific cause (scope-closing, a propagated sibling failure, or an
		// external cancellation), so propagation can classify it correctly —
		// see IsScopeClosingFailure/IsAsyncFailure in errors.go.
		if cause := context.Cause(childCtx); cause != nil {
			err = cause
		}
	}
	return Outcome[V]{Value: v, Err: err}
}

// finishChild applies the child-side half of the spawn/finish merge rule,
// and is always called before the child's completion hook runs
// (delete-before-hook ordering, so a completion callback never observes a
// stale map entry for its own id).
func (s *Scope) finishChild(id int64) {
	s.mu.Lock()
	if entry, ok := s.children[id]; ok && entry != nil {
		// the spawner already recorded us as running: terminal state.
		delete(s.children, id)
		cancel := entry.cancel
		s.notifyLocked()
		s.mu.Unlock()
		cancel(nil)
		return
	}
	// the spawner hasn't recorded us yet: leave the quick-death placeholder.
	s.children[id] = nil
	s.notifyLocked()
	s.mu.Unlock()
}

// recordStarted applies the spawner-side half of the spawn/finish merge
// rule, in the same atomic transaction as decrementing starting.
func (s *Scope) recordStarted(id int64, childCtx context.Context, cancel context.CancelCauseFunc) {
	s.mu.Lock()
	s.starting--
	if _, ok := s.children[id]; ok {
		// the child already left its quick-death placeholder: it finished
		// before we could record it as running.
		delete(s.children, id)
		s.notifyLocked()
		s.mu.Unlock()
		cancel(nil)
		return
	}
	s.children[id] = &childEntry{ctx: childCtx, cancel: cancel}
	s.notifyLocked()
	s.mu.Unlock()
	if s.hook != nil {
		s.hook.Started(id)
	}
}

// spawn is the shared implementation behind Async/AsyncWithUnmask (the
// silent family) and Fork/ForkWithUnmask (the propagating family): they
// differ only in when a failure is sent to the parent.
func spawn[V any](s *Scope, alwaysPropagate bool, action UnmaskActionFunc[V]) (*Thread[V], error) {
	t := &Thread[V]{done: make(chan struct{})}
	id, err := lowLevelFork(s, action, func(o Outcome[V]) {
		t.outcome = o
		close(t.done)
		if o.Err == nil || IsScopeClosingFailure(o.Err) {
			return
		}
		if alwaysPropagate || IsAsyncFailure(o.Err) {
			s.signalParent(o.Err)
		}
	})
	if err != nil {
		return nil, err
	}
	t.id = id
	return t, nil
}

func actionToUnmask[V any](action ActionFunc[V]) UnmaskActionFunc[V] {
	return func(_ context.Context, restore RestoreFunc) (V, error) {
		return action(restore())
	}
}

// Async spawns a child whose failure is stored in its handle, and
// propagated to the parent only if it's classified asynchronous (the
// silent, handle-returning family). The action runs with masking already
// lifted.
func Async[V any](s *Scope, action ActionFunc[V]) (*Thread[V], error) {
	return spawn(s, false, actionToUnmask(action))
}

// AsyncWithUnmask is [Async], giving the action manual control over when
// (or whether) it becomes interruptible.
func AsyncWithUnmask[V any](s *Scope, action UnmaskActionFunc[V]) (*Thread[V], error) {
	return spawn(s, false, action)
}

// Fork spawns a child whose failure is always propagated to the parent
// (the propagating, handle-returning family), in addition to being stored
// in its handle. The action runs with masking already lifted.
func Fork[V any](s *Scope, action ActionFunc[V]) (*Thread[V], error) {
	return spawn(s, true, actionToUnmask(action))
}

// ForkWithUnmask is [Fork], giving the action manual control over when (or
// whether) it becomes interruptible.
func ForkWithUnmask[V any](s *Scope, action UnmaskActionFunc[V]) (*Thread[V], error) {
	return spawn(s, true, action)
}

// Fork_ is [Fork] without a handle, for actions whose only outcome that
// matters is whether they failed.
func Fork_(s *Scope, action ActionFunc[struct{}]) error {
	_, err := Fork(s, action)
	return err
}

// ForkWithUnmask_ is [ForkWithUnmask] without a handle.
func ForkWithUnmask_(s *Scope, action UnmaskActionFunc[struct{}]) error {
	_, err := ForkWithUnmask(s, action)
	return err
}
