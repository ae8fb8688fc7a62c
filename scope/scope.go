package scope

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// DefaultCloseGracePeriod is the grace period applied by close's diagnostic
// logging when Config is nil, or has a zero CloseGracePeriod.
const DefaultCloseGracePeriod = 5 * time.Second

// Config models optional configuration for [InWithConfig].
type Config struct {
	// CloseGracePeriod bounds how long close waits, after signaling every
	// remaining child, before logging a diagnostic naming the children that
	// still haven't respected the scope-closing signal. This is purely
	// observability: close still blocks past this point until every child
	// actually finishes, same as always.
	//
	// Defaults to DefaultCloseGracePeriod, if 0.
	CloseGracePeriod time.Duration
}

// childEntry is the value stored in Scope.children for a live child.
// A nil *childEntry stored under a live key is the quick-death placeholder:
// the child's completion hook ran before the spawner recorded its cancel
// function.
type childEntry struct {
	ctx    context.Context
	cancel context.CancelCauseFunc
}

// Scope owns a set of concurrently running children, spawned via [Async],
// [Fork], and their variants. A Scope must only be used from within (or by
// code reachable from) the body function passed to [In] or [InVoid]; it
// becomes unusable for spawning as soon as that body returns.
type Scope struct {
	rootCtx    context.Context
	bodyCancel context.CancelCauseFunc

	mu       sync.Mutex
	starting int64 // -1 once closed; never returns to >= 0 after that
	children map[int64]*childEntry
	nextID   int64
	changed  chan struct{} // closed and replaced on every state change, for waiters to select on

	hook Hook
}

func newScope(rootCtx context.Context, bodyCancel context.CancelCauseFunc, hook Hook) *Scope {
	return &Scope{
		rootCtx:    rootCtx,
		bodyCancel: bodyCancel,
		children:   make(map[int64]*childEntry),
		changed:    make(chan struct{}),
		hook:       hook,
	}
}

// notifyLocked must be called with s.mu held, whenever starting or children
// changes in a way a Wait/close waiter might care about.
func (s *Scope) notifyLocked() {
	close(s.changed)
	s.changed = make(chan struct{})
}

// signalParent delivers err to the scope's body as a thread-failed signal,
// by cancelling its context with that cause. context.CancelCauseFunc keeps
// only the first cause supplied to it across repeated calls, so the first
// failure wins and later ones are silently discarded with no extra
// bookkeeping needed here.
func (s *Scope) signalParent(err error) {
	s.bodyCancel(threadFailed{cause: err})
}

// freeze waits until starting is 0, then atomically sets it to -1 and
// snapshots the currently-live children, in ascending (creation) order.
// The window during which starting > 0 is always bounded by a spawn's own
// bookkeeping (never by user code), so this never blocks on anything but
// other spawns briefly in flight.
func (s *Scope) freeze() []int64 {
	for {
		s.mu.Lock()
		if s.starting == 0 {
			s.starting = -1
			ids := make([]int64, 0, len(s.children))
			for id := range s.children {
				ids = append(ids, id)
			}
			s.notifyLocked()
			s.mu.Unlock()
			sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
			return ids
		}
		ch := s.changed
		s.mu.Unlock()
		<-ch
	}
}

// signalChildren delivers the scope-closing signal to every child named by
// ids, in order. Cancelling an already finished or already-cancelled
// context is a safe no-op in Go, which is what makes a defensive
// delivery-retry loop unnecessary here — see DESIGN.md. A child whose
// context is already done (its own scope's rootCtx was cancelled out from
// under it, ahead of this signal) gets this signal anyway, redundantly; that
// case is logged, since it means the close protocol's own signal is
// superfluous for that child.
func (s *Scope) signalChildren(ids []int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if entry, ok := s.children[id]; ok && entry != nil {
			if entry.ctx.Err() != nil {
				logPrintf("scope: WARNING: child %d already done before the scope-closing signal was delivered", id)
			}
			entry.cancel(ErrScopeClosing)
			if s.hook != nil {
				s.hook.Signaled(id)
			}
		}
	}
}

// drain blocks, uninterruptibly, until the children set is empty. A child
// that never respects the scope-closing signal blocks this forever; that
// is documented behavior, not a bug to defend against. Once grace elapses
// with children still outstanding, their ids are logged once, purely as a
// diagnostic — it never shortens or otherwise affects the wait itself.
func (s *Scope) drain(grace time.Duration) {
	if grace <= 0 {
		grace = DefaultCloseGracePeriod
	}
	timer := time.NewTimer(grace)
	defer timer.Stop()
	logged := false
	for {
		s.mu.Lock()
		empty := len(s.children) == 0
		ch := s.changed
		s.mu.Unlock()
		if empty {
			return
		}
		if logged {
			<-ch
			continue
		}
		select {
		case <-ch:
		case <-timer.C:
			logged = true
			s.mu.Lock()
			ids := make([]int64, 0, len(s.children))
			for id := range s.children {
				ids = append(ids, id)
			}
			s.mu.Unlock()
			sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
			logPrintf("scope: WARNING: %d child(ren) still running %s after the scope-closing signal: %v", len(ids), grace, ids)
		}
	}
}

// close runs the scope's close protocol: freeze spawning, signal remaining
// children, and drain. Reconciling the outcome happens in the caller,
// [InWithConfig] (which [In] and [InWithHook] delegate to), which is the only place that has both the body's own result and the body
// context's cancellation cause in hand.
func (s *Scope) close(grace time.Duration) {
	ids := s.freeze()
	s.signalChildren(ids)
	s.drain(grace)
}

// Hook receives lifecycle notifications from a Scope, for optional
// observability. Implementations must not block and must tolerate being
// called from many goroutines concurrently; see package scopelog for a
// structured-logging implementation.
type Hook interface {
	Opened()
	Spawned(id int64)
	Started(id int64)
	Finished(id int64, err error)
	Signaled(id int64)
	Closed(err error)
}

// In runs body with a fresh Scope, closes the scope deterministically once
// body returns (normally, by error, or by panic), and returns body's
// result. No child spawned within the scope outlives this call.
//
// Close always runs before In returns or re-panics, even if body panics,
// so a panicking body can never leak a child.
func In[V any](ctx context.Context, body func(ctx context.Context, s *Scope) (V, error)) (V, error) {
	return InWithConfig(ctx, nil, nil, body)
}

// InVoid is In for bodies with no value to return, only a side effect and
// a possible failure.
func InVoid(ctx context.Context, body func(ctx context.Context, s *Scope) error) error {
	_, err := In(ctx, func(ctx context.Context, s *Scope) (struct{}, error) {
		return struct{}{}, body(ctx, s)
	})
	return err
}

// InWithHook is [In], additionally attaching h to the scope before body
// runs, so every lifecycle event body's spawns generate is observable. Most
// callers want [In]; InWithHook exists for package scopelog and similar
// optional-observability integrations.
func InWithHook[V any](ctx context.Context, hook Hook, body func(ctx context.Context, s *Scope) (V, error)) (V, error) {
	return InWithConfig(ctx, nil, hook, body)
}

// InWithConfig is [In], additionally accepting an optional Config (nil means
// every field defaults) and an optional Hook.
func InWithConfig[V any](ctx context.Context, cfg *Config, hook Hook, body func(ctx context.Context, s *Scope) (V, error)) (V, error) {
	if ctx == nil {
		panic("scope: nil context")
	}
	if body == nil {
		panic("scope: nil body")
	}

	var grace time.Duration
	if cfg != nil {
		grace = cfg.CloseGracePeriod
	}

	bodyCtx, bodyCancel := context.WithCancelCause(ctx)
	s := newScope(ctx, bodyCancel, hook)
	if hook != nil {
		hook.Opened()
	}

	var (
		val      V
		bodyErr  error
		panicked any
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				panicked = r
			}
		}()
		val, bodyErr = body(bodyCtx, s)
	}()

	// Close before reading the captured cause: a child may not signal the
	// parent until partway through close's own signal or drain steps, and
	// context.CancelCauseFunc's cause is monotonic (first write wins, and is
	// visible to every later read), so reading it only after close has fully
	// run is what makes this capture exhaustive.
	s.close(grace)

	capturedErr := unwrapThreadFailed(context.Cause(bodyCtx))
	if bodyErr != nil {
		if tf := unwrapThreadFailed(bodyErr); tf != nil {
			bodyErr = tf
		} else if errors.Is(bodyErr, context.Canceled) && capturedErr != nil {
			bodyErr = capturedErr
		}
	}

	bodyCancel(nil)

	if panicked != nil {
		panic(panicked)
	}

	var zero V
	switch {
	case bodyErr != nil:
		if hook != nil {
			hook.Closed(bodyErr)
		}
		return zero, bodyErr
	case capturedErr != nil:
		if hook != nil {
			hook.Closed(capturedErr)
		}
		return zero, capturedErr
	default:
		if hook != nil {
			hook.Closed(nil)
		}
		return val, nil
	}
}
