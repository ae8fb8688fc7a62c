package scopectx

import (
	"context"
	"errors"
	"sync"

	"github.com/joeycumines/scope/scope"
)

// ErrCancelled is the token's cancellation cause after Cancel, the root
// cause a child observes when its Scope is the one being closed.
var ErrCancelled = errors.New("scopectx: cancelled")

// Scope bridges a single context.Context token to a *scope.Scope running
// in a background goroutine: the token is both the cancellation signal
// every spawned child's action observes, and the trigger for the
// underlying scope's normal close protocol.
type Scope struct {
	token       context.Context
	tokenCancel context.CancelCauseFunc

	inner *scope.Scope
	hook  *observeHook

	bridgeDone chan struct{}
}

// New starts a Scope bound to parent's lifetime, returning it alongside a
// context.CancelFunc equivalent to calling Scope.Cancel. parent's own
// cancellation also cancels the token and closes the scope, same as
// Cancel would.
func New(parent context.Context) (*Scope, context.CancelFunc) {
	if parent == nil {
		panic("scopectx: nil context")
	}

	token, tokenCancel := context.WithCancelCause(parent)
	hook := &observeHook{token: token}

	ready := make(chan *scope.Scope, 1)
	bridgeDone := make(chan struct{})

	sc := &Scope{
		token:       token,
		tokenCancel: tokenCancel,
		hook:        hook,
		bridgeDone:  bridgeDone,
	}

	go func() {
		defer close(bridgeDone)
		// The body only relays the token's own lifetime into the underlying
		// scope's close protocol; any child failure is observed separately
		// by hook, below, which is what sc.Err reports.
		_, _ = scope.InWithHook(parent, hook, func(ctx context.Context, s *scope.Scope) (struct{}, error) {
			sc.inner = s
			ready <- s
			<-token.Done()
			return struct{}{}, nil
		})
	}()
	sc.inner = <-ready

	return sc, sc.Cancel
}

// Cancel flips the token and blocks until the resulting close protocol has
// fully drained every child. Calling it more than once is safe; only the
// first call's cancellation cause is retained, matching
// context.CancelCauseFunc's own semantics.
func (s *Scope) Cancel() {
	s.tokenCancel(ErrCancelled)
	<-s.bridgeDone
}

// Token returns the Scope's cancellation token: every child spawned via
// [Fork] or [Async] observes this context directly, rather than one
// derived from the underlying scope.Scope.
func (s *Scope) Token() context.Context {
	return s.token
}

// Err returns the first child failure reported under the rule [Fork] and
// [Async] document (an Async child's failure only if it is classified
// asynchronous; never a failure attributable to this Scope's own token
// cancellation or the underlying scope's close signal), or nil if none has
// occurred yet.
func (s *Scope) Err() error {
	return s.hook.firstFailure()
}

// Wait delegates to the underlying scope.Scope's Wait.
func (s *Scope) Wait(ctx context.Context) error {
	return s.inner.Wait(ctx)
}

// observeHook implements scope.Hook only to satisfy [scope.InWithHook]'s
// parameter; the actual failure bookkeeping happens in observe, called
// directly from spawn.go's wrap, because Hook.Finished alone can't tell
// whether a given child was spawned via Fork or Async (the one piece of
// context the propagation predicate needs), and threading that through the
// Hook interface would mean changing it for every implementation, including
// scopelog.
type observeHook struct {
	token context.Context

	mu    sync.Mutex
	first error
}

func (h *observeHook) Opened()               {}
func (h *observeHook) Spawned(int64)         {}
func (h *observeHook) Started(int64)         {}
func (h *observeHook) Finished(int64, error) {}
func (h *observeHook) Signaled(int64)        {}
func (h *observeHook) Closed(err error)      {}

// observe records err as sc's first observed failure, applying the same
// propagation predicate scope's own Async/Fork apply internally: a
// scope-closing failure is never reported, an Async child's failure is
// reported only if it's classified asynchronous, and a Fork child's
// failure (alwaysPropagate) is always reported — on top of that, a
// failure attributable to this Scope's own token cancellation is excluded
// too, since that's an expected shutdown, not a failure.
func (h *observeHook) observe(err error, alwaysPropagate bool, token context.Context) {
	if err == nil {
		return
	}
	if scope.IsScopeClosingFailure(err) {
		return
	}
	if cause := context.Cause(token); cause != nil && errors.Is(err, cause) {
		return
	}
	if !alwaysPropagate && !scope.IsAsyncFailure(err) {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.first == nil {
		h.first = err
	}
}

func (h *observeHook) firstFailure() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.first
}
