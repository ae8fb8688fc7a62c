// Package scope implements structured-concurrency scopes: a lexically
// delimited region that bounds the lifetime of any number of child
// goroutines spawned within it. A scope cannot finish while any of its
// children are still running; if it is left abnormally, by failure of its
// own body or of a child, every remaining child is terminated before the
// scope is allowed to return. No child ever outlives the scope that spawned
// it.
//
// # Usage
//
//	n, err := scope.In(ctx, func(ctx context.Context, s *scope.Scope) (int, error) {
//	    h, err := scope.Fork(s, func(ctx context.Context) (int, error) {
//	        return slowCompute(ctx)
//	    })
//	    if err != nil {
//	        return 0, err
//	    }
//	    return h.Await(ctx)
//	})
//
// # Asynchronous signals
//
// This package targets goroutines, which have no asynchronous-interrupt
// primitive. Every signal modeled against a preemptive-worker substrate is
// therefore carried as a [context.Context] cancellation instead, using
// [context.WithCancelCause] so the delivered reason (scope-closing, or a
// child's propagated failure) survives the trip. A child only observes its
// own cancellation at a blocking call that selects on its context — the
// same cooperative-cancellation discipline as the rest of the Go ecosystem.
//
// # Masking
//
// Every spawned action starts "masked": the [context.Context] handed to it
// reports no deadline and never cancels, until the action calls the
// restore function it's given, after which it observes the real,
// cancelable context for the remainder of its run. This mirrors the
// uninterruptible-masking discipline a preemptive-signal substrate would
// need around a child's bookkeeping, applied instead to the only place Go
// code can choose not to look at a context: simply not calling restore.
//
// # Diagnostics
//
// [InWithConfig] accepts an optional [Config] alongside the optional [Hook].
// Two situations log through the package-level, overridable logPrintf
// rather than affecting control flow: a child still running past
// Config.CloseGracePeriod after the scope-closing signal was delivered
// (close keeps blocking regardless), and a scope-closing signal delivered
// to a child whose context was already done, which happens when the ctx
// passed to [In] is itself cancelled ahead of the scope's own close.
package scope
