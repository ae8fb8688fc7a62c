// Package scopeutil provides duration-based convenience wrappers over
// package scope's context-based Wait and Thread.Await, in the same spirit
// as longpoll.Channel's own timer/select composition over its blocking
// primitives. It adds no new semantics: a duration here is always just
// sugar for a context.WithTimeout raced against the underlying call.
package scopeutil
