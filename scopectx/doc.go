// Package scopectx provides the historical cancellation-token facility
// described as out of core scope: a *Scope wraps a *scope.Scope with a
// single immutable context.Context "token" that both is the cancellation
// signal handed to every spawned child and, when cancelled, closes the
// underlying scope the normal way. It is built entirely on package scope's
// public API; scope itself never imports it.
package scopectx
