// Package scopelog implements scope.Hook on top of logiface, giving every
// scope lifecycle event (open, spawn-reserved, spawn-recorded,
// child-finished, signalled, closed) a structured log line. A nil *Hook
// Logger is always safe: logiface.Logger is itself nil-receiver-safe,
// reporting LevelDisabled and turning every call here into a cheap no-op.
package scopelog
