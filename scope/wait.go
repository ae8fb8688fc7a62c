package scope

import "context"

// Wait blocks until every child of s has finished and no spawn is in
// flight (both conditions, observed together, since a reserved but
// not-yet-recorded child must count as alive). It returns ctx's error if
// ctx is done first; it never otherwise fails.
func (s *Scope) Wait(ctx context.Context) error {
	if ctx == nil {
		panic("scope: nil context")
	}
	for {
		s.mu.Lock()
		empty := len(s.children) == 0 && s.starting <= 0 // -1 (closed) means no spawn can be in flight
		ch := s.changed
		s.mu.Unlock()
		if empty {
			return nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
