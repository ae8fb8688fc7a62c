package scopelog

import (
	"github.com/joeycumines/logiface"
)

// Hook implements scope.Hook, logging every lifecycle event through a
// logiface.Logger. A nil Logger is safe to use: logiface.Logger itself is
// nil-safe, always reporting LevelDisabled, so every call here is a cheap
// no-op rather than a nil-pointer risk.
type Hook struct {
	Logger *logiface.Logger[logiface.Event]
}

// New returns a Hook that logs through logger. Passing a nil logger is
// equivalent to disabling logging entirely.
func New(logger *logiface.Logger[logiface.Event]) *Hook {
	return &Hook{Logger: logger}
}

func (h *Hook) Opened() {
	h.Logger.Info().Log("scope opened")
}

func (h *Hook) Spawned(id int64) {
	h.Logger.Debug().Int("child_id", int(id)).Log("child reserved")
}

func (h *Hook) Started(id int64) {
	h.Logger.Debug().Int("child_id", int(id)).Log("child recorded as running")
}

func (h *Hook) Finished(id int64, err error) {
	b := h.Logger.Info()
	if err != nil {
		b = h.Logger.Warning().Err(err)
	}
	b.Int("child_id", int(id)).Log("child finished")
}

func (h *Hook) Signaled(id int64) {
	h.Logger.Debug().Int("child_id", int(id)).Log("child signalled to close")
}

func (h *Hook) Closed(err error) {
	b := h.Logger.Info()
	if err != nil {
		b = h.Logger.Err().Err(err)
	}
	b.Log("scope closed")
}
