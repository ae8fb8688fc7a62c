package scopelog

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/scope/scope"
)

// fakeEvent is a minimal logiface.Event, in the style of mockSimpleEvent
// from logiface's own test suite: it records its level and message, enough
// to assert which lifecycle events reached the logger without depending on
// any particular backend.
type fakeEvent struct {
	logiface.UnimplementedEvent
	level logiface.Level
	msg   string
}

func (e *fakeEvent) Level() logiface.Level { return e.level }

func (e *fakeEvent) AddField(key string, val any) {}

func (e *fakeEvent) AddMessage(msg string) bool {
	e.msg = msg
	return true
}

type fakeWriter struct {
	mu     sync.Mutex
	events []*fakeEvent
}

func (w *fakeWriter) Write(event *fakeEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.events = append(w.events, event)
	return nil
}

func (w *fakeWriter) snapshot() []*fakeEvent {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]*fakeEvent, len(w.events))
	copy(out, w.events)
	return out
}

func newTestLogger(w *fakeWriter) *logiface.Logger[*fakeEvent] {
	return logiface.New[*fakeEvent](
		logiface.WithEventFactory[*fakeEvent](logiface.NewEventFactoryFunc(func(level logiface.Level) *fakeEvent {
			return &fakeEvent{level: level}
		})),
		logiface.WithWriter[*fakeEvent](logiface.NewWriterFunc(w.Write)),
		logiface.WithLevel[*fakeEvent](logiface.LevelTrace),
	)
}

func TestHook_NilLoggerIsNoOp(t *testing.T) {
	h := New(nil)
	assert.NotPanics(t, func() {
		h.Opened()
		h.Spawned(1)
		h.Started(1)
		h.Finished(1, nil)
		h.Signaled(1)
		h.Closed(nil)
	})
}

func TestHook_LogsFullLifecycle(t *testing.T) {
	w := &fakeWriter{}
	h := New(newTestLogger(w).Logger())

	_, err := scope.InWithHook(context.Background(), h, func(ctx context.Context, s *scope.Scope) (int, error) {
		_, ferr := scope.Fork(s, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, nil
		})
		require.NoError(t, ferr)
		require.NoError(t, s.Wait(context.Background()))
		return 0, nil
	})
	require.NoError(t, err)

	msgs := make([]string, 0)
	for _, e := range w.snapshot() {
		msgs = append(msgs, e.msg)
	}
	assert.Contains(t, msgs, "scope opened")
	assert.Contains(t, msgs, "child finished")
	assert.Contains(t, msgs, "scope closed")
}

func TestHook_FinishedWithErrorLogsAtWarning(t *testing.T) {
	w := &fakeWriter{}
	h := New(newTestLogger(w).Logger())

	wantErr := errors.New("child failed")
	_, _ = scope.InWithHook(context.Background(), h, func(ctx context.Context, s *scope.Scope) (int, error) {
		ferr := scope.Fork_(s, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, wantErr
		})
		require.NoError(t, ferr)
		<-ctx.Done()
		return 0, ctx.Err()
	})

	var sawWarning bool
	for _, e := range w.snapshot() {
		if e.level == logiface.LevelWarning && e.msg == "child finished" {
			sawWarning = true
		}
	}
	assert.True(t, sawWarning)
}

func TestHook_ClosedWithErrorLogsAtError(t *testing.T) {
	w := &fakeWriter{}
	h := New(newTestLogger(w).Logger())

	wantErr := errors.New("body failed")
	_, err := scope.InWithHook(context.Background(), h, func(ctx context.Context, s *scope.Scope) (int, error) {
		return 0, wantErr
	})
	require.ErrorIs(t, err, wantErr)

	var sawError bool
	for _, e := range w.snapshot() {
		if e.level == logiface.LevelError && e.msg == "scope closed" {
			sawError = true
		}
	}
	assert.True(t, sawError)
}
