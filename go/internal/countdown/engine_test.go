package countdown

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var epoch = time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

type recorder struct {
	ch chan RemainingTime
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan RemainingTime, 64)}
}

func (r *recorder) publish(rt RemainingTime) {
	r.ch <- rt
}

func (r *recorder) next(t *testing.T) RemainingTime {
	t.Helper()
	select {
	case rt := <-r.ch:
		return rt
	case <-time.After(2 * time.Second):
		t.Fatal("expected a published update")
	}
	return RemainingTime{}
}

func (r *recorder) none(t *testing.T) {
	t.Helper()
	select {
	case rt := <-r.ch:
		t.Fatalf("unexpected update published: %+v", rt)
	case <-time.After(50 * time.Millisecond):
	}
}

func currentGen(e *Engine) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gen
}

func waitForTicker(t *testing.T, fc interface {
	BlockUntilContext(context.Context, int) error
}, n int) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, fc.BlockUntilContext(ctx, n))
}

func TestNew_InvalidTarget(t *testing.T) {
	var calls atomic.Int32
	cfg := DefaultDisplayConfig()
	cfg.OnComplete = func(RemainingTime) error {
		calls.Add(1)
		return nil
	}

	target, err := ParseTarget("not-a-date", time.UTC)
	require.ErrorIs(t, err, ErrInvalidTarget)

	rec := newRecorder()
	e, err := New(target, cfg, rec.publish)
	require.ErrorIs(t, err, ErrInvalidTarget)
	assert.Nil(t, e)

	rec.none(t)
	assert.Equal(t, int32(0), calls.Load())
}

func TestEngine_StartPublishesImmediately(t *testing.T) {
	fc := clockwork.NewFakeClockAt(epoch)
	rec := newRecorder()

	target := MustTarget(epoch.Add(90_061_001 * time.Millisecond))
	e, err := New(target, DefaultDisplayConfig(), rec.publish, WithClock(fc))
	require.NoError(t, err)
	t.Cleanup(e.Stop)

	assert.Equal(t, StateIdle, e.State())
	e.Start()

	assert.Equal(t, RemainingTime{Days: 1, Hours: 1, Minutes: 1, Seconds: 1}, rec.next(t))
	assert.Equal(t, StateRunning, e.State())

	// a second Start is a no-op
	e.Start()
	rec.none(t)
}

func TestEngine_TicksEverySecond(t *testing.T) {
	fc := clockwork.NewFakeClockAt(epoch)
	rec := newRecorder()

	e, err := New(MustTarget(epoch.Add(3*time.Second)), DefaultDisplayConfig(), rec.publish, WithClock(fc))
	require.NoError(t, err)
	t.Cleanup(e.Stop)

	e.Start()
	assert.Equal(t, 3, rec.next(t).Seconds)

	waitForTicker(t, fc, 1)
	fc.Advance(time.Second)
	assert.Equal(t, 2, rec.next(t).Seconds)

	fc.Advance(time.Second)
	assert.Equal(t, 1, rec.next(t).Seconds)
	assert.Equal(t, RemainingTime{Seconds: 1}, e.Latest())
}

func TestEngine_CompletesOnceAndStopsTicking(t *testing.T) {
	fc := clockwork.NewFakeClockAt(epoch)
	rec := newRecorder()

	var calls atomic.Int32
	cfg := DefaultDisplayConfig()
	cfg.OnComplete = func(final RemainingTime) error {
		assert.True(t, final.IsComplete)
		calls.Add(1)
		return nil
	}

	e, err := New(MustTarget(epoch.Add(1500*time.Millisecond)), cfg, rec.publish, WithClock(fc))
	require.NoError(t, err)
	t.Cleanup(e.Stop)

	e.Start()
	assert.Equal(t, 1, rec.next(t).Seconds)

	waitForTicker(t, fc, 1)
	fc.Advance(time.Second)
	assert.Equal(t, RemainingTime{}, rec.next(t))

	fc.Advance(time.Second)
	assert.Equal(t, Completed, rec.next(t))

	require.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, StateComplete, e.State())

	// the trigger is gone: nothing is left waiting on the clock
	waitForTicker(t, fc, 0)
	fc.Advance(5 * time.Second)
	rec.none(t)
	assert.Equal(t, int32(1), calls.Load())
}

func TestEngine_PastTargetCompletesOnStart(t *testing.T) {
	fc := clockwork.NewFakeClockAt(epoch)
	rec := newRecorder()

	var calls atomic.Int32
	cfg := DefaultDisplayConfig()
	cfg.OnComplete = func(RemainingTime) error {
		calls.Add(1)
		return nil
	}

	e, err := New(MustTarget(epoch.Add(-5*time.Second)), cfg, rec.publish, WithClock(fc))
	require.NoError(t, err)
	t.Cleanup(e.Stop)

	e.Start()

	// the callback runs synchronously inside Start
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, Completed, rec.next(t))
	assert.Equal(t, StateComplete, e.State())

	waitForTicker(t, fc, 0)
	fc.Advance(time.Minute)
	rec.none(t)
}

func TestEngine_CoalescesSpuriousFirings(t *testing.T) {
	fc := clockwork.NewFakeClockAt(epoch)
	rec := newRecorder()
	metrics := NewCounterMetrics()

	e, err := New(MustTarget(epoch.Add(time.Hour)), DefaultDisplayConfig(), rec.publish,
		WithClock(fc), WithMetrics(metrics))
	require.NoError(t, err)
	t.Cleanup(e.Stop)

	e.Start()
	first := rec.next(t)
	gen := currentGen(e)

	for i := 0; i < 5; i++ {
		e.onTrigger(gen)
	}
	assert.Len(t, rec.ch, 0)
	assert.Equal(t, uint64(5), metrics.Snapshot().Coalesced)

	fc.Advance(999 * time.Millisecond)
	e.onTrigger(gen)
	assert.Len(t, rec.ch, 0)
	assert.Equal(t, uint64(6), metrics.Snapshot().Coalesced)

	// the nominal interval has now elapsed; the real firing recomputes
	fc.Advance(time.Millisecond)
	next := rec.next(t)
	assert.Less(t, next.TotalMillis(), first.TotalMillis())
	assert.Equal(t, uint64(2), metrics.Snapshot().Ticks)
}

func TestEngine_IgnoresStaleGeneration(t *testing.T) {
	fc := clockwork.NewFakeClockAt(epoch)
	rec := newRecorder()
	metrics := NewCounterMetrics()

	e, err := New(MustTarget(epoch.Add(time.Hour)), DefaultDisplayConfig(), rec.publish,
		WithClock(fc), WithMetrics(metrics))
	require.NoError(t, err)
	t.Cleanup(e.Stop)

	e.Start()
	rec.next(t)
	oldGen := currentGen(e)

	require.NoError(t, e.Reset(MustTarget(epoch.Add(2*time.Hour))))
	assert.Equal(t, int64(2*time.Hour/time.Millisecond), rec.next(t).TotalMillis())

	// a firing from the cancelled trigger is dropped before the interval guard
	e.onTrigger(oldGen)
	assert.Equal(t, uint64(0), metrics.Snapshot().Coalesced)

	e.onTrigger(currentGen(e))
	assert.Equal(t, uint64(1), metrics.Snapshot().Coalesced)
	assert.Len(t, rec.ch, 0)
}

func TestEngine_StopCancelsTrigger(t *testing.T) {
	fc := clockwork.NewFakeClockAt(epoch)
	rec := newRecorder()

	var calls atomic.Int32
	cfg := DefaultDisplayConfig()
	cfg.OnComplete = func(RemainingTime) error {
		calls.Add(1)
		return nil
	}

	e, err := New(MustTarget(epoch.Add(2*time.Second)), cfg, rec.publish, WithClock(fc))
	require.NoError(t, err)

	e.Start()
	rec.next(t)
	gen := currentGen(e)

	e.Stop()
	e.Stop()
	assert.Equal(t, StateStopped, e.State())

	waitForTicker(t, fc, 0)
	fc.Advance(10 * time.Second)
	e.onTrigger(gen)
	rec.none(t)
	assert.Equal(t, int32(0), calls.Load())

	assert.ErrorIs(t, e.Reset(MustTarget(epoch.Add(time.Hour))), ErrEngineStopped)
	assert.ErrorIs(t, e.Reconfigure("2030-01-01"), ErrEngineStopped)
	e.Start()
	rec.none(t)
}

func TestEngine_ReconfigureToPastTarget(t *testing.T) {
	fc := clockwork.NewFakeClockAt(epoch)
	rec := newRecorder()

	var calls atomic.Int32
	cfg := DefaultDisplayConfig()
	cfg.OnComplete = func(RemainingTime) error {
		calls.Add(1)
		return nil
	}

	e, err := New(MustTarget(epoch.Add(time.Hour)), cfg, rec.publish, WithClock(fc))
	require.NoError(t, err)
	t.Cleanup(e.Stop)

	e.Start()
	assert.Equal(t, 1, rec.next(t).Hours)
	waitForTicker(t, fc, 1)

	require.NoError(t, e.Reset(MustTarget(epoch.Add(-time.Minute))))
	assert.Equal(t, Completed, rec.next(t))
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, StateComplete, e.State())

	waitForTicker(t, fc, 0)
	fc.Advance(3 * time.Second)
	rec.none(t)
	assert.Equal(t, int32(1), calls.Load())
}

func TestEngine_ReconfigureRestartsTicking(t *testing.T) {
	fc := clockwork.NewFakeClockAt(epoch)
	rec := newRecorder()

	e, err := New(MustTarget(epoch.Add(-time.Second)), DefaultDisplayConfig(), rec.publish,
		WithClock(fc), WithLocation(time.UTC))
	require.NoError(t, err)
	t.Cleanup(e.Stop)

	e.Start()
	assert.Equal(t, Completed, rec.next(t))

	require.NoError(t, e.Reconfigure("2025-03-01T12:00:10Z"))
	assert.Equal(t, RemainingTime{Seconds: 10}, rec.next(t))
	assert.Equal(t, StateRunning, e.State())

	waitForTicker(t, fc, 1)
	fc.Advance(time.Second)
	assert.Equal(t, RemainingTime{Seconds: 9}, rec.next(t))
}

func TestEngine_ReconfigureInvalidCancelsTrigger(t *testing.T) {
	fc := clockwork.NewFakeClockAt(epoch)
	rec := newRecorder()

	e, err := New(MustTarget(epoch.Add(time.Hour)), DefaultDisplayConfig(), rec.publish, WithClock(fc))
	require.NoError(t, err)
	t.Cleanup(e.Stop)

	e.Start()
	rec.next(t)

	err = e.Reconfigure("31/12/2025")
	require.ErrorIs(t, err, ErrInvalidTarget)
	assert.Equal(t, StateInvalid, e.State())

	waitForTicker(t, fc, 0)
	fc.Advance(5 * time.Second)
	rec.none(t)

	require.NoError(t, e.Reconfigure("2025-03-01T13:00:00Z"))
	assert.Equal(t, StateRunning, e.State())
	assert.Equal(t, 1, rec.next(t).Hours)
}

func TestEngine_ResetWhileIdleOnlyReplacesTarget(t *testing.T) {
	fc := clockwork.NewFakeClockAt(epoch)
	rec := newRecorder()

	e, err := New(MustTarget(epoch.Add(time.Hour)), DefaultDisplayConfig(), rec.publish, WithClock(fc))
	require.NoError(t, err)
	t.Cleanup(e.Stop)

	newTarget := MustTarget(epoch.Add(time.Minute))
	require.NoError(t, e.Reset(newTarget))
	assert.Equal(t, StateIdle, e.State())
	assert.Equal(t, newTarget, e.Target())
	rec.none(t)

	e.Start()
	assert.Equal(t, RemainingTime{Minutes: 1}, rec.next(t))
}

func TestEngine_ReconfigureBeforeStartStaysIdle(t *testing.T) {
	fc := clockwork.NewFakeClockAt(epoch)
	rec := newRecorder()

	e, err := New(MustTarget(epoch.Add(time.Minute)), DefaultDisplayConfig(), rec.publish,
		WithClock(fc), WithLocation(time.UTC))
	require.NoError(t, err)
	t.Cleanup(e.Stop)

	require.ErrorIs(t, e.Reconfigure("garbage"), ErrInvalidTarget)
	assert.Equal(t, StateInvalid, e.State())

	// a valid target brings the engine back to idle, not running
	require.NoError(t, e.Reconfigure("2025-03-01T13:00:00Z"))
	assert.Equal(t, StateIdle, e.State())
	rec.none(t)
	waitForTicker(t, fc, 0)

	e.Start()
	assert.Equal(t, RemainingTime{Hours: 1}, rec.next(t))
	assert.Equal(t, StateRunning, e.State())
	waitForTicker(t, fc, 1)
}

func TestEngine_StaleCompletionFailureIsDropped(t *testing.T) {
	fc := clockwork.NewFakeClockAt(epoch)
	rec := newRecorder()
	metrics := NewCounterMetrics()

	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	cfg := DefaultDisplayConfig()
	cfg.OnComplete = func(RemainingTime) error {
		entered <- struct{}{}
		<-release
		return errors.New("old activation failed")
	}

	e, err := New(MustTarget(epoch.Add(time.Second)), cfg, rec.publish,
		WithClock(fc), WithMetrics(metrics))
	require.NoError(t, err)
	t.Cleanup(e.Stop)

	e.Start()
	assert.Equal(t, RemainingTime{Seconds: 1}, rec.next(t))

	waitForTicker(t, fc, 1)
	fc.Advance(time.Second)
	assert.Equal(t, Completed, rec.next(t))

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("completion callback was not invoked")
	}

	// a new activation is installed while the old callback is still running
	require.NoError(t, e.Reset(MustTarget(epoch.Add(time.Hour+time.Second))))
	assert.Equal(t, 1, rec.next(t).Hours)
	assert.Equal(t, StateRunning, e.State())

	close(release)
	require.Eventually(t, func() bool {
		return metrics.Snapshot().CallbackFailures == 1
	}, 2*time.Second, 5*time.Millisecond)

	assert.Never(t, func() bool {
		return e.CompletionErr() != nil
	}, 100*time.Millisecond, 5*time.Millisecond)
	assert.Equal(t, StateRunning, e.State())
}

func TestEngine_CompletionCallbackFailure(t *testing.T) {
	tests := []struct {
		name     string
		callback CompletionFunc
		contains string
	}{
		{
			name:     "error",
			callback: func(RemainingTime) error { return errors.New("webhook down") },
			contains: "webhook down",
		},
		{
			name:     "panic",
			callback: func(RemainingTime) error { panic("boom") },
			contains: "boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := clockwork.NewFakeClockAt(epoch)
			rec := newRecorder()
			metrics := NewCounterMetrics()

			cfg := DefaultDisplayConfig()
			cfg.OnComplete = tt.callback

			e, err := New(MustTarget(epoch), cfg, rec.publish, WithClock(fc), WithMetrics(metrics))
			require.NoError(t, err)
			t.Cleanup(e.Stop)

			assert.NotPanics(t, e.Start)

			assert.Equal(t, Completed, rec.next(t))
			assert.Equal(t, Completed, e.Latest())
			assert.Equal(t, StateComplete, e.State())

			cbErr := e.CompletionErr()
			require.ErrorIs(t, cbErr, ErrCompletionCallback)
			assert.Contains(t, cbErr.Error(), tt.contains)
			assert.Equal(t, uint64(1), metrics.Snapshot().CallbackFailures)

			waitForTicker(t, fc, 0)
		})
	}
}

func TestEngine_IDAndConfig(t *testing.T) {
	cfg := DisplayConfig{ShowSeconds: false, StyleTag: "promo"}
	e, err := New(MustTarget(epoch), cfg, nil, WithID("launch"), WithClock(clockwork.NewFakeClockAt(epoch)))
	require.NoError(t, err)
	t.Cleanup(e.Stop)

	assert.Equal(t, "launch", e.ID())
	assert.Equal(t, cfg.StyleTag, e.Config().StyleTag)
	assert.False(t, e.Config().ShowSeconds)

	generated, err := New(MustTarget(epoch), cfg, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, generated.ID())
	assert.NotEqual(t, e.ID(), generated.ID())
}
