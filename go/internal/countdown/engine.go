package countdown

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// DefaultInterval is the nominal refresh period of an engine.
const DefaultInterval = time.Second

// State is the lifecycle position of an Engine.
type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateComplete State = "complete"
	StateInvalid  State = "invalid"
	StateStopped  State = "stopped"
)

// CompletionFunc receives the terminal RemainingTime once per activation.
type CompletionFunc func(final RemainingTime) error

// DisplayConfig is fixed when the engine is built.
type DisplayConfig struct {
	ShowSeconds bool
	StyleTag    string
	OnComplete  CompletionFunc
}

// DefaultDisplayConfig shows seconds and has no style tag or callback.
func DefaultDisplayConfig() DisplayConfig {
	return DisplayConfig{ShowSeconds: true}
}

// Subscriber is the single rendering adapter of an engine. It is invoked while
// the engine holds its lock and must not call back into the engine.
type Subscriber func(RemainingTime)

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the real clock, typically with a clockwork.FakeClock.
func WithClock(clock clockwork.Clock) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithInterval sets the nominal refresh period.
func WithInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.interval = d
		}
	}
}

// WithMetrics attaches a metrics collector.
func WithMetrics(m MetricsCollector) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithID overrides the generated engine ID.
func WithID(id string) Option {
	return func(e *Engine) {
		if id != "" {
			e.id = id
		}
	}
}

// WithLocation sets the location used by Reconfigure for zone-less dates.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// Engine owns a countdown target, its periodic trigger and the latest
// published RemainingTime.
type Engine struct {
	id       string
	clock    clockwork.Clock
	interval time.Duration
	loc      *time.Location
	cfg      DisplayConfig
	sub      Subscriber
	metrics  MetricsCollector

	mu            sync.Mutex
	target        Target
	state         State
	latest        RemainingTime
	lastTick      time.Time
	ticker        clockwork.Ticker
	stopCh        chan struct{}
	gen           uint64
	started       bool
	activation    uint64
	completionErr error
}

// New builds an idle engine. A zero target is rejected with ErrInvalidTarget
// and no engine is returned, so nothing ever ticks for it.
func New(target Target, cfg DisplayConfig, sub Subscriber, opts ...Option) (*Engine, error) {
	e := &Engine{
		id:       uuid.New().String(),
		clock:    clockwork.NewRealClock(),
		interval: DefaultInterval,
		loc:      time.Local,
		cfg:      cfg,
		sub:      sub,
		metrics:  NoOpMetricsCollector{},
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(e)
	}

	if target.IsZero() {
		log.Warn().Str("countdown_id", e.id).Msg("countdown not started: invalid target")
		return nil, fmt.Errorf("new engine: %w", ErrInvalidTarget)
	}
	e.target = target

	return e, nil
}

// Start computes immediately, publishes, and begins ticking unless the target
// has already passed. Calling Start on an engine that is not idle, or that was
// already started, does nothing.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.started || e.state != StateIdle {
		e.mu.Unlock()
		return
	}
	e.started = true
	final, done := e.activateLocked()
	act := e.activation
	e.mu.Unlock()

	if done {
		e.complete(final, act)
	}
}

// Reset replaces the target and behaves like a fresh construction. The old
// trigger is cancelled before anything else. A zero target leaves the engine
// in StateInvalid. Before Start, Reset only replaces the target and leaves
// the engine idle.
func (e *Engine) Reset(target Target) error {
	e.mu.Lock()
	if e.state == StateStopped {
		e.mu.Unlock()
		return ErrEngineStopped
	}
	e.cancelTriggerLocked()

	if target.IsZero() {
		e.state = StateInvalid
		e.mu.Unlock()
		log.Warn().Str("countdown_id", e.id).Msg("countdown reconfigured with invalid target")
		return fmt.Errorf("reset: %w", ErrInvalidTarget)
	}

	e.target = target
	e.completionErr = nil
	if !e.started {
		e.state = StateIdle
		e.mu.Unlock()
		return nil
	}

	final, done := e.activateLocked()
	act := e.activation
	e.mu.Unlock()

	log.Debug().
		Str("countdown_id", e.id).
		Str("target", target.String()).
		Msg("countdown reconfigured")

	if done {
		e.complete(final, act)
	}
	return nil
}

// Reconfigure parses raw and resets the engine to it. A parse failure
// invalidates the engine and cancels its trigger.
func (e *Engine) Reconfigure(raw string) error {
	target, err := ParseTarget(raw, e.loc)
	if err != nil {
		if resetErr := e.Reset(Target{}); errors.Is(resetErr, ErrEngineStopped) {
			return resetErr
		}
		return err
	}
	return e.Reset(target)
}

// Stop tears the engine down. The trigger is cancelled whether or not the
// countdown completed, and nothing is published after Stop returns.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateStopped {
		return
	}
	e.cancelTriggerLocked()
	e.state = StateStopped

	log.Debug().Str("countdown_id", e.id).Msg("countdown stopped")
}

func (e *Engine) ID() string {
	return e.id
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Latest returns the most recently published value.
func (e *Engine) Latest() RemainingTime {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.latest
}

func (e *Engine) Target() Target {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.target
}

func (e *Engine) Config() DisplayConfig {
	return e.cfg
}

// CompletionErr returns the failure raised by the completion callback of the
// current activation, wrapped in ErrCompletionCallback.
func (e *Engine) CompletionErr() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.completionErr
}

// activateLocked computes and publishes once, then installs a trigger unless
// the countdown is already over. It reports the terminal value when it is.
func (e *Engine) activateLocked() (RemainingTime, bool) {
	e.activation++
	now := e.clock.Now()
	e.lastTick = now

	rt := Compute(e.target.Time(), now)
	e.publishLocked(rt)
	if rt.IsComplete {
		e.state = StateComplete
		return rt, true
	}

	e.state = StateRunning
	e.startTriggerLocked()
	return rt, false
}

func (e *Engine) startTriggerLocked() {
	e.gen++
	e.ticker = e.clock.NewTicker(e.interval)
	e.stopCh = make(chan struct{})
	go e.run(e.gen, e.ticker, e.stopCh)

	log.Debug().
		Str("countdown_id", e.id).
		Str("target", e.target.String()).
		Dur("interval", e.interval).
		Msg("countdown trigger installed")
}

// cancelTriggerLocked is idempotent.
func (e *Engine) cancelTriggerLocked() {
	if e.stopCh == nil {
		return
	}
	e.ticker.Stop()
	close(e.stopCh)
	e.ticker = nil
	e.stopCh = nil
	e.gen++
}

func (e *Engine) run(gen uint64, ticker clockwork.Ticker, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			e.onTrigger(gen)
		}
	}
}

// onTrigger handles one firing of the periodic trigger. Firings that arrive
// sooner than interval after the last recompute are coalesced.
func (e *Engine) onTrigger(gen uint64) {
	e.mu.Lock()
	if gen != e.gen || e.state != StateRunning {
		e.mu.Unlock()
		return
	}

	now := e.clock.Now()
	if now.Sub(e.lastTick) < e.interval {
		e.mu.Unlock()
		e.metrics.RecordCoalesced()
		return
	}
	e.lastTick = now

	rt := Compute(e.target.Time(), now)
	e.publishLocked(rt)
	if !rt.IsComplete {
		e.mu.Unlock()
		return
	}

	e.state = StateComplete
	e.cancelTriggerLocked()
	act := e.activation
	e.mu.Unlock()

	e.complete(rt, act)
}

func (e *Engine) publishLocked(rt RemainingTime) {
	e.latest = rt
	e.metrics.RecordTick(rt.IsComplete)
	if e.sub != nil {
		e.sub(rt)
	}
}

// complete runs the completion callback outside the lock. Its failure is
// reported and kept, never propagated, and only while act is still the
// current activation.
func (e *Engine) complete(final RemainingTime, act uint64) {
	log.Info().Str("countdown_id", e.id).Msg("countdown complete")

	if e.cfg.OnComplete == nil {
		e.metrics.RecordCompletion(false)
		return
	}

	err := invokeCompletion(e.cfg.OnComplete, final)
	e.metrics.RecordCompletion(err != nil)
	if err == nil {
		return
	}

	log.Error().Err(err).Str("countdown_id", e.id).Msg("completion callback failed")
	e.mu.Lock()
	if e.activation == act {
		e.completionErr = err
	}
	e.mu.Unlock()
}

func invokeCompletion(fn CompletionFunc, final RemainingTime) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrCompletionCallback, r)
		}
	}()

	if cbErr := fn(final); cbErr != nil {
		return fmt.Errorf("%w: %w", ErrCompletionCallback, cbErr)
	}
	return nil
}
