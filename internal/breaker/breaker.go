// Package breaker provides per-dependency circuit breaking for outbound
// venue calls. State is in-process only; a restart starts closed.
package breaker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alanyoungcy/liquiditycore/internal/domain"
)

// State is the lifecycle state of one dependency's circuit.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// Options tunes breaker behavior. Zero fields fall back to defaults.
type Options struct {
	// FailureThreshold is the consecutive-failure count that opens a
	// closed circuit.
	FailureThreshold int
	// SuccessThreshold is the consecutive trial successes that close a
	// half-open circuit.
	SuccessThreshold int
	// Cooldown is how long an open circuit rejects before admitting a
	// trial call.
	Cooldown time.Duration
	// CallTimeout bounds each guarded call. Zero means no extra bound.
	CallTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.FailureThreshold <= 0 {
		o.FailureThreshold = 5
	}
	if o.SuccessThreshold <= 0 {
		o.SuccessThreshold = 2
	}
	if o.Cooldown <= 0 {
		o.Cooldown = 30 * time.Second
	}
	return o
}

// Metrics is a point-in-time snapshot of one dependency's circuit.
type Metrics struct {
	Dependency          string    `json:"dependency"`
	State               State     `json:"state"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	TrialSuccesses      int       `json:"trial_successes"`
	LastFailureAt       time.Time `json:"last_failure_at,omitzero"`
	OpenedAt            time.Time `json:"opened_at,omitzero"`
	TotalCalls          int64     `json:"total_calls"`
	TotalRejected       int64     `json:"total_rejected"`
}

type depState struct {
	mu sync.Mutex

	state    State
	failures int
	// trialSuccesses counts consecutive half-open successes.
	trialSuccesses int
	lastFailureAt  time.Time
	openedAt       time.Time

	// halfOpenBusy gates the single in-flight trial call.
	halfOpenBusy atomic.Bool

	totalCalls    atomic.Int64
	totalRejected atomic.Int64
}

// Breaker guards calls to named dependencies. Each dependency gets an
// independent circuit created on first use.
type Breaker struct {
	opts   Options
	clock  domain.Clock
	logger *slog.Logger

	mu   sync.Mutex
	deps map[string]*depState
}

// New creates a Breaker with the given options.
func New(opts Options, clock domain.Clock, logger *slog.Logger) *Breaker {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &Breaker{
		opts:   opts.withDefaults(),
		clock:  clock,
		logger: logger.With(slog.String("component", "breaker")),
		deps:   make(map[string]*depState),
	}
}

func (b *Breaker) dep(name string) *depState {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, ok := b.deps[name]
	if !ok {
		d = &depState{state: StateClosed}
		b.deps[name] = d
	}
	return d
}

// Do runs fn under the named dependency's circuit. It returns
// domain.ErrCircuitOpen while the circuit rejects, domain.ErrHalfOpenLimit
// when a half-open trial is already in flight, and fn's error otherwise.
func (b *Breaker) Do(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	d := b.dep(name)
	d.totalCalls.Add(1)

	trial, err := b.admit(d, name)
	if err != nil {
		d.totalRejected.Add(1)
		return err
	}

	if b.opts.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.opts.CallTimeout)
		defer cancel()
	}

	callErr := fn(ctx)
	b.settle(d, name, trial, callErr)
	return callErr
}

// Call runs fn under the named dependency's circuit and returns its value.
func Call[T any](ctx context.Context, b *Breaker, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := b.Do(ctx, name, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// admit decides whether a call may proceed; a non-nil error rejects it.
// trial is true when the call is a half-open trial whose outcome drives the
// state machine.
func (b *Breaker) admit(d *depState, name string) (trial bool, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch d.state {
	case StateClosed:
		return false, nil
	case StateOpen:
		if b.clock.Now().Sub(d.openedAt) < b.opts.Cooldown {
			return false, fmt.Errorf("breaker: %s: %w", name, domain.ErrCircuitOpen)
		}
		d.state = StateHalfOpen
		d.trialSuccesses = 0
		d.halfOpenBusy.Store(false)
		b.logger.Info("circuit half-open", slog.String("dependency", name))
		fallthrough
	case StateHalfOpen:
		if !d.halfOpenBusy.CompareAndSwap(false, true) {
			return false, fmt.Errorf("breaker: %s: %w", name, domain.ErrHalfOpenLimit)
		}
		return true, nil
	default:
		return false, nil
	}
}

func (b *Breaker) settle(d *depState, name string, trial bool, callErr error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if trial {
		d.halfOpenBusy.Store(false)
	}

	if callErr != nil {
		d.failures++
		d.lastFailureAt = b.clock.Now()
		switch d.state {
		case StateHalfOpen:
			d.state = StateOpen
			d.openedAt = b.clock.Now()
			d.trialSuccesses = 0
			b.logger.Warn("circuit reopened", slog.String("dependency", name))
		case StateClosed:
			if d.failures >= b.opts.FailureThreshold {
				d.state = StateOpen
				d.openedAt = b.clock.Now()
				b.logger.Warn("circuit opened",
					slog.String("dependency", name),
					slog.Int("failures", d.failures))
			}
		}
		return
	}

	switch d.state {
	case StateHalfOpen:
		d.trialSuccesses++
		if d.trialSuccesses >= b.opts.SuccessThreshold {
			d.state = StateClosed
			d.failures = 0
			d.trialSuccesses = 0
			b.logger.Info("circuit closed", slog.String("dependency", name))
		}
	case StateClosed:
		d.failures = 0
	}
}

// State returns the named dependency's current state, resolving an elapsed
// cooldown to half-open.
func (b *Breaker) State(name string) State {
	d := b.dep(name)
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == StateOpen && b.clock.Now().Sub(d.openedAt) >= b.opts.Cooldown {
		return StateHalfOpen
	}
	return d.state
}

// Available reports whether a call to the dependency would be admitted.
func (b *Breaker) Available(name string) bool {
	switch b.State(name) {
	case StateClosed:
		return true
	case StateHalfOpen:
		return !b.dep(name).halfOpenBusy.Load()
	default:
		return false
	}
}

// Reset forces the named circuit back to closed.
func (b *Breaker) Reset(name string) {
	d := b.dep(name)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = StateClosed
	d.failures = 0
	d.trialSuccesses = 0
	d.halfOpenBusy.Store(false)
}

// Metrics returns a snapshot for every dependency seen so far.
func (b *Breaker) Metrics() []Metrics {
	b.mu.Lock()
	names := make([]string, 0, len(b.deps))
	for name := range b.deps {
		names = append(names, name)
	}
	b.mu.Unlock()

	out := make([]Metrics, 0, len(names))
	for _, name := range names {
		d := b.dep(name)
		d.mu.Lock()
		out = append(out, Metrics{
			Dependency:          name,
			State:               d.state,
			ConsecutiveFailures: d.failures,
			TrialSuccesses:      d.trialSuccesses,
			LastFailureAt:       d.lastFailureAt,
			OpenedAt:            d.openedAt,
			TotalCalls:          d.totalCalls.Load(),
			TotalRejected:       d.totalRejected.Load(),
		})
		d.mu.Unlock()
	}
	return out
}
