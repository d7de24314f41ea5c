package breaker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/liquiditycore/internal/domain"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestBreaker(clock domain.Clock) *Breaker {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(Options{}, clock, logger)
}

var errVenue = errors.New("venue down")

func fail(ctx context.Context) error { return errVenue }

func succeed(ctx context.Context) error { return nil }

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	b := newTestBreaker(clock)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		err := b.Do(ctx, "kraken", fail)
		require.ErrorIs(t, err, errVenue)
		assert.Equal(t, StateClosed, b.State("kraken"))
	}

	err := b.Do(ctx, "kraken", fail)
	require.ErrorIs(t, err, errVenue)
	assert.Equal(t, StateOpen, b.State("kraken"))

	err = b.Do(ctx, "kraken", succeed)
	assert.ErrorIs(t, err, domain.ErrCircuitOpen)
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	b := newTestBreaker(clock)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		require.ErrorIs(t, b.Do(ctx, "kraken", fail), errVenue)
	}
	require.NoError(t, b.Do(ctx, "kraken", succeed))

	// The streak restarts; four more failures stay closed.
	for i := 0; i < 4; i++ {
		require.ErrorIs(t, b.Do(ctx, "kraken", fail), errVenue)
		assert.Equal(t, StateClosed, b.State("kraken"))
	}
	require.ErrorIs(t, b.Do(ctx, "kraken", fail), errVenue)
	assert.Equal(t, StateOpen, b.State("kraken"))
}

func TestBreakerHalfOpenAfterCooldown(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	b := newTestBreaker(clock)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.ErrorIs(t, b.Do(ctx, "kraken", fail), errVenue)
	}
	require.Equal(t, StateOpen, b.State("kraken"))

	clock.Advance(29 * time.Second)
	assert.ErrorIs(t, b.Do(ctx, "kraken", succeed), domain.ErrCircuitOpen)

	clock.Advance(2 * time.Second)
	assert.Equal(t, StateHalfOpen, b.State("kraken"))

	require.NoError(t, b.Do(ctx, "kraken", succeed))
	assert.Equal(t, StateHalfOpen, b.State("kraken"))

	require.NoError(t, b.Do(ctx, "kraken", succeed))
	assert.Equal(t, StateClosed, b.State("kraken"))
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	b := newTestBreaker(clock)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.ErrorIs(t, b.Do(ctx, "kraken", fail), errVenue)
	}
	clock.Advance(31 * time.Second)

	require.ErrorIs(t, b.Do(ctx, "kraken", fail), errVenue)
	assert.Equal(t, StateOpen, b.State("kraken"))

	// A fresh cooldown applies.
	assert.ErrorIs(t, b.Do(ctx, "kraken", succeed), domain.ErrCircuitOpen)
	clock.Advance(31 * time.Second)
	require.NoError(t, b.Do(ctx, "kraken", succeed))
	require.NoError(t, b.Do(ctx, "kraken", succeed))
	assert.Equal(t, StateClosed, b.State("kraken"))
}

func TestBreakerHalfOpenAdmitsSingleTrial(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	b := newTestBreaker(clock)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.ErrorIs(t, b.Do(ctx, "kraken", fail), errVenue)
	}
	clock.Advance(31 * time.Second)

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- b.Do(ctx, "kraken", func(ctx context.Context) error {
			close(entered)
			<-release
			return nil
		})
	}()

	<-entered
	// Trial in flight; a second call is rejected, not queued.
	err := b.Do(ctx, "kraken", succeed)
	assert.ErrorIs(t, err, domain.ErrHalfOpenLimit)
	assert.False(t, b.Available("kraken"))

	close(release)
	require.NoError(t, <-done)
}

func TestBreakerIndependentDependencies(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	b := newTestBreaker(clock)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.ErrorIs(t, b.Do(ctx, "kraken", fail), errVenue)
	}
	assert.Equal(t, StateOpen, b.State("kraken"))
	assert.Equal(t, StateClosed, b.State("coinbase"))
	require.NoError(t, b.Do(ctx, "coinbase", succeed))
}

func TestBreakerReset(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	b := newTestBreaker(clock)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.ErrorIs(t, b.Do(ctx, "kraken", fail), errVenue)
	}
	require.Equal(t, StateOpen, b.State("kraken"))

	b.Reset("kraken")
	assert.Equal(t, StateClosed, b.State("kraken"))
	require.NoError(t, b.Do(ctx, "kraken", succeed))
}

func TestBreakerMetrics(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	b := newTestBreaker(clock)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.ErrorIs(t, b.Do(ctx, "kraken", fail), errVenue)
	}
	assert.ErrorIs(t, b.Do(ctx, "kraken", succeed), domain.ErrCircuitOpen)

	metrics := b.Metrics()
	require.Len(t, metrics, 1)
	m := metrics[0]
	assert.Equal(t, "kraken", m.Dependency)
	assert.Equal(t, StateOpen, m.State)
	assert.Equal(t, 5, m.ConsecutiveFailures)
	assert.EqualValues(t, 6, m.TotalCalls)
	assert.EqualValues(t, 1, m.TotalRejected)
}

func TestBreakerCallGeneric(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	b := newTestBreaker(clock)
	ctx := context.Background()

	got, err := Call(ctx, b, "kraken", func(ctx context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)

	_, err = Call(ctx, b, "kraken", func(ctx context.Context) (int, error) {
		return 0, errVenue
	})
	assert.ErrorIs(t, err, errVenue)
}
