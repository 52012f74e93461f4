package biz

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() log.Logger {
	return log.NewStdLogger(io.Discard)
}

// testBreakerConfig trips after 3 consecutive failures with no volume
// requirement and a short timeout window so tests can wait it out.
func testBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold:         3,
		VolumeThreshold:          0,
		ErrorThresholdPercentage: 0,
		TimeoutWindow:            40 * time.Millisecond,
		MonitoringWindow:         time.Minute,
	}
}

func failingOp(ctx context.Context) error {
	return &SyncError{Type: ErrorTypeNetwork, Message: "connection refused"}
}

func succeedingOp(ctx context.Context) error {
	return nil
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	b := NewCircuitBreaker("channel", testBreakerConfig(), testLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := b.Execute(ctx, failingOp, "push")
		require.Error(t, err)
		assert.False(t, IsCircuitOpen(err), "operation errors pass through unchanged")
	}
	assert.Equal(t, StateOpen, b.State())

	// While open the operation must not be invoked at all.
	invoked := false
	err := b.Execute(ctx, func(ctx context.Context) error {
		invoked = true
		return nil
	}, "push")
	require.Error(t, err)
	assert.True(t, IsCircuitOpen(err))
	assert.False(t, invoked)

	var openErr *CircuitOpenError
	require.ErrorAs(t, err, &openErr)
	assert.Equal(t, "channel", openErr.Target)
	assert.Equal(t, 3, openErr.FailureCount)
	assert.False(t, openErr.NextAttemptTime.IsZero())
}

func TestBreaker_VolumeThresholdBlocksTrip(t *testing.T) {
	cfg := testBreakerConfig()
	cfg.VolumeThreshold = 5
	b := NewCircuitBreaker("channel", cfg, testLogger())
	ctx := context.Background()

	// 3 consecutive failures but only 3 requests in the window: below the
	// volume threshold, the circuit must stay closed.
	for i := 0; i < 3; i++ {
		_ = b.Execute(ctx, failingOp, "push")
	}
	assert.Equal(t, StateClosed, b.State())

	// Two more failures satisfy the volume requirement.
	for i := 0; i < 2; i++ {
		_ = b.Execute(ctx, failingOp, "push")
	}
	assert.Equal(t, StateOpen, b.State())
}

func TestBreaker_ErrorRateTrip(t *testing.T) {
	cfg := BreakerConfig{
		FailureThreshold:         0,
		VolumeThreshold:          4,
		ErrorThresholdPercentage: 50,
		TimeoutWindow:            40 * time.Millisecond,
		MonitoringWindow:         time.Minute,
	}
	b := NewCircuitBreaker("channel", cfg, testLogger())
	ctx := context.Background()

	// Alternate success and failure: at the 4th request the volume is met
	// and the windowed error rate reaches 50%.
	_ = b.Execute(ctx, succeedingOp, "push")
	_ = b.Execute(ctx, failingOp, "push")
	_ = b.Execute(ctx, succeedingOp, "push")
	assert.Equal(t, StateClosed, b.State())
	_ = b.Execute(ctx, failingOp, "push")
	assert.Equal(t, StateOpen, b.State())
}

func TestBreaker_SuccessResetsConsecutiveCount(t *testing.T) {
	b := NewCircuitBreaker("channel", testBreakerConfig(), testLogger())
	ctx := context.Background()

	_ = b.Execute(ctx, failingOp, "push")
	_ = b.Execute(ctx, failingOp, "push")
	_ = b.Execute(ctx, succeedingOp, "push")
	_ = b.Execute(ctx, failingOp, "push")
	_ = b.Execute(ctx, failingOp, "push")

	// Never 3 consecutive failures, so still closed.
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_HalfOpenProbeSuccessCloses(t *testing.T) {
	b := NewCircuitBreaker("channel", testBreakerConfig(), testLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = b.Execute(ctx, failingOp, "push")
	}
	require.Equal(t, StateOpen, b.State())

	time.Sleep(50 * time.Millisecond)

	err := b.Execute(ctx, succeedingOp, "push")
	require.NoError(t, err)
	assert.Equal(t, StateClosed, b.State())

	snap := b.Snapshot()
	assert.Equal(t, 0, snap.FailureCount)
}

func TestBreaker_HalfOpenProbeFailureReopens(t *testing.T) {
	b := NewCircuitBreaker("channel", testBreakerConfig(), testLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = b.Execute(ctx, failingOp, "push")
	}
	time.Sleep(50 * time.Millisecond)

	err := b.Execute(ctx, failingOp, "push")
	require.Error(t, err)
	assert.Equal(t, StateOpen, b.State())

	// Back to fail-fast for the full timeout window.
	err = b.Execute(ctx, succeedingOp, "push")
	assert.True(t, IsCircuitOpen(err))
}

func TestBreaker_SingleProbeAdmission(t *testing.T) {
	b := NewCircuitBreaker("channel", testBreakerConfig(), testLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = b.Execute(ctx, failingOp, "push")
	}
	time.Sleep(50 * time.Millisecond)

	var admitted atomic.Int32
	var rejected atomic.Int32
	var wg sync.WaitGroup

	// All goroutines race for the half-open slot; exactly one may run the
	// operation, the rest fail fast.
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := b.Execute(ctx, func(ctx context.Context) error {
				admitted.Add(1)
				time.Sleep(20 * time.Millisecond)
				return nil
			}, "probe race")
			if IsCircuitOpen(err) {
				rejected.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), admitted.Load())
	assert.Equal(t, int32(7), rejected.Load())
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_ValidationErrorsNotCounted(t *testing.T) {
	b := NewCircuitBreaker("channel", testBreakerConfig(), testLogger())
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_ = b.Execute(ctx, func(ctx context.Context) error {
			return &SyncError{Type: ErrorTypeValidation, Message: "bad payload"}
		}, "push")
	}

	assert.Equal(t, StateClosed, b.State())
	snap := b.Snapshot()
	assert.Equal(t, 0, snap.FailureCount)
	assert.Equal(t, 0, snap.RequestVolume)
}

func TestBreaker_ForceOpenAndReset(t *testing.T) {
	b := NewCircuitBreaker("channel", testBreakerConfig(), testLogger())
	ctx := context.Background()

	b.ForceOpen()
	err := b.Execute(ctx, succeedingOp, "push")
	assert.True(t, IsCircuitOpen(err))

	b.ForceClosed()
	assert.Equal(t, StateClosed, b.State())
	require.NoError(t, b.Execute(ctx, succeedingOp, "push"))

	b.ForceOpen()
	b.Reset()
	assert.Equal(t, StateClosed, b.State())
	require.NoError(t, b.Execute(ctx, succeedingOp, "push"))
}

func TestBreaker_Snapshot(t *testing.T) {
	b := NewCircuitBreaker("channel", testBreakerConfig(), testLogger())
	ctx := context.Background()

	_ = b.Execute(ctx, failingOp, "push")
	_ = b.Execute(ctx, succeedingOp, "push")

	snap := b.Snapshot()
	assert.Equal(t, "channel", snap.Target)
	assert.Equal(t, "closed", snap.State)
	assert.Equal(t, 2, snap.RequestVolume)
	assert.InDelta(t, 50.0, snap.ErrorRate, 0.001)
	assert.NotNil(t, snap.LastFailureTime)
	assert.False(t, snap.ProbeInFlight)
}

func TestBreakerRegistry_IndependentTargets(t *testing.T) {
	r := NewBreakerRegistry(testBreakerConfig(), testLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = r.Get("channel").Execute(ctx, failingOp, "push")
	}
	assert.Equal(t, StateOpen, r.Get("channel").State())

	// A different target key is unaffected.
	require.NoError(t, r.Get("compute").Execute(ctx, succeedingOp, "calendar"))
	assert.Equal(t, StateClosed, r.Get("compute").State())

	snaps := r.Snapshots()
	assert.Len(t, snaps, 2)
}

func TestBreakerRegistry_GetReturnsSameInstance(t *testing.T) {
	r := NewBreakerRegistry(testBreakerConfig(), testLogger())
	assert.Same(t, r.Get("channel"), r.Get("channel"))
}

func TestBreakerRegistry_ConfigureOverride(t *testing.T) {
	r := NewBreakerRegistry(testBreakerConfig(), testLogger())
	ctx := context.Background()

	r.Configure("fragile", BreakerConfig{
		FailureThreshold: 1,
		TimeoutWindow:    40 * time.Millisecond,
		MonitoringWindow: time.Minute,
	})

	_ = r.Get("fragile").Execute(ctx, failingOp, "push")
	assert.Equal(t, StateOpen, r.Get("fragile").State())
}

func TestBreakerRegistry_Reset(t *testing.T) {
	r := NewBreakerRegistry(testBreakerConfig(), testLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = r.Get("channel").Execute(ctx, failingOp, "push")
	}
	require.Equal(t, StateOpen, r.Get("channel").State())

	assert.True(t, r.Reset("channel"))
	assert.Equal(t, StateClosed, r.Get("channel").State())

	assert.False(t, r.Reset("unknown"))
}
