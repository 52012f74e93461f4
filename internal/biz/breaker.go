package biz

import (
	"context"
	"errors"
	"sync"
	"time"

	"RatePilot/internal/model"

	"github.com/go-kratos/kratos/v2/log"
)

// CircuitState is the breaker state machine position.
type CircuitState int

const (
	// StateClosed indicates normal operation.
	StateClosed CircuitState = iota
	// StateOpen indicates calls are rejected without invoking the target.
	StateOpen
	// StateHalfOpen indicates a single trial call is permitted.
	StateHalfOpen
)

// String returns the lowercase state name.
func (s CircuitState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// BreakerConfig controls the thresholds for state transitions.
type BreakerConfig struct {
	// FailureThreshold is the consecutive-failure count that opens the
	// circuit once the volume threshold is met.
	FailureThreshold int
	// VolumeThreshold is the minimum request volume in the monitoring
	// window before either opening rule applies. Zero disables the
	// volume requirement.
	VolumeThreshold int
	// ErrorThresholdPercentage opens the circuit when the windowed error
	// rate reaches this percentage, given the volume threshold is met.
	// Zero disables the rate rule.
	ErrorThresholdPercentage float64
	// TimeoutWindow is how long the circuit stays open before admitting
	// a half-open probe.
	TimeoutWindow time.Duration
	// MonitoringWindow bounds the rolling request-outcome ledger.
	MonitoringWindow time.Duration
}

// DefaultBreakerConfig returns the shared defaults used by the registry.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold:         5,
		VolumeThreshold:          10,
		ErrorThresholdPercentage: 50,
		TimeoutWindow:            30 * time.Second,
		MonitoringWindow:         60 * time.Second,
	}
}

// requestOutcome is one entry in the rolling ledger. Outcomes are stored
// per event so volume and error rate are exact, not approximated.
type requestOutcome struct {
	at      time.Time
	success bool
}

// CircuitBreaker guards calls to one logical external target. All state
// transitions, including admission of the single half-open probe, are
// serialized by the mutex; the wrapped operation runs outside the lock.
type CircuitBreaker struct {
	target string
	cfg    BreakerConfig
	logger *log.Helper

	mu              sync.Mutex
	state           CircuitState
	failureCount    int
	lastFailureTime time.Time
	nextAttemptTime time.Time
	probeInFlight   bool
	window          []requestOutcome
}

// NewCircuitBreaker creates a breaker for the given target.
func NewCircuitBreaker(target string, cfg BreakerConfig, logger log.Logger) *CircuitBreaker {
	return &CircuitBreaker{
		target: target,
		cfg:    cfg,
		state:  StateClosed,
		logger: log.NewHelper(logger),
	}
}

// Execute runs op under the breaker. While open it fails fast with a
// CircuitOpenError; while half-open only the single probe is admitted and
// every other caller fails fast. The operation's own error is returned
// unchanged: retrying is the Retryer's job, the breaker only tracks target
// health.
func (b *CircuitBreaker) Execute(ctx context.Context, op func(context.Context) error, opContext string) error {
	isProbe, err := b.admit()
	if err != nil {
		b.logger.Warnw("call rejected by circuit breaker",
			"target", b.target,
			"context", opContext,
			"error", err)
		return err
	}

	opErr := op(ctx)
	b.record(isProbe, opErr, opContext)
	return opErr
}

// admit decides whether a call may proceed and whether it is the half-open
// probe.
func (b *CircuitBreaker) admit() (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	switch b.state {
	case StateOpen:
		if now.Before(b.nextAttemptTime) {
			return false, b.openError()
		}
		// Timeout window elapsed: this caller becomes the probe.
		b.state = StateHalfOpen
		b.probeInFlight = true
		b.logger.Infow("circuit breaker half-open, admitting probe", "target", b.target)
		return true, nil
	case StateHalfOpen:
		if b.probeInFlight {
			return false, b.openError()
		}
		b.probeInFlight = true
		return true, nil
	default:
		return false, nil
	}
}

// record applies the call outcome to the state machine. Validation errors
// indicate a client-side bug, not target unhealthiness, and are not counted.
func (b *CircuitBreaker) record(isProbe bool, opErr error, opContext string) {
	if opErr != nil && Classify(opErr).Type == ErrorTypeValidation {
		if isProbe {
			b.mu.Lock()
			b.probeInFlight = false
			b.mu.Unlock()
		}
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.prune(now)
	b.window = append(b.window, requestOutcome{at: now, success: opErr == nil})

	if opErr == nil {
		if isProbe {
			openedAt := b.lastFailureTime
			b.state = StateClosed
			b.failureCount = 0
			b.probeInFlight = false
			b.logger.Infow("circuit breaker closed after successful probe",
				"target", b.target,
				"open_for", now.Sub(openedAt))
			return
		}
		if b.state == StateClosed {
			// The rolling window keeps its entries for rate
			// calculations; only the consecutive counter resets.
			b.failureCount = 0
		}
		return
	}

	b.failureCount++
	b.lastFailureTime = now

	if isProbe {
		b.state = StateOpen
		b.nextAttemptTime = now.Add(b.cfg.TimeoutWindow)
		b.probeInFlight = false
		b.logger.Warnw("circuit breaker probe failed, reopening",
			"target", b.target,
			"context", opContext,
			"next_attempt", b.nextAttemptTime)
		return
	}

	if b.state == StateClosed && b.shouldTrip() {
		b.state = StateOpen
		b.nextAttemptTime = now.Add(b.cfg.TimeoutWindow)
		b.logger.Errorw("circuit breaker opened",
			"target", b.target,
			"context", opContext,
			"failure_count", b.failureCount,
			"error_rate", b.errorRate(),
			"next_attempt", b.nextAttemptTime)
	}
}

// shouldTrip evaluates the opening rules against the pruned window.
// Caller must hold the mutex.
func (b *CircuitBreaker) shouldTrip() bool {
	volumeMet := b.cfg.VolumeThreshold <= 0 || len(b.window) >= b.cfg.VolumeThreshold

	if b.cfg.FailureThreshold > 0 && b.failureCount >= b.cfg.FailureThreshold && volumeMet {
		return true
	}
	if b.cfg.ErrorThresholdPercentage > 0 && volumeMet && b.errorRate() >= b.cfg.ErrorThresholdPercentage {
		return true
	}
	return false
}

// errorRate returns the windowed failure percentage. Caller must hold the
// mutex.
func (b *CircuitBreaker) errorRate() float64 {
	if len(b.window) == 0 {
		return 0
	}
	failures := 0
	for _, o := range b.window {
		if !o.success {
			failures++
		}
	}
	return float64(failures) / float64(len(b.window)) * 100
}

// prune drops ledger entries older than the monitoring window. Caller must
// hold the mutex.
func (b *CircuitBreaker) prune(now time.Time) {
	cutoff := now.Add(-b.cfg.MonitoringWindow)
	kept := b.window[:0]
	for _, o := range b.window {
		if o.at.After(cutoff) {
			kept = append(kept, o)
		}
	}
	b.window = kept
}

// openError builds the fail-fast error. Caller must hold the mutex.
func (b *CircuitBreaker) openError() *CircuitOpenError {
	return &CircuitOpenError{
		Target:          b.target,
		NextAttemptTime: b.nextAttemptTime,
		FailureCount:    b.failureCount,
	}
}

// ForceOpen trips the circuit manually.
func (b *CircuitBreaker) ForceOpen() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateOpen
	b.nextAttemptTime = time.Now().Add(b.cfg.TimeoutWindow)
	b.probeInFlight = false
	b.logger.Warnw("circuit breaker forced open", "target", b.target)
}

// ForceClosed closes the circuit manually without clearing the ledger.
func (b *CircuitBreaker) ForceClosed() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failureCount = 0
	b.probeInFlight = false
	b.logger.Infow("circuit breaker forced closed", "target", b.target)
}

// Reset clears all counters and returns the breaker to its initial state.
func (b *CircuitBreaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failureCount = 0
	b.probeInFlight = false
	b.lastFailureTime = time.Time{}
	b.nextAttemptTime = time.Time{}
	b.window = nil
	b.logger.Infow("circuit breaker reset", "target", b.target)
}

// State returns the current state.
func (b *CircuitBreaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Snapshot returns a point-in-time view for the admin API.
func (b *CircuitBreaker) Snapshot() *model.CircuitSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.prune(time.Now())
	snap := &model.CircuitSnapshot{
		Target:        b.target,
		State:         b.state.String(),
		FailureCount:  b.failureCount,
		RequestVolume: len(b.window),
		ErrorRate:     b.errorRate(),
		ProbeInFlight: b.probeInFlight,
	}
	if !b.lastFailureTime.IsZero() {
		t := b.lastFailureTime
		snap.LastFailureTime = &t
	}
	if !b.nextAttemptTime.IsZero() {
		t := b.nextAttemptTime
		snap.NextAttemptTime = &t
	}
	return snap
}

// BreakerRegistry lazily creates and caches one breaker per target key.
// Different keys are fully independent; mutations to the map are guarded by
// the registry lock while each breaker serializes its own state.
type BreakerRegistry struct {
	mu        sync.RWMutex
	breakers  map[string]*CircuitBreaker
	overrides map[string]BreakerConfig
	defaults  BreakerConfig
	logger    log.Logger
}

// NewBreakerRegistry creates a registry with shared default configuration.
func NewBreakerRegistry(defaults BreakerConfig, logger log.Logger) *BreakerRegistry {
	return &BreakerRegistry{
		breakers:  make(map[string]*CircuitBreaker),
		overrides: make(map[string]BreakerConfig),
		defaults:  defaults,
		logger:    logger,
	}
}

// Get returns the breaker for the target, creating it on first use.
func (r *BreakerRegistry) Get(target string) *CircuitBreaker {
	r.mu.RLock()
	if b, ok := r.breakers[target]; ok {
		r.mu.RUnlock()
		return b
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[target]; ok {
		return b
	}
	cfg := r.defaults
	if override, ok := r.overrides[target]; ok {
		cfg = override
	}
	b := NewCircuitBreaker(target, cfg, r.logger)
	r.breakers[target] = b
	return b
}

// Configure sets a per-target configuration override. It applies to
// breakers created after the call.
func (r *BreakerRegistry) Configure(target string, cfg BreakerConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overrides[target] = cfg
}

// Reset resets the breaker for the target if it exists.
func (r *BreakerRegistry) Reset(target string) bool {
	r.mu.RLock()
	b, ok := r.breakers[target]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	b.Reset()
	return true
}

// Snapshots returns the current state of every known breaker.
func (r *BreakerRegistry) Snapshots() []*model.CircuitSnapshot {
	r.mu.RLock()
	breakers := make([]*CircuitBreaker, 0, len(r.breakers))
	for _, b := range r.breakers {
		breakers = append(breakers, b)
	}
	r.mu.RUnlock()

	snaps := make([]*model.CircuitSnapshot, 0, len(breakers))
	for _, b := range breakers {
		snaps = append(snaps, b.Snapshot())
	}
	return snaps
}

// IsCircuitOpen reports whether err is a breaker rejection.
func IsCircuitOpen(err error) bool {
	var openErr *CircuitOpenError
	return errors.As(err, &openErr)
}
