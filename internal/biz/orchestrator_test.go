package biz

import (
	"context"
	"sync"
	"testing"
	"time"

	"RatePilot/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeChannel scripts PushRates outcomes per channel property ID.
type fakeChannel struct {
	mu          sync.Mutex
	responses   map[int64]func() (int, error)
	calls       map[int64]int
	invalidated int
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		responses: make(map[int64]func() (int, error)),
		calls:     make(map[int64]int),
	}
}

func (f *fakeChannel) PushRates(ctx context.Context, payload *model.RatePayload) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[payload.PropertyID]++
	if fn, ok := f.responses[payload.PropertyID]; ok {
		return fn()
	}
	return 200, nil
}

func (f *fakeChannel) InvalidateCredential(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated++
}

func (f *fakeChannel) callCount(propertyID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[propertyID]
}

// memoryHistory collects recorded operations in memory.
type memoryHistory struct {
	mu  sync.Mutex
	ops []*model.SyncOperation
}

func (h *memoryHistory) Record(ctx context.Context, op *model.SyncOperation) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ops = append(h.ops, op)
	return nil
}

func (h *memoryHistory) ListRecent(ctx context.Context, propertyID int64, limit int) ([]*model.SyncOperation, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []*model.SyncOperation
	for i := len(h.ops) - 1; i >= 0 && len(out) < limit; i-- {
		if h.ops[i].PropertyID == propertyID {
			out = append(out, h.ops[i])
		}
	}
	return out, nil
}

func testSyncOptions() SyncOptions {
	return SyncOptions{
		Policy: RetryPolicy{
			MaxAttempts:   3,
			InitialDelay:  time.Millisecond,
			MaxDelay:      5 * time.Millisecond,
			BackoffFactor: 2,
		},
	}
}

func newTestOrchestrator(channel ChannelClient, history SyncHistoryRepo) *BatchSyncOrchestrator {
	cfg := DefaultBreakerConfig()
	cfg.VolumeThreshold = 0
	cfg.FailureThreshold = 100 // keep the breaker out of most tests
	registry := NewBreakerRegistry(cfg, testLogger())
	return NewBatchSyncOrchestrator(channel, registry, NewRetryer(testLogger()), history, testLogger())
}

func payloadFor(channelPropertyID int64) *model.RatePayload {
	return &model.RatePayload{
		PropertyID: channelPropertyID,
		RoomTypeID: 9001,
		Rates:      []model.RateEntry{{IsDefault: true, PricePerDay: 85, MinStay: 1}},
	}
}

func TestSyncOne_Success(t *testing.T) {
	channel := newFakeChannel()
	history := &memoryHistory{}
	o := newTestOrchestrator(channel, history)

	op := o.SyncOne(context.Background(), 1, payloadFor(100), testSyncOptions())

	assert.Equal(t, model.SyncStatusCompleted, op.Status)
	assert.Equal(t, 1, op.AttemptNumber)
	require.NotNil(t, op.HTTPStatus)
	assert.Equal(t, 200, *op.HTTPStatus)
	assert.NotEmpty(t, op.ID)
	require.NotNil(t, op.DurationMs)
	require.Len(t, history.ops, 1)
}

func TestSyncOne_RetriesThenSucceeds(t *testing.T) {
	channel := newFakeChannel()
	history := &memoryHistory{}
	o := newTestOrchestrator(channel, history)

	failures := 0
	channel.responses[100] = func() (int, error) {
		if failures < 2 {
			failures++
			return 503, &SyncError{Type: ErrorTypeAPI, StatusCode: 503, Message: "unavailable"}
		}
		return 200, nil
	}

	op := o.SyncOne(context.Background(), 1, payloadFor(100), testSyncOptions())

	assert.Equal(t, model.SyncStatusCompleted, op.Status)
	assert.Equal(t, 3, op.AttemptNumber)
	assert.Equal(t, 3, channel.callCount(100))
}

func TestSyncOne_ExhaustedRetriesFail(t *testing.T) {
	channel := newFakeChannel()
	history := &memoryHistory{}
	o := newTestOrchestrator(channel, history)

	channel.responses[100] = func() (int, error) {
		return 500, &SyncError{Type: ErrorTypeAPI, StatusCode: 500, Message: "boom"}
	}

	op := o.SyncOne(context.Background(), 1, payloadFor(100), testSyncOptions())

	assert.Equal(t, model.SyncStatusFailed, op.Status)
	assert.Equal(t, op.MaxAttempts, op.AttemptNumber)
	assert.Equal(t, string(ErrorTypeAPI), op.ErrorType)
	assert.True(t, op.Recoverable)
	require.NotNil(t, op.HTTPStatus)
	assert.Equal(t, 500, *op.HTTPStatus)
}

func TestSyncOne_InvalidPayloadConsumesNoAttempts(t *testing.T) {
	channel := newFakeChannel()
	history := &memoryHistory{}
	o := newTestOrchestrator(channel, history)

	op := o.SyncOne(context.Background(), 1, &model.RatePayload{PropertyID: 100, RoomTypeID: 9001}, testSyncOptions())

	assert.Equal(t, model.SyncStatusFailed, op.Status)
	assert.Equal(t, string(ErrorTypeValidation), op.ErrorType)
	assert.False(t, op.Recoverable)
	assert.Equal(t, 0, op.AttemptNumber)
	assert.Equal(t, 0, channel.callCount(100))
	require.Len(t, history.ops, 1)
}

func TestSyncOne_AuthErrorInvalidatesCredential(t *testing.T) {
	channel := newFakeChannel()
	history := &memoryHistory{}
	o := newTestOrchestrator(channel, history)

	channel.responses[100] = func() (int, error) {
		return 401, &SyncError{Type: ErrorTypeAuth, StatusCode: 401, Message: "bad key"}
	}

	op := o.SyncOne(context.Background(), 1, payloadFor(100), testSyncOptions())

	assert.Equal(t, model.SyncStatusFailed, op.Status)
	assert.Equal(t, string(ErrorTypeAuth), op.ErrorType)
	// Auth errors are not retried.
	assert.Equal(t, 1, op.AttemptNumber)
	assert.Equal(t, 1, channel.invalidated)
}

func TestSyncMany_IsolatesFailures(t *testing.T) {
	channel := newFakeChannel()
	history := &memoryHistory{}
	o := newTestOrchestrator(channel, history)

	// Property 3 always fails with a server error; the rest succeed.
	channel.responses[300] = func() (int, error) {
		return 500, &SyncError{Type: ErrorTypeAPI, StatusCode: 500, Message: "boom"}
	}

	items := []PropertyPayload{
		{PropertyID: 1, Payload: payloadFor(100)},
		{PropertyID: 2, Payload: payloadFor(200)},
		{PropertyID: 3, Payload: payloadFor(300)},
		{PropertyID: 4, Payload: payloadFor(400)},
		{PropertyID: 5, Payload: payloadFor(500)},
	}

	result := o.SyncMany(context.Background(), items, testSyncOptions())

	assert.Equal(t, 5, result.Total)
	assert.Equal(t, 4, result.Successful)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Results, 5)

	// Submission order is kept.
	for i, op := range result.Results {
		assert.Equal(t, int64(i+1), op.PropertyID)
	}
	assert.Equal(t, model.SyncStatusFailed, result.Results[2].Status)
	assert.Equal(t, result.Results[2].MaxAttempts, result.Results[2].AttemptNumber)
	assert.Contains(t, result.Summary, "synced 4/5 properties (1 failed)")
}

func TestSyncMany_CancellationKeepsCompletedResults(t *testing.T) {
	channel := newFakeChannel()
	history := &memoryHistory{}
	o := newTestOrchestrator(channel, history)

	ctx, cancel := context.WithCancel(context.Background())
	channel.responses[200] = func() (int, error) {
		cancel()
		return 200, nil
	}

	opts := testSyncOptions()
	opts.InterRequestDelay = 5 * time.Millisecond

	items := []PropertyPayload{
		{PropertyID: 1, Payload: payloadFor(100)},
		{PropertyID: 2, Payload: payloadFor(200)},
		{PropertyID: 3, Payload: payloadFor(300)},
	}

	result := o.SyncMany(ctx, items, opts)

	// The third property is never attempted; completed results survive.
	assert.Len(t, result.Results, 2)
	assert.Equal(t, 2, result.Successful)
	assert.Equal(t, 0, channel.callCount(300))
}

func TestSyncMany_OpenCircuitFailsFastPerProperty(t *testing.T) {
	channel := newFakeChannel()
	history := &memoryHistory{}

	cfg := DefaultBreakerConfig()
	cfg.FailureThreshold = 1
	cfg.VolumeThreshold = 0
	cfg.TimeoutWindow = time.Minute
	registry := NewBreakerRegistry(cfg, testLogger())
	o := NewBatchSyncOrchestrator(channel, registry, NewRetryer(testLogger()), history, testLogger())

	channel.responses[100] = func() (int, error) {
		return 500, &SyncError{Type: ErrorTypeAPI, StatusCode: 500, Message: "boom"}
	}

	opts := testSyncOptions()
	items := []PropertyPayload{
		{PropertyID: 1, Payload: payloadFor(100)},
		{PropertyID: 2, Payload: payloadFor(200)},
	}
	result := o.SyncMany(context.Background(), items, opts)

	// First property exhausts its retries and trips the shared breaker;
	// the second fails fast without a network call.
	assert.Equal(t, 2, result.Failed)
	assert.Equal(t, string(ErrorTypeCircuitOpen), result.Results[1].ErrorType)
	assert.Equal(t, 0, channel.callCount(200))
	assert.Equal(t, 0, result.Results[1].AttemptNumber)
}
