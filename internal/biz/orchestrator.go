package biz

import (
	"context"
	"fmt"
	"time"

	"RatePilot/internal/model"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// ChannelTarget is the breaker key for the booking-channel HTTP API.
const ChannelTarget = "channel"

// SyncOptions tunes a single or batch push.
type SyncOptions struct {
	// Policy is the retry policy for each property's HTTP call.
	Policy RetryPolicy
	// InterRequestDelay is slept between properties in a batch to respect
	// channel rate limits.
	InterRequestDelay time.Duration
	// Target overrides the breaker key, e.g. for per-property isolation.
	Target string
}

func (o SyncOptions) target() string {
	if o.Target != "" {
		return o.Target
	}
	return ChannelTarget
}

// BatchSyncOrchestrator drives per-property sync operations through the
// retryer and breaker, aggregates individual results into a batch report,
// and records operation history.
type BatchSyncOrchestrator struct {
	channel  ChannelClient
	breakers *BreakerRegistry
	retryer  *Retryer
	history  SyncHistoryRepo
	logger   *log.Helper
}

// NewBatchSyncOrchestrator creates an orchestrator.
func NewBatchSyncOrchestrator(channel ChannelClient, breakers *BreakerRegistry, retryer *Retryer, history SyncHistoryRepo, logger log.Logger) *BatchSyncOrchestrator {
	return &BatchSyncOrchestrator{
		channel:  channel,
		breakers: breakers,
		retryer:  retryer,
		history:  history,
		logger:   log.NewHelper(logger),
	}
}

// SyncOne pushes one property's rates. The payload is validated before any
// network call; invalid payloads fail without consuming a retry or breaker
// attempt. The HTTP call runs as breaker.Execute(retryer.Run(push)), so one
// fully exhausted retry run counts as a single breaker failure.
func (o *BatchSyncOrchestrator) SyncOne(ctx context.Context, propertyID int64, payload *model.RatePayload, opts SyncOptions) *model.SyncOperation {
	op := &model.SyncOperation{
		ID:          uuid.NewString(),
		PropertyID:  propertyID,
		Status:      model.SyncStatusInProgress,
		MaxAttempts: opts.Policy.MaxAttempts,
		StartedAt:   time.Now().UTC(),
	}

	if err := ValidateRatePayload(payload); err != nil {
		classified := Classify(err)
		op.Fail(string(classified.Type), classified.Message, false)
		o.record(ctx, op)
		o.logger.Warnw("payload rejected before push",
			"property_id", propertyID,
			"error", err)
		return op
	}

	var lastStatus int
	err := o.breakers.Get(opts.target()).Execute(ctx, func(ctx context.Context) error {
		return o.retryer.Run(ctx, func(ctx context.Context) error {
			op.AttemptNumber++
			status, pushErr := o.channel.PushRates(ctx, payload)
			if status > 0 {
				lastStatus = status
			}
			return pushErr
		}, opts.Policy)
	}, fmt.Sprintf("push rates for property %d", propertyID))

	if err == nil {
		op.Complete(lastStatus)
		o.record(ctx, op)
		o.logger.Infow("property synced",
			"property_id", propertyID,
			"operation_id", op.ID,
			"attempts", op.AttemptNumber,
			"duration_ms", *op.DurationMs)
		return op
	}

	classified := Classify(err)
	if lastStatus > 0 {
		op.HTTPStatus = &lastStatus
	}
	op.Fail(string(classified.Type), classified.Error(), classified.Recoverable())

	if classified.Type == ErrorTypeAuth {
		// A rejected credential will fail every subsequent push; drop
		// the cached state so the next operation re-reads it.
		o.channel.InvalidateCredential(ctx)
	}

	o.record(ctx, op)
	o.logger.Errorw("property sync failed",
		"property_id", propertyID,
		"operation_id", op.ID,
		"error_type", classified.Type,
		"attempts", op.AttemptNumber,
		"recoverable", classified.Recoverable(),
		"error", err)
	return op
}

// PropertyPayload pairs a property with its prepared channel payload for a
// batch submission.
type PropertyPayload struct {
	PropertyID int64
	Payload    *model.RatePayload
}

// SyncMany processes properties independently and in submission order: one
// property's exhausted retries or open circuit never blocks or cancels the
// others. Cancellation stops before the next property; already-completed
// results remain valid and are reported.
func (o *BatchSyncOrchestrator) SyncMany(ctx context.Context, items []PropertyPayload, opts SyncOptions) *model.BatchSyncResult {
	start := time.Now()
	result := &model.BatchSyncResult{
		Total:   len(items),
		Results: make([]*model.SyncOperation, 0, len(items)),
	}

	for i, item := range items {
		if i > 0 && opts.InterRequestDelay > 0 {
			if err := sleepCtx(ctx, opts.InterRequestDelay); err != nil {
				o.logger.Warnw("batch sync cancelled between properties",
					"completed", len(result.Results),
					"total", len(items))
				break
			}
		}
		if ctx.Err() != nil {
			o.logger.Warnw("batch sync cancelled between properties",
				"completed", len(result.Results),
				"total", len(items))
			break
		}
		result.Results = append(result.Results, o.SyncOne(ctx, item.PropertyID, item.Payload, opts))
	}

	result.Summarize(time.Since(start))
	o.logger.Infow("batch sync finished",
		"total", result.Total,
		"successful", result.Successful,
		"failed", result.Failed,
		"duration", result.Duration)
	return result
}

// record persists the operation best-effort; history unavailability never
// fails the sync itself.
func (o *BatchSyncOrchestrator) record(ctx context.Context, op *model.SyncOperation) {
	if err := o.history.Record(ctx, op); err != nil {
		o.logger.Warnw("failed to record sync operation",
			"operation_id", op.ID,
			"property_id", op.PropertyID,
			"error", err)
	}
}
