package biz

import (
	"context"
	"fmt"
	"time"

	"RatePilot/internal/model"

	"github.com/go-kratos/kratos/v2/log"
)

// AutoSyncHorizonDays is how far ahead the nightly auto-push prices each
// property's calendar.
const AutoSyncHorizonDays = 90

// AutoSyncTask pushes the reconciled calendar of every sync-enabled
// property to the channel. It is driven by the cron scheduler.
type AutoSyncTask struct {
	properties   PropertyRepo
	reconciler   *PriceReconciler
	orchestrator *BatchSyncOrchestrator
	opts         SyncOptions
	logger       *log.Helper
}

// NewAutoSyncTask creates the scheduled sync task.
func NewAutoSyncTask(properties PropertyRepo, reconciler *PriceReconciler, orchestrator *BatchSyncOrchestrator, opts SyncOptions, logger log.Logger) *AutoSyncTask {
	return &AutoSyncTask{
		properties:   properties,
		reconciler:   reconciler,
		orchestrator: orchestrator,
		opts:         opts,
		logger:       log.NewHelper(logger),
	}
}

// Run reconciles and pushes every sync-enabled property. Properties whose
// calendar cannot be reconciled are skipped and reported; they never stop
// the rest of the batch.
func (t *AutoSyncTask) Run(ctx context.Context) (*model.BatchSyncResult, error) {
	properties, err := t.properties.ListSyncEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync-enabled properties: %w", err)
	}
	if len(properties) == 0 {
		t.logger.Info("no sync-enabled properties found")
		return &model.BatchSyncResult{}, nil
	}

	start := time.Now().UTC()
	startDate := start.Format(model.DateLayout)
	endDate := start.AddDate(0, 0, AutoSyncHorizonDays).Format(model.DateLayout)

	items := make([]PropertyPayload, 0, len(properties))
	for _, property := range properties {
		days, err := t.reconciler.Reconcile(ctx, property.ID, startDate, endDate, DefaultReconcileOptions())
		if err != nil {
			t.logger.Errorw("skipping property, calendar reconciliation failed",
				"property_id", property.ID,
				"error", err)
			continue
		}
		items = append(items, PropertyPayload{
			PropertyID: property.ID,
			Payload:    BuildRatePayload(property, days),
		})
	}

	result := t.orchestrator.SyncMany(ctx, items, t.opts)
	t.logger.Infow("auto sync completed",
		"eligible", len(properties),
		"submitted", len(items),
		"successful", result.Successful,
		"failed", result.Failed)
	return result, nil
}
