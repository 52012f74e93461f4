package main

import (
	"context"
	"time"

	"RatePilot/internal/biz"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/robfig/cron/v3"
)

// StartAutoSyncCron starts the nightly channel push. It runs at 02:00 every
// day, after the upstream pricing data has settled, and prices the next
// 90 days for every sync-enabled property.
func StartAutoSyncCron(task *biz.AutoSyncTask, logger log.Logger) *cron.Cron {
	helper := log.NewHelper(logger)

	c := cron.New(cron.WithSeconds())

	// Cron expression: sec min hour day month weekday
	_, err := c.AddFunc("0 0 2 * * *", func() {
		helper.Info("Starting nightly auto-sync task...")
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Hour)
		defer cancel()

		result, err := task.Run(ctx)
		if err != nil {
			helper.Errorw("nightly auto-sync task failed", "error", err)
			return
		}
		helper.Infow("nightly auto-sync task completed", "summary", result.Summary)
	})

	if err != nil {
		helper.Errorw("failed to register auto-sync cron job", "error", err)
		return nil
	}

	c.Start()
	helper.Info("Auto-sync cron job started: runs daily at 02:00")

	return c
}
