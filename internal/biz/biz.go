// Package biz contains business logic layer implementations.
// This layer holds the resilience engine: circuit breakers, the retry
// executor, price reconciliation, and batch sync orchestration.
package biz

import (
	"RatePilot/internal/conf"

	"github.com/google/wire"
)

// ProviderSet is biz providers.
var ProviderSet = wire.NewSet(
	NewBreakerConfig,
	NewBreakerRegistry,
	NewRetryer,
	NewSyncOptions,
	NewPriceReconciler,
	NewBatchSyncOrchestrator,
	NewOverrideUsecase,
	NewAutoSyncTask,
)

// NewBreakerConfig builds the shared breaker defaults from configuration.
func NewBreakerConfig(c *conf.Sync) BreakerConfig {
	cfg := DefaultBreakerConfig()
	if c == nil {
		return cfg
	}
	if c.FailureThreshold > 0 {
		cfg.FailureThreshold = int(c.FailureThreshold)
	}
	if c.VolumeThreshold > 0 {
		cfg.VolumeThreshold = int(c.VolumeThreshold)
	}
	if c.ErrorThresholdPercentage > 0 {
		cfg.ErrorThresholdPercentage = c.ErrorThresholdPercentage
	}
	if c.TimeoutWindow != nil {
		cfg.TimeoutWindow = c.TimeoutWindow.AsDuration()
	}
	if c.MonitoringWindow != nil {
		cfg.MonitoringWindow = c.MonitoringWindow.AsDuration()
	}
	return cfg
}

// NewSyncOptions builds the default push options from configuration.
func NewSyncOptions(c *conf.Sync) SyncOptions {
	opts := SyncOptions{Policy: DefaultRetryPolicy()}
	if c == nil {
		return opts
	}
	if c.MaxAttempts > 0 {
		opts.Policy.MaxAttempts = int(c.MaxAttempts)
	}
	if c.InitialDelay != nil {
		opts.Policy.InitialDelay = c.InitialDelay.AsDuration()
	}
	if c.MaxDelay != nil {
		opts.Policy.MaxDelay = c.MaxDelay.AsDuration()
	}
	if c.BackoffFactor > 0 {
		opts.Policy.BackoffFactor = c.BackoffFactor
	}
	if c.InterRequestDelay != nil {
		opts.InterRequestDelay = c.InterRequestDelay.AsDuration()
	}
	return opts
}
