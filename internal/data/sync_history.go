package data

import (
	"context"
	"fmt"

	"RatePilot/internal/model"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
)

// SyncHistoryRepo implements biz.SyncHistoryRepo interface. One row per
// terminal sync operation; rows are never updated after insert.
type SyncHistoryRepo struct {
	db     *gorm.DB
	logger *log.Helper
}

// NewSyncHistoryRepo creates a new sync-history repository.
func NewSyncHistoryRepo(db *gorm.DB, logger log.Logger) *SyncHistoryRepo {
	return &SyncHistoryRepo{
		db:     db,
		logger: log.NewHelper(logger),
	}
}

// Record stores a terminal sync operation.
func (r *SyncHistoryRepo) Record(ctx context.Context, op *model.SyncOperation) error {
	if err := r.db.WithContext(ctx).Create(op).Error; err != nil {
		r.logger.Errorf("failed to record sync operation %s: %v", op.ID, err)
		return fmt.Errorf("failed to record sync operation %s: %w", op.ID, err)
	}
	return nil
}

// ListRecent returns the most recent operations for a property, newest
// first. limit values outside 1..500 are clamped.
func (r *SyncHistoryRepo) ListRecent(ctx context.Context, propertyID int64, limit int) ([]*model.SyncOperation, error) {
	if limit < 1 {
		limit = 20
	}
	if limit > 500 {
		limit = 500
	}

	var ops []*model.SyncOperation
	err := r.db.WithContext(ctx).
		Where("property_id = ?", propertyID).
		Order("started_at DESC").
		Limit(limit).
		Find(&ops).Error
	if err != nil {
		r.logger.Errorf("failed to list sync history for property %d: %v", propertyID, err)
		return nil, fmt.Errorf("failed to list sync history for property %d: %w", propertyID, err)
	}
	return ops, nil
}
