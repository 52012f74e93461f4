package data

import (
	"context"
	"fmt"

	"RatePilot/internal/model"
	pkgerrors "RatePilot/pkg/errors"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
)

// PropertyRepo implements biz.PropertyRepo interface.
// Following Kratos v2 DDD architecture, interface is defined in biz layer.
type PropertyRepo struct {
	db     *gorm.DB
	logger *log.Helper
}

// NewPropertyRepo creates a new property repository.
func NewPropertyRepo(db *gorm.DB, logger log.Logger) *PropertyRepo {
	return &PropertyRepo{
		db:     db,
		logger: log.NewHelper(logger),
	}
}

// GetProperty returns one property by ID.
func (r *PropertyRepo) GetProperty(ctx context.Context, id int64) (*model.Property, error) {
	var p model.Property
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		if pkgerrors.IsNotFoundError(err) {
			return nil, fmt.Errorf("property %d not found: %w", id, err)
		}
		r.logger.Errorf("failed to query property %d: %v", id, err)
		return nil, fmt.Errorf("failed to query property %d: %w", id, err)
	}
	return &p, nil
}

// ListSyncEnabled returns all properties with channel sync enabled, ordered
// by ID for deterministic batch order.
func (r *PropertyRepo) ListSyncEnabled(ctx context.Context) ([]*model.Property, error) {
	var properties []*model.Property
	err := r.db.WithContext(ctx).
		Where("sync_enabled = ?", true).
		Order("id ASC").
		Find(&properties).Error
	if err != nil {
		r.logger.Errorf("failed to list sync-enabled properties: %v", err)
		return nil, fmt.Errorf("failed to list sync-enabled properties: %w", err)
	}
	return properties, nil
}
