package data

import (
	"context"
	"fmt"

	"RatePilot/internal/model"
	pkgerrors "RatePilot/pkg/errors"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OverrideRepo implements biz.OverrideRepo interface. Uniqueness per
// (property, date) is enforced by the uk_property_date index; Upsert relies
// on it for conflict resolution.
type OverrideRepo struct {
	db     *gorm.DB
	logger *log.Helper
}

// NewOverrideRepo creates a new price-override repository.
func NewOverrideRepo(db *gorm.DB, logger log.Logger) *OverrideRepo {
	return &OverrideRepo{
		db:     db,
		logger: log.NewHelper(logger),
	}
}

// ListActive returns active overrides whose date falls in
// [startDate, endDate], both inclusive ISO dates, ordered by date.
func (r *OverrideRepo) ListActive(ctx context.Context, propertyID int64, startDate, endDate string) ([]*model.PriceOverride, error) {
	var overrides []*model.PriceOverride
	err := r.db.WithContext(ctx).
		Where("property_id = ? AND is_active = ? AND date >= ? AND date <= ?",
			propertyID, true, startDate, endDate).
		Order("date ASC").
		Find(&overrides).Error
	if err != nil {
		r.logger.Errorf("failed to list overrides for property %d: %v", propertyID, err)
		return nil, fmt.Errorf("failed to list overrides for property %d: %w", propertyID, err)
	}
	return overrides, nil
}

// Upsert creates or replaces the override for (property, date). A replaced
// row keeps its ID and creation time; price, reason and active flag are
// updated in place.
func (r *OverrideRepo) Upsert(ctx context.Context, o *model.PriceOverride) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "property_id"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"override_price", "reason", "is_active", "updated_at",
			}),
		}).
		Create(o).Error
	if err != nil {
		dbErr := pkgerrors.ClassifyDBError(err)
		r.logger.Errorf("failed to upsert override for property %d date %s: %v",
			o.PropertyID, o.Date, dbErr)
		return fmt.Errorf("failed to upsert override for property %d date %s: %w",
			o.PropertyID, o.Date, err)
	}
	return nil
}

// Delete removes the override for (property, date). Deleting a missing
// override is not an error.
func (r *OverrideRepo) Delete(ctx context.Context, propertyID int64, date string) error {
	err := r.db.WithContext(ctx).
		Where("property_id = ? AND date = ?", propertyID, date).
		Delete(&model.PriceOverride{}).Error
	if err != nil {
		r.logger.Errorf("failed to delete override for property %d date %s: %v", propertyID, date, err)
		return fmt.Errorf("failed to delete override for property %d date %s: %w", propertyID, date, err)
	}
	return nil
}
