package repository

import (
	"context"
	"errors"
	"time"

	"staking-rewards-system/internal/models"

	"gorm.io/gorm"
)

type SnapshotRepository struct {
	db *gorm.DB
}

func NewSnapshotRepository(db *gorm.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

func (r *SnapshotRepository) Create(ctx context.Context, snapshot *models.PortfolioSnapshot) error {
	return r.db.WithContext(ctx).Create(snapshot).Error
}

func (r *SnapshotRepository) ExistsForDate(ctx context.Context, userID string, date time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PortfolioSnapshot{}).
		Where("user_id = ? AND snapshot_date = ?", userID, date).
		Count(&count).Error
	return count > 0, err
}

// LatestOnOrBefore returns the newest snapshot dated at or before date,
// or nil when the user has no history that far back. Growth lookbacks use
// this instead of an exact-date fetch because snapshots can have gaps.
func (r *SnapshotRepository) LatestOnOrBefore(ctx context.Context, userID string, date time.Time) (*models.PortfolioSnapshot, error) {
	var snapshot models.PortfolioSnapshot
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND snapshot_date <= ?", userID, date).
		Order("snapshot_date DESC").
		First(&snapshot).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &snapshot, err
}

func (r *SnapshotRepository) LatestByUser(ctx context.Context, userID string) (*models.PortfolioSnapshot, error) {
	var snapshot models.PortfolioSnapshot
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("snapshot_date DESC").
		First(&snapshot).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &snapshot, err
}

// DeleteBefore purges snapshots older than cutoff and returns the count.
func (r *SnapshotRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("snapshot_date < ?", cutoff).
		Delete(&models.PortfolioSnapshot{})
	return result.RowsAffected, result.Error
}
