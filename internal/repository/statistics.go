package repository

import (
	"context"
	"errors"
	"time"

	"staking-rewards-system/internal/models"

	"gorm.io/gorm"
)

type StatisticsRepository struct {
	db *gorm.DB
}

func NewStatisticsRepository(db *gorm.DB) *StatisticsRepository {
	return &StatisticsRepository{db: db}
}

func (r *StatisticsRepository) Create(ctx context.Context, stats *models.UserStatistics) error {
	return r.db.WithContext(ctx).Create(stats).Error
}

func (r *StatisticsRepository) ExistsForPeriod(ctx context.Context, userID string, periodType models.PeriodType, periodStart time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.UserStatistics{}).
		Where("user_id = ? AND period_type = ? AND period_start = ?", userID, periodType, periodStart).
		Count(&count).Error
	return count > 0, err
}

// ForPeriod returns the exact period row or nil when none was recorded.
func (r *StatisticsRepository) ForPeriod(ctx context.Context, userID string, periodType models.PeriodType, periodStart time.Time) (*models.UserStatistics, error) {
	var stats models.UserStatistics
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND period_type = ? AND period_start = ?", userID, periodType, periodStart).
		First(&stats).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &stats, err
}

func (r *StatisticsRepository) LatestByUser(ctx context.Context, userID string, periodType models.PeriodType) (*models.UserStatistics, error) {
	var stats models.UserStatistics
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND period_type = ?", userID, periodType).
		Order("period_start DESC").
		First(&stats).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &stats, err
}
