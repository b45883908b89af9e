package repository

import (
	"context"
	"time"

	"staking-rewards-system/internal/models"

	"gorm.io/gorm"
)

type PerformanceRepository struct {
	db *gorm.DB
}

func NewPerformanceRepository(db *gorm.DB) *PerformanceRepository {
	return &PerformanceRepository{db: db}
}

func (r *PerformanceRepository) Create(ctx context.Context, perf *models.ProtocolPerformance) error {
	return r.db.WithContext(ctx).Create(perf).Error
}

func (r *PerformanceRepository) ExistsForPeriod(ctx context.Context, userID, protocolID string, periodType models.PeriodType, periodStart time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ProtocolPerformance{}).
		Where("user_id = ? AND protocol_id = ? AND period_type = ? AND period_start = ?",
			userID, protocolID, periodType, periodStart).
		Count(&count).Error
	return count > 0, err
}

func (r *PerformanceRepository) ByUserForPeriod(ctx context.Context, userID string, periodType models.PeriodType, periodStart time.Time) ([]models.ProtocolPerformance, error) {
	var perfs []models.ProtocolPerformance
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND period_type = ? AND period_start = ?", userID, periodType, periodStart).
		Find(&perfs).Error
	return perfs, err
}
