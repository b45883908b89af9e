package repository

import (
	"context"
	"time"

	"staking-rewards-system/internal/models"

	"gorm.io/gorm"
)

type StakeRepository struct {
	db *gorm.DB
}

func NewStakeRepository(db *gorm.DB) *StakeRepository {
	return &StakeRepository{db: db}
}

// ActiveInWindow returns active stakes whose accrual window contains now.
func (r *StakeRepository) ActiveInWindow(ctx context.Context, now time.Time) ([]models.Stake, error) {
	var stakes []models.Stake
	err := r.db.WithContext(ctx).
		Where("status = ? AND start_date < ? AND end_date > ?", models.StakeStatusActive, now, now).
		Find(&stakes).Error
	return stakes, err
}

// ActiveStartedBefore returns active stakes old enough to compound.
func (r *StakeRepository) ActiveStartedBefore(ctx context.Context, cutoff time.Time) ([]models.Stake, error) {
	var stakes []models.Stake
	err := r.db.WithContext(ctx).
		Where("status = ? AND start_date <= ?", models.StakeStatusActive, cutoff).
		Find(&stakes).Error
	return stakes, err
}

// CompleteExpired transitions every active stake past its end date to
// completed and returns the number of rows updated. Already-completed
// stakes are never touched, so the sweep is safe to re-run.
func (r *StakeRepository) CompleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Stake{}).
		Where("status = ? AND end_date < ?", models.StakeStatusActive, now).
		Update("status", models.StakeStatusCompleted)
	return result.RowsAffected, result.Error
}

// DistinctUserIDs lists every user that has at least one stake.
func (r *StakeRepository) DistinctUserIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.Stake{}).
		Distinct().
		Pluck("user_id", &ids).Error
	return ids, err
}

func (r *StakeRepository) ByUser(ctx context.Context, userID string) ([]models.Stake, error) {
	var stakes []models.Stake
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&stakes).Error
	return stakes, err
}
