package repository

import (
	"context"
	"time"

	"staking-rewards-system/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type RewardRepository struct {
	db *gorm.DB
}

func NewRewardRepository(db *gorm.DB) *RewardRepository {
	return &RewardRepository{db: db}
}

func (r *RewardRepository) Create(ctx context.Context, reward *models.Reward) error {
	return r.db.WithContext(ctx).Create(reward).Error
}

// ExistsInWindow reports whether the stake already has a reward of the
// given type dated inside [start, end).
func (r *RewardRepository) ExistsInWindow(ctx context.Context, stakeID string, rewardType models.RewardType, start, end time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Reward{}).
		Where("stake_id = ? AND reward_type = ? AND reward_date >= ? AND reward_date < ?",
			stakeID, rewardType, start, end).
		Count(&count).Error
	return count > 0, err
}

// SumUnclaimedStaking totals the stake's unclaimed staking-type rewards.
func (r *RewardRepository) SumUnclaimedStaking(ctx context.Context, stakeID string) (decimal.Decimal, error) {
	var row struct {
		Total decimal.Decimal
	}
	err := r.db.WithContext(ctx).
		Model(&models.Reward{}).
		Select("COALESCE(SUM(amount), 0) as total").
		Where("stake_id = ? AND reward_type = ? AND claimed = ?",
			stakeID, models.RewardTypeStaking, false).
		Scan(&row).Error
	return row.Total, err
}

func (r *RewardRepository) ByUser(ctx context.Context, userID string) ([]models.Reward, error) {
	var rewards []models.Reward
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&rewards).Error
	return rewards, err
}

func (r *RewardRepository) ByUserInRange(ctx context.Context, userID string, start, end time.Time) ([]models.Reward, error) {
	var rewards []models.Reward
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND reward_date >= ? AND reward_date < ?", userID, start, end).
		Order("reward_date ASC").
		Find(&rewards).Error
	return rewards, err
}

func (r *RewardRepository) ByUserPaginated(ctx context.Context, userID string, offset, limit int) ([]models.Reward, error) {
	var rewards []models.Reward
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("reward_date DESC").
		Offset(offset).
		Limit(limit).
		Find(&rewards).Error
	return rewards, err
}

func (r *RewardRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Reward{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}
