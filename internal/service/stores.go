package service

import (
	"context"
	"errors"
	"time"

	"staking-rewards-system/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Store interfaces cover the slice of the persistence layer each engine
// needs, so the engines can be exercised against in-memory fakes. The
// gorm repositories satisfy them.

type StakeStore interface {
	ActiveInWindow(ctx context.Context, now time.Time) ([]models.Stake, error)
	ActiveStartedBefore(ctx context.Context, cutoff time.Time) ([]models.Stake, error)
	CompleteExpired(ctx context.Context, now time.Time) (int64, error)
	DistinctUserIDs(ctx context.Context) ([]string, error)
	ByUser(ctx context.Context, userID string) ([]models.Stake, error)
}

type RewardStore interface {
	Create(ctx context.Context, reward *models.Reward) error
	ExistsInWindow(ctx context.Context, stakeID string, rewardType models.RewardType, start, end time.Time) (bool, error)
	SumUnclaimedStaking(ctx context.Context, stakeID string) (decimal.Decimal, error)
	ByUser(ctx context.Context, userID string) ([]models.Reward, error)
	ByUserInRange(ctx context.Context, userID string, start, end time.Time) ([]models.Reward, error)
}

type ProtocolStore interface {
	ByID(ctx context.Context, id string) (*models.Protocol, error)
	All(ctx context.Context) ([]models.Protocol, error)
}

type StatisticsStore interface {
	Create(ctx context.Context, stats *models.UserStatistics) error
	ExistsForPeriod(ctx context.Context, userID string, periodType models.PeriodType, periodStart time.Time) (bool, error)
	ForPeriod(ctx context.Context, userID string, periodType models.PeriodType, periodStart time.Time) (*models.UserStatistics, error)
}

type PerformanceStore interface {
	Create(ctx context.Context, perf *models.ProtocolPerformance) error
	ExistsForPeriod(ctx context.Context, userID, protocolID string, periodType models.PeriodType, periodStart time.Time) (bool, error)
}

type SnapshotStore interface {
	Create(ctx context.Context, snapshot *models.PortfolioSnapshot) error
	ExistsForDate(ctx context.Context, userID string, date time.Time) (bool, error)
	LatestOnOrBefore(ctx context.Context, userID string, date time.Time) (*models.PortfolioSnapshot, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// isDuplicate recognizes a unique-constraint violation. The unique index
// is the authoritative idempotency guard; hitting it just means another
// run got there first, so the row is treated as already processed.
func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
