package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"staking-rewards-system/internal/models"

	"github.com/shopspring/decimal"
)

type fakeStakeStore struct {
	mu          sync.Mutex
	stakes      []models.Stake
	listErr     error
	completeErr error
}

func (f *fakeStakeStore) ActiveInWindow(ctx context.Context, now time.Time) ([]models.Stake, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.Stake
	for _, s := range f.stakes {
		if s.Status == models.StakeStatusActive && s.StartDate.Before(now) && s.EndDate.After(now) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStakeStore) ActiveStartedBefore(ctx context.Context, cutoff time.Time) ([]models.Stake, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.Stake
	for _, s := range f.stakes {
		if s.Status == models.StakeStatusActive && !s.StartDate.After(cutoff) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStakeStore) CompleteExpired(ctx context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.completeErr != nil {
		return 0, f.completeErr
	}
	var count int64
	for i := range f.stakes {
		if f.stakes[i].Status == models.StakeStatusActive && f.stakes[i].EndDate.Before(now) {
			f.stakes[i].Status = models.StakeStatusCompleted
			count++
		}
	}
	return count, nil
}

func (f *fakeStakeStore) DistinctUserIDs(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	seen := make(map[string]bool)
	var ids []string
	for _, s := range f.stakes {
		if !seen[s.UserID] {
			seen[s.UserID] = true
			ids = append(ids, s.UserID)
		}
	}
	return ids, nil
}

func (f *fakeStakeStore) ByUser(ctx context.Context, userID string) ([]models.Stake, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.Stake
	for _, s := range f.stakes {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

type fakeRewardStore struct {
	mu        sync.Mutex
	rewards   []models.Reward
	createErr error
	nextID    int
}

func (f *fakeRewardStore) Create(ctx context.Context, reward *models.Reward) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if reward.ID == "" {
		f.nextID++
		reward.ID = fmt.Sprintf("reward-%d", f.nextID)
	}
	f.rewards = append(f.rewards, *reward)
	return nil
}

func (f *fakeRewardStore) ExistsInWindow(ctx context.Context, stakeID string, rewardType models.RewardType, start, end time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rewards {
		if r.StakeID == stakeID && r.RewardType == rewardType &&
			!r.RewardDate.Before(start) && r.RewardDate.Before(end) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRewardStore) SumUnclaimedStaking(ctx context.Context, stakeID string) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sum := decimal.Zero
	for _, r := range f.rewards {
		if r.StakeID == stakeID && r.RewardType == models.RewardTypeStaking && !r.Claimed {
			sum = sum.Add(r.Amount)
		}
	}
	return sum, nil
}

func (f *fakeRewardStore) ByUser(ctx context.Context, userID string) ([]models.Reward, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Reward
	for _, r := range f.rewards {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRewardStore) ByUserInRange(ctx context.Context, userID string, start, end time.Time) ([]models.Reward, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Reward
	for _, r := range f.rewards {
		if r.UserID == userID && !r.RewardDate.Before(start) && r.RewardDate.Before(end) {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeProtocolStore struct {
	protocols map[string]models.Protocol
	err       error
}

func (f *fakeProtocolStore) ByID(ctx context.Context, id string) (*models.Protocol, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.protocols[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (f *fakeProtocolStore) All(ctx context.Context) ([]models.Protocol, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Protocol
	for _, p := range f.protocols {
		out = append(out, p)
	}
	return out, nil
}

type fakeStatisticsStore struct {
	rows      []models.UserStatistics
	createErr error
}

func (f *fakeStatisticsStore) Create(ctx context.Context, stats *models.UserStatistics) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.rows = append(f.rows, *stats)
	return nil
}

func (f *fakeStatisticsStore) ExistsForPeriod(ctx context.Context, userID string, periodType models.PeriodType, periodStart time.Time) (bool, error) {
	for _, row := range f.rows {
		if row.UserID == userID && row.PeriodType == periodType && row.PeriodStart.Equal(periodStart) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStatisticsStore) ForPeriod(ctx context.Context, userID string, periodType models.PeriodType, periodStart time.Time) (*models.UserStatistics, error) {
	for i, row := range f.rows {
		if row.UserID == userID && row.PeriodType == periodType && row.PeriodStart.Equal(periodStart) {
			return &f.rows[i], nil
		}
	}
	return nil, nil
}

type fakePerformanceStore struct {
	rows []models.ProtocolPerformance
}

func (f *fakePerformanceStore) Create(ctx context.Context, perf *models.ProtocolPerformance) error {
	f.rows = append(f.rows, *perf)
	return nil
}

func (f *fakePerformanceStore) ExistsForPeriod(ctx context.Context, userID, protocolID string, periodType models.PeriodType, periodStart time.Time) (bool, error) {
	for _, row := range f.rows {
		if row.UserID == userID && row.ProtocolID == protocolID &&
			row.PeriodType == periodType && row.PeriodStart.Equal(periodStart) {
			return true, nil
		}
	}
	return false, nil
}

type fakeSnapshotStore struct {
	rows []models.PortfolioSnapshot
}

func (f *fakeSnapshotStore) Create(ctx context.Context, snapshot *models.PortfolioSnapshot) error {
	f.rows = append(f.rows, *snapshot)
	return nil
}

func (f *fakeSnapshotStore) ExistsForDate(ctx context.Context, userID string, date time.Time) (bool, error) {
	for _, row := range f.rows {
		if row.UserID == userID && row.SnapshotDate.Equal(date) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeSnapshotStore) LatestOnOrBefore(ctx context.Context, userID string, date time.Time) (*models.PortfolioSnapshot, error) {
	var latest *models.PortfolioSnapshot
	for i, row := range f.rows {
		if row.UserID != userID || row.SnapshotDate.After(date) {
			continue
		}
		if latest == nil || row.SnapshotDate.After(latest.SnapshotDate) {
			latest = &f.rows[i]
		}
	}
	return latest, nil
}

func (f *fakeSnapshotStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var kept []models.PortfolioSnapshot
	var deleted int64
	for _, row := range f.rows {
		if row.SnapshotDate.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, row)
	}
	f.rows = kept
	return deleted, nil
}
