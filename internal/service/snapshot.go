package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"staking-rewards-system/internal/models"
	"staking-rewards-system/pkg/errors"
	"staking-rewards-system/pkg/logger"

	"github.com/shopspring/decimal"
)

type SnapshotService struct {
	stakes        StakeStore
	rewards       RewardStore
	protocols     ProtocolStore
	snapshots     SnapshotStore
	retentionDays int
	now           func() time.Time
}

func NewSnapshotService(stakes StakeStore, rewards RewardStore, protocols ProtocolStore, snapshots SnapshotStore, retentionDays int) *SnapshotService {
	if retentionDays <= 0 {
		retentionDays = 365
	}
	return &SnapshotService{
		stakes:        stakes,
		rewards:       rewards,
		protocols:     protocols,
		snapshots:     snapshots,
		retentionDays: retentionDays,
		now:           time.Now,
	}
}

// CreateDailySnapshots writes today's portfolio snapshot for every user
// with stakes, skipping users already snapshotted today.
func (s *SnapshotService) CreateDailySnapshots(ctx context.Context) BatchResult {
	today := utcDay(s.now())

	users, err := s.stakes.DistinctUserIDs(ctx)
	if err != nil {
		return fatalResult(fmt.Sprintf("failed to list users: %v", err))
	}

	var errs []string
	processed := 0

	for _, userID := range users {
		exists, err := s.snapshots.ExistsForDate(ctx, userID, today)
		if err != nil {
			errs = append(errs, fmt.Sprintf("user %s: snapshot lookup failed: %v", userID, err))
			continue
		}
		if exists {
			continue
		}

		snapshot, err := s.CalculatePortfolioSnapshot(ctx, userID, today)
		if err != nil {
			errs = append(errs, fmt.Sprintf("user %s: %v", userID, err))
			continue
		}
		if snapshot == nil {
			continue
		}

		if err := s.snapshots.Create(ctx, snapshot); err != nil {
			if !isDuplicate(err) {
				errs = append(errs, fmt.Sprintf("user %s: snapshot insert failed: %v", userID, err))
			}
			continue
		}
		processed++
	}

	logger.WithFields(map[string]interface{}{
		"snapshot_date": today,
		"processed":     processed,
		"errors":        len(errs),
	}).Info("Portfolio snapshots completed")

	return batchResult(processed, errs)
}

// CalculatePortfolioSnapshot builds the consolidated snapshot for one
// user. Returns nil when the user has no stakes at all.
func (s *SnapshotService) CalculatePortfolioSnapshot(ctx context.Context, userID string, date time.Time) (*models.PortfolioSnapshot, error) {
	userStakes, err := s.stakes.ByUser(ctx, userID)
	if err != nil {
		return nil, errors.New(errors.ErrSnapshot, "stake fetch failed", err)
	}
	if len(userStakes) == 0 {
		return nil, nil
	}

	protocols, err := s.protocols.All(ctx)
	if err != nil {
		return nil, errors.New(errors.ErrProtocolLookup, "protocol fetch failed", err)
	}
	byID := make(map[string]models.Protocol, len(protocols))
	for _, protocol := range protocols {
		byID[protocol.ID] = protocol
	}

	rewards, err := s.rewards.ByUser(ctx, userID)
	if err != nil {
		return nil, errors.New(errors.ErrSnapshot, "reward fetch failed", err)
	}

	var active []models.Stake
	totalStaked := decimal.Zero
	apySum := decimal.Zero
	for _, stake := range userStakes {
		if stake.Status != models.StakeStatusActive {
			continue
		}
		active = append(active, stake)
		totalStaked = totalStaked.Add(stake.Amount)
		if protocol, ok := byID[stake.ProtocolID]; ok {
			apySum = apySum.Add(protocol.APY)
		}
	}

	averageAPY := decimal.Zero
	if len(active) > 0 {
		averageAPY = apySum.Div(decimal.NewFromInt(int64(len(active)))).Round(4)
	}

	earned := decimal.Zero
	claimed := decimal.Zero
	unclaimed := decimal.Zero
	for _, reward := range rewards {
		earned = earned.Add(reward.Amount)
		if reward.Claimed {
			claimed = claimed.Add(reward.Amount)
		} else {
			unclaimed = unclaimed.Add(reward.Amount)
		}
	}

	totalValue := totalStaked.Add(unclaimed)

	growth24h, err := s.growthSince(ctx, userID, date.AddDate(0, 0, -1), totalValue)
	if err != nil {
		return nil, err
	}
	growth7d, err := s.growthSince(ctx, userID, date.AddDate(0, 0, -7), totalValue)
	if err != nil {
		return nil, err
	}
	growth30d, err := s.growthSince(ctx, userID, date.AddDate(0, 0, -30), totalValue)
	if err != nil {
		return nil, err
	}

	return &models.PortfolioSnapshot{
		UserID:                userID,
		SnapshotDate:          date,
		TotalPortfolioValue:   totalValue,
		TotalStakedAmount:     totalStaked,
		TotalRewardsEarned:    earned,
		TotalRewardsClaimed:   claimed,
		TotalRewardsUnclaimed: unclaimed,
		ActiveStakesCount:     len(active),
		ProtocolDistribution:  protocolDistribution(active, byID, totalStaked),
		RiskDistribution:      riskDistribution(active, byID, totalStaked),
		AverageAPY:            averageAPY,
		PortfolioGrowth24h:    growth24h,
		PortfolioGrowth7d:     growth7d,
		PortfolioGrowth30d:    growth30d,
	}, nil
}

// growthSince compares the current portfolio value against the closest
// snapshot at or before the lookback date. No history means 0%; growing
// from a zero-value snapshot reports 100%.
func (s *SnapshotService) growthSince(ctx context.Context, userID string, lookback time.Time, current decimal.Decimal) (float64, error) {
	past, err := s.snapshots.LatestOnOrBefore(ctx, userID, lookback)
	if err != nil {
		return 0, errors.New(errors.ErrSnapshot, "snapshot lookback failed", err)
	}
	if past == nil {
		return 0, nil
	}
	if !past.TotalPortfolioValue.IsPositive() {
		if current.IsPositive() {
			return 100, nil
		}
		return 0, nil
	}
	growth, _ := current.Sub(past.TotalPortfolioValue).
		Div(past.TotalPortfolioValue).Mul(hundred).Float64()
	return growth, nil
}

// CleanupOldPortfolioSnapshots purges snapshots past the retention
// window and returns the number of rows deleted.
func (s *SnapshotService) CleanupOldPortfolioSnapshots(ctx context.Context) (int64, error) {
	cutoff := utcDay(s.now()).AddDate(0, 0, -s.retentionDays)
	deleted, err := s.snapshots.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, errors.New(errors.ErrSnapshot, "snapshot purge failed", err)
	}
	if deleted > 0 {
		logger.WithFields(map[string]interface{}{
			"cutoff":  cutoff,
			"deleted": deleted,
		}).Info("Old portfolio snapshots purged")
	}
	return deleted, nil
}

// protocolDistribution expresses each protocol's share of the staked
// total as a percentage, keyed by display name.
func protocolDistribution(active []models.Stake, protocols map[string]models.Protocol, totalStaked decimal.Decimal) models.JSONB {
	dist := models.JSONB{}
	if !totalStaked.IsPositive() {
		return dist
	}
	stakedByProtocol := make(map[string]decimal.Decimal)
	for _, stake := range active {
		stakedByProtocol[stake.ProtocolID] = stakedByProtocol[stake.ProtocolID].Add(stake.Amount)
	}
	for protocolID, staked := range stakedByProtocol {
		name := fmt.Sprintf("Protocol %s", protocolID)
		if protocol, ok := protocols[protocolID]; ok && protocol.Name != "" {
			name = protocol.Name
		}
		share, _ := staked.Div(totalStaked).Float64()
		dist[name] = round2(share * 100)
	}
	return dist
}

// riskDistribution buckets the staked total by protocol risk level, as
// percentages. Protocols without a risk level count as medium.
func riskDistribution(active []models.Stake, protocols map[string]models.Protocol, totalStaked decimal.Decimal) models.JSONB {
	buckets := map[models.RiskLevel]decimal.Decimal{
		models.RiskLow:    decimal.Zero,
		models.RiskMedium: decimal.Zero,
		models.RiskHigh:   decimal.Zero,
	}
	for _, stake := range active {
		level := models.RiskMedium
		if protocol, ok := protocols[stake.ProtocolID]; ok && protocol.RiskLevel != "" {
			level = protocol.RiskLevel
		}
		buckets[level] = buckets[level].Add(stake.Amount)
	}

	dist := models.JSONB{}
	for level, staked := range buckets {
		pct := 0.0
		if totalStaked.IsPositive() {
			share, _ := staked.Div(totalStaked).Float64()
			pct = round2(share * 100)
		}
		dist[string(level)] = pct
	}
	return dist
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
