package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"staking-rewards-system/internal/models"
	"staking-rewards-system/pkg/errors"
	"staking-rewards-system/pkg/logger"

	"github.com/shopspring/decimal"
)

// riskWeights maps a protocol risk level to its score contribution.
var riskWeights = map[models.RiskLevel]float64{
	models.RiskLow:    25,
	models.RiskMedium: 50,
	models.RiskHigh:   75,
}

const defaultRiskScore = 50

type StatisticsService struct {
	stakes    StakeStore
	rewards   RewardStore
	protocols ProtocolStore
	stats     StatisticsStore
	perf      PerformanceStore
	now       func() time.Time
}

func NewStatisticsService(stakes StakeStore, rewards RewardStore, protocols ProtocolStore, stats StatisticsStore, perf PerformanceStore) *StatisticsService {
	return &StatisticsService{
		stakes:    stakes,
		rewards:   rewards,
		protocols: protocols,
		stats:     stats,
		perf:      perf,
		now:       time.Now,
	}
}

func (s *StatisticsService) CalculateDailyStatistics(ctx context.Context) BatchResult {
	start, end := DailyWindow(s.now())
	return s.calculatePeriodStatistics(ctx, models.PeriodDaily, start, end)
}

func (s *StatisticsService) CalculateWeeklyStatistics(ctx context.Context) BatchResult {
	start, end := WeeklyWindow(s.now())
	return s.calculatePeriodStatistics(ctx, models.PeriodWeekly, start, end)
}

func (s *StatisticsService) CalculateMonthlyStatistics(ctx context.Context) BatchResult {
	start, end := MonthlyWindow(s.now())
	return s.calculatePeriodStatistics(ctx, models.PeriodMonthly, start, end)
}

// calculatePeriodStatistics rolls up one period for every user that has
// stakes. Users already recorded for the period are skipped, so re-runs
// and overlapping schedules cannot produce duplicate rows.
func (s *StatisticsService) calculatePeriodStatistics(ctx context.Context, periodType models.PeriodType, periodStart, periodEnd time.Time) BatchResult {
	users, err := s.stakes.DistinctUserIDs(ctx)
	if err != nil {
		return fatalResult(fmt.Sprintf("failed to list users: %v", err))
	}

	var errs []string
	processed := 0

	for _, userID := range users {
		exists, err := s.stats.ExistsForPeriod(ctx, userID, periodType, periodStart)
		if err != nil {
			errs = append(errs, fmt.Sprintf("user %s: statistics lookup failed: %v", userID, err))
			continue
		}
		if exists {
			continue
		}

		stats, err := s.CalculateUserStatistics(ctx, userID, periodType, periodStart, periodEnd)
		if err != nil {
			errs = append(errs, fmt.Sprintf("user %s: %v", userID, err))
			continue
		}
		if stats == nil {
			continue
		}

		if err := s.stats.Create(ctx, stats); err != nil {
			if !isDuplicate(err) {
				errs = append(errs, fmt.Sprintf("user %s: statistics insert failed: %v", userID, err))
			}
			continue
		}
		processed++

		if err := s.CalculateUserProtocolPerformance(ctx, userID, periodType, periodStart, periodEnd); err != nil {
			errs = append(errs, fmt.Sprintf("user %s: %v", userID, err))
		}
	}

	logger.WithFields(map[string]interface{}{
		"period_type":  periodType,
		"period_start": periodStart,
		"processed":    processed,
		"errors":       len(errs),
	}).Info("Statistics calculation completed")

	return batchResult(processed, errs)
}

// CalculateUserStatistics aggregates one user's stakes and rewards into a
// period rollup. Returns nil when the user has no stakes at all.
func (s *StatisticsService) CalculateUserStatistics(ctx context.Context, userID string, periodType models.PeriodType, periodStart, periodEnd time.Time) (*models.UserStatistics, error) {
	userStakes, err := s.stakes.ByUser(ctx, userID)
	if err != nil {
		return nil, errors.New(errors.ErrStatsCalc, "stake fetch failed", err)
	}
	if len(userStakes) == 0 {
		return nil, nil
	}

	protocols, err := s.protocolsByID(ctx)
	if err != nil {
		return nil, err
	}

	allRewards, err := s.rewards.ByUser(ctx, userID)
	if err != nil {
		return nil, errors.New(errors.ErrStatsCalc, "reward fetch failed", err)
	}
	periodRewards, err := s.rewards.ByUserInRange(ctx, userID, periodStart, periodEnd)
	if err != nil {
		return nil, errors.New(errors.ErrStatsCalc, "period reward fetch failed", err)
	}

	var active []models.Stake
	completedCount := 0
	newCount := 0
	protocolsUsed := make(map[string]struct{})

	for _, stake := range userStakes {
		protocolsUsed[stake.ProtocolID] = struct{}{}
		switch stake.Status {
		case models.StakeStatusActive:
			active = append(active, stake)
		case models.StakeStatusCompleted:
			completedCount++
		}
		if !stake.StartDate.Before(periodStart) && stake.StartDate.Before(periodEnd) {
			newCount++
		}
	}

	totalStaked := decimal.Zero
	apySum := decimal.Zero
	for _, stake := range active {
		totalStaked = totalStaked.Add(stake.Amount)
		if protocol, ok := protocols[stake.ProtocolID]; ok {
			apySum = apySum.Add(protocol.APY)
		}
	}

	averageAPY := decimal.Zero
	if len(active) > 0 {
		averageAPY = apySum.Div(decimal.NewFromInt(int64(len(active)))).Round(4)
	}

	earned := decimal.Zero
	for _, reward := range periodRewards {
		earned = earned.Add(reward.Amount)
	}

	claimed := decimal.Zero
	unclaimed := decimal.Zero
	for _, reward := range allRewards {
		if reward.Claimed {
			claimed = claimed.Add(reward.Amount)
		} else {
			unclaimed = unclaimed.Add(reward.Amount)
		}
	}

	portfolioValue := totalStaked.Add(unclaimed)

	growth := 0.0
	previous, err := s.stats.ForPeriod(ctx, userID, periodType, previousPeriodStart(periodType, periodStart))
	if err != nil {
		return nil, errors.New(errors.ErrStatsCalc, "previous period lookup failed", err)
	}
	if previous != nil && previous.PortfolioValue.IsPositive() {
		growth, _ = portfolioValue.Sub(previous.PortfolioValue).
			Div(previous.PortfolioValue).Mul(hundred).Float64()
	}

	best, worst := s.rankProtocols(active, periodRewards, protocols, periodStart, periodEnd)

	stats := &models.UserStatistics{
		UserID:                    userID,
		PeriodType:                periodType,
		PeriodStart:               periodStart,
		PeriodEnd:                 periodEnd,
		TotalStakedAmount:         totalStaked,
		TotalRewardsEarned:        earned,
		TotalRewardsClaimed:       claimed,
		TotalRewardsUnclaimed:     unclaimed,
		PortfolioValue:            portfolioValue,
		PortfolioGrowthPercentage: growth,
		AverageAPY:                averageAPY,
		ActiveStakesCount:         len(active),
		CompletedStakesCount:      completedCount,
		NewStakesCount:            newCount,
		TotalProtocolsUsed:        len(protocolsUsed),
		RiskScore:                 riskScore(active, protocols, totalStaked),
		DiversificationScore:      diversificationScore(active, totalStaked),
		BestPerformingProtocolID:  best,
		WorstPerformingProtocolID: worst,
	}
	return stats, nil
}

// CalculateUserProtocolPerformance stores one performance row per
// protocol the user stakes on, skipping protocols already recorded for
// the period.
func (s *StatisticsService) CalculateUserProtocolPerformance(ctx context.Context, userID string, periodType models.PeriodType, periodStart, periodEnd time.Time) error {
	userStakes, err := s.stakes.ByUser(ctx, userID)
	if err != nil {
		return errors.New(errors.ErrStatsCalc, "stake fetch failed", err)
	}
	if len(userStakes) == 0 {
		return nil
	}

	protocols, err := s.protocolsByID(ctx)
	if err != nil {
		return err
	}
	periodRewards, err := s.rewards.ByUserInRange(ctx, userID, periodStart, periodEnd)
	if err != nil {
		return errors.New(errors.ErrStatsCalc, "period reward fetch failed", err)
	}

	groups := make(map[string][]models.Stake)
	for _, stake := range userStakes {
		groups[stake.ProtocolID] = append(groups[stake.ProtocolID], stake)
	}

	rewardsByProtocol := make(map[string]decimal.Decimal)
	for _, reward := range periodRewards {
		rewardsByProtocol[reward.ProtocolID] = rewardsByProtocol[reward.ProtocolID].Add(reward.Amount)
	}

	periodDays := periodEnd.Sub(periodStart).Hours() / 24

	var errs []string
	for protocolID, group := range groups {
		exists, err := s.perf.ExistsForPeriod(ctx, userID, protocolID, periodType, periodStart)
		if err != nil {
			errs = append(errs, fmt.Sprintf("protocol %s: performance lookup failed: %v", protocolID, err))
			continue
		}
		if exists {
			continue
		}

		totalStaked := decimal.Zero
		durationSum := 0.0
		activeCount := 0
		for _, stake := range group {
			if stake.Status != models.StakeStatusActive {
				continue
			}
			totalStaked = totalStaked.Add(stake.Amount)
			durationSum += stake.EndDate.Sub(stake.StartDate).Hours() / 24
			activeCount++
		}

		averageDuration := 0.0
		if activeCount > 0 {
			averageDuration = durationSum / float64(activeCount)
		}

		expectedAPY := decimal.Zero
		if protocol, ok := protocols[protocolID]; ok {
			expectedAPY = protocol.APY
		}

		actualAPY := annualizedAPY(rewardsByProtocol[protocolID], totalStaked, periodDays)
		ratio := 0.0
		if expectedAPY.IsPositive() {
			ratio, _ = actualAPY.Div(expectedAPY).Float64()
		}

		perf := &models.ProtocolPerformance{
			ProtocolID:           protocolID,
			UserID:               userID,
			PeriodType:           periodType,
			PeriodStart:          periodStart,
			PeriodEnd:            periodEnd,
			TotalStaked:          totalStaked,
			TotalRewards:         rewardsByProtocol[protocolID],
			ActualAPY:            actualAPY.Round(4),
			ExpectedAPY:          expectedAPY,
			PerformanceRatio:     ratio,
			StakesCount:          len(group),
			AverageStakeDuration: averageDuration,
		}

		if err := s.perf.Create(ctx, perf); err != nil {
			if isDuplicate(err) {
				continue
			}
			errs = append(errs, fmt.Sprintf("protocol %s: performance insert failed: %v", protocolID, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("protocol performance: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (s *StatisticsService) protocolsByID(ctx context.Context) (map[string]models.Protocol, error) {
	protocols, err := s.protocols.All(ctx)
	if err != nil {
		return nil, errors.New(errors.ErrProtocolLookup, "protocol fetch failed", err)
	}
	byID := make(map[string]models.Protocol, len(protocols))
	for _, protocol := range protocols {
		byID[protocol.ID] = protocol
	}
	return byID, nil
}

// rankProtocols picks the best and worst protocol by performance ratio
// (annualized actual APY over advertised APY) across the period.
func (s *StatisticsService) rankProtocols(active []models.Stake, periodRewards []models.Reward, protocols map[string]models.Protocol, periodStart, periodEnd time.Time) (*string, *string) {
	stakedByProtocol := make(map[string]decimal.Decimal)
	for _, stake := range active {
		stakedByProtocol[stake.ProtocolID] = stakedByProtocol[stake.ProtocolID].Add(stake.Amount)
	}
	rewardsByProtocol := make(map[string]decimal.Decimal)
	for _, reward := range periodRewards {
		rewardsByProtocol[reward.ProtocolID] = rewardsByProtocol[reward.ProtocolID].Add(reward.Amount)
	}

	periodDays := periodEnd.Sub(periodStart).Hours() / 24

	var bestID, worstID *string
	var bestRatio, worstRatio float64

	for protocolID, staked := range stakedByProtocol {
		if !staked.IsPositive() {
			continue
		}
		expected := decimal.Zero
		if protocol, ok := protocols[protocolID]; ok {
			expected = protocol.APY
		}
		ratio := 0.0
		if expected.IsPositive() {
			ratio, _ = annualizedAPY(rewardsByProtocol[protocolID], staked, periodDays).Div(expected).Float64()
		}

		id := protocolID
		if bestID == nil || ratio > bestRatio {
			bestID, bestRatio = &id, ratio
		}
		if worstID == nil || ratio < worstRatio {
			worstID, worstRatio = &id, ratio
		}
	}
	return bestID, worstID
}

// annualizedAPY scales period yield to a yearly rate, in percent.
func annualizedAPY(rewards, staked decimal.Decimal, periodDays float64) decimal.Decimal {
	if !staked.IsPositive() || periodDays <= 0 {
		return decimal.Zero
	}
	return rewards.Div(staked).Mul(decimal.NewFromFloat(365.0 / periodDays)).Mul(hundred)
}

// riskScore is the amount-weighted average of the per-protocol risk
// weights, on a 0-100 scale. Defaults to the midpoint with no active
// stakes.
func riskScore(active []models.Stake, protocols map[string]models.Protocol, totalStaked decimal.Decimal) float64 {
	if len(active) == 0 || !totalStaked.IsPositive() {
		return defaultRiskScore
	}
	score := 0.0
	for _, stake := range active {
		level := models.RiskMedium
		if protocol, ok := protocols[stake.ProtocolID]; ok && protocol.RiskLevel != "" {
			level = protocol.RiskLevel
		}
		share, _ := stake.Amount.Div(totalStaked).Float64()
		score += riskWeights[level] * share
	}
	return score
}

// diversificationScore is (1 - HHI) * 100 over per-protocol staked
// shares: 0 for a single-protocol portfolio, approaching 100 as stakes
// spread evenly across many protocols.
func diversificationScore(active []models.Stake, totalStaked decimal.Decimal) float64 {
	if len(active) == 0 || !totalStaked.IsPositive() {
		return 0
	}
	stakedByProtocol := make(map[string]decimal.Decimal)
	for _, stake := range active {
		stakedByProtocol[stake.ProtocolID] = stakedByProtocol[stake.ProtocolID].Add(stake.Amount)
	}
	hhi := 0.0
	for _, staked := range stakedByProtocol {
		share, _ := staked.Div(totalStaked).Float64()
		hhi += share * share
	}
	return (1 - hhi) * 100
}
