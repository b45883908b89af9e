package service

import (
	"context"
	"math"
	"testing"
	"time"

	"staking-rewards-system/internal/models"

	"github.com/shopspring/decimal"
)

func floatEquals(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}

func newStatisticsService(stakes *fakeStakeStore, rewards *fakeRewardStore, protocols *fakeProtocolStore, stats *fakeStatisticsStore, perf *fakePerformanceStore) *StatisticsService {
	svc := NewStatisticsService(stakes, rewards, protocols, stats, perf)
	svc.now = fixedNow
	return svc
}

func twoProtocolFixture() (*fakeStakeStore, *fakeProtocolStore) {
	stakes := &fakeStakeStore{stakes: []models.Stake{
		activeStake("stake-1", "user-1", "proto-low", 1000, 20, 80),
		activeStake("stake-2", "user-1", "proto-high", 500, 20, 80),
	}}
	protocols := &fakeProtocolStore{protocols: map[string]models.Protocol{
		"proto-low":  protocolFixture("proto-low", "Lido", "10", models.RiskLow),
		"proto-high": protocolFixture("proto-high", "Osmosis", "20", models.RiskHigh),
	}}
	return stakes, protocols
}

func TestRiskScoreWeightedByAmount(t *testing.T) {
	stakes, protocols := twoProtocolFixture()

	score := riskScore(stakes.stakes, protocols.protocols, decimal.NewFromInt(1500))
	if !floatEquals(score, 41.6667, 0.01) {
		t.Errorf("expected risk score 41.67, got %.4f", score)
	}
}

func TestRiskScoreDefaultsWithoutStakes(t *testing.T) {
	if got := riskScore(nil, nil, decimal.Zero); got != defaultRiskScore {
		t.Errorf("expected default risk score %d, got %.2f", defaultRiskScore, got)
	}
}

func TestDiversificationScoreBounds(t *testing.T) {
	stakes, _ := twoProtocolFixture()

	score := diversificationScore(stakes.stakes, decimal.NewFromInt(1500))
	if !floatEquals(score, 44.44, 0.1) {
		t.Errorf("expected diversification about 44.44, got %.4f", score)
	}

	single := []models.Stake{activeStake("stake-1", "user-1", "proto-low", 1000, 20, 80)}
	if got := diversificationScore(single, decimal.NewFromInt(1000)); got != 0 {
		t.Errorf("expected single-protocol score 0, got %.4f", got)
	}

	if got := diversificationScore(nil, decimal.Zero); got != 0 {
		t.Errorf("expected empty-portfolio score 0, got %.4f", got)
	}

	// Evenly spread portfolios keep the score inside [0, 100).
	var many []models.Stake
	for i := 0; i < 20; i++ {
		stake := activeStake("s", "user-1", string(rune('a'+i)), 100, 20, 80)
		many = append(many, stake)
	}
	got := diversificationScore(many, decimal.NewFromInt(2000))
	if got < 0 || got >= 100 {
		t.Errorf("diversification score out of bounds: %.4f", got)
	}
	if !floatEquals(got, 95, 0.01) {
		t.Errorf("expected 20-way even spread to score 95, got %.4f", got)
	}
}

func TestCalculateUserStatisticsAggregates(t *testing.T) {
	stakes, protocols := twoProtocolFixture()
	completed := activeStake("stake-3", "user-1", "proto-low", 300, 90, 0)
	completed.EndDate = testNow.AddDate(0, 0, -10)
	completed.Status = models.StakeStatusCompleted
	stakes.stakes = append(stakes.stakes, completed)

	periodStart := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	periodEnd := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)

	rewards := &fakeRewardStore{rewards: []models.Reward{
		{ID: "r1", StakeID: "stake-1", UserID: "user-1", ProtocolID: "proto-low",
			Amount: decimal.NewFromInt(1), RewardType: models.RewardTypeStaking,
			RewardDate: periodStart},
		{ID: "r2", StakeID: "stake-2", UserID: "user-1", ProtocolID: "proto-high",
			Amount: decimal.RequireFromString("0.5"), RewardType: models.RewardTypeStaking,
			RewardDate: periodStart},
		{ID: "r3", StakeID: "stake-1", UserID: "user-1", ProtocolID: "proto-low",
			Amount: decimal.NewFromInt(2), RewardType: models.RewardTypeStaking,
			Claimed: true, RewardDate: testNow.AddDate(0, 0, -20)},
	}}

	svc := newStatisticsService(stakes, rewards, protocols, &fakeStatisticsStore{}, &fakePerformanceStore{})
	stats, err := svc.CalculateUserStatistics(context.Background(), "user-1", models.PeriodDaily, periodStart, periodEnd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats == nil {
		t.Fatal("expected statistics for a staked user")
	}

	if !stats.TotalStakedAmount.Equal(decimal.NewFromInt(1500)) {
		t.Errorf("expected total staked 1500, got %s", stats.TotalStakedAmount)
	}
	if !stats.TotalRewardsEarned.Equal(decimal.RequireFromString("1.5")) {
		t.Errorf("expected period rewards 1.5, got %s", stats.TotalRewardsEarned)
	}
	if !stats.TotalRewardsClaimed.Equal(decimal.NewFromInt(2)) {
		t.Errorf("expected claimed 2, got %s", stats.TotalRewardsClaimed)
	}
	if !stats.TotalRewardsUnclaimed.Equal(decimal.RequireFromString("1.5")) {
		t.Errorf("expected unclaimed 1.5, got %s", stats.TotalRewardsUnclaimed)
	}
	if !stats.PortfolioValue.Equal(decimal.RequireFromString("1501.5")) {
		t.Errorf("expected portfolio value 1501.5, got %s", stats.PortfolioValue)
	}
	if !stats.AverageAPY.Equal(decimal.NewFromInt(15)) {
		t.Errorf("expected average APY 15, got %s", stats.AverageAPY)
	}
	if stats.ActiveStakesCount != 2 || stats.CompletedStakesCount != 1 {
		t.Errorf("unexpected stake counts: active %d completed %d", stats.ActiveStakesCount, stats.CompletedStakesCount)
	}
	if stats.TotalProtocolsUsed != 2 {
		t.Errorf("expected 2 protocols used, got %d", stats.TotalProtocolsUsed)
	}
	if stats.PortfolioGrowthPercentage != 0 {
		t.Errorf("expected 0%% growth without a prior period, got %.4f", stats.PortfolioGrowthPercentage)
	}
	if !floatEquals(stats.RiskScore, 41.6667, 0.01) {
		t.Errorf("expected risk score 41.67, got %.4f", stats.RiskScore)
	}
	if !floatEquals(stats.DiversificationScore, 44.44, 0.1) {
		t.Errorf("expected diversification 44.44, got %.4f", stats.DiversificationScore)
	}

	// proto-low yields (1/1000)*365*100/10 = 3.65x expected; proto-high
	// yields (0.5/500)*365*100/20 = 1.825x.
	if stats.BestPerformingProtocolID == nil || *stats.BestPerformingProtocolID != "proto-low" {
		t.Errorf("expected best protocol proto-low, got %v", stats.BestPerformingProtocolID)
	}
	if stats.WorstPerformingProtocolID == nil || *stats.WorstPerformingProtocolID != "proto-high" {
		t.Errorf("expected worst protocol proto-high, got %v", stats.WorstPerformingProtocolID)
	}
}

func TestCalculateUserStatisticsNilWithoutStakes(t *testing.T) {
	svc := newStatisticsService(&fakeStakeStore{}, &fakeRewardStore{}, &fakeProtocolStore{}, &fakeStatisticsStore{}, &fakePerformanceStore{})

	stats, err := svc.CalculateUserStatistics(context.Background(), "user-none", models.PeriodDaily,
		time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC), time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats != nil {
		t.Error("expected nil statistics for a user without stakes")
	}
}

func TestPortfolioGrowthAgainstPreviousPeriod(t *testing.T) {
	stakes := &fakeStakeStore{stakes: []models.Stake{
		activeStake("stake-1", "user-1", "proto-low", 1100, 20, 80),
	}}
	protocols := &fakeProtocolStore{protocols: map[string]models.Protocol{
		"proto-low": protocolFixture("proto-low", "Lido", "10", models.RiskLow),
	}}
	periodStart := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	periodEnd := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)

	stats := &fakeStatisticsStore{rows: []models.UserStatistics{{
		UserID:         "user-1",
		PeriodType:     models.PeriodDaily,
		PeriodStart:    periodStart.AddDate(0, 0, -1),
		PortfolioValue: decimal.NewFromInt(1000),
	}}}

	svc := newStatisticsService(stakes, &fakeRewardStore{}, protocols, stats, &fakePerformanceStore{})
	row, err := svc.CalculateUserStatistics(context.Background(), "user-1", models.PeriodDaily, periodStart, periodEnd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !floatEquals(row.PortfolioGrowthPercentage, 10, 0.0001) {
		t.Errorf("expected 10%% growth, got %.4f", row.PortfolioGrowthPercentage)
	}
}

func TestCalculateDailyStatisticsIdempotent(t *testing.T) {
	stakes, protocols := twoProtocolFixture()
	statsStore := &fakeStatisticsStore{}
	perfStore := &fakePerformanceStore{}

	svc := newStatisticsService(stakes, &fakeRewardStore{}, protocols, statsStore, perfStore)

	first := svc.CalculateDailyStatistics(context.Background())
	if !first.Success || first.Processed != 1 {
		t.Fatalf("expected one user processed, got %+v", first)
	}
	if len(statsStore.rows) != 1 {
		t.Fatalf("expected 1 statistics row, got %d", len(statsStore.rows))
	}
	if len(perfStore.rows) != 2 {
		t.Fatalf("expected 2 performance rows, got %d", len(perfStore.rows))
	}

	second := svc.CalculateDailyStatistics(context.Background())
	if second.Processed != 0 {
		t.Errorf("expected second run to skip, processed %d", second.Processed)
	}
	if len(statsStore.rows) != 1 || len(perfStore.rows) != 2 {
		t.Error("expected no duplicate rows on re-run")
	}
}

func TestCalculateUserProtocolPerformanceAnnualizes(t *testing.T) {
	stake := activeStake("stake-1", "user-1", "proto-low", 1000, 20, 80)
	stakes := &fakeStakeStore{stakes: []models.Stake{stake}}
	protocols := &fakeProtocolStore{protocols: map[string]models.Protocol{
		"proto-low": protocolFixture("proto-low", "Lido", "12.5", models.RiskLow),
	}}
	periodStart := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	periodEnd := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)

	rewards := &fakeRewardStore{rewards: []models.Reward{
		{ID: "r1", StakeID: "stake-1", UserID: "user-1", ProtocolID: "proto-low",
			Amount: decimal.NewFromInt(1), RewardType: models.RewardTypeStaking,
			RewardDate: periodStart},
	}}
	perfStore := &fakePerformanceStore{}

	svc := newStatisticsService(stakes, rewards, protocols, &fakeStatisticsStore{}, perfStore)
	if err := svc.CalculateUserProtocolPerformance(context.Background(), "user-1", models.PeriodDaily, periodStart, periodEnd); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(perfStore.rows) != 1 {
		t.Fatalf("expected 1 performance row, got %d", len(perfStore.rows))
	}
	row := perfStore.rows[0]

	if !row.ActualAPY.Equal(decimal.RequireFromString("36.5")) {
		t.Errorf("expected annualized actual APY 36.5, got %s", row.ActualAPY)
	}
	if !floatEquals(row.PerformanceRatio, 2.92, 0.0001) {
		t.Errorf("expected performance ratio 2.92, got %.4f", row.PerformanceRatio)
	}
	if !floatEquals(row.AverageStakeDuration, 100, 0.0001) {
		t.Errorf("expected 100 day average duration, got %.2f", row.AverageStakeDuration)
	}
	if row.StakesCount != 1 {
		t.Errorf("expected stakes count 1, got %d", row.StakesCount)
	}
}

func TestAnnualizedAPYGuards(t *testing.T) {
	if got := annualizedAPY(decimal.NewFromInt(1), decimal.Zero, 1); !got.IsZero() {
		t.Errorf("expected zero APY with no stake, got %s", got)
	}
	if got := annualizedAPY(decimal.NewFromInt(1), decimal.NewFromInt(1000), 0); !got.IsZero() {
		t.Errorf("expected zero APY with no period, got %s", got)
	}
}
