package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"staking-rewards-system/internal/models"
	"staking-rewards-system/pkg/errors"
	"staking-rewards-system/pkg/logger"

	"github.com/shopspring/decimal"
)

var (
	hundred      = decimal.NewFromInt(100)
	daysPerYear  = decimal.NewFromInt(365)
	weeksPerYear = decimal.NewFromInt(52)
)

// rewardPrecision is the scale every accrued amount is rounded to.
const rewardPrecision = 6

type RewardService struct {
	stakes             StakeStore
	rewards            RewardStore
	protocols          ProtocolStore
	compoundMinAgeDays int
	now                func() time.Time
}

func NewRewardService(stakes StakeStore, rewards RewardStore, protocols ProtocolStore, compoundMinAgeDays int) *RewardService {
	if compoundMinAgeDays <= 0 {
		compoundMinAgeDays = 7
	}
	return &RewardService{
		stakes:             stakes,
		rewards:            rewards,
		protocols:          protocols,
		compoundMinAgeDays: compoundMinAgeDays,
		now:                time.Now,
	}
}

// CalculateDailyRewards accrues one staking reward per active stake for
// the current UTC day. A stake that already has a staking reward dated
// today is skipped, so the pass is idempotent within a day.
func (s *RewardService) CalculateDailyRewards(ctx context.Context) BatchResult {
	now := s.now().UTC()
	dayStart := utcDay(now)
	dayEnd := dayStart.AddDate(0, 0, 1)

	stakes, err := s.stakes.ActiveInWindow(ctx, now)
	if err != nil {
		return fatalResult(fmt.Sprintf("failed to list active stakes: %v", err))
	}

	var errs []string
	processed := 0

	for _, stake := range stakes {
		exists, err := s.rewards.ExistsInWindow(ctx, stake.ID, models.RewardTypeStaking, dayStart, dayEnd)
		if err != nil {
			errs = append(errs, fmt.Sprintf("stake %s: reward lookup failed: %v", stake.ID, err))
			continue
		}
		if exists {
			continue
		}

		protocol, err := s.protocols.ByID(ctx, stake.ProtocolID)
		if err != nil {
			errs = append(errs, fmt.Sprintf("stake %s: protocol lookup failed: %v", stake.ID, err))
			continue
		}
		if protocol == nil {
			errs = append(errs, fmt.Sprintf("stake %s: protocol %s not found", stake.ID, stake.ProtocolID))
			continue
		}

		dailyRate := protocol.APY.Div(hundred).Div(daysPerYear)
		amount := stake.Amount.Mul(dailyRate).Round(rewardPrecision)
		if !amount.IsPositive() {
			continue
		}

		elapsedDays := int(now.Sub(stake.StartDate).Hours() / 24)
		totalDays := int(stake.EndDate.Sub(stake.StartDate).Hours() / 24)
		progress := 0.0
		if totalDays > 0 {
			progress = float64(elapsedDays) / float64(totalDays) * 100
		}

		reward := &models.Reward{
			StakeID:           stake.ID,
			UserID:            stake.UserID,
			ProtocolID:        stake.ProtocolID,
			Amount:            amount,
			RewardType:        models.RewardTypeStaking,
			CalculationMethod: models.PeriodDaily,
			APYAtCalculation:  protocol.APY,
			CompoundFrequency: stake.CompoundFrequency,
			RewardDate:        dayStart,
			Metadata: models.JSONB{
				"protocol_name":       protocol.Name,
				"stake_amount":        stake.Amount.String(),
				"daily_rate":          dailyRate.String(),
				"elapsed_days":        elapsedDays,
				"total_days":          totalDays,
				"progress_percentage": progress,
			},
		}

		if err := s.rewards.Create(ctx, reward); err != nil {
			if isDuplicate(err) {
				continue
			}
			errs = append(errs, fmt.Sprintf("stake %s: reward insert failed: %v", stake.ID, err))
			continue
		}
		processed++
	}

	logger.WithFields(map[string]interface{}{
		"processed": processed,
		"errors":    len(errs),
	}).Info("Daily reward calculation completed")

	return batchResult(processed, errs)
}

// CalculateCompoundRewards accrues a weekly compound reward on the sum of
// a stake's unclaimed staking rewards. The unclaimed rewards themselves
// are left untouched; compounding is additive. The weekly spacing is
// enforced by the trailing-7-day lookback; the unique index only blocks a
// second compound row on the same day.
func (s *RewardService) CalculateCompoundRewards(ctx context.Context) BatchResult {
	now := s.now().UTC()
	dayStart := utcDay(now)
	windowStart := now.AddDate(0, 0, -7)
	minStart := now.AddDate(0, 0, -s.compoundMinAgeDays)

	stakes, err := s.stakes.ActiveStartedBefore(ctx, minStart)
	if err != nil {
		return fatalResult(fmt.Sprintf("failed to list compounding stakes: %v", err))
	}

	var errs []string
	processed := 0

	for _, stake := range stakes {
		exists, err := s.rewards.ExistsInWindow(ctx, stake.ID, models.RewardTypeCompound, windowStart, now.Add(time.Second))
		if err != nil {
			errs = append(errs, fmt.Sprintf("stake %s: compound lookup failed: %v", stake.ID, err))
			continue
		}
		if exists {
			continue
		}

		unclaimed, err := s.rewards.SumUnclaimedStaking(ctx, stake.ID)
		if err != nil {
			errs = append(errs, fmt.Sprintf("stake %s: unclaimed sum failed: %v", stake.ID, err))
			continue
		}
		if !unclaimed.IsPositive() {
			continue
		}

		protocol, err := s.protocols.ByID(ctx, stake.ProtocolID)
		if err != nil {
			errs = append(errs, fmt.Sprintf("stake %s: protocol lookup failed: %v", stake.ID, err))
			continue
		}
		if protocol == nil {
			errs = append(errs, fmt.Sprintf("stake %s: protocol %s not found", stake.ID, stake.ProtocolID))
			continue
		}

		weeklyRate := protocol.APY.Div(hundred).Div(weeksPerYear)
		amount := unclaimed.Mul(weeklyRate).Round(rewardPrecision)
		if !amount.IsPositive() {
			continue
		}

		reward := &models.Reward{
			StakeID:           stake.ID,
			UserID:            stake.UserID,
			ProtocolID:        stake.ProtocolID,
			Amount:            amount,
			RewardType:        models.RewardTypeCompound,
			CalculationMethod: models.PeriodWeekly,
			APYAtCalculation:  protocol.APY,
			CompoundFrequency: stake.CompoundFrequency,
			RewardDate:        dayStart,
			Metadata: models.JSONB{
				"protocol_name":  protocol.Name,
				"unclaimed_base": unclaimed.String(),
				"weekly_rate":    weeklyRate.String(),
			},
		}

		if err := s.rewards.Create(ctx, reward); err != nil {
			if isDuplicate(err) {
				continue
			}
			errs = append(errs, fmt.Sprintf("stake %s: compound insert failed: %v", stake.ID, err))
			continue
		}
		processed++
	}

	logger.WithFields(map[string]interface{}{
		"processed": processed,
		"errors":    len(errs),
	}).Info("Compound reward calculation completed")

	return batchResult(processed, errs)
}

// UpdateStakeStatuses completes every active stake past its end date.
func (s *RewardService) UpdateStakeStatuses(ctx context.Context) (int64, error) {
	count, err := s.stakes.CompleteExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, errors.New(errors.ErrRewardCalc, "failed to complete expired stakes", err)
	}
	if count > 0 {
		logger.WithFields(map[string]interface{}{
			"completed": count,
		}).Info("Expired stakes completed")
	}
	return count, nil
}

// RunRewardCron runs the three reward sub-operations concurrently. They
// write disjoint rows, so no coordination between them is needed; the
// merged error list decides the aggregate outcome.
func (s *RewardService) RunRewardCron(ctx context.Context) RewardCronResult {
	var (
		wg        sync.WaitGroup
		daily     BatchResult
		compound  BatchResult
		completed int64
		statusErr error
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		daily = s.CalculateDailyRewards(ctx)
	}()
	go func() {
		defer wg.Done()
		compound = s.CalculateCompoundRewards(ctx)
	}()
	go func() {
		defer wg.Done()
		completed, statusErr = s.UpdateStakeStatuses(ctx)
	}()
	wg.Wait()

	errs := append([]string{}, daily.Errors...)
	errs = append(errs, compound.Errors...)
	if statusErr != nil {
		errs = append(errs, fmt.Sprintf("stake status update failed: %v", statusErr))
	}

	return RewardCronResult{
		Success:         len(errs) == 0,
		DailyRewards:    daily,
		CompoundRewards: compound,
		StakesCompleted: completed,
		Errors:          errs,
	}
}
