package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// UserStatistics is a per-period rollup. At most one row may exist per
// (user, period type, period start); rows are inserted once and never
// updated in place.
type UserStatistics struct {
	ID                        string          `gorm:"type:uuid;primaryKey" json:"id"`
	UserID                    string          `gorm:"type:uuid;not null;uniqueIndex:uk_user_period" json:"user_id"`
	PeriodType                PeriodType      `gorm:"size:10;not null;uniqueIndex:uk_user_period" json:"period_type"`
	PeriodStart               time.Time       `gorm:"not null;uniqueIndex:uk_user_period" json:"period_start"`
	PeriodEnd                 time.Time       `gorm:"not null" json:"period_end"`
	TotalStakedAmount         decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0" json:"total_staked_amount"`
	TotalRewardsEarned        decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0" json:"total_rewards_earned"`
	TotalRewardsClaimed       decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0" json:"total_rewards_claimed"`
	TotalRewardsUnclaimed     decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0" json:"total_rewards_unclaimed"`
	PortfolioValue            decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0" json:"portfolio_value"`
	PortfolioGrowthPercentage float64         `gorm:"type:numeric(12,4);not null;default:0" json:"portfolio_growth_percentage"`
	AverageAPY                decimal.Decimal `gorm:"type:numeric(10,4);not null;default:0" json:"average_apy"`
	ActiveStakesCount         int             `gorm:"not null;default:0" json:"active_stakes_count"`
	CompletedStakesCount      int             `gorm:"not null;default:0" json:"completed_stakes_count"`
	NewStakesCount            int             `gorm:"not null;default:0" json:"new_stakes_count"`
	TotalProtocolsUsed        int             `gorm:"not null;default:0" json:"total_protocols_used"`
	RiskScore                 float64         `gorm:"type:numeric(6,2);not null;default:50" json:"risk_score"`
	DiversificationScore      float64         `gorm:"type:numeric(6,2);not null;default:0" json:"diversification_score"`
	BestPerformingProtocolID  *string         `gorm:"type:uuid" json:"best_performing_protocol_id"`
	WorstPerformingProtocolID *string         `gorm:"type:uuid" json:"worst_performing_protocol_id"`
	CreatedAt                 time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (UserStatistics) TableName() string {
	return "user_statistics"
}

func (s *UserStatistics) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
