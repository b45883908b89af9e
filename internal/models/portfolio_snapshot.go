package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PortfolioSnapshot is an immutable once-per-day record of a user's net
// worth. SnapshotDate is a UTC date; one row per (user, date). Rows older
// than the retention window are purged by the maintenance pass.
type PortfolioSnapshot struct {
	ID                    string          `gorm:"type:uuid;primaryKey" json:"id"`
	UserID                string          `gorm:"type:uuid;not null;uniqueIndex:uk_user_snapshot_date" json:"user_id"`
	SnapshotDate          time.Time       `gorm:"type:date;not null;uniqueIndex:uk_user_snapshot_date;index" json:"snapshot_date"`
	TotalPortfolioValue   decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0" json:"total_portfolio_value"`
	TotalStakedAmount     decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0" json:"total_staked_amount"`
	TotalRewardsEarned    decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0" json:"total_rewards_earned"`
	TotalRewardsClaimed   decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0" json:"total_rewards_claimed"`
	TotalRewardsUnclaimed decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0" json:"total_rewards_unclaimed"`
	ActiveStakesCount     int             `gorm:"not null;default:0" json:"active_stakes_count"`
	ProtocolDistribution  JSONB           `gorm:"type:jsonb" json:"protocol_distribution"`
	RiskDistribution      JSONB           `gorm:"type:jsonb" json:"risk_distribution"`
	AverageAPY            decimal.Decimal `gorm:"type:numeric(10,4);not null;default:0" json:"average_apy"`
	PortfolioGrowth24h    float64         `gorm:"type:numeric(12,4);not null;default:0" json:"portfolio_growth_24h"`
	PortfolioGrowth7d     float64         `gorm:"type:numeric(12,4);not null;default:0" json:"portfolio_growth_7d"`
	PortfolioGrowth30d    float64         `gorm:"type:numeric(12,4);not null;default:0" json:"portfolio_growth_30d"`
	CreatedAt             time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (PortfolioSnapshot) TableName() string {
	return "portfolio_snapshots"
}

func (p *PortfolioSnapshot) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
