package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProtocolPerformance records how a protocol actually performed for one
// user over one period, against its advertised APY. Same insert-once
// uniqueness rule as UserStatistics, keyed additionally by protocol.
type ProtocolPerformance struct {
	ID                   string          `gorm:"type:uuid;primaryKey" json:"id"`
	ProtocolID           string          `gorm:"type:uuid;not null;uniqueIndex:uk_user_protocol_period" json:"protocol_id"`
	UserID               string          `gorm:"type:uuid;not null;uniqueIndex:uk_user_protocol_period" json:"user_id"`
	PeriodType           PeriodType      `gorm:"size:10;not null;uniqueIndex:uk_user_protocol_period" json:"period_type"`
	PeriodStart          time.Time       `gorm:"not null;uniqueIndex:uk_user_protocol_period" json:"period_start"`
	PeriodEnd            time.Time       `gorm:"not null" json:"period_end"`
	TotalStaked          decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0" json:"total_staked"`
	TotalRewards         decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0" json:"total_rewards"`
	ActualAPY            decimal.Decimal `gorm:"type:numeric(12,4);not null;default:0" json:"actual_apy"`
	ExpectedAPY          decimal.Decimal `gorm:"type:numeric(10,4);not null;default:0" json:"expected_apy"`
	PerformanceRatio     float64         `gorm:"type:numeric(12,4);not null;default:0" json:"performance_ratio"`
	StakesCount          int             `gorm:"not null;default:0" json:"stakes_count"`
	AverageStakeDuration float64         `gorm:"type:numeric(12,2);not null;default:0" json:"average_stake_duration"`
	CreatedAt            time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (ProtocolPerformance) TableName() string {
	return "protocol_performance"
}

func (p *ProtocolPerformance) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
