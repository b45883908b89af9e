package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Protocol is a staking venue. Rows are managed by the protocol admin API
// and are read-only for the reward pipeline.
type Protocol struct {
	ID        string          `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string          `gorm:"size:100;not null;uniqueIndex" json:"name"`
	APY       decimal.Decimal `gorm:"type:numeric(10,4);not null" json:"apy"`
	RiskLevel RiskLevel       `gorm:"size:10;not null;default:medium" json:"risk_level"`
	TVL       decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0" json:"tvl"`
	MinStake  decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0" json:"min_stake"`
	MaxStake  decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0" json:"max_stake"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Protocol) TableName() string {
	return "protocols"
}

func (p *Protocol) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
