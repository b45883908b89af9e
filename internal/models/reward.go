package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type RewardType string

const (
	RewardTypeStaking  RewardType = "staking"
	RewardTypeCompound RewardType = "compound"
)

type PeriodType string

const (
	PeriodDaily   PeriodType = "daily"
	PeriodWeekly  PeriodType = "weekly"
	PeriodMonthly PeriodType = "monthly"
)

// Reward is a single accrual entry. RewardDate is truncated to the UTC day,
// so the unique index is the authoritative one-per-stake-per-day guard for
// each reward type; the application-level exists check is a fast path only.
type Reward struct {
	ID                string            `gorm:"type:uuid;primaryKey" json:"id"`
	StakeID           string            `gorm:"type:uuid;not null;uniqueIndex:uk_stake_type_date" json:"stake_id"`
	UserID            string            `gorm:"type:uuid;not null;index" json:"user_id"`
	ProtocolID        string            `gorm:"type:uuid;not null;index" json:"protocol_id"`
	Amount            decimal.Decimal   `gorm:"type:numeric(30,10);not null" json:"amount"`
	RewardType        RewardType        `gorm:"size:10;not null;uniqueIndex:uk_stake_type_date" json:"reward_type"`
	CalculationMethod PeriodType        `gorm:"size:10;not null" json:"calculation_method"`
	APYAtCalculation  decimal.Decimal   `gorm:"type:numeric(10,4);not null" json:"apy_at_calculation"`
	CompoundFrequency CompoundFrequency `gorm:"size:10;not null;default:weekly" json:"compound_frequency"`
	Claimed           bool              `gorm:"not null;default:false;index" json:"claimed"`
	ClaimDate         *time.Time        `json:"claim_date"`
	TransactionHash   string            `gorm:"size:66" json:"transaction_hash"`
	RewardDate        time.Time         `gorm:"not null;uniqueIndex:uk_stake_type_date;index" json:"reward_date"`
	Metadata          JSONB             `gorm:"type:jsonb" json:"metadata"`
	CreatedAt         time.Time         `gorm:"autoCreateTime" json:"created_at"`
}

func (Reward) TableName() string {
	return "rewards"
}

func (r *Reward) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
