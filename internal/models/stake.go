package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type StakeStatus string

const (
	StakeStatusActive    StakeStatus = "active"
	StakeStatusCompleted StakeStatus = "completed"
	StakeStatusCancelled StakeStatus = "cancelled"
)

type CompoundFrequency string

const (
	CompoundDaily   CompoundFrequency = "daily"
	CompoundWeekly  CompoundFrequency = "weekly"
	CompoundMonthly CompoundFrequency = "monthly"
)

type Stake struct {
	ID                string            `gorm:"type:uuid;primaryKey" json:"id"`
	UserID            string            `gorm:"type:uuid;not null;index" json:"user_id"`
	ProtocolID        string            `gorm:"type:uuid;not null;index" json:"protocol_id"`
	Amount            decimal.Decimal   `gorm:"type:numeric(30,10);not null" json:"amount"`
	StartDate         time.Time         `gorm:"not null" json:"start_date"`
	EndDate           time.Time         `gorm:"not null;index" json:"end_date"`
	LockPeriodDays    int               `gorm:"not null;default:0" json:"lock_period_days"`
	CompoundFrequency CompoundFrequency `gorm:"size:10;not null;default:weekly" json:"compound_frequency"`
	LastCompoundDate  *time.Time        `json:"last_compound_date"`
	Status            StakeStatus       `gorm:"size:10;not null;default:active;index" json:"status"`
	CreatedAt         time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Stake) TableName() string {
	return "stakes"
}

func (s *Stake) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
