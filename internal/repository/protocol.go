package repository

import (
	"context"
	"errors"

	"staking-rewards-system/internal/models"

	"gorm.io/gorm"
)

type ProtocolRepository struct {
	db *gorm.DB
}

func NewProtocolRepository(db *gorm.DB) *ProtocolRepository {
	return &ProtocolRepository{db: db}
}

// ByID returns the protocol or nil when no row exists.
func (r *ProtocolRepository) ByID(ctx context.Context, id string) (*models.Protocol, error) {
	var protocol models.Protocol
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&protocol).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &protocol, err
}

func (r *ProtocolRepository) All(ctx context.Context) ([]models.Protocol, error) {
	var protocols []models.Protocol
	err := r.db.WithContext(ctx).Find(&protocols).Error
	return protocols, err
}
