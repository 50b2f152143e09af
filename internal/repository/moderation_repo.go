package repository

import (
	"context"

	"builders.to/backend/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ModerationRepository only ever appends and reads. There is no update or
// delete: the audit trail outlives channels, memberships, and messages.
type ModerationRepository interface {
	CreateAction(ctx context.Context, action *model.ChatModAction) error
	ListByChannel(ctx context.Context, channelID uuid.UUID, limit int) ([]model.ChatModAction, error)
	ListByTarget(ctx context.Context, targetID uuid.UUID, limit int) ([]model.ChatModAction, error)
}

type moderationRepository struct {
	db *gorm.DB
}

func NewModerationRepository(db *gorm.DB) ModerationRepository {
	return &moderationRepository{db: db}
}

func (r *moderationRepository) CreateAction(ctx context.Context, action *model.ChatModAction) error {
	return r.db.WithContext(ctx).Create(action).Error
}

func (r *moderationRepository) ListByChannel(ctx context.Context, channelID uuid.UUID, limit int) ([]model.ChatModAction, error) {
	var actions []model.ChatModAction
	err := r.db.WithContext(ctx).
		Where("channel_id = ?", channelID).
		Order("id DESC").
		Limit(limit).
		Find(&actions).Error
	if err != nil {
		return nil, err
	}
	return actions, nil
}

func (r *moderationRepository) ListByTarget(ctx context.Context, targetID uuid.UUID, limit int) ([]model.ChatModAction, error) {
	var actions []model.ChatModAction
	err := r.db.WithContext(ctx).
		Where("target_id = ?", targetID).
		Order("id DESC").
		Limit(limit).
		Find(&actions).Error
	if err != nil {
		return nil, err
	}
	return actions, nil
}
