package repository

import (
	"context"
	"errors"
	"time"

	"builders.to/backend/internal/model"
	"builders.to/backend/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ChannelRepository interface {
	Create(ctx context.Context, channel *model.Channel) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Channel, error)
	FindBySlug(ctx context.Context, slug string) (*model.Channel, error)
	FindByDMKey(ctx context.Context, dmKey string) (*model.Channel, error)
	// CreateDM inserts the channel plus both memberships; a concurrent
	// insert of the same pair loses on the dm_key unique index, in which
	// case the existing channel is returned.
	CreateDM(ctx context.Context, channel *model.Channel, members []model.ChannelMember) (*model.Channel, error)
	SetArchived(ctx context.Context, id uuid.UUID, archived bool) error
	Search(ctx context.Context, query string, categoryID *uuid.UUID) ([]model.Channel, error)

	GetMember(ctx context.Context, channelID, userID uuid.UUID) (*model.ChannelMember, error)
	CreateMember(ctx context.Context, member *model.ChannelMember) error
	DeleteMember(ctx context.Context, channelID, userID uuid.UUID) error
	UpdateMemberRole(ctx context.Context, channelID, userID uuid.UUID, role model.ChannelRole) error
	SetMutedUntil(ctx context.Context, channelID, userID uuid.UUID, until *time.Time) error
	SetLastRead(ctx context.Context, channelID, userID, messageID uuid.UUID) error
	ListMembers(ctx context.Context, channelID uuid.UUID) ([]model.ChannelMember, error)
	CountMembers(ctx context.Context, channelID uuid.UUID) (int64, error)
	ListMemberChannelIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	ListMemberships(ctx context.Context, userID uuid.UUID) ([]model.ChannelMember, error)

	UpsertInvite(ctx context.Context, invite *model.ChannelInvite) error
	GetInvite(ctx context.Context, channelID, inviteeID uuid.UUID) (*model.ChannelInvite, error)
	UpdateInviteStatus(ctx context.Context, channelID, inviteeID uuid.UUID, status model.InviteStatus) error
}

type channelRepository struct {
	db *gorm.DB
}

func NewChannelRepository(db *gorm.DB) ChannelRepository {
	return &channelRepository{db: db}
}

func (r *channelRepository) Create(ctx context.Context, channel *model.Channel) error {
	err := r.db.WithContext(ctx).Create(channel).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperror.ErrConflict
	}
	return err
}

func (r *channelRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Channel, error) {
	var channel model.Channel
	err := r.db.WithContext(ctx).First(&channel, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &channel, nil
}

func (r *channelRepository) FindBySlug(ctx context.Context, slug string) (*model.Channel, error) {
	var channel model.Channel
	err := r.db.WithContext(ctx).First(&channel, "slug = ?", slug).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &channel, nil
}

func (r *channelRepository) FindByDMKey(ctx context.Context, dmKey string) (*model.Channel, error) {
	var channel model.Channel
	err := r.db.WithContext(ctx).First(&channel, "dm_key = ?", dmKey).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &channel, nil
}

func (r *channelRepository) CreateDM(ctx context.Context, channel *model.Channel, members []model.ChannelMember) (*model.Channel, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "dm_key"}},
			DoNothing: true,
		}).Create(channel)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Lost the race: the pair's channel already exists.
			return apperror.ErrConflict
		}

		for i := range members {
			members[i].ChannelID = channel.ID
		}
		return tx.Create(&members).Error
	})

	if errors.Is(err, apperror.ErrConflict) {
		return r.FindByDMKey(ctx, *channel.DMKey)
	}
	if err != nil {
		return nil, err
	}
	return channel, nil
}

func (r *channelRepository) SetArchived(ctx context.Context, id uuid.UUID, archived bool) error {
	return r.db.WithContext(ctx).
		Model(&model.Channel{}).
		Where("id = ?", id).
		Update("is_archived", archived).Error
}

func (r *channelRepository) Search(ctx context.Context, query string, categoryID *uuid.UUID) ([]model.Channel, error) {
	q := r.db.WithContext(ctx).
		Where("type = ? AND is_archived = ?", model.ChannelPublic, false)

	if query != "" {
		pattern := "%" + query + "%"
		q = q.Where("name ILIKE ? OR description ILIKE ?", pattern, pattern)
	}
	if categoryID != nil {
		q = q.Where("category_id = ?", *categoryID)
	}

	var channels []model.Channel
	if err := q.Order("name ASC").Find(&channels).Error; err != nil {
		return nil, err
	}
	return channels, nil
}

func (r *channelRepository) GetMember(ctx context.Context, channelID, userID uuid.UUID) (*model.ChannelMember, error) {
	var member model.ChannelMember
	err := r.db.WithContext(ctx).
		First(&member, "channel_id = ? AND user_id = ?", channelID, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *channelRepository) CreateMember(ctx context.Context, member *model.ChannelMember) error {
	err := r.db.WithContext(ctx).Create(member).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperror.ErrConflict
	}
	return err
}

func (r *channelRepository) DeleteMember(ctx context.Context, channelID, userID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("channel_id = ? AND user_id = ?", channelID, userID).
		Delete(&model.ChannelMember{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperror.ErrNotFound
	}
	return nil
}

func (r *channelRepository) UpdateMemberRole(ctx context.Context, channelID, userID uuid.UUID, role model.ChannelRole) error {
	res := r.db.WithContext(ctx).
		Model(&model.ChannelMember{}).
		Where("channel_id = ? AND user_id = ?", channelID, userID).
		Update("role", role)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperror.ErrNotFound
	}
	return nil
}

func (r *channelRepository) SetMutedUntil(ctx context.Context, channelID, userID uuid.UUID, until *time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&model.ChannelMember{}).
		Where("channel_id = ? AND user_id = ?", channelID, userID).
		Update("muted_until", until)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperror.ErrNotFound
	}
	return nil
}

func (r *channelRepository) SetLastRead(ctx context.Context, channelID, userID, messageID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&model.ChannelMember{}).
		Where("channel_id = ? AND user_id = ?", channelID, userID).
		Update("last_read_message_id", messageID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperror.ErrNotFound
	}
	return nil
}

func (r *channelRepository) ListMembers(ctx context.Context, channelID uuid.UUID) ([]model.ChannelMember, error) {
	var members []model.ChannelMember
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("channel_id = ?", channelID).
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}

func (r *channelRepository) CountMembers(ctx context.Context, channelID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.ChannelMember{}).
		Where("channel_id = ?", channelID).
		Count(&count).Error
	return count, err
}

func (r *channelRepository) ListMemberChannelIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&model.ChannelMember{}).
		Where("user_id = ?", userID).
		Pluck("channel_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *channelRepository) ListMemberships(ctx context.Context, userID uuid.UUID) ([]model.ChannelMember, error) {
	var members []model.ChannelMember
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&members).Error
	return members, err
}

func (r *channelRepository) UpsertInvite(ctx context.Context, invite *model.ChannelInvite) error {
	// Re-inviting a previously declined user resets the invite to PENDING.
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "channel_id"}, {Name: "invitee_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"status":     model.InvitePending,
			"inviter_id": invite.InviterID,
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}),
	}).Create(invite).Error
}

func (r *channelRepository) GetInvite(ctx context.Context, channelID, inviteeID uuid.UUID) (*model.ChannelInvite, error) {
	var invite model.ChannelInvite
	err := r.db.WithContext(ctx).
		First(&invite, "channel_id = ? AND invitee_id = ?", channelID, inviteeID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &invite, nil
}

func (r *channelRepository) UpdateInviteStatus(ctx context.Context, channelID, inviteeID uuid.UUID, status model.InviteStatus) error {
	res := r.db.WithContext(ctx).
		Model(&model.ChannelInvite{}).
		Where("channel_id = ? AND invitee_id = ?", channelID, inviteeID).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperror.ErrNotFound
	}
	return nil
}
