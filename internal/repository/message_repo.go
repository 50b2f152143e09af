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

type MessageRepository interface {
	Create(ctx context.Context, message *model.Message) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Message, error)
	UpdateContent(ctx context.Context, id uuid.UUID, content string, editedAt time.Time) error
	// SoftDelete replaces the content with the sentinel and records the
	// actor; the row is kept for thread and reaction integrity.
	SoftDelete(ctx context.Context, id uuid.UUID, deletedBy uuid.UUID) error
	SetPinned(ctx context.Context, id uuid.UUID, pinned bool, pinnedBy *uuid.UUID) error

	ListByChannel(ctx context.Context, channelID uuid.UUID, limit int, before *time.Time, beforeID *uuid.UUID) ([]model.Message, error)
	ListThread(ctx context.Context, parentID uuid.UUID, limit int, after *time.Time, afterID *uuid.UUID) ([]model.Message, error)
	ListPinned(ctx context.Context, channelID uuid.UUID) ([]model.Message, error)
	Search(ctx context.Context, channelIDs []uuid.UUID, query string, limit int) ([]model.Message, error)
	CountAfter(ctx context.Context, channelID uuid.UUID, afterMessageID *uuid.UUID) (int64, error)

	// ToggleReaction adds the triple if absent, removes it if present, as a
	// single insert-or-delete guarded by the unique index. Returns whether
	// the reaction is present afterwards.
	ToggleReaction(ctx context.Context, messageID, userID uuid.UUID, emoji string) (bool, error)
	ListReactions(ctx context.Context, messageID uuid.UUID) ([]model.Reaction, error)
	ToggleBookmark(ctx context.Context, messageID, userID uuid.UUID) (bool, error)
	ListBookmarks(ctx context.Context, userID uuid.UUID) ([]model.Bookmark, error)
}

type messageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, message *model.Message) error {
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *messageRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Message, error) {
	var message model.Message
	err := r.db.WithContext(ctx).First(&message, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &message, nil
}

func (r *messageRepository) UpdateContent(ctx context.Context, id uuid.UUID, content string, editedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"content":   content,
			"edited_at": editedAt,
		}).Error
}

func (r *messageRepository) SoftDelete(ctx context.Context, id uuid.UUID, deletedBy uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"content":       model.DeletedContent,
			"is_deleted":    true,
			"deleted_by_id": deletedBy,
		}).Error
}

func (r *messageRepository) SetPinned(ctx context.Context, id uuid.UUID, pinned bool, pinnedBy *uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_pinned":    pinned,
			"pinned_by_id": pinnedBy,
		}).Error
}

func (r *messageRepository) ListByChannel(ctx context.Context, channelID uuid.UUID, limit int, before *time.Time, beforeID *uuid.UUID) ([]model.Message, error) {
	query := r.db.WithContext(ctx).
		Where("channel_id = ? AND thread_parent_id IS NULL", channelID).
		Order("created_at DESC, id DESC").
		Limit(limit)

	if before != nil && beforeID != nil {
		query = query.Where("(created_at, id) < (?, ?)", *before, *beforeID)
	}

	var messages []model.Message
	if err := query.Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *messageRepository) ListThread(ctx context.Context, parentID uuid.UUID, limit int, after *time.Time, afterID *uuid.UUID) ([]model.Message, error) {
	// Replies read oldest-first, unlike the channel stream.
	query := r.db.WithContext(ctx).
		Where("thread_parent_id = ?", parentID).
		Order("created_at ASC, id ASC").
		Limit(limit)

	if after != nil && afterID != nil {
		query = query.Where("(created_at, id) > (?, ?)", *after, *afterID)
	}

	var messages []model.Message
	if err := query.Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *messageRepository) ListPinned(ctx context.Context, channelID uuid.UUID) ([]model.Message, error) {
	var messages []model.Message
	err := r.db.WithContext(ctx).
		Where("channel_id = ? AND is_pinned = ?", channelID, true).
		Order("created_at DESC").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *messageRepository) Search(ctx context.Context, channelIDs []uuid.UUID, query string, limit int) ([]model.Message, error) {
	if len(channelIDs) == 0 {
		return []model.Message{}, nil
	}

	var messages []model.Message
	err := r.db.WithContext(ctx).
		Where("channel_id IN ? AND is_deleted = ? AND content ILIKE ?",
			channelIDs, false, "%"+query+"%").
		Order("created_at DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *messageRepository) CountAfter(ctx context.Context, channelID uuid.UUID, afterMessageID *uuid.UUID) (int64, error) {
	query := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("channel_id = ? AND is_deleted = ?", channelID, false)

	if afterMessageID != nil {
		var after model.Message
		if err := r.db.WithContext(ctx).First(&after, "id = ?", *afterMessageID).Error; err == nil {
			query = query.Where("(created_at, id) > (?, ?)", after.CreatedAt, after.ID)
		}
	}

	var count int64
	err := query.Count(&count).Error
	return count, err
}

func (r *messageRepository) ToggleReaction(ctx context.Context, messageID, userID uuid.UUID, emoji string) (bool, error) {
	present := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "message_id"}, {Name: "user_id"}, {Name: "emoji"}},
			DoNothing: true,
		}).Create(&model.Reaction{
			MessageID: messageID,
			UserID:    userID,
			Emoji:     emoji,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			present = true
			return nil
		}

		// Already present: this toggle removes it.
		return tx.Where("message_id = ? AND user_id = ? AND emoji = ?",
			messageID, userID, emoji).
			Delete(&model.Reaction{}).Error
	})
	return present, err
}

func (r *messageRepository) ListReactions(ctx context.Context, messageID uuid.UUID) ([]model.Reaction, error) {
	var reactions []model.Reaction
	err := r.db.WithContext(ctx).
		Where("message_id = ?", messageID).
		Order("created_at ASC").
		Find(&reactions).Error
	if err != nil {
		return nil, err
	}
	return reactions, nil
}

func (r *messageRepository) ToggleBookmark(ctx context.Context, messageID, userID uuid.UUID) (bool, error) {
	present := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "message_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).Create(&model.Bookmark{
			MessageID: messageID,
			UserID:    userID,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			present = true
			return nil
		}

		return tx.Where("message_id = ? AND user_id = ?", messageID, userID).
			Delete(&model.Bookmark{}).Error
	})
	return present, err
}

func (r *messageRepository) ListBookmarks(ctx context.Context, userID uuid.UUID) ([]model.Bookmark, error) {
	var bookmarks []model.Bookmark
	err := r.db.WithContext(ctx).
		Preload("Message").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&bookmarks).Error
	if err != nil {
		return nil, err
	}
	return bookmarks, nil
}
