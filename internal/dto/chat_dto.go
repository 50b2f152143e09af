package dto

import (
	"time"

	"builders.to/backend/internal/model"
	"github.com/google/uuid"
)

type CreateChannelRequest struct {
	Name        string     `json:"name" binding:"required,min=2,max=100"`
	Type        string     `json:"type" binding:"required,oneof=PUBLIC PRIVATE"`
	Topic       *string    `json:"topic,omitempty" binding:"omitempty,max=255"`
	Description *string    `json:"description,omitempty" binding:"omitempty,max=2000"`
	CategoryID  *uuid.UUID `json:"category_id,omitempty"`
}

type CreateDMRequest struct {
	TargetUserID uuid.UUID `json:"target_user_id" binding:"required"`
}

type InviteRequest struct {
	InviteeID uuid.UUID `json:"invitee_id" binding:"required"`
}

type SetRoleRequest struct {
	UserID uuid.UUID         `json:"user_id" binding:"required"`
	Role   model.ChannelRole `json:"role" binding:"required,oneof=ADMIN MODERATOR MEMBER"`
}

type PostMessageRequest struct {
	Content        string     `json:"content" binding:"required,min=1,max=10000"`
	ThreadParentID *uuid.UUID `json:"thread_parent_id,omitempty"`
}

type EditMessageRequest struct {
	Content string `json:"content" binding:"required,min=1,max=10000"`
}

type ToggleReactionRequest struct {
	Emoji string `json:"emoji" binding:"required,min=1,max=32"`
}

type MarkReadRequest struct {
	MessageID uuid.UUID `json:"message_id" binding:"required"`
}

type ChannelResponse struct {
	ID          uuid.UUID         `json:"id"`
	Name        string            `json:"name"`
	Slug        string            `json:"slug"`
	Type        model.ChannelType `json:"type"`
	Topic       *string           `json:"topic,omitempty"`
	Description *string           `json:"description,omitempty"`
	IsArchived  bool              `json:"is_archived"`
	IsMember    bool              `json:"is_member"`
	MemberRole  model.ChannelRole `json:"member_role,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

type MessageResponse struct {
	ID             uuid.UUID  `json:"id"`
	ChannelID      uuid.UUID  `json:"channel_id"`
	SenderID       uuid.UUID  `json:"sender_id"`
	Content        string     `json:"content"`
	ThreadParentID *uuid.UUID `json:"thread_parent_id,omitempty"`
	IsDeleted      bool       `json:"is_deleted"`
	IsPinned       bool       `json:"is_pinned"`
	EditedAt       *time.Time `json:"edited_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

type MessagePageResponse struct {
	Data []MessageResponse `json:"data"`
	Meta PaginationMeta    `json:"meta"`
}

type ModActionRequest struct {
	TargetUserID uuid.UUID  `json:"target_user_id" binding:"required"`
	Action       string     `json:"action" binding:"required,oneof=BAN_USER UNBAN_USER MUTE_USER DELETE_MESSAGE"`
	Reason       *string    `json:"reason,omitempty" binding:"omitempty,max=500"`
	DurationSecs *int64     `json:"duration_secs,omitempty" binding:"omitempty,gt=0"`
	MessageID    *uuid.UUID `json:"message_id,omitempty"`
}
