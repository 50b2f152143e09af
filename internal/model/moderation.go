package model

import (
	"time"

	"github.com/google/uuid"
)

type ModActionType string

const (
	ModBanUser       ModActionType = "BAN_USER"
	ModUnbanUser     ModActionType = "UNBAN_USER"
	ModMuteUser      ModActionType = "MUTE_USER"
	ModDeleteMessage ModActionType = "DELETE_MESSAGE"
)

// ChatModAction is an append-only audit record. It is written before the
// side effect runs and is never updated or deleted, even when the channel,
// membership, or message it refers to is gone.
type ChatModAction struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	ChannelID   uuid.UUID     `gorm:"type:uuid;index;not null" json:"channel_id"`
	TargetID    uuid.UUID     `gorm:"type:uuid;index;not null" json:"target_id"`
	ModeratorID uuid.UUID     `gorm:"type:uuid;not null" json:"moderator_id"`
	Action      ModActionType `gorm:"size:32;not null" json:"action"`
	Reason      *string       `gorm:"type:text" json:"reason,omitempty"`
	Duration    *time.Duration `gorm:"type:bigint" json:"duration,omitempty"`
	MessageID   *uuid.UUID    `gorm:"type:uuid" json:"message_id,omitempty"`
	CreatedAt   time.Time     `gorm:"autoCreateTime" json:"created_at"`
}
