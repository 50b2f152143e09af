package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DeletedContent replaces the body of a soft-deleted message. The row stays
// so replies and reactions keep a valid parent.
const DeletedContent = "[message removed]"

type Message struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ChannelID uuid.UUID `gorm:"type:uuid;index:idx_msg_channel_created;not null" json:"channel_id"`
	Channel   *Channel  `gorm:"foreignKey:ChannelID;constraint:OnDelete:CASCADE" json:"-"`
	SenderID  uuid.UUID `gorm:"type:uuid;index;not null" json:"sender_id"`
	Sender    *User     `gorm:"foreignKey:SenderID" json:"sender,omitempty"`

	Content string `gorm:"type:text;not null" json:"content"`

	// One level of threading: a reply points at a non-reply parent.
	ThreadParentID *uuid.UUID `gorm:"type:uuid;index" json:"thread_parent_id,omitempty"`

	IsDeleted   bool       `gorm:"default:false" json:"is_deleted"`
	DeletedByID *uuid.UUID `gorm:"type:uuid" json:"deleted_by_id,omitempty"`
	IsPinned    bool       `gorm:"default:false" json:"is_pinned"`
	PinnedByID  *uuid.UUID `gorm:"type:uuid" json:"pinned_by_id,omitempty"`

	EditedAt  *time.Time `json:"edited_at,omitempty"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index:idx_msg_channel_created" json:"created_at"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// Reaction is unique per (message, user, emoji); toggling re-sends the same
// triple to add or remove it.
type Reaction struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	MessageID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_reaction_once,priority:1" json:"message_id"`
	Message   *Message  `gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE" json:"-"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_reaction_once,priority:2" json:"user_id"`
	Emoji     string    `gorm:"size:32;not null;uniqueIndex:idx_reaction_once,priority:3" json:"emoji"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// Bookmark survives the user leaving the channel; it references the message
// directly, not the membership.
type Bookmark struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	MessageID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_bookmark_once,priority:1" json:"message_id"`
	Message   *Message  `gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE" json:"message,omitempty"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_bookmark_once,priority:2;index" json:"user_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
