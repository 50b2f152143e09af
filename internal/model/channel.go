package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChannelType string

const (
	ChannelPublic  ChannelType = "PUBLIC"
	ChannelPrivate ChannelType = "PRIVATE"
	ChannelDM      ChannelType = "DM"
)

type ChannelRole string

const (
	RoleOwner     ChannelRole = "OWNER"
	RoleAdmin     ChannelRole = "ADMIN"
	RoleModerator ChannelRole = "MODERATOR"
	RoleMember    ChannelRole = "MEMBER"
)

var roleRank = map[ChannelRole]int{
	RoleOwner:     4,
	RoleAdmin:     3,
	RoleModerator: 2,
	RoleMember:    1,
}

// AtLeast reports whether r outranks or equals other.
func (r ChannelRole) AtLeast(other ChannelRole) bool {
	return roleRank[r] >= roleRank[other]
}

type ChannelCategory struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Slug      string    `gorm:"size:100;uniqueIndex;not null" json:"slug"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (c *ChannelCategory) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

type Channel struct {
	ID          uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string      `gorm:"size:100;not null" json:"name"`
	Slug        string      `gorm:"size:120;uniqueIndex;not null" json:"slug"`
	Type        ChannelType `gorm:"size:16;not null;default:'PUBLIC'" json:"type"`
	Topic       *string     `gorm:"size:255" json:"topic,omitempty"`
	Description *string     `gorm:"type:text" json:"description,omitempty"`
	CategoryID  *uuid.UUID  `gorm:"type:uuid" json:"category_id,omitempty"`
	Category    *ChannelCategory `gorm:"foreignKey:CategoryID" json:"category,omitempty"`

	// DMKey is the synthetic identity of a DM pairing: the sorted user id
	// pair. The unique index is what makes createDM idempotent.
	DMKey *string `gorm:"size:80;uniqueIndex" json:"-"`

	IsArchived bool      `gorm:"default:false" json:"is_archived"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Members []ChannelMember `gorm:"foreignKey:ChannelID" json:"members,omitempty"`
}

func (c *Channel) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// DMKeyFor derives the deterministic DM key for an unordered user pair.
func DMKeyFor(a, b uuid.UUID) string {
	if b.String() < a.String() {
		a, b = b, a
	}
	return fmt.Sprintf("%s:%s", a, b)
}

type NotifyPref string

const (
	NotifyAll      NotifyPref = "ALL"
	NotifyMentions NotifyPref = "MENTIONS"
	NotifyNone     NotifyPref = "NONE"
)

type ChannelMember struct {
	ChannelID uuid.UUID `gorm:"type:uuid;primaryKey" json:"channel_id"`
	Channel   *Channel  `gorm:"foreignKey:ChannelID;constraint:OnDelete:CASCADE" json:"-"`
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`

	Role              ChannelRole `gorm:"size:16;not null;default:'MEMBER'" json:"role"`
	NotifyPref        NotifyPref  `gorm:"size:16;not null;default:'ALL'" json:"notify_pref"`
	LastReadMessageID *uuid.UUID  `gorm:"type:uuid" json:"last_read_message_id,omitempty"`
	MutedUntil        *time.Time  `json:"muted_until,omitempty"`
	JoinedAt          time.Time   `gorm:"autoCreateTime" json:"joined_at"`
}

type InviteStatus string

const (
	InvitePending  InviteStatus = "PENDING"
	InviteAccepted InviteStatus = "ACCEPTED"
	InviteDeclined InviteStatus = "DECLINED"
)

type ChannelInvite struct {
	ID        uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	ChannelID uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_invite_once,priority:1" json:"channel_id"`
	Channel   *Channel     `gorm:"foreignKey:ChannelID;constraint:OnDelete:CASCADE" json:"-"`
	InviteeID uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_invite_once,priority:2" json:"invitee_id"`
	InviterID uuid.UUID    `gorm:"type:uuid;not null" json:"inviter_id"`
	Status    InviteStatus `gorm:"size:16;not null;default:'PENDING'" json:"status"`
	CreatedAt time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

func (i *ChannelInvite) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
