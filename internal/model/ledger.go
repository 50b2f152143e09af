package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type TransactionType string

const (
	TxPurchase          TransactionType = "PURCHASE"
	TxReferralReward    TransactionType = "REFERRAL_REWARD"
	TxKarmaPayout       TransactionType = "KARMA_PAYOUT"
	TxServiceRedemption TransactionType = "SERVICE_REDEMPTION"
	TxGift              TransactionType = "GIFT"
	TxAdRedemption      TransactionType = "AD_REDEMPTION"
	TxRefund            TransactionType = "REFUND"
)

// AccountBalance is a cached mirror of the ledger sum. It is only ever
// touched inside the same transaction that appends the matching entry.
type AccountBalance struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Balance   int64     `gorm:"not null;default:0;check:balance >= 0" json:"balance"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// LedgerEntry is append-only. Rows are never updated or deleted; the uint
// primary key doubles as the history cursor.
type LedgerEntry struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	UserID      uuid.UUID       `gorm:"type:uuid;index;not null" json:"user_id"`
	User        User            `gorm:"foreignKey:UserID" json:"-"`
	Amount      int64           `gorm:"not null" json:"amount"` // signed: credits > 0, debits < 0
	Type        TransactionType `gorm:"size:32;index;not null" json:"type"`
	Description string          `gorm:"type:text" json:"description"`
	Metadata    datatypes.JSON  `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt   time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
}
