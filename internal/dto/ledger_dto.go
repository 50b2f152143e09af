package dto

import (
	"time"

	"builders.to/backend/internal/model"
	"github.com/google/uuid"
)

type CreditRequest struct {
	UserID      uuid.UUID              `json:"user_id" binding:"required"`
	Amount      int64                  `json:"amount" binding:"required,gt=0"`
	Type        model.TransactionType  `json:"type" binding:"required,oneof=PURCHASE REFERRAL_REWARD KARMA_PAYOUT SERVICE_REDEMPTION GIFT AD_REDEMPTION REFUND"`
	Description string                 `json:"description" binding:"required,max=500"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

type DebitRequest struct {
	Amount      int64                  `json:"amount" binding:"required,gt=0"`
	Type        model.TransactionType  `json:"type" binding:"required,oneof=PURCHASE REFERRAL_REWARD KARMA_PAYOUT SERVICE_REDEMPTION GIFT AD_REDEMPTION REFUND"`
	Description string                 `json:"description" binding:"required,max=500"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

type BalanceResponse struct {
	UserID  uuid.UUID `json:"user_id"`
	Balance int64     `json:"balance"`
}

type LedgerEntryResponse struct {
	ID          uint                  `json:"id"`
	Amount      int64                 `json:"amount"`
	Type        model.TransactionType `json:"type"`
	Description string                `json:"description"`
	CreatedAt   time.Time             `json:"created_at"`
}

type TransactionHistoryResponse struct {
	Data []LedgerEntryResponse `json:"data"`
	Meta PaginationMeta        `json:"meta"`
}

type ApplyReferralRequest struct {
	Code string `json:"code" binding:"required,min=4,max=20"`
}
