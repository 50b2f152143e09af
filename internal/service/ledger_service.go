package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"strconv"

	"builders.to/backend/internal/dto"
	"builders.to/backend/internal/model"
	"builders.to/backend/internal/repository"
	"builders.to/backend/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// TokensPerDollar fixes the exchange rate: 1 token == 1 cent.
const TokensPerDollar = 100

// CentsToTokens floors so a partial cent never over-credits.
func CentsToTokens(cents int64) int64 {
	if cents < 0 {
		return 0
	}
	return cents * TokensPerDollar / 100
}

func TokensToCents(tokens int64) int64 {
	return tokens * 100 / TokensPerDollar
}

func TokensToDollars(tokens int64) float64 {
	return float64(tokens) / TokensPerDollar
}

type LedgerService interface {
	Credit(ctx context.Context, userID uuid.UUID, amount int64, txType model.TransactionType, description string, metadata map[string]interface{}) (*model.LedgerEntry, error)
	Debit(ctx context.Context, userID uuid.UUID, amount int64, txType model.TransactionType, description string, metadata map[string]interface{}) (*model.LedgerEntry, error)
	GetBalance(ctx context.Context, userID uuid.UUID) (int64, error)
	GetTransactionHistory(ctx context.Context, userID uuid.UUID, limit int, cursor string, txType *model.TransactionType) (*dto.TransactionHistoryResponse, error)
}

type ledgerService struct {
	ledgerRepo          repository.LedgerRepository
	userRepo            repository.UserRepository
	notificationService NotificationService
}

func NewLedgerService(ledgerRepo repository.LedgerRepository, userRepo repository.UserRepository, notificationService NotificationService) LedgerService {
	return &ledgerService{
		ledgerRepo:          ledgerRepo,
		userRepo:            userRepo,
		notificationService: notificationService,
	}
}

func (s *ledgerService) Credit(ctx context.Context, userID uuid.UUID, amount int64, txType model.TransactionType, description string, metadata map[string]interface{}) (*model.LedgerEntry, error) {
	entry, err := s.buildEntry(ctx, userID, amount, txType, description, metadata)
	if err != nil {
		return nil, err
	}

	if err := s.ledgerRepo.Credit(ctx, entry); err != nil {
		return nil, err
	}

	// Dispatch is best-effort; a failed notification never fails the credit.
	if s.notificationService != nil {
		notifErr := s.notificationService.CreateNotification(ctx, &model.Notification{
			UserID:  userID,
			Type:    model.NotificationTokensCredited,
			Title:   "Tokens received",
			Message: fmt.Sprintf("You received %d tokens: %s", amount, description),
		})
		if notifErr != nil {
			log.Printf("failed to notify user %s of credit: %v", userID, notifErr)
		}
	}

	return entry, nil
}

func (s *ledgerService) Debit(ctx context.Context, userID uuid.UUID, amount int64, txType model.TransactionType, description string, metadata map[string]interface{}) (*model.LedgerEntry, error) {
	entry, err := s.buildEntry(ctx, userID, amount, txType, description, metadata)
	if err != nil {
		return nil, err
	}
	entry.Amount = -amount

	if err := s.ledgerRepo.Debit(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *ledgerService) buildEntry(ctx context.Context, userID uuid.UUID, amount int64, txType model.TransactionType, description string, metadata map[string]interface{}) (*model.LedgerEntry, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", apperror.ErrInvalidInput)
	}
	if _, err := s.userRepo.FindByID(ctx, userID); err != nil {
		return nil, err
	}

	entry := &model.LedgerEntry{
		UserID:      userID,
		Amount:      amount,
		Type:        txType,
		Description: description,
	}
	if metadata != nil {
		raw, err := json.Marshal(metadata)
		if err != nil {
			return nil, fmt.Errorf("%w: metadata is not serializable", apperror.ErrInvalidInput)
		}
		entry.Metadata = datatypes.JSON(raw)
	}
	return entry, nil
}

func (s *ledgerService) GetBalance(ctx context.Context, userID uuid.UUID) (int64, error) {
	if _, err := s.userRepo.FindByID(ctx, userID); err != nil {
		return 0, err
	}
	return s.ledgerRepo.GetBalance(ctx, userID)
}

func (s *ledgerService) GetTransactionHistory(ctx context.Context, userID uuid.UUID, limit int, cursor string, txType *model.TransactionType) (*dto.TransactionHistoryResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	beforeID, err := decodeCursor(cursor)
	if err != nil {
		return nil, fmt.Errorf("%w: bad cursor", apperror.ErrInvalidInput)
	}

	// Fetch one extra row to learn whether another page exists.
	entries, err := s.ledgerRepo.ListEntries(ctx, userID, limit+1, beforeID, txType)
	if err != nil {
		return nil, err
	}

	hasMore := len(entries) > limit
	if hasMore {
		entries = entries[:limit]
	}

	resp := &dto.TransactionHistoryResponse{
		Data: make([]dto.LedgerEntryResponse, 0, len(entries)),
		Meta: dto.PaginationMeta{HasMore: hasMore},
	}
	for _, e := range entries {
		resp.Data = append(resp.Data, dto.LedgerEntryResponse{
			ID:          e.ID,
			Amount:      e.Amount,
			Type:        e.Type,
			Description: e.Description,
			CreatedAt:   e.CreatedAt,
		})
	}
	if hasMore && len(entries) > 0 {
		resp.Meta.NextCursor = encodeCursor(entries[len(entries)-1].ID)
	}
	return resp, nil
}

// The cursor is an opaque entry id, not an offset, so pages stay stable
// under concurrent inserts.
func encodeCursor(id uint) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatUint(uint64(id), 10)))
}

func decodeCursor(cursor string) (uint, error) {
	if cursor == "" {
		return 0, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
