package repository

import (
	"context"

	"builders.to/backend/internal/model"
	"builders.to/backend/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LedgerRepository interface {
	// Credit appends a positive entry and bumps the cached balance in one
	// transaction. The balance row is created lazily on first credit.
	Credit(ctx context.Context, entry *model.LedgerEntry) error
	// Debit checks balance >= amount and decrements it in the same
	// conditional UPDATE, then appends the negative entry. Returns
	// ErrInsufficientBalance when the check fails; concurrent debits
	// serialize on the balance row's lock.
	Debit(ctx context.Context, entry *model.LedgerEntry) error
	GetBalance(ctx context.Context, userID uuid.UUID) (int64, error)
	ListEntries(ctx context.Context, userID uuid.UUID, limit int, beforeID uint, txType *model.TransactionType) ([]model.LedgerEntry, error)
}

type ledgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) Credit(ctx context.Context, entry *model.LedgerEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"balance":    gorm.Expr("account_balances.balance + ?", entry.Amount),
				"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
			}),
		}).Create(&model.AccountBalance{
			UserID:  entry.UserID,
			Balance: entry.Amount,
		}).Error
		if err != nil {
			return err
		}

		return tx.Create(entry).Error
	})
}

func (r *ledgerRepository) Debit(ctx context.Context, entry *model.LedgerEntry) error {
	amount := -entry.Amount // entry.Amount is negative for debits
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.AccountBalance{}).
			Where("user_id = ? AND balance >= ?", entry.UserID, amount).
			Update("balance", gorm.Expr("balance - ?", amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperror.ErrInsufficientBalance
		}

		return tx.Create(entry).Error
	})
}

func (r *ledgerRepository) GetBalance(ctx context.Context, userID uuid.UUID) (int64, error) {
	var balance model.AccountBalance
	err := r.db.WithContext(ctx).First(&balance, "user_id = ?", userID).Error
	if err == gorm.ErrRecordNotFound {
		// Never credited: balance is zero, no row yet.
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return balance.Balance, nil
}

func (r *ledgerRepository) ListEntries(ctx context.Context, userID uuid.UUID, limit int, beforeID uint, txType *model.TransactionType) ([]model.LedgerEntry, error) {
	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Limit(limit)

	if beforeID > 0 {
		query = query.Where("id < ?", beforeID)
	}
	if txType != nil {
		query = query.Where("type = ?", *txType)
	}

	var entries []model.LedgerEntry
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
