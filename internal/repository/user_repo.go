package repository

import (
	"context"
	"errors"

	"builders.to/backend/internal/model"
	"builders.to/backend/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByReferralCode(ctx context.Context, code string) (*model.User, error)
	// SetReferralCodeOnce writes the code only while none is set. Returns
	// ErrAlreadyProcessed when a concurrent request already persisted one,
	// and ErrConflict when the code itself is taken by another user.
	SetReferralCodeOnce(ctx context.Context, userID uuid.UUID, code string) error
	// SetReferredByOnce writes referred_by only if it is still null.
	// Returns ErrAlreadyProcessed when the referee already has a referrer.
	SetReferredByOnce(ctx context.Context, refereeID, referrerID uuid.UUID) error
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).First(&user, "username = ?", username).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByReferralCode(ctx context.Context, code string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).First(&user, "referral_code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) SetReferralCodeOnce(ctx context.Context, userID uuid.UUID, code string) error {
	res := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ? AND referral_code IS NULL", userID).
		Update("referral_code", code)
	if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
		return apperror.ErrConflict
	}
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperror.ErrAlreadyProcessed
	}
	return nil
}

func (r *userRepository) SetReferredByOnce(ctx context.Context, refereeID, referrerID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ? AND referred_by_id IS NULL", refereeID).
		Update("referred_by_id", referrerID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperror.ErrAlreadyProcessed
	}
	return nil
}
