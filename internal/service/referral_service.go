package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"builders.to/backend/internal/model"
	"builders.to/backend/internal/repository"
	"builders.to/backend/pkg/apperror"
	"github.com/google/uuid"
)

const (
	ReferrerReward = 25
	RefereeReward  = 10

	referralCodeLength   = 8
	referralCodeAttempts = 5
)

type ReferralService interface {
	// GetOrCreateCode returns the user's referral code, generating one
	// lazily on first request.
	GetOrCreateCode(ctx context.Context, userID uuid.UUID) (string, error)
	// ApplyCode is one-shot per referee: it sets the immutable back-reference
	// and pays out both sides exactly once.
	ApplyCode(ctx context.Context, refereeID uuid.UUID, code string) error
}

type referralService struct {
	userRepo repository.UserRepository
	ledger   LedgerService
}

func NewReferralService(userRepo repository.UserRepository, ledger LedgerService) ReferralService {
	return &referralService{
		userRepo: userRepo,
		ledger:   ledger,
	}
}

func (s *referralService) GetOrCreateCode(ctx context.Context, userID uuid.UUID) (string, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if user.ReferralCode != nil {
		return *user.ReferralCode, nil
	}

	for i := 0; i < referralCodeAttempts; i++ {
		code := randomCode(referralCodeLength)
		switch err := s.userRepo.SetReferralCodeOnce(ctx, userID, code); {
		case err == nil:
			return code, nil
		case errors.Is(err, apperror.ErrAlreadyProcessed):
			// A concurrent request won; return the code it persisted.
			return s.persistedCode(ctx, userID)
		case errors.Is(err, apperror.ErrConflict):
			continue // code taken, try another
		default:
			return "", err
		}
	}

	// All attempts collided: fall back to a timestamp-derived code, which
	// is unique enough to never collide in practice.
	code := fmt.Sprintf("%s%d", randomCode(4), time.Now().UnixNano()%100000)
	switch err := s.userRepo.SetReferralCodeOnce(ctx, userID, code); {
	case err == nil:
		return code, nil
	case errors.Is(err, apperror.ErrAlreadyProcessed):
		return s.persistedCode(ctx, userID)
	default:
		return "", err
	}
}

func (s *referralService) persistedCode(ctx context.Context, userID uuid.UUID) (string, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if user.ReferralCode == nil {
		return "", fmt.Errorf("%w: referral code missing after write", apperror.ErrConflict)
	}
	return *user.ReferralCode, nil
}

func (s *referralService) ApplyCode(ctx context.Context, refereeID uuid.UUID, code string) error {
	referrer, err := s.userRepo.FindByReferralCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return err
	}
	if referrer.ID == refereeID {
		return fmt.Errorf("%w: cannot apply your own referral code", apperror.ErrInvalidInput)
	}
	if _, err := s.userRepo.FindByID(ctx, refereeID); err != nil {
		return err
	}

	// The conditional update is the idempotency guard; a second application
	// finds referred_by already set and fails before any payout.
	if err := s.userRepo.SetReferredByOnce(ctx, refereeID, referrer.ID); err != nil {
		return err
	}

	// Two independent credits. A failure here is logged rather than rolled
	// back: the back-reference is the durable fact of the referral.
	if _, err := s.ledger.Credit(ctx, referrer.ID, ReferrerReward, model.TxReferralReward,
		"Referral reward", map[string]interface{}{"referee_id": refereeID.String()}); err != nil {
		log.Printf("referral: failed to credit referrer %s: %v", referrer.ID, err)
	}
	if _, err := s.ledger.Credit(ctx, refereeID, RefereeReward, model.TxReferralReward,
		"Welcome reward for joining via referral", map[string]interface{}{"referrer_id": referrer.ID.String()}); err != nil {
		log.Printf("referral: failed to credit referee %s: %v", refereeID, err)
	}

	return nil
}

func randomCode(n int) string {
	buf := make([]byte, (n+1)/2)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())[:n]
	}
	return strings.ToUpper(hex.EncodeToString(buf)[:n])
}
