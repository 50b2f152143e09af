package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"builders.to/backend/internal/dto"
	"builders.to/backend/internal/model"
	"builders.to/backend/internal/repository"
	"builders.to/backend/pkg/apperror"
	"github.com/google/uuid"
)

// HelpfulTokenBonus is the token payout that rides along with a helpful
// mark. Karma calls into the ledger; the ledger never calls back.
const HelpfulTokenBonus = 5

type KarmaService interface {
	AwardKarma(ctx context.Context, userID uuid.UUID, actorID *uuid.UUID, actionType, referenceID string) error
	MarkHelpful(ctx context.Context, commentID string, authorID, markerID uuid.UUID) error
	GetKarma(ctx context.Context, userID uuid.UUID) (*dto.KarmaResponse, error)
	GetLeaderboard(ctx context.Context, limit int, timeframe string) ([]dto.LeaderboardEntry, error)
}

type karmaService struct {
	karmaRepo repository.KarmaRepository
	userRepo  repository.UserRepository
	ledger    LedgerService
}

func NewKarmaService(karmaRepo repository.KarmaRepository, userRepo repository.UserRepository, ledger LedgerService) KarmaService {
	return &karmaService{
		karmaRepo: karmaRepo,
		userRepo:  userRepo,
		ledger:    ledger,
	}
}

func (s *karmaService) AwardKarma(ctx context.Context, userID uuid.UUID, actorID *uuid.UUID, actionType, referenceID string) error {
	points, ok := model.KarmaPoints[actionType]
	if !ok {
		return fmt.Errorf("%w: unknown karma action %q", apperror.ErrInvalidInput, actionType)
	}

	entry := &model.KarmaLog{
		UserID:      userID,
		ActionType:  actionType,
		Points:      points,
		ReferenceID: referenceID,
		ActorID:     actorID,
	}
	if err := s.karmaRepo.CreateLog(ctx, entry); err != nil {
		return err
	}

	return s.karmaRepo.UpsertStats(ctx, userID, points)
}

func (s *karmaService) MarkHelpful(ctx context.Context, commentID string, authorID, markerID uuid.UUID) error {
	if authorID == markerID {
		return fmt.Errorf("%w: cannot mark your own comment helpful", apperror.ErrInvalidInput)
	}
	if _, err := s.userRepo.FindByID(ctx, authorID); err != nil {
		return err
	}

	// The unique (comment, marker) row is the duplicate guard; a repeat
	// request fails here before any award is issued.
	mark := &model.HelpfulMark{
		CommentID: commentID,
		MarkerID:  markerID,
		AuthorID:  authorID,
	}
	if err := s.karmaRepo.CreateHelpfulMark(ctx, mark); err != nil {
		return err
	}

	if err := s.AwardKarma(ctx, authorID, &markerID, model.KarmaActionHelpful, commentID); err != nil {
		log.Printf("karma: helpful mark stored but award failed for %s: %v", authorID, err)
	}

	if _, err := s.ledger.Credit(ctx, authorID, HelpfulTokenBonus, model.TxKarmaPayout,
		"Helpful comment bonus", map[string]interface{}{"comment_id": commentID}); err != nil {
		log.Printf("karma: failed to pay helpful bonus to %s: %v", authorID, err)
	}

	return nil
}

func (s *karmaService) GetKarma(ctx context.Context, userID uuid.UUID) (*dto.KarmaResponse, error) {
	if _, err := s.userRepo.FindByID(ctx, userID); err != nil {
		return nil, err
	}

	stats, err := s.karmaRepo.GetStats(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &dto.KarmaResponse{
		UserID:            userID,
		TotalScoreAllTime: stats.TotalScoreAllTime,
		TotalScoreWeekly:  stats.TotalScoreWeekly,
		Level:             model.KarmaLevel(stats.TotalScoreAllTime),
	}, nil
}

func (s *karmaService) GetLeaderboard(ctx context.Context, limit int, timeframe string) ([]dto.LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	stats, err := s.karmaRepo.GetTopUsers(ctx, limit, timeframe)
	if err != nil {
		return nil, err
	}

	if timeframe == "weekly" && len(stats) > 0 {
		// Weekly totals in the stats table drift; recompute from the log.
		ids := make([]uuid.UUID, 0, len(stats))
		for _, st := range stats {
			ids = append(ids, st.UserID)
		}
		scores, err := s.karmaRepo.GetWeeklyScores(ctx, ids, time.Now().AddDate(0, 0, -7))
		if err == nil {
			for i := range stats {
				stats[i].TotalScoreWeekly = scores[stats[i].UserID]
			}
		}
	}

	entries := make([]dto.LeaderboardEntry, 0, len(stats))
	for _, st := range stats {
		score := st.TotalScoreAllTime
		if timeframe == "weekly" {
			score = st.TotalScoreWeekly
		} else if timeframe == "monthly" {
			score = st.TotalScoreMonthly
		}
		entries = append(entries, dto.LeaderboardEntry{
			UserID:   st.UserID,
			Username: st.User.Username,
			Score:    score,
			Level:    model.KarmaLevel(st.TotalScoreAllTime),
		})
	}
	return entries, nil
}
