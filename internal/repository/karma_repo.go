package repository

import (
	"context"
	"errors"
	"time"

	"builders.to/backend/internal/model"
	"builders.to/backend/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type KarmaRepository interface {
	// CreateLog inserts an award row; the composite unique index on
	// (actor, action, reference) turns a duplicate into ErrAlreadyProcessed.
	CreateLog(ctx context.Context, log *model.KarmaLog) error
	UpsertStats(ctx context.Context, userID uuid.UUID, points int) error
	GetStats(ctx context.Context, userID uuid.UUID) (*model.KarmaStats, error)
	// CreateHelpfulMark is the (comment, marker) one-shot guard.
	CreateHelpfulMark(ctx context.Context, mark *model.HelpfulMark) error
	GetTopUsers(ctx context.Context, limit int, timeframe string) ([]model.KarmaStats, error)
	GetWeeklyScores(ctx context.Context, userIDs []uuid.UUID, since time.Time) (map[uuid.UUID]int, error)
}

type karmaRepository struct {
	db *gorm.DB
}

func NewKarmaRepository(db *gorm.DB) KarmaRepository {
	return &karmaRepository{db: db}
}

func (r *karmaRepository) CreateLog(ctx context.Context, log *model.KarmaLog) error {
	err := r.db.WithContext(ctx).Create(log).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperror.ErrAlreadyProcessed
	}
	return err
}

func (r *karmaRepository) UpsertStats(ctx context.Context, userID uuid.UUID, points int) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"total_score_all_time": gorm.Expr("karma_stats.total_score_all_time + ?", points),
			"total_score_monthly":  gorm.Expr("karma_stats.total_score_monthly + ?", points),
			"total_score_weekly":   gorm.Expr("karma_stats.total_score_weekly + ?", points),
			"last_updated_at":      gorm.Expr("CURRENT_TIMESTAMP"),
		}),
	}).Create(&model.KarmaStats{
		UserID:            userID,
		TotalScoreAllTime: points,
		TotalScoreMonthly: points,
		TotalScoreWeekly:  points,
	}).Error
}

func (r *karmaRepository) GetStats(ctx context.Context, userID uuid.UUID) (*model.KarmaStats, error) {
	var stats model.KarmaStats
	err := r.db.WithContext(ctx).First(&stats, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &model.KarmaStats{UserID: userID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (r *karmaRepository) CreateHelpfulMark(ctx context.Context, mark *model.HelpfulMark) error {
	err := r.db.WithContext(ctx).Create(mark).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperror.ErrAlreadyProcessed
	}
	return err
}

func (r *karmaRepository) GetTopUsers(ctx context.Context, limit int, timeframe string) ([]model.KarmaStats, error) {
	column := "total_score_all_time"
	switch timeframe {
	case "weekly":
		column = "total_score_weekly"
	case "monthly":
		column = "total_score_monthly"
	}

	var stats []model.KarmaStats
	err := r.db.WithContext(ctx).
		Preload("User").
		Order(column + " DESC").
		Limit(limit).
		Find(&stats).Error
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *karmaRepository) GetWeeklyScores(ctx context.Context, userIDs []uuid.UUID, since time.Time) (map[uuid.UUID]int, error) {
	type weeklyResult struct {
		UserID uuid.UUID
		Score  int
	}
	var results []weeklyResult
	err := r.db.WithContext(ctx).
		Model(&model.KarmaLog{}).
		Select("user_id, SUM(points) as score").
		Where("user_id IN ? AND created_at >= ?", userIDs, since).
		Group("user_id").
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	scores := make(map[uuid.UUID]int, len(results))
	for _, res := range results {
		scores[res.UserID] = res.Score
	}
	return scores, nil
}
