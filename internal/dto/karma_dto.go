package dto

import "github.com/google/uuid"

type MarkHelpfulRequest struct {
	CommentID string    `json:"comment_id" binding:"required,max=64"`
	AuthorID  uuid.UUID `json:"author_id" binding:"required"`
}

type KarmaResponse struct {
	UserID            uuid.UUID `json:"user_id"`
	TotalScoreAllTime int       `json:"total_score_all_time"`
	TotalScoreWeekly  int       `json:"total_score_weekly"`
	Level             string    `json:"level"`
}

type LeaderboardEntry struct {
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	Score    int       `json:"score"`
	Level    string    `json:"level"`
}
