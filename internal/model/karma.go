package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	KarmaActionDailyUpdate = "daily_update"
	KarmaActionHelpful     = "helpful_marked"
	KarmaActionStreak      = "streak_milestone"
	KarmaActionPartnership = "partnership_accepted"
)

// KarmaPoints maps an action to the points it is worth.
var KarmaPoints = map[string]int{
	KarmaActionDailyUpdate: 2,
	KarmaActionHelpful:     5,
	KarmaActionStreak:      10,
	KarmaActionPartnership: 15,
}

type KarmaLog struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      uuid.UUID  `gorm:"type:uuid;index:idx_karma_user_date,priority:1;not null" json:"user_id"`
	User        User       `gorm:"foreignKey:UserID" json:"-"`
	ActionType  string     `gorm:"size:50;not null;uniqueIndex:idx_karma_unique_award,priority:2" json:"action_type"`
	Points      int        `gorm:"not null" json:"points"`
	ReferenceID string     `gorm:"size:64;uniqueIndex:idx_karma_unique_award,priority:3" json:"reference_id"`
	ActorID     *uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_karma_unique_award,priority:1" json:"actor_id"`
	CreatedAt   time.Time  `gorm:"index:idx_karma_user_date,priority:2" json:"created_at"`
}

// idx_karma_unique_award on (actor_id, action_type, reference_id) prevents
// the same actor awarding the same action on the same entity twice.

type KarmaStats struct {
	UserID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	User              User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user"`
	TotalScoreAllTime int       `gorm:"default:0" json:"total_score_all_time"`
	TotalScoreMonthly int       `gorm:"default:0" json:"total_score_monthly"`
	TotalScoreWeekly  int       `gorm:"default:0" json:"total_score_weekly"`
	LastUpdatedAt     time.Time `gorm:"autoUpdateTime" json:"last_updated_at"`
}

// HelpfulMark is the one-shot guard for "mark helpful" on a comment.
type HelpfulMark struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CommentID string    `gorm:"size:64;not null;uniqueIndex:idx_helpful_once,priority:1" json:"comment_id"`
	MarkerID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_helpful_once,priority:2" json:"marker_id"`
	AuthorID  uuid.UUID `gorm:"type:uuid;not null" json:"author_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

var karmaLevels = []struct {
	Threshold int
	Name      string
}{
	{0, "Newcomer"},
	{50, "Builder"},
	{200, "Shipper"},
	{500, "Founder"},
	{1500, "Legend"},
}

// KarmaLevel returns the level name for an all-time point total.
func KarmaLevel(points int) string {
	level := karmaLevels[0].Name
	for _, l := range karmaLevels {
		if points >= l.Threshold {
			level = l.Name
		}
	}
	return level
}
