// models/achievement.go
package models

import "time"

// Achievement categories
const (
	CategoryConsistency = "consistency"
	CategoryVolume      = "volume"
	CategoryAccuracy    = "accuracy"
	CategoryReading     = "reading"
	CategoryDiversity   = "diversity"
	CategorySchedule    = "schedule"
	CategoryGoals       = "goals"
	CategoryMilestones  = "milestones"
)

// AchievementLevel is one of the three escalating tiers of an achievement.
// Requirement is the numeric threshold computed progress must reach.
type AchievementLevel struct {
	Level       int     `json:"level"` // 1..3
	Requirement float64 `json:"requirement"`
	Label       string  `json:"label"`
	XPReward    int     `json:"xp_reward"`
}

// Achievement is a catalog entry. The catalog is compiled into the binary
// and never mutated at runtime, so this is not a gorm model.
type Achievement struct {
	ID          string             `json:"id"`
	Category    string             `json:"category"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Icon        string             `json:"icon"`
	Color       string             `json:"color"`
	Levels      []AchievementLevel `json:"levels"` // always 3, ordered by Level
}

// UserAchievementRecord is the persisted unlock state for one user on one
// achievement level. A row exists only once the level has been reached;
// locked-but-in-progress levels are never materialized.
//
// UnlockedAt and ClaimedAt are one-way: once set they are never cleared by a
// later evaluation pass, even if recomputed progress regresses.
type UserAchievementRecord struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	UserID        uint       `gorm:"not null;uniqueIndex:idx_record_user_ach_level" json:"user_id"`
	AchievementID string     `gorm:"not null;size:50;uniqueIndex:idx_record_user_ach_level" json:"achievement_id"`
	Level         int        `gorm:"not null;uniqueIndex:idx_record_user_ach_level" json:"level"`
	Progress      float64    `gorm:"default:0" json:"progress"`
	UnlockedAt    *time.Time `json:"unlocked_at"`
	ClaimedAt     *time.Time `json:"claimed_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StreakBonusFlag marks a 7-day streak multiple that has already been
// rewarded, so re-crossing the same multiple cannot grant it twice.
// Flags are pruned after 30 days.
type StreakBonusFlag struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_bonus_user_multiple" json:"user_id"`
	Multiple  int       `gorm:"not null;uniqueIndex:idx_bonus_user_multiple" json:"multiple"`
	AwardedAt time.Time `json:"awarded_at"`
}

func (UserAchievementRecord) TableName() string {
	return "user_achievement_records"
}

func (StreakBonusFlag) TableName() string {
	return "streak_bonus_flags"
}
