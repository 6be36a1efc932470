// models/user.go
package models

import (
	"time"
)

type User struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	Username    string  `gorm:"uniqueIndex;not null" json:"username"`
	Email       *string `gorm:"uniqueIndex" json:"email,omitempty"`
	Password    string  `gorm:"not null" json:"-"`
	DisplayName string  `json:"display_name"`
	IsGuest     bool    `gorm:"default:false" json:"is_guest"`

	// Study settings consumed by the achievement engine
	DailyGoalMinutes int        `gorm:"default:0" json:"daily_goal_minutes"`
	CycleStartedAt   *time.Time `json:"cycle_started_at"`

	// Timestamps
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastLogin    time.Time  `json:"last_login"`
	LastActivity *time.Time `json:"last_activity,omitempty"`

	// Relationships
	Sessions []StudySession          `gorm:"foreignKey:UserID" json:"sessions,omitempty"`
	Records  []UserAchievementRecord `gorm:"foreignKey:UserID" json:"records,omitempty"`
}
