// models/session.go
package models

import "time"

// Session types
const (
	SessionTheory    = "teoria"
	SessionQuestions = "questoes"
	SessionReview    = "revisao"
)

// StudySession is one logged study block. Date is the calendar day the user
// studied; CreatedAt carries the clock time used by schedule achievements.
type StudySession struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	UserID    uint   `gorm:"not null;index" json:"user_id"`
	SubjectID string `gorm:"size:50;index" json:"subject_id"`
	Type      string `gorm:"size:20" json:"type"` // teoria, questoes, revisao

	Hours   int `gorm:"default:0" json:"hours"`
	Minutes int `gorm:"default:0" json:"minutes"`
	Seconds int `gorm:"default:0" json:"seconds"`

	Correct int `gorm:"default:0" json:"correct"`
	Wrong   int `gorm:"default:0" json:"wrong"`
	Blank   int `gorm:"default:0" json:"blank"`

	Pages int `gorm:"default:0" json:"pages"`

	Date      time.Time `gorm:"not null;index" json:"date"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserStats is the server-maintained running-total row, one per user.
// It is authoritative over summing the session list, which may be paginated.
type UserStats struct {
	UserID         uint      `gorm:"primaryKey" json:"user_id"`
	TotalMinutes   float64   `gorm:"default:0" json:"total_minutes"`
	TotalCorrect   int64     `gorm:"default:0" json:"total_correct"`
	TotalQuestions int64     `gorm:"default:0" json:"total_questions"`
	TotalPages     int64     `gorm:"default:0" json:"total_pages"` // theory pages only
	TotalLogs      int64     `gorm:"default:0" json:"total_logs"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// XPTransaction is one entry in the XP ledger: a claimed achievement reward
// or a streak bonus. Session-derived XP is computed, never stored.
type XPTransaction struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	UserID  uint   `gorm:"not null;index" json:"user_id"`
	Amount  int    `gorm:"not null" json:"amount"`
	Reason  string `gorm:"size:200" json:"reason"`
	Icon    string `gorm:"size:50" json:"icon"`
	IsBonus bool   `gorm:"default:false" json:"is_bonus"`

	CreatedAt time.Time `json:"created_at"`
}

func (StudySession) TableName() string {
	return "study_sessions"
}

func (UserStats) TableName() string {
	return "user_stats"
}

func (XPTransaction) TableName() string {
	return "xp_transactions"
}
