// services/ledger.go - XP ledger backed by PostgreSQL
package services

import (
	"fmt"

	"gorm.io/gorm"

	"studytrack/models"
)

// XPLedger is the external XP account. The engine never mutates XP storage
// directly, only grants through this interface.
type XPLedger interface {
	Grant(userID uint, amount int, reason, icon string, isBonus bool) error
}

// GormLedger appends XP transactions to the database.
type GormLedger struct {
	db *gorm.DB
}

func NewGormLedger(db *gorm.DB) *GormLedger {
	return &GormLedger{db: db}
}

func (l *GormLedger) Grant(userID uint, amount int, reason, icon string, isBonus bool) error {
	if amount <= 0 {
		return fmt.Errorf("grant amount must be positive, got %d", amount)
	}
	tx := models.XPTransaction{
		UserID:  userID,
		Amount:  amount,
		Reason:  reason,
		Icon:    icon,
		IsBonus: isBonus,
	}
	if err := l.db.Create(&tx).Error; err != nil {
		return fmt.Errorf("record xp grant: %w", err)
	}
	return nil
}

// GrantedTotal sums everything the ledger has paid out to a user.
func (l *GormLedger) GrantedTotal(userID uint) (int, error) {
	var total int64
	err := l.db.Model(&models.XPTransaction{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("sum xp grants: %w", err)
	}
	return int(total), nil
}
