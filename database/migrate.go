// database/migrate.go - Database Migration Runner
package database

import (
	"log"
	"studytrack/models"
)

// RunMigrations runs all database migrations
func RunMigrations() {
	db := GetDB()
	log.Println("🔄 Running database migrations...")

	if err := db.AutoMigrate(
		&models.User{},
		&models.StudySession{},
		&models.UserStats{},
		&models.UserAchievementRecord{},
		&models.StreakBonusFlag{},
		&models.XPTransaction{},
	); err != nil {
		log.Fatalf("❌ Failed to run migrations: %v", err)
	}

	createIndexes()

	log.Println("✅ All migrations completed successfully")
}

// createIndexes creates indexes AutoMigrate does not cover
func createIndexes() {
	db := GetDB()

	// Session lookups are always per user, usually ordered by day
	db.Exec("CREATE INDEX IF NOT EXISTS idx_sessions_user_date ON study_sessions(user_id, date)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_sessions_user_subject ON study_sessions(user_id, subject_id)")

	// Ledger sums per user
	db.Exec("CREATE INDEX IF NOT EXISTS idx_xp_transactions_user ON xp_transactions(user_id)")

	// Bonus flag pruning by age
	db.Exec("CREATE INDEX IF NOT EXISTS idx_bonus_flags_awarded ON streak_bonus_flags(awarded_at)")
}
