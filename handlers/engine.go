// handlers/engine.go - Shared wiring between HTTP handlers and the engine
package handlers

import (
	"time"

	"studytrack/database"
	"studytrack/middleware"
	"studytrack/models"
	"studytrack/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

var (
	engine *services.Engine
	ledger *services.GormLedger
)

// InitEngineHandlers injects the achievement engine and ledger the handlers
// delegate to.
func InitEngineHandlers(e *services.Engine, l *services.GormLedger) {
	engine = e
	ledger = l
}

// currentUser resolves the authenticated user row.
func currentUser(c *fiber.Ctx) (models.User, error) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return models.User{}, err
	}

	var user models.User
	if err := database.GetDB().First(&user, userID).Error; err != nil {
		return models.User{}, fiber.NewError(404, "User not found")
	}
	return user, nil
}

// progressInputFor assembles everything the engine reads for one user:
// the session log, the aggregate stats row (when present), the computed
// streak, and the user's study settings.
func progressInputFor(db *gorm.DB, user models.User) (services.ProgressInput, error) {
	var sessions []models.StudySession
	if err := db.Where("user_id = ?", user.ID).Order("date, id").Find(&sessions).Error; err != nil {
		return services.ProgressInput{}, err
	}

	var stats models.UserStats
	statsPtr := &stats
	if err := db.Where("user_id = ?", user.ID).First(&stats).Error; err != nil {
		statsPtr = nil
	}

	now := time.Now().UTC()
	return services.ProgressInput{
		Sessions:         sessions,
		Stats:            statsPtr,
		Streak:           services.ComputeStreak(sessions, now),
		DailyGoalMinutes: user.DailyGoalMinutes,
		CycleStartedAt:   user.CycleStartedAt,
		AccountCreatedAt: user.CreatedAt,
		Now:              now,
	}, nil
}

// reevaluate runs an engine pass after any input change. Failures to build
// the input are logged upstream; the engine itself never returns errors.
func reevaluate(db *gorm.DB, user models.User) {
	in, err := progressInputFor(db, user)
	if err != nil {
		return
	}
	engine.Evaluate(user.ID, in)
}
