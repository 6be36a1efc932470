// handlers/progression.go
package handlers

import (
	"log"
	"time"

	"studytrack/database"
	"studytrack/models"
	"studytrack/services"

	"github.com/gofiber/fiber/v2"
)

// GetProgression returns the derived XP state: total XP, rank, tier and
// progress toward the next boundary, plus the current streak.
func GetProgression(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	db := database.GetDB()
	var sessions []models.StudySession
	if err := db.Where("user_id = ?", user.ID).Find(&sessions).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"success": false, "error": "Failed to load sessions"})
	}

	bonusXP, err := ledger.GrantedTotal(user.ID)
	if err != nil {
		log.Printf("Failed to sum XP grants for user %d: %v", user.ID, err)
		bonusXP = 0
	}

	state := services.ComputeXPState(sessions, bonusXP)
	streak := services.ComputeStreak(sessions, time.Now().UTC())

	return c.JSON(fiber.Map{
		"success":      true,
		"total_xp":     state.TotalXP,
		"rank":         state.Rank,
		"tier":         state.Tier,
		"progress_pct": state.ProgressPct,
		"xp_to_next":   state.XPToNext,
		"granted_xp":   bonusXP,
		"streak":       streak,
	})
}

// GetXPHistory returns the ledger entries, newest first
func GetXPHistory(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	db := database.GetDB()
	var grants []models.XPTransaction
	if err := db.Where("user_id = ?", user.ID).
		Order("created_at DESC").
		Limit(100).
		Find(&grants).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"success": false, "error": "Failed to load XP history"})
	}

	return c.JSON(fiber.Map{"success": true, "grants": grants})
}
