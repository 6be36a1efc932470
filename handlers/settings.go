// handlers/settings.go - Study settings (daily goal, cycle start)
package handlers

import (
	"time"

	"studytrack/database"

	"github.com/gofiber/fiber/v2"
)

type SettingsRequest struct {
	DailyGoalMinutes *int    `json:"daily_goal_minutes"`
	CycleStartedAt   *string `json:"cycle_started_at"` // YYYY-MM-DD, empty string clears it
}

// GetSettings returns the user's study settings
func GetSettings(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":            true,
		"daily_goal_minutes": user.DailyGoalMinutes,
		"cycle_started_at":   user.CycleStartedAt,
	})
}

// UpdateSettings changes the daily goal or cycle start and re-runs the
// achievement pass, since both feed progress formulas.
func UpdateSettings(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	var req SettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid request body"})
	}

	updates := map[string]interface{}{}

	if req.DailyGoalMinutes != nil {
		goal := *req.DailyGoalMinutes
		if goal < 0 {
			goal = 0
		}
		updates["daily_goal_minutes"] = goal
		user.DailyGoalMinutes = goal
	}

	if req.CycleStartedAt != nil {
		if *req.CycleStartedAt == "" {
			updates["cycle_started_at"] = nil
			user.CycleStartedAt = nil
		} else {
			start, err := time.Parse("2006-01-02", *req.CycleStartedAt)
			if err != nil {
				return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid cycle start, expected YYYY-MM-DD"})
			}
			updates["cycle_started_at"] = start
			user.CycleStartedAt = &start
		}
	}

	db := database.GetDB()
	if len(updates) > 0 {
		if err := db.Model(&user).Updates(updates).Error; err != nil {
			return c.Status(500).JSON(fiber.Map{"success": false, "error": "Failed to save settings"})
		}
		reevaluate(db, user)
	}

	return c.JSON(fiber.Map{
		"success":            true,
		"daily_goal_minutes": user.DailyGoalMinutes,
		"cycle_started_at":   user.CycleStartedAt,
	})
}
