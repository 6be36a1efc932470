// handlers/achievements.go - Achievement views, claims and reset
package handlers

import (
	"errors"
	"strconv"

	"studytrack/database"
	"studytrack/services"

	"github.com/gofiber/fiber/v2"
)

// GetAchievements returns every achievement level with its current state.
// Locked levels carry live computed progress; unlocked ones come from
// storage.
func GetAchievements(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	db := database.GetDB()
	in, err := progressInputFor(db, user)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"success": false, "error": "Failed to load study data"})
	}

	snapshot := engine.Snapshot(user.ID, in)

	var unlocked, claimed int
	for _, a := range snapshot {
		for _, l := range a.Levels {
			if l.Unlocked {
				unlocked++
			}
			if l.Claimed {
				claimed++
			}
		}
	}

	return c.JSON(fiber.Map{
		"success":      true,
		"achievements": snapshot,
		"unlocked":     unlocked,
		"claimed":      claimed,
		"streak":       in.Streak,
	})
}

// ClaimAchievement grants the XP reward for an unlocked level, at most once.
// POST /api/achievements/:id/levels/:level/claim
func ClaimAchievement(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	achievementID := c.Params("id")
	level, err := strconv.Atoi(c.Params("level"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid level"})
	}

	ev, err := engine.Claim(user.ID, achievementID, level)
	switch {
	case errors.Is(err, services.ErrUnknownAchievement):
		return c.Status(404).JSON(fiber.Map{"success": false, "error": "Unknown achievement or level"})
	case errors.Is(err, services.ErrNotUnlocked):
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Achievement level not unlocked"})
	case err != nil:
		return c.Status(500).JSON(fiber.Map{"success": false, "error": "Failed to claim reward"})
	}

	if ev == nil {
		// Duplicate or already-settled claim: a quiet no-op, not an error.
		return c.JSON(fiber.Map{"success": true, "claimed": false})
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"claimed":   true,
		"xp_reward": ev.XPReward,
		"name":      ev.Name,
		"label":     ev.Label,
	})
}

// ResetAchievements wipes all achievement state for the user and raises the
// engine's one-way lock; achievement features stay inert until restart.
func ResetAchievements(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	if err := engine.Reset(user.ID); err != nil {
		return c.Status(500).JSON(fiber.Map{"success": false, "error": "Failed to reset achievements"})
	}

	return c.JSON(fiber.Map{"success": true})
}
