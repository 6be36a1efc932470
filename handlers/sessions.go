// handlers/sessions.go - Study session CRUD and aggregate stats
package handlers

import (
	"strconv"
	"time"

	"studytrack/database"
	"studytrack/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type SessionRequest struct {
	SubjectID string `json:"subject_id"`
	Type      string `json:"type"`
	Hours     int    `json:"hours"`
	Minutes   int    `json:"minutes"`
	Seconds   int    `json:"seconds"`
	Correct   int    `json:"correct"`
	Wrong     int    `json:"wrong"`
	Blank     int    `json:"blank"`
	Pages     int    `json:"pages"`
	Date      string `json:"date"` // YYYY-MM-DD, defaults to today
}

var validSessionTypes = map[string]bool{
	models.SessionTheory:    true,
	models.SessionQuestions: true,
	models.SessionReview:    true,
}

// clampNonNegative coerces malformed negative counters to zero instead of
// rejecting the session.
func clampNonNegative(vs ...*int) {
	for _, v := range vs {
		if *v < 0 {
			*v = 0
		}
	}
}

func (r *SessionRequest) toSession(userID uint) (models.StudySession, error) {
	if !validSessionTypes[r.Type] {
		return models.StudySession{}, fiber.NewError(400, "Invalid session type")
	}

	clampNonNegative(&r.Hours, &r.Minutes, &r.Seconds, &r.Correct, &r.Wrong, &r.Blank, &r.Pages)

	date := time.Now().UTC()
	if r.Date != "" {
		parsed, err := time.Parse("2006-01-02", r.Date)
		if err != nil {
			return models.StudySession{}, fiber.NewError(400, "Invalid date, expected YYYY-MM-DD")
		}
		date = parsed
	}

	return models.StudySession{
		UserID:    userID,
		SubjectID: r.SubjectID,
		Type:      r.Type,
		Hours:     r.Hours,
		Minutes:   r.Minutes,
		Seconds:   r.Seconds,
		Correct:   r.Correct,
		Wrong:     r.Wrong,
		Blank:     r.Blank,
		Pages:     r.Pages,
		Date:      date,
	}, nil
}

// CreateSession logs a study session and re-runs the achievement pass
func CreateSession(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	var req SessionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid request body"})
	}

	session, err := req.toSession(user.ID)
	if err != nil {
		return err
	}

	db := database.GetDB()
	if err := db.Create(&session).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"success": false, "error": "Failed to save session"})
	}

	refreshUserStats(db, user.ID)
	reevaluate(db, user)

	return c.Status(201).JSON(fiber.Map{"success": true, "session": session})
}

// GetSessions returns the user's sessions, newest first, paginated
func GetSessions(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset, _ := strconv.Atoi(c.Query("offset", "0"))
	if offset < 0 {
		offset = 0
	}

	db := database.GetDB()
	var sessions []models.StudySession
	if err := db.Where("user_id = ?", user.ID).
		Order("date DESC, id DESC").
		Limit(limit).Offset(offset).
		Find(&sessions).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"success": false, "error": "Failed to fetch sessions"})
	}

	var total int64
	db.Model(&models.StudySession{}).Where("user_id = ?", user.ID).Count(&total)

	return c.JSON(fiber.Map{
		"success":  true,
		"sessions": sessions,
		"total":    total,
	})
}

// UpdateSession edits a logged session and re-runs the achievement pass
func UpdateSession(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	sessionID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid session id"})
	}

	db := database.GetDB()
	var existing models.StudySession
	if err := db.Where("id = ? AND user_id = ?", sessionID, user.ID).First(&existing).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"success": false, "error": "Session not found"})
	}

	var req SessionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid request body"})
	}

	updated, err := req.toSession(user.ID)
	if err != nil {
		return err
	}
	updated.ID = existing.ID
	updated.CreatedAt = existing.CreatedAt

	if err := db.Save(&updated).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"success": false, "error": "Failed to update session"})
	}

	refreshUserStats(db, user.ID)
	reevaluate(db, user)

	return c.JSON(fiber.Map{"success": true, "session": updated})
}

// DeleteSession removes a logged session and re-runs the achievement pass
func DeleteSession(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	sessionID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid session id"})
	}

	db := database.GetDB()
	result := db.Where("id = ? AND user_id = ?", sessionID, user.ID).Delete(&models.StudySession{})
	if result.Error != nil {
		return c.Status(500).JSON(fiber.Map{"success": false, "error": "Failed to delete session"})
	}
	if result.RowsAffected == 0 {
		return c.Status(404).JSON(fiber.Map{"success": false, "error": "Session not found"})
	}

	refreshUserStats(db, user.ID)
	reevaluate(db, user)

	return c.JSON(fiber.Map{"success": true})
}

// GetStats returns the aggregate running totals for the user
func GetStats(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	db := database.GetDB()
	var stats models.UserStats
	if err := db.Where("user_id = ?", user.ID).First(&stats).Error; err != nil {
		stats = models.UserStats{UserID: user.ID}
	}

	return c.JSON(fiber.Map{"success": true, "stats": stats})
}

// refreshUserStats recomputes the authoritative running totals from the full
// session table. Pages only accumulate from theory sessions.
func refreshUserStats(db *gorm.DB, userID uint) {
	var totals struct {
		TotalMinutes   float64
		TotalCorrect   int64
		TotalQuestions int64
		TotalLogs      int64
	}
	db.Model(&models.StudySession{}).
		Where("user_id = ?", userID).
		Select(`COALESCE(SUM(hours * 60 + minutes + seconds / 60.0), 0) AS total_minutes,
			COALESCE(SUM(correct), 0) AS total_correct,
			COALESCE(SUM(correct + wrong + blank), 0) AS total_questions,
			COUNT(*) AS total_logs`).
		Scan(&totals)

	var totalPages int64
	db.Model(&models.StudySession{}).
		Where("user_id = ? AND type = ?", userID, models.SessionTheory).
		Select("COALESCE(SUM(pages), 0)").
		Scan(&totalPages)

	stats := models.UserStats{
		UserID:         userID,
		TotalMinutes:   totals.TotalMinutes,
		TotalCorrect:   totals.TotalCorrect,
		TotalQuestions: totals.TotalQuestions,
		TotalPages:     totalPages,
		TotalLogs:      totals.TotalLogs,
	}
	db.Save(&stats)
}
