// services/streak.go - Consecutive study-day streak
package services

import (
	"time"

	"studytrack/models"
)

// ComputeStreak counts consecutive calendar days ending today (or yesterday,
// if today has no session yet) that contain at least one session.
func ComputeStreak(sessions []models.StudySession, now time.Time) int {
	if len(sessions) == 0 {
		return 0
	}

	days := make(map[string]struct{}, len(sessions))
	for _, s := range sessions {
		days[dayKey(s.Date)] = struct{}{}
	}

	cursor := now
	if _, ok := days[dayKey(cursor)]; !ok {
		// A streak is not broken until the day is actually over.
		cursor = cursor.AddDate(0, 0, -1)
		if _, ok := days[dayKey(cursor)]; !ok {
			return 0
		}
	}

	streak := 0
	for {
		if _, ok := days[dayKey(cursor)]; !ok {
			break
		}
		streak++
		cursor = cursor.AddDate(0, 0, -1)
	}
	return streak
}
