// services/reconcile.go - Merge computed progress into stored unlock state
package services

import (
	"strconv"
	"time"

	"studytrack/models"
)

// UnlockEvent describes one level-instance that just crossed its threshold.
type UnlockEvent struct {
	AchievementID string `json:"achievement_id"`
	Level         int    `json:"level"`
	Name          string `json:"name"`
	Label         string `json:"label"`
	Icon          string `json:"icon"`
	XPReward      int    `json:"xp_reward"`
}

// Reconcile runs the full O(catalog) pass: recompute progress for every
// level-instance, carry prior unlock/claim state forward untouched, and
// create records for levels that just crossed their requirement.
//
// Levels that are still locked and have no prior record are not materialized;
// callers read their live progress straight from Progress.
func Reconcile(userID uint, in ProgressInput, previous []models.UserAchievementRecord, now time.Time) ([]models.UserAchievementRecord, []UnlockEvent) {
	prior := make(map[string]models.UserAchievementRecord, len(previous))
	for _, r := range previous {
		prior[recordKey(r.AchievementID, r.Level)] = r
	}

	var (
		updated  []models.UserAchievementRecord
		unlocked []UnlockEvent
	)

	for _, a := range Catalog() {
		for _, lvl := range a.Levels {
			progress := Progress(a, lvl, in)

			if existing, ok := prior[recordKey(a.ID, lvl.Level)]; ok {
				// One-way ratchet: only the progress field is refreshed;
				// unlockedAt and claimedAt survive even if progress
				// regressed below the requirement.
				existing.Progress = progress
				updated = append(updated, existing)
				continue
			}

			if progress < lvl.Requirement {
				continue
			}

			unlockedAt := now
			updated = append(updated, models.UserAchievementRecord{
				UserID:        userID,
				AchievementID: a.ID,
				Level:         lvl.Level,
				Progress:      progress,
				UnlockedAt:    &unlockedAt,
			})
			unlocked = append(unlocked, UnlockEvent{
				AchievementID: a.ID,
				Level:         lvl.Level,
				Name:          a.Name,
				Label:         lvl.Label,
				Icon:          a.Icon,
				XPReward:      lvl.XPReward,
			})
		}
	}

	return updated, unlocked
}

func recordKey(achievementID string, level int) string {
	return achievementID + "-" + strconv.Itoa(level)
}
