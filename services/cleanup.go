package services

import (
	"log"
	"time"

	"studytrack/database"
	"studytrack/models"
)

// CleanupService handles background maintenance tasks
type CleanupService struct {
	stop chan struct{}
}

var cleanupService *CleanupService

// InitCleanupService initializes the singleton cleanup service.
func InitCleanupService() {
	cleanupService = &CleanupService{stop: make(chan struct{})}
}

// GetCleanupService returns the initialized cleanup service.
func GetCleanupService() *CleanupService {
	return cleanupService
}

// Start runs the maintenance loop: once an hour, prune expired streak-bonus
// flags and abandoned guest accounts.
func (s *CleanupService) Start() {
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.PruneExpiredBonusFlags()
				s.CleanupStaleGuests()
			case <-s.stop:
				return
			}
		}
	}()
}

// Stop stops the maintenance loop.
func (s *CleanupService) Stop() {
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
}

// PruneExpiredBonusFlags removes streak-bonus flags older than 30 days.
func (s *CleanupService) PruneExpiredBonusFlags() {
	db := database.GetDB()
	if db == nil {
		return
	}

	cutoff := time.Now().Add(-bonusFlagMaxAge)
	result := db.Where("awarded_at < ?", cutoff).Delete(&models.StreakBonusFlag{})
	if result.Error != nil {
		log.Printf("Error pruning streak bonus flags: %v", result.Error)
		return
	}
	if result.RowsAffected > 0 {
		log.Printf("✅ Pruned %d expired streak bonus flags", result.RowsAffected)
	}
}

// CleanupStaleGuests removes guest accounts with no activity for 90 days and
// no logged sessions.
func (s *CleanupService) CleanupStaleGuests() {
	db := database.GetDB()
	if db == nil {
		return
	}

	cutoff := time.Now().AddDate(0, 0, -90)
	result := db.Where(
		"is_guest = ? AND created_at < ? AND id NOT IN (SELECT DISTINCT user_id FROM study_sessions)",
		true, cutoff,
	).Delete(&models.User{})
	if result.Error != nil {
		log.Printf("Error cleaning up stale guests: %v", result.Error)
		return
	}
	if result.RowsAffected > 0 {
		log.Printf("✅ Cleaned up %d stale guest accounts", result.RowsAffected)
	}
}
