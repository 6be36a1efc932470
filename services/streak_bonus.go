// services/streak_bonus.go - One-time XP bonuses on 7-day streak multiples
package services

import (
	"fmt"
	"log"
	"sync"
	"time"

	"studytrack/models"
)

const (
	streakBonusXP   = 50
	bonusFlagMaxAge = 30 * 24 * time.Hour
)

// StreakBonusDetector grants a fixed XP bonus the first time a streak
// reaches each multiple of 7. Persisted flags stop the same multiple from
// paying out twice; an in-memory tracker stops re-grants within one process
// even before the flag lands.
type StreakBonusDetector struct {
	gateway *Gateway
	ledger  XPLedger

	mu           sync.Mutex
	lastMultiple map[uint]int
}

func NewStreakBonusDetector(gateway *Gateway, ledger XPLedger) *StreakBonusDetector {
	return &StreakBonusDetector{
		gateway:      gateway,
		ledger:       ledger,
		lastMultiple: make(map[uint]int),
	}
}

// Evaluate inspects the current streak and pays out when a new multiple of 7
// is crossed. Old flags are pruned opportunistically on the way through.
func (d *StreakBonusDetector) Evaluate(userID uint, streak int, now time.Time) {
	d.gateway.PruneBonusFlags(now.Add(-bonusFlagMaxAge))

	currentMultiple := 0
	if streak > 0 {
		currentMultiple = streak - streak%7
	}

	d.mu.Lock()
	last := d.lastMultiple[userID]
	if currentMultiple < last {
		// Streak dropped: track downward so a future re-crossing is
		// evaluated fresh. The persisted flag still guards re-grants.
		d.lastMultiple[userID] = currentMultiple
		last = currentMultiple
	}
	d.mu.Unlock()

	if streak <= 0 || streak%7 != 0 || streak <= last {
		return
	}

	for _, f := range d.gateway.BonusFlags(userID) {
		if f.Multiple == streak {
			d.observe(userID, streak)
			return
		}
	}

	reason := fmt.Sprintf("%d-day streak bonus", streak)
	if err := d.ledger.Grant(userID, streakBonusXP, reason, "flame", true); err != nil {
		log.Printf("Streak bonus grant failed for user %d: %v", userID, err)
		return
	}
	d.gateway.AddBonusFlag(models.StreakBonusFlag{
		UserID:    userID,
		Multiple:  streak,
		AwardedAt: now,
	})
	d.observe(userID, streak)
}

func (d *StreakBonusDetector) observe(userID uint, multiple int) {
	d.mu.Lock()
	if multiple > d.lastMultiple[userID] {
		d.lastMultiple[userID] = multiple
	}
	d.mu.Unlock()
}
