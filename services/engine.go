// services/engine.go - Achievement engine: evaluation passes and reward claims
package services

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"studytrack/models"
)

var (
	ErrUnknownAchievement = errors.New("unknown achievement or level")
	ErrNotUnlocked        = errors.New("achievement level not unlocked")
)

// Notifier receives unlock and claim-success events for presentation.
// De-duplication of repeated unlock events is the engine's job, not the
// notifier's.
type Notifier interface {
	AchievementUnlocked(userID uint, ev UnlockEvent)
	ClaimSucceeded(userID uint, ev UnlockEvent)
}

var levelNumerals = map[int]string{1: "I", 2: "II", 3: "III"}

// Engine owns the evaluation pass and the claim operation. All collaborators
// are injected; the engine has no package-level state.
type Engine struct {
	gateway  *Gateway
	ledger   XPLedger
	notifier Notifier
	bonuses  *StreakBonusDetector

	// evalMu serializes every load-mutate-save of achievement records:
	// evaluation passes and claims alike. A claim that settled between an
	// evaluation's load and save would otherwise be overwritten by the
	// evaluation's stale snapshot.
	evalMu sync.Mutex

	// Per-key claim leases. Claims may arrive as near-simultaneous
	// duplicates; a key already leased makes the duplicate a no-op.
	claimMu  sync.Mutex
	inFlight map[string]bool

	// Unlock events already sent this process, keyed by user+achievement+level.
	notifiedMu sync.Mutex
	notified   map[string]bool
}

func NewEngine(gateway *Gateway, ledger XPLedger, notifier Notifier) *Engine {
	return &Engine{
		gateway:  gateway,
		ledger:   ledger,
		notifier: notifier,
		bonuses:  NewStreakBonusDetector(gateway, ledger),
		inFlight: make(map[string]bool),
		notified: make(map[string]bool),
	}
}

// Evaluate runs the full reconcile pass for one user: recompute all level
// progress, persist the merged records, dispatch unlock notifications, and
// check for a streak bonus. Called after any change to sessions, stats,
// streak, goal, or cycle start.
func (e *Engine) Evaluate(userID uint, in ProgressInput) []models.UserAchievementRecord {
	if e.gateway.Resetting() {
		return nil
	}
	e.evalMu.Lock()
	defer e.evalMu.Unlock()

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
		in.Now = now
	}

	previous := e.gateway.Load(userID)
	records, unlocked := Reconcile(userID, in, previous, now)
	e.gateway.Save(userID, records)

	for _, ev := range unlocked {
		key := claimKey(userID, ev.AchievementID, ev.Level)
		e.notifiedMu.Lock()
		seen := e.notified[key]
		e.notified[key] = true
		e.notifiedMu.Unlock()
		if !seen {
			e.notifier.AchievementUnlocked(userID, ev)
		}
	}

	e.bonuses.Evaluate(userID, in.Streak, now)

	return records
}

// Claim converts an unlocked level into a rewarded one. The XP grant and the
// success notification happen at most once per achievement level, no matter
// how closely duplicate calls arrive: a per-key lease is taken before any
// mutation, claimedAt is re-checked under the lease, and the whole
// load-mutate-save runs under evalMu so no evaluation pass can save a
// snapshot that predates the claim.
//
// Returns (nil, nil) when the claim was a duplicate or already settled; that
// case is a silent no-op by design of the callers.
func (e *Engine) Claim(userID uint, achievementID string, level int) (*UnlockEvent, error) {
	a, ok := CatalogByID(achievementID)
	if !ok {
		return nil, ErrUnknownAchievement
	}
	lvl, ok := LevelOf(a, level)
	if !ok {
		return nil, ErrUnknownAchievement
	}

	key := claimKey(userID, achievementID, level)
	e.claimMu.Lock()
	if e.inFlight[key] {
		e.claimMu.Unlock()
		return nil, nil
	}
	e.inFlight[key] = true
	e.claimMu.Unlock()

	release := func() {
		e.claimMu.Lock()
		delete(e.inFlight, key)
		e.claimMu.Unlock()
	}

	e.evalMu.Lock()
	defer e.evalMu.Unlock()

	records := e.gateway.Load(userID)
	idx := -1
	for i, r := range records {
		if r.AchievementID == achievementID && r.Level == level {
			idx = i
			break
		}
	}
	if idx < 0 || records[idx].UnlockedAt == nil {
		release()
		return nil, ErrNotUnlocked
	}
	if records[idx].ClaimedAt != nil {
		// Settled between the lease check and the load; do not grant again.
		release()
		return nil, nil
	}

	reason := fmt.Sprintf("Achievement: %s %s", a.Name, levelNumerals[level])
	if err := e.ledger.Grant(userID, lvl.XPReward, reason, a.Icon, false); err != nil {
		release()
		return nil, fmt.Errorf("claim %s-%d: %w", achievementID, level, err)
	}

	now := time.Now().UTC()
	records[idx].ClaimedAt = &now
	// Save schedules the remote write; the lease is released only after
	// that, so a slow remote write cannot reopen the window.
	e.gateway.Save(userID, records)

	ev := UnlockEvent{
		AchievementID: achievementID,
		Level:         level,
		Name:          a.Name,
		Label:         lvl.Label,
		Icon:          a.Icon,
		XPReward:      lvl.XPReward,
	}
	e.notifier.ClaimSucceeded(userID, ev)
	release()
	return &ev, nil
}

// Reset wipes all achievement state for the user and raises the gateway's
// one-way lock. The engine is inert afterwards until the process restarts.
func (e *Engine) Reset(userID uint) error {
	return e.gateway.Reset(userID)
}

// Resetting reports whether a reset has been triggered.
func (e *Engine) Resetting() bool {
	return e.gateway.Resetting()
}

func claimKey(userID uint, achievementID string, level int) string {
	return fmt.Sprintf("%d:%s-%d", userID, achievementID, level)
}

// ─── Snapshot view ──────────────────────────────────────────────────────────

// LevelStatus is the API view of one level-instance: catalog data plus
// either the stored record or live computed progress.
type LevelStatus struct {
	Level       int        `json:"level"`
	Requirement float64    `json:"requirement"`
	Label       string     `json:"label"`
	XPReward    int        `json:"xp_reward"`
	Progress    float64    `json:"progress"`
	Unlocked    bool       `json:"unlocked"`
	Claimed     bool       `json:"claimed"`
	UnlockedAt  *time.Time `json:"unlocked_at,omitempty"`
	ClaimedAt   *time.Time `json:"claimed_at,omitempty"`
}

// AchievementStatus is the API view of one achievement with all its levels.
type AchievementStatus struct {
	ID          string        `json:"id"`
	Category    string        `json:"category"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Icon        string        `json:"icon"`
	Color       string        `json:"color"`
	Levels      []LevelStatus `json:"levels"`
}

// Snapshot runs an evaluation pass and returns the full catalog view.
// Locked levels carry live progress from the calculator; they have no
// stored record.
func (e *Engine) Snapshot(userID uint, in ProgressInput) []AchievementStatus {
	records := e.Evaluate(userID, in)

	byKey := make(map[string]models.UserAchievementRecord, len(records))
	for _, r := range records {
		byKey[recordKey(r.AchievementID, r.Level)] = r
	}

	out := make([]AchievementStatus, 0, len(Catalog()))
	for _, a := range Catalog() {
		status := AchievementStatus{
			ID:          a.ID,
			Category:    a.Category,
			Name:        a.Name,
			Description: a.Description,
			Icon:        a.Icon,
			Color:       a.Color,
		}
		for _, lvl := range a.Levels {
			ls := LevelStatus{
				Level:       lvl.Level,
				Requirement: lvl.Requirement,
				Label:       lvl.Label,
				XPReward:    lvl.XPReward,
			}
			if r, ok := byKey[recordKey(a.ID, lvl.Level)]; ok {
				ls.Progress = r.Progress
				ls.Unlocked = r.UnlockedAt != nil
				ls.Claimed = r.ClaimedAt != nil
				ls.UnlockedAt = r.UnlockedAt
				ls.ClaimedAt = r.ClaimedAt
			} else {
				ls.Progress = Progress(a, lvl, in)
			}
			status.Levels = append(status.Levels, ls)
		}
		out = append(out, status)
	}
	return out
}
