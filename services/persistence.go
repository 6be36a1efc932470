// services/persistence.go - Dual-backend achievement persistence
package services

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"studytrack/models"
)

// RecordStore is one persistence backend for achievement records and streak
// bonus flags. Saving the same records twice must be safe (idempotent upsert
// keyed by user + achievement + level).
type RecordStore interface {
	LoadRecords(userID uint) ([]models.UserAchievementRecord, error)
	SaveRecords(userID uint, records []models.UserAchievementRecord) error
	ClearRecords(userID uint) error

	LoadBonusFlags(userID uint) ([]models.StreakBonusFlag, error)
	AddBonusFlag(flag models.StreakBonusFlag) error
	PruneBonusFlags(before time.Time) error
	ClearBonusFlags(userID uint) error
}

// ─── Gateway ────────────────────────────────────────────────────────────────

const (
	gatewayActive = iota
	gatewayResetting
)

// Gateway composes the remote store (PostgreSQL) with the local cache
// (SQLite). Reads prefer the remote store and fall back to the cache; writes
// hit the cache synchronously and the remote store asynchronously,
// best-effort. A reset raises a one-way lock: there is no transition back to
// active short of a process restart.
type Gateway struct {
	remote RecordStore // may be nil (local-only mode)
	local  RecordStore

	mu    sync.RWMutex
	state int

	saves sync.WaitGroup
}

func NewGateway(remote, local RecordStore) *Gateway {
	return &Gateway{remote: remote, local: local, state: gatewayActive}
}

// Resetting reports whether the one-way lock has been raised.
func (g *Gateway) Resetting() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state != gatewayActive
}

// Load returns the stored records for a user. Remote failures degrade to the
// local cache; they are logged, never surfaced. userID 0 means no identity,
// which forces local-cache-only mode.
func (g *Gateway) Load(userID uint) []models.UserAchievementRecord {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.state != gatewayActive {
		return nil
	}

	if userID != 0 && g.remote != nil {
		records, err := g.remote.LoadRecords(userID)
		if err == nil {
			return records
		}
		log.Printf("Remote record load failed for user %d, falling back to cache: %v", userID, err)
	}

	records, err := g.local.LoadRecords(userID)
	if err != nil {
		log.Printf("Local record load failed for user %d: %v", userID, err)
		return nil
	}
	return records
}

// Save writes the cache synchronously and schedules a best-effort remote
// write. Remote failures are logged and abandoned; nothing retries.
func (g *Gateway) Save(userID uint, records []models.UserAchievementRecord) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.state != gatewayActive {
		return
	}

	if err := g.local.SaveRecords(userID, records); err != nil {
		log.Printf("Local record save failed for user %d: %v", userID, err)
	}

	if userID == 0 || g.remote == nil {
		return
	}
	g.saves.Add(1)
	go func() {
		defer g.saves.Done()
		// A reset raised after this save was queued must win: re-check the
		// lock so a slow write cannot resurrect cleared records.
		g.mu.RLock()
		defer g.mu.RUnlock()
		if g.state != gatewayActive {
			return
		}
		if err := g.remote.SaveRecords(userID, records); err != nil {
			log.Printf("Remote record save failed for user %d: %v", userID, err)
		}
	}()
}

// BonusFlags returns the persisted streak-bonus ledger.
func (g *Gateway) BonusFlags(userID uint) []models.StreakBonusFlag {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.state != gatewayActive {
		return nil
	}

	if userID != 0 && g.remote != nil {
		flags, err := g.remote.LoadBonusFlags(userID)
		if err == nil {
			return flags
		}
		log.Printf("Remote bonus flag load failed for user %d, falling back to cache: %v", userID, err)
	}

	flags, err := g.local.LoadBonusFlags(userID)
	if err != nil {
		log.Printf("Local bonus flag load failed for user %d: %v", userID, err)
		return nil
	}
	return flags
}

// AddBonusFlag records an awarded streak multiple in both backends.
func (g *Gateway) AddBonusFlag(flag models.StreakBonusFlag) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.state != gatewayActive {
		return
	}

	if err := g.local.AddBonusFlag(flag); err != nil {
		log.Printf("Local bonus flag write failed for user %d: %v", flag.UserID, err)
	}
	if flag.UserID == 0 || g.remote == nil {
		return
	}
	g.saves.Add(1)
	go func() {
		defer g.saves.Done()
		g.mu.RLock()
		defer g.mu.RUnlock()
		if g.state != gatewayActive {
			return
		}
		if err := g.remote.AddBonusFlag(flag); err != nil {
			log.Printf("Remote bonus flag write failed for user %d: %v", flag.UserID, err)
		}
	}()
}

// PruneBonusFlags drops flags older than the cutoff from both backends.
func (g *Gateway) PruneBonusFlags(before time.Time) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.state != gatewayActive {
		return
	}
	if err := g.local.PruneBonusFlags(before); err != nil {
		log.Printf("Local bonus flag prune failed: %v", err)
	}
	if g.remote != nil {
		if err := g.remote.PruneBonusFlags(before); err != nil {
			log.Printf("Remote bonus flag prune failed: %v", err)
		}
	}
}

// Reset clears all records and bonus flags for the user and raises the
// one-way lock. Idempotent; a partial remote failure still completes the
// local clear and still raises the lock.
func (g *Gateway) Reset(userID uint) error {
	g.mu.Lock()
	if g.state != gatewayActive {
		g.mu.Unlock()
		return nil
	}
	g.state = gatewayResetting
	g.mu.Unlock()

	// In-flight saves either finished before the lock flipped or will see
	// the lock and drop themselves; wait out the stragglers so the clears
	// below are final.
	g.saves.Wait()

	if err := g.local.ClearRecords(userID); err != nil {
		log.Printf("Local record clear failed for user %d: %v", userID, err)
	}
	if err := g.local.ClearBonusFlags(userID); err != nil {
		log.Printf("Local bonus flag clear failed for user %d: %v", userID, err)
	}

	if userID != 0 && g.remote != nil {
		if err := g.remote.ClearRecords(userID); err != nil {
			log.Printf("Remote record clear failed for user %d (lock stays raised): %v", userID, err)
		}
		if err := g.remote.ClearBonusFlags(userID); err != nil {
			log.Printf("Remote bonus flag clear failed for user %d (lock stays raised): %v", userID, err)
		}
	}
	return nil
}

// Flush waits for outstanding asynchronous remote writes. Used on shutdown.
func (g *Gateway) Flush() {
	g.saves.Wait()
}

// ─── Remote store (PostgreSQL via gorm) ─────────────────────────────────────

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) LoadRecords(userID uint) ([]models.UserAchievementRecord, error) {
	var records []models.UserAchievementRecord
	err := s.db.Where("user_id = ?", userID).
		Order("achievement_id, level").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	return records, nil
}

func (s *GormStore) SaveRecords(userID uint, records []models.UserAchievementRecord) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([]models.UserAchievementRecord, 0, len(records))
	for _, r := range records {
		r.ID = 0
		r.UserID = userID
		rows = append(rows, r)
	}
	err := s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "achievement_id"}, {Name: "level"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"progress", "unlocked_at", "claimed_at", "updated_at",
		}),
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("save records: %w", err)
	}
	return nil
}

func (s *GormStore) ClearRecords(userID uint) error {
	return s.db.Where("user_id = ?", userID).Delete(&models.UserAchievementRecord{}).Error
}

func (s *GormStore) LoadBonusFlags(userID uint) ([]models.StreakBonusFlag, error) {
	var flags []models.StreakBonusFlag
	err := s.db.Where("user_id = ?", userID).Order("multiple").Find(&flags).Error
	if err != nil {
		return nil, fmt.Errorf("load bonus flags: %w", err)
	}
	return flags, nil
}

func (s *GormStore) AddBonusFlag(flag models.StreakBonusFlag) error {
	flag.ID = 0
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "multiple"}},
		DoNothing: true,
	}).Create(&flag).Error
}

func (s *GormStore) PruneBonusFlags(before time.Time) error {
	return s.db.Where("awarded_at < ?", before).Delete(&models.StreakBonusFlag{}).Error
}

func (s *GormStore) ClearBonusFlags(userID uint) error {
	return s.db.Where("user_id = ?", userID).Delete(&models.StreakBonusFlag{}).Error
}

// ─── Local store (SQLite cache) ─────────────────────────────────────────────

type LocalStore struct {
	db *sql.DB
}

func NewLocalStore(db *sql.DB) *LocalStore {
	return &LocalStore{db: db}
}

func (s *LocalStore) LoadRecords(userID uint) ([]models.UserAchievementRecord, error) {
	rows, err := s.db.Query(`
		SELECT achievement_id, level, progress, unlocked_at, claimed_at
		FROM achievement_records
		WHERE user_id = ?
		ORDER BY achievement_id, level`, userID)
	if err != nil {
		return nil, fmt.Errorf("load cached records: %w", err)
	}
	defer rows.Close()

	var records []models.UserAchievementRecord
	for rows.Next() {
		var (
			r                    models.UserAchievementRecord
			unlockedAt, claimedAt sql.NullString
		)
		r.UserID = userID
		if err := rows.Scan(&r.AchievementID, &r.Level, &r.Progress, &unlockedAt, &claimedAt); err != nil {
			return nil, fmt.Errorf("scan cached record: %w", err)
		}
		r.UnlockedAt = parseCachedTime(unlockedAt)
		r.ClaimedAt = parseCachedTime(claimedAt)
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *LocalStore) SaveRecords(userID uint, records []models.UserAchievementRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin cache save: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO achievement_records (user_id, achievement_id, level, progress, unlocked_at, claimed_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, datetime('now'))
		ON CONFLICT (user_id, achievement_id, level) DO UPDATE SET
			progress = excluded.progress,
			unlocked_at = excluded.unlocked_at,
			claimed_at = excluded.claimed_at,
			updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("prepare cache save: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		_, err := stmt.Exec(userID, r.AchievementID, r.Level, r.Progress,
			formatCachedTime(r.UnlockedAt), formatCachedTime(r.ClaimedAt))
		if err != nil {
			return fmt.Errorf("cache record %s-%d: %w", r.AchievementID, r.Level, err)
		}
	}
	return tx.Commit()
}

func (s *LocalStore) ClearRecords(userID uint) error {
	_, err := s.db.Exec(`DELETE FROM achievement_records WHERE user_id = ?`, userID)
	return err
}

func (s *LocalStore) LoadBonusFlags(userID uint) ([]models.StreakBonusFlag, error) {
	rows, err := s.db.Query(`
		SELECT multiple, awarded_at FROM streak_bonus_flags
		WHERE user_id = ? ORDER BY multiple`, userID)
	if err != nil {
		return nil, fmt.Errorf("load cached bonus flags: %w", err)
	}
	defer rows.Close()

	var flags []models.StreakBonusFlag
	for rows.Next() {
		var (
			f       models.StreakBonusFlag
			awarded string
		)
		f.UserID = userID
		if err := rows.Scan(&f.Multiple, &awarded); err != nil {
			return nil, fmt.Errorf("scan cached bonus flag: %w", err)
		}
		if t, err := time.Parse(time.RFC3339, awarded); err == nil {
			f.AwardedAt = t
		}
		flags = append(flags, f)
	}
	return flags, rows.Err()
}

func (s *LocalStore) AddBonusFlag(flag models.StreakBonusFlag) error {
	_, err := s.db.Exec(`
		INSERT INTO streak_bonus_flags (user_id, multiple, awarded_at)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id, multiple) DO NOTHING`,
		flag.UserID, flag.Multiple, flag.AwardedAt.UTC().Format(time.RFC3339))
	return err
}

func (s *LocalStore) PruneBonusFlags(before time.Time) error {
	_, err := s.db.Exec(`DELETE FROM streak_bonus_flags WHERE awarded_at < ?`,
		before.UTC().Format(time.RFC3339))
	return err
}

func (s *LocalStore) ClearBonusFlags(userID uint) error {
	_, err := s.db.Exec(`DELETE FROM streak_bonus_flags WHERE user_id = ?`, userID)
	return err
}

func formatCachedTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func parseCachedTime(v sql.NullString) *time.Time {
	if !v.Valid || v.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, v.String)
	if err != nil {
		return nil
	}
	return &t
}
