package services

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studytrack/database"
	"studytrack/models"
)

// memStore is an in-memory RecordStore. Error and delay knobs simulate a
// flaky or slow remote backend.
type memStore struct {
	mu      sync.Mutex
	records map[uint]map[string]models.UserAchievementRecord
	flags   map[uint]map[int]models.StreakBonusFlag

	loadErr   error
	saveErr   error
	saveDelay time.Duration
}

func newMemStore() *memStore {
	return &memStore{
		records: make(map[uint]map[string]models.UserAchievementRecord),
		flags:   make(map[uint]map[int]models.StreakBonusFlag),
	}
}

func (m *memStore) LoadRecords(userID uint) ([]models.UserAchievementRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	var out []models.UserAchievementRecord
	for _, r := range m.records[userID] {
		out = append(out, r)
	}
	return out, nil
}

func (m *memStore) SaveRecords(userID uint, records []models.UserAchievementRecord) error {
	if m.saveDelay > 0 {
		time.Sleep(m.saveDelay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	if m.records[userID] == nil {
		m.records[userID] = make(map[string]models.UserAchievementRecord)
	}
	for _, r := range records {
		r.UserID = userID
		m.records[userID][recordKey(r.AchievementID, r.Level)] = r
	}
	return nil
}

func (m *memStore) ClearRecords(userID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, userID)
	return nil
}

func (m *memStore) LoadBonusFlags(userID uint) ([]models.StreakBonusFlag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	var out []models.StreakBonusFlag
	for _, f := range m.flags[userID] {
		out = append(out, f)
	}
	return out, nil
}

func (m *memStore) AddBonusFlag(flag models.StreakBonusFlag) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	if m.flags[flag.UserID] == nil {
		m.flags[flag.UserID] = make(map[int]models.StreakBonusFlag)
	}
	if _, exists := m.flags[flag.UserID][flag.Multiple]; !exists {
		m.flags[flag.UserID][flag.Multiple] = flag
	}
	return nil
}

func (m *memStore) PruneBonusFlags(before time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, flags := range m.flags {
		for multiple, f := range flags {
			if f.AwardedAt.Before(before) {
				delete(flags, multiple)
			}
		}
	}
	return nil
}

func (m *memStore) ClearBonusFlags(userID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.flags, userID)
	return nil
}

func (m *memStore) recordCount(userID uint) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records[userID])
}

func (m *memStore) seedRecord(r models.UserAchievementRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.records[r.UserID] == nil {
		m.records[r.UserID] = make(map[string]models.UserAchievementRecord)
	}
	m.records[r.UserID][recordKey(r.AchievementID, r.Level)] = r
}

// hookStore wraps a RecordStore and runs a callback on every record load.
type hookStore struct {
	RecordStore
	onLoad func()
}

func (s *hookStore) LoadRecords(userID uint) ([]models.UserAchievementRecord, error) {
	if s.onLoad != nil {
		s.onLoad()
	}
	return s.RecordStore.LoadRecords(userID)
}

func unlockedRecord(userID uint, id string, level int, progress float64, at time.Time) models.UserAchievementRecord {
	return models.UserAchievementRecord{
		UserID:        userID,
		AchievementID: id,
		Level:         level,
		Progress:      progress,
		UnlockedAt:    &at,
	}
}

func TestGatewayLoadPrefersRemote(t *testing.T) {
	remote, local := newMemStore(), newMemStore()
	at := day(2026, 3, 10)
	remote.seedRecord(unlockedRecord(1, "persistent", 1, 5, at))
	local.seedRecord(unlockedRecord(1, "persistent", 1, 3, at))

	g := NewGateway(remote, local)
	records := g.Load(1)
	require.Len(t, records, 1)
	assert.Equal(t, 5.0, records[0].Progress)
}

func TestGatewayLoadFallsBackToLocal(t *testing.T) {
	remote, local := newMemStore(), newMemStore()
	remote.loadErr = errors.New("connection refused")
	local.seedRecord(unlockedRecord(1, "persistent", 1, 3, day(2026, 3, 10)))

	g := NewGateway(remote, local)
	records := g.Load(1)
	require.Len(t, records, 1)
	assert.Equal(t, 3.0, records[0].Progress)
}

func TestGatewaySaveWritesBothBackends(t *testing.T) {
	remote, local := newMemStore(), newMemStore()
	g := NewGateway(remote, local)

	g.Save(1, []models.UserAchievementRecord{
		unlockedRecord(1, "persistent", 1, 3, day(2026, 3, 10)),
	})
	g.Flush()

	assert.Equal(t, 1, local.recordCount(1))
	assert.Equal(t, 1, remote.recordCount(1))
}

func TestGatewayAnonymousUserStaysLocal(t *testing.T) {
	remote, local := newMemStore(), newMemStore()
	g := NewGateway(remote, local)

	g.Save(0, []models.UserAchievementRecord{
		unlockedRecord(0, "persistent", 1, 3, day(2026, 3, 10)),
	})
	g.Flush()

	assert.Equal(t, 1, local.recordCount(0))
	assert.Equal(t, 0, remote.recordCount(0))
}

func TestGatewayRemoteSaveFailureIsSwallowed(t *testing.T) {
	remote, local := newMemStore(), newMemStore()
	remote.saveErr = errors.New("connection refused")
	g := NewGateway(remote, local)

	g.Save(1, []models.UserAchievementRecord{
		unlockedRecord(1, "persistent", 1, 3, day(2026, 3, 10)),
	})
	g.Flush()

	// The local cache still has the write; nothing panicked or blocked.
	assert.Equal(t, 1, local.recordCount(1))
	assert.Equal(t, 0, remote.recordCount(1))
}

func TestGatewayResetClearsBothBackendsAndLocksOut(t *testing.T) {
	remote, local := newMemStore(), newMemStore()
	at := day(2026, 3, 10)
	remote.seedRecord(unlockedRecord(1, "persistent", 1, 5, at))
	local.seedRecord(unlockedRecord(1, "persistent", 1, 5, at))

	g := NewGateway(remote, local)
	require.NoError(t, g.Reset(1))

	assert.True(t, g.Resetting())
	assert.Equal(t, 0, remote.recordCount(1))
	assert.Equal(t, 0, local.recordCount(1))

	// The lock is one-way: loads and saves are inert now.
	assert.Nil(t, g.Load(1))
	g.Save(1, []models.UserAchievementRecord{unlockedRecord(1, "persistent", 1, 5, at)})
	g.Flush()
	assert.Equal(t, 0, remote.recordCount(1))
	assert.Equal(t, 0, local.recordCount(1))
}

func TestGatewayResetIdempotent(t *testing.T) {
	g := NewGateway(newMemStore(), newMemStore())
	require.NoError(t, g.Reset(1))
	require.NoError(t, g.Reset(1))
	assert.True(t, g.Resetting())
}

func TestGatewayResetWinsOverQueuedSave(t *testing.T) {
	remote, local := newMemStore(), newMemStore()
	remote.saveDelay = 20 * time.Millisecond
	g := NewGateway(remote, local)

	// Queue a slow remote write, then reset immediately. Whatever order the
	// two land in, the reset must leave the remote store empty.
	g.Save(1, []models.UserAchievementRecord{
		unlockedRecord(1, "persistent", 1, 3, day(2026, 3, 10)),
	})
	require.NoError(t, g.Reset(1))
	g.Flush()

	assert.Equal(t, 0, remote.recordCount(1))
	assert.Equal(t, 0, local.recordCount(1))
}

func TestLocalStoreRoundTrip(t *testing.T) {
	db, err := database.OpenLocalCacheAt(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer db.Close()

	store := NewLocalStore(db)
	unlockedAt := day(2026, 3, 10).UTC()
	claimedAt := unlockedAt.Add(2 * time.Hour)

	records := []models.UserAchievementRecord{
		{UserID: 1, AchievementID: "persistent", Level: 1, Progress: 7, UnlockedAt: &unlockedAt, ClaimedAt: &claimedAt},
		{UserID: 1, AchievementID: "studious", Level: 1, Progress: 4.5},
	}
	require.NoError(t, store.SaveRecords(1, records))

	loaded, err := store.LoadRecords(1)
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	r := findRecord(loaded, "persistent", 1)
	require.NotNil(t, r)
	assert.Equal(t, 7.0, r.Progress)
	require.NotNil(t, r.UnlockedAt)
	assert.True(t, r.UnlockedAt.Equal(unlockedAt))
	require.NotNil(t, r.ClaimedAt)
	assert.True(t, r.ClaimedAt.Equal(claimedAt))

	r = findRecord(loaded, "studious", 1)
	require.NotNil(t, r)
	assert.Nil(t, r.UnlockedAt)
	assert.Nil(t, r.ClaimedAt)

	// Saving again with new progress updates in place.
	records[1].Progress = 6
	require.NoError(t, store.SaveRecords(1, records))
	loaded, err = store.LoadRecords(1)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, 6.0, findRecord(loaded, "studious", 1).Progress)

	require.NoError(t, store.ClearRecords(1))
	loaded, err = store.LoadRecords(1)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestLocalStoreBonusFlags(t *testing.T) {
	db, err := database.OpenLocalCacheAt(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer db.Close()

	store := NewLocalStore(db)
	now := day(2026, 3, 10).UTC()

	require.NoError(t, store.AddBonusFlag(models.StreakBonusFlag{UserID: 1, Multiple: 7, AwardedAt: now}))
	// Duplicate multiple is a silent no-op.
	require.NoError(t, store.AddBonusFlag(models.StreakBonusFlag{UserID: 1, Multiple: 7, AwardedAt: now}))
	require.NoError(t, store.AddBonusFlag(models.StreakBonusFlag{UserID: 1, Multiple: 14, AwardedAt: now.AddDate(0, 0, -40)}))

	flags, err := store.LoadBonusFlags(1)
	require.NoError(t, err)
	assert.Len(t, flags, 2)

	require.NoError(t, store.PruneBonusFlags(now.AddDate(0, 0, -30)))
	flags, err = store.LoadBonusFlags(1)
	require.NoError(t, err)
	require.Len(t, flags, 1)
	assert.Equal(t, 7, flags[0].Multiple)

	require.NoError(t, store.ClearBonusFlags(1))
	flags, err = store.LoadBonusFlags(1)
	require.NoError(t, err)
	assert.Empty(t, flags)
}
