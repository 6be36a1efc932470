package services

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type grantCall struct {
	userID  uint
	amount  int
	reason  string
	icon    string
	isBonus bool
}

type fakeLedger struct {
	mu     sync.Mutex
	grants []grantCall
	err    error
}

func (l *fakeLedger) Grant(userID uint, amount int, reason, icon string, isBonus bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	l.grants = append(l.grants, grantCall{userID, amount, reason, icon, isBonus})
	return nil
}

func (l *fakeLedger) grantCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.grants)
}

type fakeNotifier struct {
	mu      sync.Mutex
	unlocks []UnlockEvent
	claims  []UnlockEvent
}

func (n *fakeNotifier) AchievementUnlocked(userID uint, ev UnlockEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.unlocks = append(n.unlocks, ev)
}

func (n *fakeNotifier) ClaimSucceeded(userID uint, ev UnlockEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.claims = append(n.claims, ev)
}

func (n *fakeNotifier) counts() (int, int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.unlocks), len(n.claims)
}

// newTestEngine wires an engine onto a local-only gateway so every write is
// synchronous and test assertions see settled state.
func newTestEngine() (*Engine, *memStore, *fakeLedger, *fakeNotifier) {
	local := newMemStore()
	ledger := &fakeLedger{}
	notifier := &fakeNotifier{}
	engine := NewEngine(NewGateway(nil, local), ledger, notifier)
	return engine, local, ledger, notifier
}

func TestEvaluatePersistsUnlocks(t *testing.T) {
	engine, local, _, notifier := newTestEngine()
	in := ProgressInput{Streak: 3, Now: day(2026, 3, 10)}

	records := engine.Evaluate(1, in)

	r := findRecord(records, "persistent", 1)
	require.NotNil(t, r)
	assert.NotNil(t, r.UnlockedAt)
	assert.Equal(t, 1, local.recordCount(1))

	unlocks, _ := notifier.counts()
	assert.Equal(t, 1, unlocks)
}

func TestEvaluateNotifiesEachUnlockOnce(t *testing.T) {
	engine, _, _, notifier := newTestEngine()
	in := ProgressInput{Streak: 3, Now: day(2026, 3, 10)}

	engine.Evaluate(1, in)
	engine.Evaluate(1, in)
	engine.Evaluate(1, in)

	unlocks, _ := notifier.counts()
	assert.Equal(t, 1, unlocks)
}

func TestClaimGrantsAndMarks(t *testing.T) {
	engine, local, ledger, notifier := newTestEngine()
	engine.Evaluate(1, ProgressInput{Streak: 3, Now: day(2026, 3, 10)})

	ev, err := engine.Claim(1, "persistent", 1)
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, 50, ev.XPReward)

	require.Equal(t, 1, ledger.grantCount())
	assert.Equal(t, grantCall{1, 50, "Achievement: Persistent I", "flame", false}, ledger.grants[0])

	stored, err := local.LoadRecords(1)
	require.NoError(t, err)
	r := findRecord(stored, "persistent", 1)
	require.NotNil(t, r)
	assert.NotNil(t, r.ClaimedAt)

	_, claims := notifier.counts()
	assert.Equal(t, 1, claims)
}

func TestClaimDuplicateIsSilentNoOp(t *testing.T) {
	engine, _, ledger, notifier := newTestEngine()
	engine.Evaluate(1, ProgressInput{Streak: 3, Now: day(2026, 3, 10)})

	ev, err := engine.Claim(1, "persistent", 1)
	require.NoError(t, err)
	require.NotNil(t, ev)

	ev, err = engine.Claim(1, "persistent", 1)
	require.NoError(t, err)
	assert.Nil(t, ev)

	assert.Equal(t, 1, ledger.grantCount())
	_, claims := notifier.counts()
	assert.Equal(t, 1, claims)
}

func TestClaimConcurrentDuplicatesGrantOnce(t *testing.T) {
	engine, _, ledger, notifier := newTestEngine()
	engine.Evaluate(1, ProgressInput{Streak: 3, Now: day(2026, 3, 10)})

	const n = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ev, err := engine.Claim(1, "persistent", 1)
			assert.NoError(t, err)
			if ev != nil {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, granted)
	assert.Equal(t, 1, ledger.grantCount())
	_, claims := notifier.counts()
	assert.Equal(t, 1, claims)
}

func TestClaimDuringEvaluationIsNotOverwritten(t *testing.T) {
	local := newMemStore()
	ledger := &fakeLedger{}
	notifier := &fakeNotifier{}
	hooked := &hookStore{RecordStore: local}
	engine := NewEngine(NewGateway(nil, hooked), ledger, notifier)

	in := ProgressInput{Streak: 3, Now: day(2026, 3, 10)}
	engine.Evaluate(1, in)

	// Fire a claim while an evaluation pass is under way. The pass's save
	// must not land a snapshot that predates the claim, and the settled
	// claim must survive every later pass.
	var (
		once     sync.Once
		wg       sync.WaitGroup
		claimEv  *UnlockEvent
		claimErr error
	)
	hooked.onLoad = func() {
		once.Do(func() {
			wg.Add(1)
			go func() {
				defer wg.Done()
				claimEv, claimErr = engine.Claim(1, "persistent", 1)
			}()
		})
	}
	engine.Evaluate(1, in)
	wg.Wait()

	require.NoError(t, claimErr)
	require.NotNil(t, claimEv)

	stored, err := local.LoadRecords(1)
	require.NoError(t, err)
	r := findRecord(stored, "persistent", 1)
	require.NotNil(t, r)
	assert.NotNil(t, r.ClaimedAt)

	engine.Evaluate(1, in)
	stored, err = local.LoadRecords(1)
	require.NoError(t, err)
	assert.NotNil(t, findRecord(stored, "persistent", 1).ClaimedAt)

	// A retry after everything settled is the duplicate no-op, not a
	// second grant.
	ev, err := engine.Claim(1, "persistent", 1)
	require.NoError(t, err)
	assert.Nil(t, ev)
	assert.Equal(t, 1, ledger.grantCount())
}

func TestClaimUnknownAchievement(t *testing.T) {
	engine, _, _, _ := newTestEngine()

	_, err := engine.Claim(1, "no-such-thing", 1)
	assert.ErrorIs(t, err, ErrUnknownAchievement)

	_, err = engine.Claim(1, "persistent", 4)
	assert.ErrorIs(t, err, ErrUnknownAchievement)
}

func TestClaimLockedLevel(t *testing.T) {
	engine, _, ledger, _ := newTestEngine()
	engine.Evaluate(1, ProgressInput{Streak: 3, Now: day(2026, 3, 10)})

	// Level 2 needs a 7-day streak and has no record yet.
	_, err := engine.Claim(1, "persistent", 2)
	assert.ErrorIs(t, err, ErrNotUnlocked)
	assert.Equal(t, 0, ledger.grantCount())
}

func TestClaimLedgerFailureLeavesClaimable(t *testing.T) {
	engine, local, ledger, _ := newTestEngine()
	engine.Evaluate(1, ProgressInput{Streak: 3, Now: day(2026, 3, 10)})

	ledger.err = errors.New("database down")
	_, err := engine.Claim(1, "persistent", 1)
	require.Error(t, err)

	stored, err := local.LoadRecords(1)
	require.NoError(t, err)
	assert.Nil(t, findRecord(stored, "persistent", 1).ClaimedAt)

	// Once the ledger recovers, the claim goes through.
	ledger.err = nil
	ev, err := engine.Claim(1, "persistent", 1)
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, 1, ledger.grantCount())
}

func TestResetMakesEngineInert(t *testing.T) {
	engine, local, ledger, _ := newTestEngine()
	engine.Evaluate(1, ProgressInput{Streak: 3, Now: day(2026, 3, 10)})

	require.NoError(t, engine.Reset(1))
	assert.True(t, engine.Resetting())
	assert.Equal(t, 0, local.recordCount(1))

	assert.Nil(t, engine.Evaluate(1, ProgressInput{Streak: 10, Now: day(2026, 3, 11)}))
	_, err := engine.Claim(1, "persistent", 1)
	assert.ErrorIs(t, err, ErrNotUnlocked)
	assert.Equal(t, 0, ledger.grantCount())
}

func TestSnapshotMixesStoredAndLiveProgress(t *testing.T) {
	engine, _, _, _ := newTestEngine()
	in := ProgressInput{Streak: 4, Now: day(2026, 3, 10)}

	snapshot := engine.Snapshot(1, in)
	require.Len(t, snapshot, len(Catalog()))

	var persistent *AchievementStatus
	for i := range snapshot {
		if snapshot[i].ID == "persistent" {
			persistent = &snapshot[i]
		}
	}
	require.NotNil(t, persistent)
	require.Len(t, persistent.Levels, 3)

	// Level 1 (requires 3) has a stored record and is unlocked.
	assert.True(t, persistent.Levels[0].Unlocked)
	assert.Equal(t, 4.0, persistent.Levels[0].Progress)

	// Level 2 (requires 7) is locked: no record, live progress only.
	assert.False(t, persistent.Levels[1].Unlocked)
	assert.Nil(t, persistent.Levels[1].UnlockedAt)
	assert.Equal(t, 4.0, persistent.Levels[1].Progress)
}
