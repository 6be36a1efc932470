package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studytrack/models"
)

func newTestDetector() (*StreakBonusDetector, *Gateway, *fakeLedger) {
	gateway := NewGateway(nil, newMemStore())
	ledger := &fakeLedger{}
	return NewStreakBonusDetector(gateway, ledger), gateway, ledger
}

func TestStreakBonusGrantsOnMultipleOfSeven(t *testing.T) {
	detector, gateway, ledger := newTestDetector()
	now := day(2026, 3, 10)

	detector.Evaluate(1, 7, now)

	require.Equal(t, 1, ledger.grantCount())
	assert.Equal(t, grantCall{1, 50, "7-day streak bonus", "flame", true}, ledger.grants[0])

	flags := gateway.BonusFlags(1)
	require.Len(t, flags, 1)
	assert.Equal(t, 7, flags[0].Multiple)
}

func TestStreakBonusIgnoresNonMultiples(t *testing.T) {
	detector, _, ledger := newTestDetector()
	now := day(2026, 3, 10)

	detector.Evaluate(1, 0, now)
	detector.Evaluate(1, 3, now)
	detector.Evaluate(1, 6, now)
	detector.Evaluate(1, 8, now)

	assert.Equal(t, 0, ledger.grantCount())
}

func TestStreakBonusEachMultipleOnce(t *testing.T) {
	detector, _, ledger := newTestDetector()
	now := day(2026, 3, 10)

	detector.Evaluate(1, 7, now)
	detector.Evaluate(1, 7, now)
	detector.Evaluate(1, 14, now.AddDate(0, 0, 7))
	detector.Evaluate(1, 14, now.AddDate(0, 0, 7))

	require.Equal(t, 2, ledger.grantCount())
	assert.Equal(t, "7-day streak bonus", ledger.grants[0].reason)
	assert.Equal(t, "14-day streak bonus", ledger.grants[1].reason)
}

func TestStreakBonusFlagBlocksRegrantAfterRestart(t *testing.T) {
	gateway := NewGateway(nil, newMemStore())
	ledger := &fakeLedger{}
	now := day(2026, 3, 10)

	// Persisted flag from a previous process.
	gateway.AddBonusFlag(models.StreakBonusFlag{UserID: 1, Multiple: 7, AwardedAt: now.AddDate(0, 0, -10)})

	detector := NewStreakBonusDetector(gateway, ledger)
	detector.Evaluate(1, 7, now)
	assert.Equal(t, 0, ledger.grantCount())

	// Streak drops, then re-crosses the same multiple within the flag's
	// lifetime: still no second payout.
	detector.Evaluate(1, 3, now.AddDate(0, 0, 1))
	detector.Evaluate(1, 7, now.AddDate(0, 0, 5))
	assert.Equal(t, 0, ledger.grantCount())
}

func TestStreakBonusExpiredFlagAllowsRegrant(t *testing.T) {
	gateway := NewGateway(nil, newMemStore())
	ledger := &fakeLedger{}
	now := day(2026, 3, 10)

	gateway.AddBonusFlag(models.StreakBonusFlag{UserID: 1, Multiple: 7, AwardedAt: now.AddDate(0, 0, -40)})

	// A fresh detector with a 40-day-old flag: the prune on entry removes
	// it, so the multiple pays out again.
	detector := NewStreakBonusDetector(gateway, ledger)
	detector.Evaluate(1, 7, now)

	assert.Equal(t, 1, ledger.grantCount())
}

func TestStreakBonusLedgerFailureRetries(t *testing.T) {
	detector, gateway, ledger := newTestDetector()
	now := day(2026, 3, 10)

	ledger.err = assert.AnError
	detector.Evaluate(1, 7, now)
	assert.Equal(t, 0, ledger.grantCount())
	assert.Empty(t, gateway.BonusFlags(1))

	// Failure left no flag and no tracker entry, so the next pass pays out.
	ledger.err = nil
	detector.Evaluate(1, 7, now)
	assert.Equal(t, 1, ledger.grantCount())
}

func TestStreakBonusPerUserTracking(t *testing.T) {
	detector, _, ledger := newTestDetector()
	now := day(2026, 3, 10)

	detector.Evaluate(1, 7, now)
	detector.Evaluate(2, 7, now)

	require.Equal(t, 2, ledger.grantCount())
	assert.Equal(t, uint(1), ledger.grants[0].userID)
	assert.Equal(t, uint(2), ledger.grants[1].userID)
}
