package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"studytrack/models"
)

func TestSessionXP(t *testing.T) {
	// One hour of questions, ten answered, all correct:
	// 60 minutes + 10*2 answered + 10*5 correct.
	s := models.StudySession{Type: models.SessionQuestions, Hours: 1, Correct: 10}
	assert.Equal(t, 130, SessionXP(s))
}

func TestSessionXPFloorsPartialMinutes(t *testing.T) {
	s := models.StudySession{Type: models.SessionTheory, Minutes: 10, Seconds: 59}
	assert.Equal(t, 10, SessionXP(s))
}

func TestTotalSessionXPMixedSessions(t *testing.T) {
	sessions := []models.StudySession{
		{Type: models.SessionTheory, Minutes: 30},
		{Type: models.SessionQuestions, Minutes: 15, Correct: 5, Wrong: 2, Blank: 1},
	}
	// 30 + (15 + 8*2 + 5*5) = 86
	assert.Equal(t, 86, TotalSessionXP(sessions))
}

func TestComputeXPStateAddsBonus(t *testing.T) {
	sessions := []models.StudySession{{Minutes: 30}}
	state := ComputeXPState(sessions, 50)
	assert.Equal(t, 80, state.TotalXP)
}

func TestComputeXPStateClampsNegative(t *testing.T) {
	state := ComputeXPState(nil, -10)
	assert.Equal(t, 0, state.TotalXP)
	assert.Equal(t, "Apprentice", state.Rank)
}

func TestRankForBrackets(t *testing.T) {
	cases := []struct {
		totalXP int
		rank    string
		tier    int
	}{
		{0, "Apprentice", 1},
		{60, "Apprentice", 1},
		{200, "Apprentice", 2},
		{499, "Apprentice", 3},
		{500, "Student", 1},
		{1499, "Student", 3},
		{1500, "Scholar", 1},
		{3500, "Specialist", 1},
		{7000, "Expert", 1},
		{12000, "Master", 1},
		{20000, "Grandmaster", 1},
		{34999, "Grandmaster", 3},
	}
	for _, tc := range cases {
		state := RankFor(tc.totalXP)
		assert.Equal(t, tc.rank, state.Rank, "totalXP=%d", tc.totalXP)
		assert.Equal(t, tc.tier, state.Tier, "totalXP=%d", tc.totalXP)
	}
}

func TestRankForTopBracketIncrements(t *testing.T) {
	state := RankFor(35000)
	assert.Equal(t, "Legend", state.Rank)
	assert.Equal(t, 1, state.Tier)
	assert.Equal(t, 10000, state.XPToNext)

	state = RankFor(55000)
	assert.Equal(t, "Legend", state.Rank)
	assert.Equal(t, 3, state.Tier)
	assert.Equal(t, 10000, state.XPToNext)

	// The fourth increment wraps back to tier 1.
	state = RankFor(65000)
	assert.Equal(t, 1, state.Tier)
}

func TestRankForProgressAndXPToNext(t *testing.T) {
	state := RankFor(250)
	assert.Equal(t, 250, state.XPToNext)
	assert.InDelta(t, 50.0, state.ProgressPct, 0.001)
}
