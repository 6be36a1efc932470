// services/xp.go - XP and rank calculation
package services

import (
	"math"

	"studytrack/models"
)

// XPState is the derived progression snapshot. It is computed on demand and
// never persisted.
type XPState struct {
	TotalXP     int     `json:"total_xp"`
	Rank        string  `json:"rank"`
	Tier        int     `json:"tier"` // 1..3 within the rank
	ProgressPct float64 `json:"progress_pct"`
	XPToNext    int     `json:"xp_to_next"`
}

// rankBracket is a half-open XP range [MinXP, MaxXP). The top bracket has
// MaxXP = 0 and is unbounded.
type rankBracket struct {
	Name  string
	MinXP int
	MaxXP int
}

// topRankStep subdivides the unbounded top bracket into fixed increments.
const topRankStep = 10000

var rankBrackets = []rankBracket{
	{"Apprentice", 0, 500},
	{"Student", 500, 1500},
	{"Scholar", 1500, 3500},
	{"Specialist", 3500, 7000},
	{"Expert", 7000, 12000},
	{"Master", 12000, 20000},
	{"Grandmaster", 20000, 35000},
	{"Legend", 35000, 0},
}

// SessionXP scores one session: one point per full minute, two per answered
// question, five per correct answer.
func SessionXP(s models.StudySession) int {
	minutes := int(math.Floor(sessionMinutes(s)))
	answered := s.Correct + s.Wrong + s.Blank
	return minutes + answered*2 + s.Correct*5
}

// TotalSessionXP sums session-derived XP.
func TotalSessionXP(sessions []models.StudySession) int {
	var total int
	for _, s := range sessions {
		total += SessionXP(s)
	}
	return total
}

// ComputeXPState resolves total XP into rank, tier and progress toward the
// next boundary. bonusXP is the ledger total (claimed rewards and streak
// bonuses) added on top of session-derived XP.
func ComputeXPState(sessions []models.StudySession, bonusXP int) XPState {
	total := TotalSessionXP(sessions) + bonusXP
	if total < 0 {
		total = 0
	}
	return RankFor(total)
}

// RankFor maps an XP total onto the bracket table.
func RankFor(totalXP int) XPState {
	bracket := rankBrackets[len(rankBrackets)-1]
	for _, b := range rankBrackets {
		if totalXP >= b.MinXP && (b.MaxXP == 0 || totalXP < b.MaxXP) {
			bracket = b
			break
		}
	}

	if bracket.MaxXP == 0 {
		// Unbounded top rank: fixed increments instead of thirds.
		step := (totalXP - bracket.MinXP) / topRankStep
		floor := bracket.MinXP + step*topRankStep
		next := floor + topRankStep
		return XPState{
			TotalXP:     totalXP,
			Rank:        bracket.Name,
			Tier:        step%3 + 1,
			ProgressPct: float64(totalXP-floor) / float64(topRankStep) * 100,
			XPToNext:    next - totalXP,
		}
	}

	span := bracket.MaxXP - bracket.MinXP
	into := totalXP - bracket.MinXP
	tier := into * 3 / span
	if tier > 2 {
		tier = 2
	}
	return XPState{
		TotalXP:     totalXP,
		Rank:        bracket.Name,
		Tier:        tier + 1,
		ProgressPct: float64(into) / float64(span) * 100,
		XPToNext:    bracket.MaxXP - totalXP,
	}
}
