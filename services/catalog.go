// services/catalog.go - Static achievement catalog
package services

import "studytrack/models"

// mkLevels builds the three escalating tiers of one achievement.
func mkLevels(r1, r2, r3 float64, x1, x2, x3 int, l1, l2, l3 string) []models.AchievementLevel {
	return []models.AchievementLevel{
		{Level: 1, Requirement: r1, XPReward: x1, Label: l1},
		{Level: 2, Requirement: r2, XPReward: x2, Label: l2},
		{Level: 3, Requirement: r3, XPReward: x3, Label: l3},
	}
}

// sniperMinAnswered is the hard per-level gate on total answered questions
// before sniper accuracy counts at all.
var sniperMinAnswered = map[int]int64{1: 100, 2: 500, 3: 1000}

// achievementCatalog is the full table: 24 achievements, 3 levels each.
// Compiled in, never mutated.
var achievementCatalog = []models.Achievement{
	// ── Consistency: current streak, unmodified ──
	{
		ID: "persistent", Category: models.CategoryConsistency,
		Name: "Persistent", Description: "Study on consecutive days",
		Icon: "flame", Color: "#f97316",
		Levels: mkLevels(3, 7, 15, 50, 100, 200, "3-day streak", "7-day streak", "15-day streak"),
	},
	{
		ID: "disciplined", Category: models.CategoryConsistency,
		Name: "Disciplined", Description: "Keep a long streak alive",
		Icon: "calendar-check", Color: "#ea580c",
		Levels: mkLevels(30, 60, 90, 200, 400, 700, "30-day streak", "60-day streak", "90-day streak"),
	},
	{
		ID: "unstoppable", Category: models.CategoryConsistency,
		Name: "Unstoppable", Description: "Streaks measured in seasons, not days",
		Icon: "infinity", Color: "#c2410c",
		Levels: mkLevels(180, 270, 365, 800, 1200, 2000, "180-day streak", "270-day streak", "365-day streak"),
	},

	// ── Volume: floor(total minutes / 60) ──
	{
		ID: "studious", Category: models.CategoryVolume,
		Name: "Studious", Description: "Accumulate hours of study",
		Icon: "clock", Color: "#3b82f6",
		Levels: mkLevels(10, 50, 100, 50, 150, 300, "10 hours", "50 hours", "100 hours"),
	},
	{
		ID: "dedicated", Category: models.CategoryVolume,
		Name: "Dedicated", Description: "Hundreds of hours at the desk",
		Icon: "hourglass", Color: "#2563eb",
		Levels: mkLevels(250, 500, 750, 400, 700, 1000, "250 hours", "500 hours", "750 hours"),
	},
	{
		ID: "tireless", Category: models.CategoryVolume,
		Name: "Tireless", Description: "Study time in the four digits",
		Icon: "battery-charging", Color: "#1d4ed8",
		Levels: mkLevels(1000, 1500, 2000, 1200, 1600, 2500, "1000 hours", "1500 hours", "2000 hours"),
	},

	// ── Accuracy ──
	{
		ID: "shooter", Category: models.CategoryAccuracy,
		Name: "Shooter", Description: "Answer questions correctly",
		Icon: "target", Color: "#10b981",
		Levels: mkLevels(100, 1000, 5000, 50, 250, 800, "100 correct", "1000 correct", "5000 correct"),
	},
	{
		ID: "perfectionist", Category: models.CategoryAccuracy,
		Name: "Perfectionist", Description: "Finish question sessions without a single miss",
		Icon: "star", Color: "#059669",
		Levels: mkLevels(5, 25, 100, 100, 300, 800, "5 perfect sessions", "25 perfect sessions", "100 perfect sessions"),
	},
	{
		ID: "sniper", Category: models.CategoryAccuracy,
		Name: "Sniper", Description: "Sustain a high hit rate over many questions",
		Icon: "crosshair", Color: "#047857",
		Levels: mkLevels(70, 80, 90, 150, 400, 1000, "70% of 100+", "80% of 500+", "90% of 1000+"),
	},

	// ── Reading: theory pages ──
	{
		ID: "reader", Category: models.CategoryReading,
		Name: "Reader", Description: "Read pages of theory",
		Icon: "book-open", Color: "#8b5cf6",
		Levels: mkLevels(100, 500, 1000, 50, 150, 300, "100 pages", "500 pages", "1000 pages"),
	},
	{
		ID: "bookworm", Category: models.CategoryReading,
		Name: "Bookworm", Description: "Page counts that fill a shelf",
		Icon: "book", Color: "#7c3aed",
		Levels: mkLevels(2500, 5000, 7500, 400, 700, 1100, "2500 pages", "5000 pages", "7500 pages"),
	},
	{
		ID: "librarian", Category: models.CategoryReading,
		Name: "Librarian", Description: "Page counts that fill a library",
		Icon: "library", Color: "#6d28d9",
		Levels: mkLevels(10000, 15000, 20000, 1300, 1800, 2500, "10000 pages", "15000 pages", "20000 pages"),
	},

	// ── Diversity ──
	{
		ID: "multitask", Category: models.CategoryDiversity,
		Name: "Multitask", Description: "Study distinct subjects",
		Icon: "layers", Color: "#ec4899",
		Levels: mkLevels(3, 5, 8, 50, 120, 250, "3 subjects", "5 subjects", "8 subjects"),
	},
	{
		ID: "polymath", Category: models.CategoryDiversity,
		Name: "Polymath", Description: "A curriculum wider than most degrees",
		Icon: "atom", Color: "#db2777",
		Levels: mkLevels(10, 15, 20, 300, 500, 900, "10 subjects", "15 subjects", "20 subjects"),
	},
	{
		ID: "renaissance", Category: models.CategoryDiversity,
		Name: "Renaissance", Description: "Cover several subjects in a single day, repeatedly",
		Icon: "palette", Color: "#be185d",
		Levels: mkLevels(3, 5, 7, 200, 450, 800, "3 multi-subject days", "5 multi-subject days", "7 multi-subject days"),
	},

	// ── Schedule ──
	{
		ID: "early-bird", Category: models.CategorySchedule,
		Name: "Early Bird", Description: "Study between 5 and 8 in the morning",
		Icon: "sunrise", Color: "#eab308",
		Levels: mkLevels(5, 15, 30, 80, 200, 450, "5 early mornings", "15 early mornings", "30 early mornings"),
	},
	{
		ID: "night-owl", Category: models.CategorySchedule,
		Name: "Night Owl", Description: "Study between 10 at night and 2 in the morning",
		Icon: "moon", Color: "#6366f1",
		Levels: mkLevels(5, 15, 30, 80, 200, 450, "5 late nights", "15 late nights", "30 late nights"),
	},
	{
		ID: "weekend-warrior", Category: models.CategorySchedule,
		Name: "Weekend Warrior", Description: "Show up on the weekends too",
		Icon: "swords", Color: "#4f46e5",
		Levels: mkLevels(4, 12, 24, 100, 300, 600, "4 weekends", "12 weekends", "24 weekends"),
	},

	// ── Goals: days meeting the daily goal (×1, ×1.5, ×2) ──
	{
		ID: "achiever", Category: models.CategoryGoals,
		Name: "Achiever", Description: "Hit your daily goal",
		Icon: "check-circle", Color: "#14b8a6",
		Levels: mkLevels(7, 30, 90, 80, 300, 700, "7 goal days", "30 goal days", "90 goal days"),
	},
	{
		ID: "over-achiever", Category: models.CategoryGoals,
		Name: "Over-achiever", Description: "Beat your daily goal by half again",
		Icon: "trending-up", Color: "#0d9488",
		Levels: mkLevels(7, 30, 90, 120, 400, 900, "7 days at 150%", "30 days at 150%", "90 days at 150%"),
	},
	{
		ID: "overcoming", Category: models.CategoryGoals,
		Name: "Overcoming", Description: "Double your daily goal",
		Icon: "rocket", Color: "#0f766e",
		Levels: mkLevels(5, 15, 45, 150, 450, 1000, "5 days at 200%", "15 days at 200%", "45 days at 200%"),
	},

	// ── Milestones ──
	{
		ID: "first-step", Category: models.CategoryMilestones,
		Name: "First Step", Description: "Log study sessions",
		Icon: "footprints", Color: "#64748b",
		Levels: mkLevels(1, 50, 200, 25, 150, 400, "1 session", "50 sessions", "200 sessions"),
	},
	{
		// Progress tops out at 1 while cycle completion is inferred from
		// the age of the current cycle; levels 2 and 3 stay locked until
		// completed cycles are counted individually.
		ID: "cycle-master", Category: models.CategoryMilestones,
		Name: "Cycle Master", Description: "See a study cycle through",
		Icon: "refresh-cw", Color: "#475569",
		Levels: mkLevels(1, 2, 3, 300, 600, 1000, "1 cycle", "2 cycles", "3 cycles"),
	},
	{
		ID: "veteran", Category: models.CategoryMilestones,
		Name: "Veteran", Description: "Stick with the app over the months",
		Icon: "shield", Color: "#334155",
		Levels: mkLevels(30, 180, 365, 100, 400, 900, "30 days", "180 days", "365 days"),
	},
}

var catalogByID = func() map[string]models.Achievement {
	m := make(map[string]models.Achievement, len(achievementCatalog))
	for _, a := range achievementCatalog {
		m[a.ID] = a
	}
	return m
}()

// Catalog returns the full achievement table in display order.
func Catalog() []models.Achievement {
	return achievementCatalog
}

// CatalogByID looks up one achievement.
func CatalogByID(id string) (models.Achievement, bool) {
	a, ok := catalogByID[id]
	return a, ok
}

// LevelOf returns the given tier of an achievement.
func LevelOf(a models.Achievement, level int) (models.AchievementLevel, bool) {
	for _, l := range a.Levels {
		if l.Level == level {
			return l, true
		}
	}
	return models.AchievementLevel{}, false
}
