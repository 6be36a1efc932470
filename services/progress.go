// services/progress.go - Per-family achievement progress formulas
package services

import (
	"math"
	"time"

	"studytrack/models"
)

// ProgressInput carries everything the progress formulas read. Sessions may
// be a paginated subset; Stats, when present, is the authoritative running
// total and is preferred for the counters it covers.
type ProgressInput struct {
	Sessions         []models.StudySession
	Stats            *models.UserStats
	Streak           int
	DailyGoalMinutes int
	CycleStartedAt   *time.Time
	AccountCreatedAt time.Time
	Now              time.Time
}

// Progress computes the current value for one achievement level.
// The result is never negative; missing numeric inputs count as zero.
func Progress(a models.Achievement, lvl models.AchievementLevel, in ProgressInput) float64 {
	var p float64

	switch a.Category {
	case models.CategoryConsistency:
		p = float64(in.Streak)
	case models.CategoryVolume:
		p = math.Floor(totalMinutes(in) / 60)
	case models.CategoryAccuracy:
		p = accuracyProgress(a.ID, lvl, in)
	case models.CategoryReading:
		p = float64(totalTheoryPages(in))
	case models.CategoryDiversity:
		p = diversityProgress(a.ID, lvl, in)
	case models.CategorySchedule:
		p = scheduleProgress(a.ID, in)
	case models.CategoryGoals:
		p = goalDays(a.ID, in)
	case models.CategoryMilestones:
		p = milestoneProgress(a.ID, in)
	}

	if p < 0 || math.IsNaN(p) {
		return 0
	}
	return p
}

// sessionMinutes is the duration of one session in minutes.
func sessionMinutes(s models.StudySession) float64 {
	return float64(s.Hours)*60 + float64(s.Minutes) + float64(s.Seconds)/60
}

// totalMinutes prefers the aggregate row; summing the session list may
// undercount when the list is paginated, which is accepted.
func totalMinutes(in ProgressInput) float64 {
	if in.Stats != nil {
		return in.Stats.TotalMinutes
	}
	var sum float64
	for _, s := range in.Sessions {
		sum += sessionMinutes(s)
	}
	return sum
}

func totalTheoryPages(in ProgressInput) int64 {
	if in.Stats != nil {
		return in.Stats.TotalPages
	}
	var sum int64
	for _, s := range in.Sessions {
		if s.Type == models.SessionTheory {
			sum += int64(s.Pages)
		}
	}
	return sum
}

func totalCorrect(in ProgressInput) int64 {
	if in.Stats != nil {
		return in.Stats.TotalCorrect
	}
	var sum int64
	for _, s := range in.Sessions {
		sum += int64(s.Correct)
	}
	return sum
}

func totalAnswered(in ProgressInput) int64 {
	if in.Stats != nil {
		return in.Stats.TotalQuestions
	}
	var sum int64
	for _, s := range in.Sessions {
		sum += int64(s.Correct + s.Wrong + s.Blank)
	}
	return sum
}

func accuracyProgress(id string, lvl models.AchievementLevel, in ProgressInput) float64 {
	switch id {
	case "shooter":
		return float64(totalCorrect(in))
	case "perfectionist":
		var n int
		for _, s := range in.Sessions {
			total := s.Correct + s.Wrong + s.Blank
			if total > 0 && s.Correct == total {
				n++
			}
		}
		return float64(n)
	case "sniper":
		answered := totalAnswered(in)
		// Hard gate: accuracy does not count until enough questions were
		// answered for the level.
		if answered == 0 || answered < sniperMinAnswered[lvl.Level] {
			return 0
		}
		return math.Floor(float64(totalCorrect(in)) / float64(answered) * 100)
	}
	return 0
}

func diversityProgress(id string, lvl models.AchievementLevel, in ProgressInput) float64 {
	switch id {
	case "multitask", "polymath":
		subjects := make(map[string]struct{})
		for _, s := range in.Sessions {
			if s.SubjectID != "" {
				subjects[s.SubjectID] = struct{}{}
			}
		}
		return float64(len(subjects))
	case "renaissance":
		// The level requirement doubles as the per-day subject gate: a day
		// counts when it touches at least that many distinct subjects, and
		// the count of such days is measured against the same requirement.
		perDay := make(map[string]map[string]struct{})
		for _, s := range in.Sessions {
			if s.SubjectID == "" {
				continue
			}
			day := dayKey(s.Date)
			if perDay[day] == nil {
				perDay[day] = make(map[string]struct{})
			}
			perDay[day][s.SubjectID] = struct{}{}
		}
		var days int
		for _, subjects := range perDay {
			if float64(len(subjects)) >= lvl.Requirement {
				days++
			}
		}
		return float64(days)
	}
	return 0
}

func scheduleProgress(id string, in ProgressInput) float64 {
	days := make(map[string]struct{})
	switch id {
	case "early-bird":
		for _, s := range in.Sessions {
			h := s.CreatedAt.Hour()
			if h >= 5 && h < 8 {
				days[dayKey(s.Date)] = struct{}{}
			}
		}
	case "night-owl":
		for _, s := range in.Sessions {
			h := s.CreatedAt.Hour()
			if h >= 22 || h < 2 {
				days[dayKey(s.Date)] = struct{}{}
			}
		}
	case "weekend-warrior":
		// One Saturday/Sunday pair counts once no matter how many sessions
		// landed on it.
		for _, s := range in.Sessions {
			if key, ok := weekendKey(s.Date); ok {
				days[key] = struct{}{}
			}
		}
	}
	return float64(len(days))
}

// goalDays counts days whose total study minutes reached the daily goal
// times the achievement's multiplier. All zero when no goal is set.
func goalDays(id string, in ProgressInput) float64 {
	if in.DailyGoalMinutes <= 0 {
		return 0
	}
	multiplier := map[string]float64{
		"achiever":      1,
		"over-achiever": 1.5,
		"overcoming":    2,
	}[id]
	if multiplier == 0 {
		return 0
	}
	target := float64(in.DailyGoalMinutes) * multiplier

	byDay := make(map[string]float64)
	for _, s := range in.Sessions {
		byDay[dayKey(s.Date)] += sessionMinutes(s)
	}
	var days int
	for _, minutes := range byDay {
		if minutes >= target {
			days++
		}
	}
	return float64(days)
}

func milestoneProgress(id string, in ProgressInput) float64 {
	switch id {
	case "first-step":
		if in.Stats != nil {
			return float64(in.Stats.TotalLogs)
		}
		return float64(len(in.Sessions))
	case "cycle-master":
		// Coarse proxy: a cycle at least 30 days old counts as completed.
		if in.CycleStartedAt != nil && in.Now.Sub(*in.CycleStartedAt) >= 30*24*time.Hour {
			return 1
		}
		return 0
	case "veteran":
		if in.AccountCreatedAt.IsZero() {
			return 0
		}
		return math.Floor(in.Now.Sub(in.AccountCreatedAt).Hours() / 24)
	}
	return 0
}

// dayKey buckets a timestamp into its calendar day.
func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// weekendKey maps a Saturday or Sunday to the Saturday that anchors the
// weekend pair; other days report false.
func weekendKey(t time.Time) (string, bool) {
	switch t.Weekday() {
	case time.Saturday:
		return dayKey(t), true
	case time.Sunday:
		return dayKey(t.AddDate(0, 0, -1)), true
	default:
		return "", false
	}
}
