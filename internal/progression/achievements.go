package progression

import "github.com/lowaak/pulsefit/internal/zone"

// AchievementSnapshot is everything an unlock predicate may look at: the
// user's progression counters after settlement plus the workout that just
// finished. Predicates are pure - the caller decides what is already
// unlocked and what gets stamped.
type AchievementSnapshot struct {
	TotalWorkouts   int
	CurrentStreak   int
	TotalBurnPoints int
	XPLevel         int

	// This-workout fields
	WorkoutZoneSeconds     zone.Times
	WorkoutDurationSeconds int
	JustFiveMinVariant     bool
}

// AchievementDef is one entry in the fixed achievement registry.
type AchievementDef struct {
	ID          string
	Title       string
	Description string
	Unlocked    func(s AchievementSnapshot) bool
}

// Achievements is the full registry, evaluated after every settlement.
var Achievements = []AchievementDef{
	{
		ID:          "first_workout",
		Title:       "First Steps",
		Description: "Complete your first workout",
		Unlocked:    func(s AchievementSnapshot) bool { return s.TotalWorkouts >= 1 },
	},
	{
		ID:          "ten_workouts",
		Title:       "Regular",
		Description: "Complete 10 workouts",
		Unlocked:    func(s AchievementSnapshot) bool { return s.TotalWorkouts >= 10 },
	},
	{
		ID:          "fifty_workouts",
		Title:       "Committed",
		Description: "Complete 50 workouts",
		Unlocked:    func(s AchievementSnapshot) bool { return s.TotalWorkouts >= 50 },
	},
	{
		ID:          "hundred_workouts",
		Title:       "Century Club",
		Description: "Complete 100 workouts",
		Unlocked:    func(s AchievementSnapshot) bool { return s.TotalWorkouts >= 100 },
	},
	{
		ID:          "streak_3",
		Title:       "Warming Up",
		Description: "Work out 3 days in a row",
		Unlocked:    func(s AchievementSnapshot) bool { return s.CurrentStreak >= 3 },
	},
	{
		ID:          "streak_7",
		Title:       "Full Week",
		Description: "Work out 7 days in a row",
		Unlocked:    func(s AchievementSnapshot) bool { return s.CurrentStreak >= 7 },
	},
	{
		ID:          "streak_30",
		Title:       "Unstoppable",
		Description: "Work out 30 days in a row",
		Unlocked:    func(s AchievementSnapshot) bool { return s.CurrentStreak >= 30 },
	},
	{
		ID:          "burn_100",
		Title:       "Kindling",
		Description: "Earn 100 total burn points",
		Unlocked:    func(s AchievementSnapshot) bool { return s.TotalBurnPoints >= 100 },
	},
	{
		ID:          "burn_1000",
		Title:       "Bonfire",
		Description: "Earn 1000 total burn points",
		Unlocked:    func(s AchievementSnapshot) bool { return s.TotalBurnPoints >= 1000 },
	},
	{
		ID:          "level_5",
		Title:       "Rising Star",
		Description: "Reach level 5",
		Unlocked:    func(s AchievementSnapshot) bool { return s.XPLevel >= 5 },
	},
	{
		ID:          "level_10",
		Title:       "Veteran",
		Description: "Reach level 10",
		Unlocked:    func(s AchievementSnapshot) bool { return s.XPLevel >= 10 },
	},
	{
		ID:          "peak_5min",
		Title:       "Summit",
		Description: "Spend 5 minutes in the Peak zone in one workout",
		Unlocked: func(s AchievementSnapshot) bool {
			return s.WorkoutZoneSeconds.Seconds(zone.Peak) >= 300
		},
	},
	{
		ID:          "push_15min",
		Title:       "Grinder",
		Description: "Spend 15 minutes in the Push zone in one workout",
		Unlocked: func(s AchievementSnapshot) bool {
			return s.WorkoutZoneSeconds.Seconds(zone.Push) >= 900
		},
	},
	{
		ID:          "hyperfocus",
		Title:       "Hyperfocus",
		Description: "Sustain 15 minutes of Push or Peak in one workout",
		Unlocked: func(s AchievementSnapshot) bool {
			return s.WorkoutZoneSeconds.PushPeakSeconds() >= 900
		},
	},
	{
		ID:          "just_five_min",
		Title:       "Just Kept Going",
		Description: "Start a Just 5 Minutes session and go 15+ minutes",
		Unlocked: func(s AchievementSnapshot) bool {
			return s.JustFiveMinVariant && s.WorkoutDurationSeconds >= 900
		},
	},
}

// AchievementByID looks up a registry entry.
func AchievementByID(id string) (AchievementDef, bool) {
	for _, def := range Achievements {
		if def.ID == id {
			return def, true
		}
	}
	return AchievementDef{}, false
}
