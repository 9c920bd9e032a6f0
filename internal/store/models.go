package store

import (
	"time"

	"github.com/lowaak/pulsefit/internal/zone"
)

// Workout is one recorded session. EndTime is nil until the settlement
// pipeline completes the record, which happens exactly once.
type Workout struct {
	ID                int64
	StartTime         time.Time
	EndTime           *time.Time
	DurationSeconds   int
	BurnPoints        int
	AverageHeartRate  int
	MaxHeartRate      int
	ZoneSeconds       zone.Times
	XPEarned          int64
	EstimatedCalories *int // nil when the user's weight is unknown
	JustFiveMin       bool
}

// Completed reports whether the workout has been settled.
func (w *Workout) Completed() bool {
	return w.EndTime != nil
}

// HeartRateSample is one sparse heart-rate reading tagged with its session.
type HeartRateSample struct {
	WorkoutID  int64
	RecordedAt time.Time
	HeartRate  int
	Zone       zone.Zone
}

// UserProfile holds user settings plus progression counters. A single row
// exists per database; progression fields are mutated only by settlement.
type UserProfile struct {
	MaxHeartRate      int
	Age               int
	WeightKg          float64 // 0 = unknown
	BiologicalSex     string  // "male" or "female"
	DailyTargetPoints int
	Thresholds        zone.Thresholds

	TotalXP          int64
	XPLevel          int
	CurrentStreak    int
	LongestStreak    int
	StreakShields    int
	LegacyShieldUsed bool
	TotalBurnPoints  int
	TotalWorkouts    int
	LastWorkoutAt    *time.Time
}

// Male reports whether the Keytel male coefficient set applies.
func (p *UserProfile) Male() bool {
	return p.BiologicalSex != "female"
}

// Achievement is a catalog row plus its unlock stamp. UnlockedAt transitions
// once from nil to a timestamp and is never cleared.
type Achievement struct {
	ID          string
	Title       string
	Description string
	UnlockedAt  *time.Time
}

func zoneFromOrdinal(ordinal int) zone.Zone {
	if ordinal < 0 || ordinal >= zone.Count {
		return zone.Rest
	}
	return zone.Zone(ordinal)
}

// QuestType selects which session metric feeds a daily quest.
type QuestType string

const (
	QuestDuration   QuestType = "duration"
	QuestBurnPoints QuestType = "burn_points"
	QuestZoneTarget QuestType = "zone_target"
)

// DailyQuest is one of the day's quests. CurrentValue only increases and
// Completed flips once when the target is reached.
type DailyQuest struct {
	ID           int64
	Day          int64 // local epoch day bucket
	Type         QuestType
	Title        string
	Description  string
	TargetValue  int
	CurrentValue int
	Difficulty   int
	XPReward     int
	Completed    bool
}
