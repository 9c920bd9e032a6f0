package engine

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/lowaak/pulsefit/internal/progression"
	"github.com/lowaak/pulsefit/internal/store"
)

// ErrAlreadySettled is returned when settlement runs twice for one workout.
var ErrAlreadySettled = errors.New("workout already settled")

// SettlementStore is the slice of the store the settlement pipeline mutates.
// *store.Store satisfies it.
type SettlementStore interface {
	GetWorkout(id int64) (*store.Workout, error)
	FinishWorkout(w *store.Workout) error
	SetWorkoutXP(id int64, xp int64) error
	SamplesForWorkout(workoutID int64) ([]store.HeartRateSample, error)
	CompletedWorkoutStartTimes() ([]time.Time, error)
	Profile() (*store.UserProfile, error)
	IncrementWorkoutTotals(burnPoints int, at time.Time) error
	AddXP(deltaXP int64, newLevel int) error
	UpdateStreak(current, longest, shields int, legacyUsed bool) error
	UnlockAchievement(id string, at time.Time) (bool, error)
	QuestsForDay(day int64) ([]*store.DailyQuest, error)
	UpdateQuestProgress(id int64, currentValue int, completed bool) error
}

// SettlementResult is everything the UI shows on the summary screen.
type SettlementResult struct {
	Workout       *store.Workout
	XPEarned      int64
	NewLevel      int
	LeveledUp     bool
	CurrentStreak int
	ShieldUsed    bool
	Unlocked      []progression.AchievementDef
	Completed     []*store.DailyQuest
	EPOCKcal      int
}

// Settler runs the end-of-session pipeline. Settlements are serialized per
// settler; the endTime check makes a duplicate end action a no-op.
type Settler struct {
	store  SettlementStore
	loc    *time.Location
	logger *log.Logger
	mu     sync.Mutex
}

func NewSettler(s SettlementStore, loc *time.Location, logger *log.Logger) *Settler {
	if s == nil {
		panic("Settler: store cannot be nil")
	}
	if logger == nil {
		panic("Settler: logger cannot be nil")
	}
	if loc == nil {
		loc = time.Local
	}
	return &Settler{store: s, loc: loc, logger: logger}
}

// Settle finalizes the workout and applies all progression updates, in
// order: record completion, profile totals, XP and level, streak, the
// achievement registry, today's quests. Aborts as a no-op when the workout
// row is missing and returns ErrAlreadySettled when it already has an end
// time.
func (s *Settler) Settle(workoutID int64, final SessionState, now time.Time) (*SettlementResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	workout, err := s.store.GetWorkout(workoutID)
	if err != nil {
		if errors.Is(err, store.ErrWorkoutNotFound) {
			s.logger.Printf("Settlement: workout %d missing, nothing to do", workoutID)
		}
		return nil, err
	}
	if workout.Completed() {
		return nil, ErrAlreadySettled
	}

	profile, err := s.store.Profile()
	if err != nil {
		return nil, fmt.Errorf("settlement: loading profile: %w", err)
	}

	// Duration plus the heart-rate summary from the sparse samples
	durationSeconds := int(now.Sub(workout.StartTime).Seconds())
	avgHR, maxHR, err := s.sampleSummary(workoutID)
	if err != nil {
		return nil, err
	}

	burnPoints := final.BurnPoints
	var calories *int
	if kcal, ok := progression.EstimateCalories(
		avgHR, durationSeconds/60, profile.Age, profile.WeightKg, profile.Male(),
	); ok {
		calories = &kcal
	}

	workout.EndTime = &now
	workout.DurationSeconds = durationSeconds
	workout.BurnPoints = burnPoints
	workout.AverageHeartRate = avgHR
	workout.MaxHeartRate = maxHR
	workout.ZoneSeconds = final.ZoneSeconds
	workout.EstimatedCalories = calories
	if err := s.store.FinishWorkout(workout); err != nil {
		return nil, fmt.Errorf("settlement: finishing workout: %w", err)
	}

	if err := s.store.IncrementWorkoutTotals(burnPoints, now); err != nil {
		return nil, err
	}

	// XP award. Streak multiplier is currently flat.
	xpEarned := progression.BaseXP(burnPoints, 1.0)
	newTotalXP := profile.TotalXP + xpEarned
	newLevel := progression.LevelForTotalXP(newTotalXP)
	if err := s.store.AddXP(xpEarned, newLevel); err != nil {
		return nil, err
	}
	if err := s.store.SetWorkoutXP(workoutID, xpEarned); err != nil {
		return nil, err
	}
	workout.XPEarned = xpEarned

	streak, shields, legacyUsed, shieldUsed, err := s.recalculateStreak(profile, now)
	if err != nil {
		return nil, err
	}
	longest := profile.LongestStreak
	if streak > longest {
		longest = streak
	}
	if err := s.store.UpdateStreak(streak, longest, shields, legacyUsed); err != nil {
		return nil, err
	}

	unlocked, err := s.evaluateAchievements(progression.AchievementSnapshot{
		TotalWorkouts:          profile.TotalWorkouts + 1,
		CurrentStreak:          streak,
		TotalBurnPoints:        profile.TotalBurnPoints + burnPoints,
		XPLevel:                newLevel,
		WorkoutZoneSeconds:     final.ZoneSeconds,
		WorkoutDurationSeconds: durationSeconds,
		JustFiveMinVariant:     workout.JustFiveMin,
	}, now)
	if err != nil {
		return nil, err
	}

	completed, err := s.updateQuests(final, burnPoints, durationSeconds, now)
	if err != nil {
		return nil, err
	}

	result := &SettlementResult{
		Workout:       workout,
		XPEarned:      xpEarned,
		NewLevel:      newLevel,
		LeveledUp:     newLevel > profile.XPLevel,
		CurrentStreak: streak,
		ShieldUsed:    shieldUsed,
		Unlocked:      unlocked,
		Completed:     completed,
		EPOCKcal:      progression.EstimateEPOC(final.ZoneSeconds, durationSeconds/60),
	}
	s.logger.Printf("Settlement: workout %d done, %d burn points, %d xp, level %d, streak %d, %d unlocks",
		workoutID, burnPoints, xpEarned, newLevel, streak, len(unlocked))
	return result, nil
}

func (s *Settler) sampleSummary(workoutID int64) (avgHR, maxHR int, err error) {
	samples, err := s.store.SamplesForWorkout(workoutID)
	if err != nil {
		return 0, 0, fmt.Errorf("settlement: loading samples: %w", err)
	}
	if len(samples) == 0 {
		return 0, 0, nil
	}

	sum := 0
	for _, sample := range samples {
		sum += sample.HeartRate
		if sample.HeartRate > maxHR {
			maxHR = sample.HeartRate
		}
	}
	avgHR = (sum + len(samples)/2) / len(samples)
	return avgHR, maxHR, nil
}

// recalculateStreak walks the set of completed workout days. When the run
// is broken, a shield from the inventory preserves the previous streak; a
// never-consumed legacy weekly shield is the fallback. Otherwise the streak
// resets.
func (s *Settler) recalculateStreak(profile *store.UserProfile, now time.Time) (streak, shields int, legacyUsed, shieldUsed bool, err error) {
	starts, err := s.store.CompletedWorkoutStartTimes()
	if err != nil {
		return 0, 0, false, false, fmt.Errorf("settlement: loading workout days: %w", err)
	}

	days := make(map[int64]bool, len(starts))
	for _, start := range starts {
		days[progression.EpochDay(start, s.loc)] = true
	}
	today := progression.EpochDay(now, s.loc)

	streak = progression.ConsecutiveDays(days, today)
	shields = profile.StreakShields
	legacyUsed = profile.LegacyShieldUsed

	if streak == 0 && profile.CurrentStreak > 0 {
		switch {
		case shields > 0:
			shields--
			streak = profile.CurrentStreak
			shieldUsed = true
			s.logger.Printf("Settlement: streak shield consumed, %d left", shields)
		case !legacyUsed:
			legacyUsed = true
			streak = profile.CurrentStreak
			shieldUsed = true
			s.logger.Printf("Settlement: legacy weekly shield consumed")
		}
	}
	return streak, shields, legacyUsed, shieldUsed, nil
}

func (s *Settler) evaluateAchievements(snapshot progression.AchievementSnapshot, now time.Time) ([]progression.AchievementDef, error) {
	var unlocked []progression.AchievementDef
	for _, def := range progression.Achievements {
		if !def.Unlocked(snapshot) {
			continue
		}
		first, err := s.store.UnlockAchievement(def.ID, now)
		if err != nil {
			if errors.Is(err, store.ErrAchievementNotFound) {
				continue
			}
			return nil, fmt.Errorf("settlement: unlocking %s: %w", def.ID, err)
		}
		if first {
			unlocked = append(unlocked, def)
		}
	}
	return unlocked, nil
}

// updateQuests feeds this session's metrics into today's open quests.
func (s *Settler) updateQuests(final SessionState, burnPoints, durationSeconds int, now time.Time) ([]*store.DailyQuest, error) {
	today := progression.EpochDay(now, s.loc)
	quests, err := s.store.QuestsForDay(today)
	if err != nil {
		return nil, fmt.Errorf("settlement: loading quests: %w", err)
	}

	var completed []*store.DailyQuest
	for _, q := range quests {
		if q.Completed {
			continue
		}

		var delta int
		switch q.Type {
		case store.QuestDuration:
			delta = durationSeconds
		case store.QuestBurnPoints:
			delta = burnPoints
		case store.QuestZoneTarget:
			delta = final.ZoneSeconds.PushPeakSeconds()
		default:
			s.logger.Printf("Settlement: unknown quest type %q, skipping", q.Type)
			continue
		}
		if delta == 0 {
			continue
		}

		q.CurrentValue += delta
		q.Completed = q.CurrentValue >= q.TargetValue
		if err := s.store.UpdateQuestProgress(q.ID, q.CurrentValue, q.Completed); err != nil {
			return nil, fmt.Errorf("settlement: updating quest %d: %w", q.ID, err)
		}
		if q.Completed {
			completed = append(completed, q)
		}
	}
	return completed, nil
}
