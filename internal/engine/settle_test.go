package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowaak/pulsefit/internal/progression"
	"github.com/lowaak/pulsefit/internal/store"
	"github.com/lowaak/pulsefit/internal/zone"
)

func seedAchievements(t *testing.T, s *store.Store) {
	t.Helper()
	defs := make([]store.Achievement, 0, len(progression.Achievements))
	for _, def := range progression.Achievements {
		defs = append(defs, store.Achievement{ID: def.ID, Title: def.Title, Description: def.Description})
	}
	require.NoError(t, s.SeedAchievements(defs))
}

// newSettledSession creates a workout row plus sparse samples and returns
// the final state of a 600 second all-Active session worth 10 burn points.
func newSettledSession(t *testing.T, s *store.Store, start time.Time) (int64, SessionState) {
	t.Helper()
	id, err := s.CreateWorkout(start, false)
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		require.NoError(t, s.AppendSample(store.HeartRateSample{
			WorkoutID:  id,
			RecordedAt: start.Add(time.Duration(i*5) * time.Second),
			HeartRate:  128 + i, // avg 129.5 rounds to 130, max 131
			Zone:       zone.Active,
		}))
	}

	final := SessionState{
		WorkoutID:        id,
		StartTime:        start,
		ElapsedSeconds:   600,
		PointAccumulator: 10.0,
		BurnPoints:       10,
	}
	final.ZoneSeconds.Add(zone.Active, 600)
	return id, final
}

func newTestSettler(t *testing.T) (*Settler, *store.Store) {
	t.Helper()
	s := store.NewTestStore(t)
	seedAchievements(t, s)
	_, err := s.Profile()
	require.NoError(t, err)
	return NewSettler(s, time.UTC, testLogger()), s
}

func TestSettleHappyPath(t *testing.T) {
	settler, s := newTestSettler(t)

	// Give the profile a weight so a calorie estimate appears
	p, err := s.Profile()
	require.NoError(t, err)
	p.WeightKg = 75
	p.Age = 30
	require.NoError(t, s.SaveProfile(p))

	now := time.Date(2026, 8, 28, 8, 10, 0, 0, time.UTC)
	id, final := newSettledSession(t, s, now.Add(-10*time.Minute))

	_, err = EnsureDailyQuests(s, time.UTC, now, testLogger())
	require.NoError(t, err)

	result, err := settler.Settle(id, final, now)
	require.NoError(t, err)
	require.NotNil(t, result)

	// Workout record
	w, err := s.GetWorkout(id)
	require.NoError(t, err)
	assert.True(t, w.Completed())
	assert.Equal(t, 600, w.DurationSeconds)
	assert.Equal(t, 10, w.BurnPoints)
	assert.Equal(t, 130, w.AverageHeartRate)
	assert.Equal(t, 131, w.MaxHeartRate)
	assert.Equal(t, 600, w.ZoneSeconds.Seconds(zone.Active))
	require.NotNil(t, w.EstimatedCalories)
	assert.Greater(t, *w.EstimatedCalories, 0)
	assert.Equal(t, int64(100), w.XPEarned)

	// Progression
	p, err = s.Profile()
	require.NoError(t, err)
	assert.Equal(t, 1, p.TotalWorkouts)
	assert.Equal(t, 10, p.TotalBurnPoints)
	assert.Equal(t, int64(100), p.TotalXP)
	assert.Equal(t, 2, p.XPLevel)
	assert.Equal(t, 1, p.CurrentStreak)
	assert.Equal(t, 1, p.LongestStreak)

	assert.Equal(t, int64(100), result.XPEarned)
	assert.Equal(t, 2, result.NewLevel)
	assert.True(t, result.LeveledUp)
	assert.Equal(t, 1, result.CurrentStreak)
	assert.False(t, result.ShieldUsed)

	// Only the first-workout achievement fires
	require.Len(t, result.Unlocked, 1)
	assert.Equal(t, "first_workout", result.Unlocked[0].ID)

	// Duration and burn-point quests complete, the zone quest does not
	require.Len(t, result.Completed, 2)
	quests, err := s.QuestsForDay(progression.EpochDay(now, time.UTC))
	require.NoError(t, err)
	for _, q := range quests {
		switch q.Type {
		case store.QuestDuration:
			assert.True(t, q.Completed)
			assert.Equal(t, 600, q.CurrentValue)
		case store.QuestBurnPoints:
			assert.True(t, q.Completed)
			assert.Equal(t, 10, q.CurrentValue)
		case store.QuestZoneTarget:
			assert.False(t, q.Completed)
			assert.Equal(t, 0, q.CurrentValue)
		}
	}
}

func TestSettleMissingWorkoutIsNoOp(t *testing.T) {
	settler, s := newTestSettler(t)

	_, err := settler.Settle(12345, SessionState{}, time.Now())
	assert.ErrorIs(t, err, store.ErrWorkoutNotFound)

	p, err := s.Profile()
	require.NoError(t, err)
	assert.Zero(t, p.TotalWorkouts)
	assert.Zero(t, p.TotalXP)
}

func TestSettleTwiceIsRejected(t *testing.T) {
	settler, s := newTestSettler(t)

	now := time.Now().UTC()
	id, final := newSettledSession(t, s, now.Add(-10*time.Minute))

	_, err := settler.Settle(id, final, now)
	require.NoError(t, err)

	_, err = settler.Settle(id, final, now)
	assert.ErrorIs(t, err, ErrAlreadySettled)

	// No double award
	p, err := s.Profile()
	require.NoError(t, err)
	assert.Equal(t, 1, p.TotalWorkouts)
	assert.Equal(t, int64(100), p.TotalXP)
}

func TestSettleNoWeightNoCalorieEstimate(t *testing.T) {
	settler, s := newTestSettler(t)

	now := time.Now().UTC()
	id, final := newSettledSession(t, s, now.Add(-10*time.Minute))

	result, err := settler.Settle(id, final, now)
	require.NoError(t, err)
	assert.Nil(t, result.Workout.EstimatedCalories)
}

func TestSettleShieldPreservesBrokenStreak(t *testing.T) {
	settler, s := newTestSettler(t)

	p, err := s.Profile()
	require.NoError(t, err)
	p.CurrentStreak = 5
	p.LongestStreak = 5
	p.StreakShields = 2
	require.NoError(t, s.SaveProfile(p))

	// The only workout day is three days back, so the run is broken
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	id, final := newSettledSession(t, s, now.AddDate(0, 0, -3))

	result, err := settler.Settle(id, final, now)
	require.NoError(t, err)
	assert.True(t, result.ShieldUsed)
	assert.Equal(t, 5, result.CurrentStreak)

	p, err = s.Profile()
	require.NoError(t, err)
	assert.Equal(t, 5, p.CurrentStreak)
	assert.Equal(t, 1, p.StreakShields)
	assert.False(t, p.LegacyShieldUsed)
}

func TestSettleLegacyShieldFallback(t *testing.T) {
	settler, s := newTestSettler(t)

	p, err := s.Profile()
	require.NoError(t, err)
	p.CurrentStreak = 4
	p.LongestStreak = 6
	require.NoError(t, s.SaveProfile(p))

	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	id, final := newSettledSession(t, s, now.AddDate(0, 0, -3))

	result, err := settler.Settle(id, final, now)
	require.NoError(t, err)
	assert.True(t, result.ShieldUsed)
	assert.Equal(t, 4, result.CurrentStreak)

	p, err = s.Profile()
	require.NoError(t, err)
	assert.Equal(t, 4, p.CurrentStreak)
	assert.True(t, p.LegacyShieldUsed)
	assert.Equal(t, 6, p.LongestStreak)
}

func TestSettleStreakResetsWithoutShields(t *testing.T) {
	settler, s := newTestSettler(t)

	p, err := s.Profile()
	require.NoError(t, err)
	p.CurrentStreak = 4
	p.LegacyShieldUsed = true
	require.NoError(t, s.SaveProfile(p))

	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	id, final := newSettledSession(t, s, now.AddDate(0, 0, -3))

	result, err := settler.Settle(id, final, now)
	require.NoError(t, err)
	assert.False(t, result.ShieldUsed)
	assert.Equal(t, 0, result.CurrentStreak)
}

func TestSettleConsecutiveDaysBuildStreak(t *testing.T) {
	settler, s := newTestSettler(t)

	now := time.Date(2026, 8, 28, 19, 0, 0, 0, time.UTC)
	for daysAgo := 2; daysAgo >= 1; daysAgo-- {
		id, final := newSettledSession(t, s, now.AddDate(0, 0, -daysAgo))
		_, err := settler.Settle(id, final, now.AddDate(0, 0, -daysAgo).Add(10*time.Minute))
		require.NoError(t, err)
	}

	id, final := newSettledSession(t, s, now.Add(-10*time.Minute))
	result, err := settler.Settle(id, final, now)
	require.NoError(t, err)
	assert.Equal(t, 3, result.CurrentStreak)

	// Three in a row also fires the streak achievement
	ids := make([]string, 0, len(result.Unlocked))
	for _, def := range result.Unlocked {
		ids = append(ids, def.ID)
	}
	assert.Contains(t, ids, "streak_3")
}

func TestSettleAchievementsNotReReturned(t *testing.T) {
	settler, s := newTestSettler(t)

	now := time.Now().UTC()
	id, final := newSettledSession(t, s, now.Add(-20*time.Minute))
	first, err := settler.Settle(id, final, now.Add(-10*time.Minute))
	require.NoError(t, err)
	require.Len(t, first.Unlocked, 1)

	id2, final2 := newSettledSession(t, s, now.Add(-9*time.Minute))
	second, err := settler.Settle(id2, final2, now)
	require.NoError(t, err)
	for _, def := range second.Unlocked {
		assert.NotEqual(t, "first_workout", def.ID)
	}
}

func TestSettlePeakTimeAchievement(t *testing.T) {
	settler, s := newTestSettler(t)

	now := time.Now().UTC()
	id, err := s.CreateWorkout(now.Add(-10*time.Minute), false)
	require.NoError(t, err)

	final := SessionState{WorkoutID: id, ElapsedSeconds: 900, BurnPoints: 36, PointAccumulator: 36.0}
	final.ZoneSeconds.Add(zone.Peak, 360)
	final.ZoneSeconds.Add(zone.Push, 540)

	result, err := settler.Settle(id, final, now)
	require.NoError(t, err)

	ids := make([]string, 0, len(result.Unlocked))
	for _, def := range result.Unlocked {
		ids = append(ids, def.ID)
	}
	assert.Contains(t, ids, "peak_5min")
	assert.Contains(t, ids, "hyperfocus")
	assert.Greater(t, result.EPOCKcal, 0)
}
