package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowaak/pulsefit/internal/zone"
)

func TestWorkoutLifecycle(t *testing.T) {
	s := NewTestStore(t)

	start := time.Date(2026, 8, 28, 7, 30, 0, 0, time.UTC)
	id, err := s.CreateWorkout(start, false)
	require.NoError(t, err)
	require.NotZero(t, id)

	w, err := s.GetWorkout(id)
	require.NoError(t, err)
	assert.True(t, w.StartTime.Equal(start))
	assert.Nil(t, w.EndTime)
	assert.False(t, w.Completed())

	end := start.Add(10 * time.Minute)
	calories := 125
	w.EndTime = &end
	w.DurationSeconds = 600
	w.BurnPoints = 10
	w.AverageHeartRate = 131
	w.MaxHeartRate = 144
	w.ZoneSeconds = zone.Times{0, 0, 600, 0, 0}
	w.EstimatedCalories = &calories
	require.NoError(t, s.FinishWorkout(w))
	require.NoError(t, s.SetWorkoutXP(id, 100))

	got, err := s.GetWorkout(id)
	require.NoError(t, err)
	assert.True(t, got.Completed())
	assert.Equal(t, 600, got.DurationSeconds)
	assert.Equal(t, 10, got.BurnPoints)
	assert.Equal(t, 131, got.AverageHeartRate)
	assert.Equal(t, 600, got.ZoneSeconds[zone.Active])
	assert.Equal(t, int64(100), got.XPEarned)
	require.NotNil(t, got.EstimatedCalories)
	assert.Equal(t, 125, *got.EstimatedCalories)
}

func TestGetWorkoutNotFound(t *testing.T) {
	s := NewTestStore(t)

	_, err := s.GetWorkout(42)
	assert.ErrorIs(t, err, ErrWorkoutNotFound)
}

func TestFinishWorkoutRequiresEndTime(t *testing.T) {
	s := NewTestStore(t)

	id, err := s.CreateWorkout(time.Now(), false)
	require.NoError(t, err)

	w, err := s.GetWorkout(id)
	require.NoError(t, err)
	assert.Error(t, s.FinishWorkout(w))
}

func TestCompletedWorkoutStartTimesSkipsOpenSessions(t *testing.T) {
	s := NewTestStore(t)

	start := time.Date(2026, 8, 27, 18, 0, 0, 0, time.UTC)
	id, err := s.CreateWorkout(start, false)
	require.NoError(t, err)

	// Open session, not part of the history yet.
	_, err = s.CreateWorkout(start.Add(24*time.Hour), false)
	require.NoError(t, err)

	end := start.Add(20 * time.Minute)
	w, err := s.GetWorkout(id)
	require.NoError(t, err)
	w.EndTime = &end
	require.NoError(t, s.FinishWorkout(w))

	starts, err := s.CompletedWorkoutStartTimes()
	require.NoError(t, err)
	require.Len(t, starts, 1)
	assert.True(t, starts[0].Equal(start))
}

func TestSamplesRoundTrip(t *testing.T) {
	s := NewTestStore(t)

	id, err := s.CreateWorkout(time.Now(), false)
	require.NoError(t, err)

	base := time.Date(2026, 8, 28, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		err := s.AppendSample(HeartRateSample{
			WorkoutID:  id,
			RecordedAt: base.Add(time.Duration(i*5) * time.Second),
			HeartRate:  120 + i,
			Zone:       zone.Active,
		})
		require.NoError(t, err)
	}

	samples, err := s.SamplesForWorkout(id)
	require.NoError(t, err)
	require.Len(t, samples, 3)
	assert.Equal(t, 120, samples[0].HeartRate)
	assert.Equal(t, 122, samples[2].HeartRate)
	assert.Equal(t, zone.Active, samples[1].Zone)
}

func TestProfileCreatedOnFirstAccess(t *testing.T) {
	s := NewTestStore(t)

	p, err := s.Profile()
	require.NoError(t, err)
	assert.Equal(t, 190, p.MaxHeartRate)
	assert.Equal(t, 1, p.XPLevel)
	assert.Equal(t, zone.DefaultThresholds(), p.Thresholds)
	assert.True(t, p.Male())

	p.MaxHeartRate = 185
	p.WeightKg = 72.5
	p.BiologicalSex = "female"
	require.NoError(t, s.SaveProfile(p))

	got, err := s.Profile()
	require.NoError(t, err)
	assert.Equal(t, 185, got.MaxHeartRate)
	assert.Equal(t, 72.5, got.WeightKg)
	assert.False(t, got.Male())
}

func TestProfileProgressionUpdates(t *testing.T) {
	s := NewTestStore(t)

	_, err := s.Profile()
	require.NoError(t, err)

	at := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.IncrementWorkoutTotals(12, at))
	require.NoError(t, s.AddXP(150, 2))
	require.NoError(t, s.UpdateStreak(3, 5, 1, true))

	p, err := s.Profile()
	require.NoError(t, err)
	assert.Equal(t, 1, p.TotalWorkouts)
	assert.Equal(t, 12, p.TotalBurnPoints)
	assert.Equal(t, int64(150), p.TotalXP)
	assert.Equal(t, 2, p.XPLevel)
	assert.Equal(t, 3, p.CurrentStreak)
	assert.Equal(t, 5, p.LongestStreak)
	assert.Equal(t, 1, p.StreakShields)
	assert.True(t, p.LegacyShieldUsed)
	require.NotNil(t, p.LastWorkoutAt)
	assert.True(t, p.LastWorkoutAt.Equal(at))
}

func TestAchievementUnlockOnce(t *testing.T) {
	s := NewTestStore(t)

	defs := []Achievement{
		{ID: "first_workout", Title: "First Steps", Description: "Complete your first workout"},
		{ID: "streak_3", Title: "On a Roll", Description: "Reach a 3 day streak"},
	}
	require.NoError(t, s.SeedAchievements(defs))

	// Re-seeding must not disturb existing rows.
	require.NoError(t, s.SeedAchievements(defs))

	all, err := s.Achievements()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Nil(t, all[0].UnlockedAt)

	at := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	first, err := s.UnlockAchievement("first_workout", at)
	require.NoError(t, err)
	assert.True(t, first)

	again, err := s.UnlockAchievement("first_workout", at.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, again)

	a, err := s.Achievement("first_workout")
	require.NoError(t, err)
	require.NotNil(t, a.UnlockedAt)
	assert.True(t, a.UnlockedAt.Equal(at))

	_, err = s.Achievement("missing")
	assert.ErrorIs(t, err, ErrAchievementNotFound)
}

func TestQuestLifecycle(t *testing.T) {
	s := NewTestStore(t)

	day := int64(20693)
	quests := []*DailyQuest{
		{Day: day, Type: QuestDuration, Title: "Quick Move", Description: "Work out for 10 minutes", TargetValue: 600, Difficulty: 1, XPReward: 50},
		{Day: day, Type: QuestBurnPoints, Title: "Point Chaser", Description: "Earn 8 burn points", TargetValue: 8, Difficulty: 2, XPReward: 75},
	}
	require.NoError(t, s.CreateQuests(quests))
	assert.NotZero(t, quests[0].ID)

	got, err := s.QuestsForDay(day)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, QuestDuration, got[0].Type)
	assert.False(t, got[0].Completed)

	require.NoError(t, s.UpdateQuestProgress(got[0].ID, 600, true))
	got, err = s.QuestsForDay(day)
	require.NoError(t, err)
	assert.True(t, got[0].Completed)
	assert.Equal(t, 600, got[0].CurrentValue)

	assert.ErrorIs(t, s.UpdateQuestProgress(9999, 1, false), ErrQuestNotFound)

	require.NoError(t, s.DeleteQuestsBefore(day+7))
	got, err = s.QuestsForDay(day)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestForeignKeyCascadeDeletesSamples(t *testing.T) {
	s := NewTestStore(t)

	id, err := s.CreateWorkout(time.Now(), false)
	require.NoError(t, err)
	require.NoError(t, s.AppendSample(HeartRateSample{
		WorkoutID:  id,
		RecordedAt: time.Now(),
		HeartRate:  120,
		Zone:       zone.Active,
	}))

	_, err = s.db.Exec(`DELETE FROM workouts WHERE id = ?`, id)
	require.NoError(t, err)

	samples, err := s.SamplesForWorkout(id)
	require.NoError(t, err)
	assert.Empty(t, samples)
}
