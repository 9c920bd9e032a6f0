package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowaak/pulsefit/internal/progression"
	"github.com/lowaak/pulsefit/internal/store"
)

func TestEnsureDailyQuestsGeneratesOnce(t *testing.T) {
	s := store.NewTestStore(t)
	now := time.Date(2026, 8, 28, 7, 0, 0, 0, time.UTC)

	quests, err := EnsureDailyQuests(s, time.UTC, now, testLogger())
	require.NoError(t, err)
	require.Len(t, quests, 3)

	types := map[store.QuestType]bool{}
	for _, q := range quests {
		types[q.Type] = true
		assert.False(t, q.Completed)
		assert.NotZero(t, q.TargetValue)
		assert.NotZero(t, q.XPReward)
	}
	assert.True(t, types[store.QuestDuration])
	assert.True(t, types[store.QuestBurnPoints])
	assert.True(t, types[store.QuestZoneTarget])

	// A later call the same day returns the existing set
	again, err := EnsureDailyQuests(s, time.UTC, now.Add(6*time.Hour), testLogger())
	require.NoError(t, err)
	require.Len(t, again, 3)
	assert.Equal(t, quests[0].ID, again[0].ID)
}

func TestEnsureDailyQuestsPrunesOldDays(t *testing.T) {
	s := store.NewTestStore(t)
	now := time.Date(2026, 8, 28, 7, 0, 0, 0, time.UTC)
	oldDay := progression.EpochDay(now.AddDate(0, 0, -10), time.UTC)

	require.NoError(t, s.CreateQuests(dailyQuestSet(oldDay)))

	_, err := EnsureDailyQuests(s, time.UTC, now, testLogger())
	require.NoError(t, err)

	stale, err := s.QuestsForDay(oldDay)
	require.NoError(t, err)
	assert.Empty(t, stale)
}
