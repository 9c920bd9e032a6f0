package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowaak/pulsefit/internal/store"
)

func newTestManager(t *testing.T) (*Manager, *stubSource, *store.Store) {
	t.Helper()
	s := store.NewTestStore(t)
	seedAchievements(t, s)
	_, err := s.Profile()
	require.NoError(t, err)

	source := newStubSource()
	settler := NewSettler(s, time.UTC, testLogger())
	m := NewManager(s, source, settler, time.UTC, "", testLogger())
	return m, source, s
}

func TestManagerSessionLifecycle(t *testing.T) {
	m, source, s := newTestManager(t)
	source.heartRate.Set(130)

	require.False(t, m.Active())
	require.NoError(t, m.StartSession(false))
	assert.True(t, m.Active())
	assert.ErrorIs(t, m.StartSession(false), ErrSessionActive)

	stream := m.State()
	require.NotNil(t, stream)
	assert.NotZero(t, stream.Latest().WorkoutID)

	result, err := m.EndSession()
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, m.Active())
	assert.True(t, result.Workout.Completed())
	assert.Equal(t, 1, source.disconnectCount())

	_, err = m.EndSession()
	assert.ErrorIs(t, err, ErrNoSession)

	// The quest set was generated for today
	quests, err := m.Quests()
	require.NoError(t, err)
	assert.Len(t, quests, 3)

	workouts, err := s.ListRecentWorkouts(10)
	require.NoError(t, err)
	require.Len(t, workouts, 1)
}

func TestManagerShutdownAbandonsSession(t *testing.T) {
	m, source, s := newTestManager(t)
	source.heartRate.Set(120)

	require.NoError(t, m.StartSession(false))
	m.Shutdown()
	assert.False(t, m.Active())
	assert.Equal(t, 1, source.disconnectCount())

	// The open row never settles, so it is absent from history
	workouts, err := s.ListRecentWorkouts(10)
	require.NoError(t, err)
	assert.Empty(t, workouts)

	p, err := s.Profile()
	require.NoError(t, err)
	assert.Zero(t, p.TotalWorkouts)
}
