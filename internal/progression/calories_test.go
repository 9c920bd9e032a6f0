package progression

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowaak/pulsefit/internal/zone"
)

func TestEstimateCalories_MissingWeight(t *testing.T) {
	_, ok := EstimateCalories(140, 30, 30, 0, true)
	assert.False(t, ok)
}

func TestEstimateCalories_InvalidInputs(t *testing.T) {
	_, ok := EstimateCalories(0, 30, 30, 75, true)
	assert.False(t, ok)
	_, ok = EstimateCalories(140, 0, 30, 75, true)
	assert.False(t, ok)
}

func TestEstimateCalories_MaleRegression(t *testing.T) {
	cal, ok := EstimateCalories(140, 30, 30, 75, true)
	require.True(t, ok)
	// (-55.0969 + 0.6309*140 + 0.1988*75 + 0.2017*30) / 4.184 * 30
	assert.Equal(t, 388, cal)
}

func TestEstimateCalories_FemaleRegression(t *testing.T) {
	cal, ok := EstimateCalories(140, 30, 30, 60, false)
	require.True(t, ok)
	// (-20.4022 + 0.4472*140 - 0.1263*60 + 0.074*30) / 4.184 * 30
	assert.Equal(t, 264, cal)
}

func TestEstimateCalories_ClampsNegative(t *testing.T) {
	// very low HR drives the male regression negative
	cal, ok := EstimateCalories(1, 5, 20, 40, true)
	require.True(t, ok)
	assert.Equal(t, 0, cal)
}

func TestEstimateEPOC(t *testing.T) {
	var times zone.Times
	times.Add(zone.Push, 600) // 10 min * 1.5
	times.Add(zone.Peak, 300) // 5 min * 3.0
	assert.Equal(t, 30, EstimateEPOC(times, 20))

	assert.Equal(t, 0, EstimateEPOC(times, 0))
	assert.Equal(t, 0, EstimateEPOC(zone.Times{}, 20))
}
