package progression

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestXPForLevel_TableHead(t *testing.T) {
	assert.Equal(t, int64(100), XPForLevel(1))
	// 100 + 100*15/100 + 50
	assert.Equal(t, int64(165), XPForLevel(2))
	// 165 + 165*15/100 + 50 = 165 + 24 + 50
	assert.Equal(t, int64(239), XPForLevel(3))
}

func TestXPForLevel_OutOfRange(t *testing.T) {
	huge := XPForLevel(0)
	assert.Greater(t, huge, int64(1)<<60)
	assert.Equal(t, huge, XPForLevel(MaxLevel+1))
}

func TestLevelForTotalXP_Boundaries(t *testing.T) {
	assert.Equal(t, 1, LevelForTotalXP(0))
	assert.Equal(t, 1, LevelForTotalXP(99))
	assert.Equal(t, 2, LevelForTotalXP(100))
	// cumulative through level 2 is 100+165=265
	assert.Equal(t, 2, LevelForTotalXP(264))
	assert.Equal(t, 3, LevelForTotalXP(265))
}

func TestLevelForTotalXP_Monotonic(t *testing.T) {
	prev := 0
	for xp := int64(0); xp < 100_000; xp += 137 {
		level := LevelForTotalXP(xp)
		assert.GreaterOrEqual(t, level, prev, "level decreased at xp=%d", xp)
		prev = level
	}
}

func TestLevelForTotalXP_CapsAtMaxLevel(t *testing.T) {
	assert.Equal(t, MaxLevel, LevelForTotalXP(int64(1)<<62-1))
}

func TestXPProgressInLevel(t *testing.T) {
	assert.Equal(t, 0.0, XPProgressInLevel(0))
	assert.InDelta(t, 0.5, XPProgressInLevel(50), 0.001)
	// exactly at the level 2 boundary: 0 XP into level 2
	assert.InDelta(t, 0.0, XPProgressInLevel(100), 0.001)
}

func TestBaseXP(t *testing.T) {
	assert.Equal(t, int64(100), BaseXP(10, 1.0))
	assert.Equal(t, int64(0), BaseXP(0, 1.0))
	// multiplier result truncates
	assert.Equal(t, int64(154), BaseXP(11, 1.4))
}
