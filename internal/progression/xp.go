package progression

// MaxLevel caps the XP level table.
const MaxLevel = 100

// levelThresholds[i] is the XP needed to advance through level i+1.
// threshold[0] = 100 and each subsequent entry grows ~15% plus a flat 50,
// computed in integer math so the table is reproducible.
var levelThresholds = buildLevelThresholds()

func buildLevelThresholds() [MaxLevel]int64 {
	var thresholds [MaxLevel]int64
	t := int64(100)
	for i := 0; i < MaxLevel; i++ {
		thresholds[i] = t
		t = t + t*15/100 + 50
	}
	return thresholds
}

// XPForLevel returns the XP span of the given level (1-based). Levels beyond
// the table are unreachable.
func XPForLevel(level int) int64 {
	if level < 1 || level > MaxLevel {
		return int64(1)<<62 - 1
	}
	return levelThresholds[level-1]
}

// LevelForTotalXP returns the level reached with the given total XP: the
// smallest level whose cumulative threshold exceeds totalXp, capped at
// MaxLevel. LevelForTotalXP(0) == 1.
func LevelForTotalXP(totalXp int64) int {
	var accumulated int64
	for i := 0; i < MaxLevel; i++ {
		accumulated += levelThresholds[i]
		if totalXp < accumulated {
			return i + 1
		}
	}
	return MaxLevel
}

// XPProgressInLevel returns how far into the current level the total XP sits,
// as a fraction in [0, 1]. Used for progress rings in the UI.
func XPProgressInLevel(totalXp int64) float64 {
	level := LevelForTotalXP(totalXp)
	var accumulated int64
	for i := 0; i < level-1; i++ {
		accumulated += levelThresholds[i]
	}
	inLevel := totalXp - accumulated
	needed := XPForLevel(level)
	if needed <= 0 {
		return 0
	}
	progress := float64(inLevel) / float64(needed)
	if progress < 0 {
		return 0
	}
	if progress > 1 {
		return 1
	}
	return progress
}

// BaseXP returns the XP awarded for a workout's burn points. The streak
// multiplier defaults to 1.0 for standard sessions; the result is truncated.
func BaseXP(burnPoints int, streakMultiplier float64) int64 {
	return int64(float64(burnPoints) * 10 * streakMultiplier)
}
