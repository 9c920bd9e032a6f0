package progression

import "time"

// EpochDay buckets a timestamp into a calendar day in the given location,
// expressed as days since the Unix epoch.
func EpochDay(t time.Time, loc *time.Location) int64 {
	local := t.In(loc)
	y, m, d := local.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return midnight.Unix() / 86400
}

// ConsecutiveDays counts the current streak: starting from today (or
// yesterday, if today has no workout yet), walk backwards while each day is
// present in the set. Returns 0 when neither today nor yesterday is present -
// whether a shield preserves the previous streak is the caller's decision.
func ConsecutiveDays(workoutDays map[int64]bool, today int64) int {
	if len(workoutDays) == 0 {
		return 0
	}

	checkDay := today
	if !workoutDays[checkDay] {
		checkDay = today - 1
		if !workoutDays[checkDay] {
			return 0
		}
	}

	streak := 0
	for workoutDays[checkDay] {
		streak++
		checkDay--
	}
	return streak
}
